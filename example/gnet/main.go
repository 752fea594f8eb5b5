// FILE: lixenwraith/sinklog/example/gnet/main.go
package main

import (
	"fmt"
	"os"

	"github.com/panjf2000/gnet/v2"

	"github.com/lixenwraith/sinklog"
	"github.com/lixenwraith/sinklog/compat"
)

// Example gnet event handler
type echoServer struct {
	gnet.BuiltinEventEngine
	log *sinklog.Logger
}

func (es *echoServer) OnBoot(eng gnet.Engine) gnet.Action {
	es.log.Info("echo server started", "addr", "tcp://127.0.0.1:9000")
	return gnet.None
}

func (es *echoServer) OnTraffic(c gnet.Conn) gnet.Action {
	buf, _ := c.Next(-1)
	es.log.Debug("echo", "remote", c.RemoteAddr().String(), "bytes", len(buf))
	_, _ = c.Write(buf)
	return gnet.None
}

func main() {
	logger, err := sinklog.NewBuilder().
		LevelString("debug").
		Terminal("console", sinklog.TargetStdout).
		Structured("events", "/var/log/gnet/events.json", 16<<20, 4).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Shutdown()

	gnetAdapter, err := compat.NewBuilder().WithLogger(logger).BuildStructuredGnet()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create adapter: %v\n", err)
		os.Exit(1)
	}

	err = gnet.Run(
		&echoServer{log: logger.With("server", "echo")},
		"tcp://127.0.0.1:9000",
		gnet.WithMulticore(true),
		gnet.WithLogger(gnetAdapter),
		gnet.WithReusePort(true),
	)
	if err != nil {
		logger.Error("gnet stopped", "error", err)
	}
}
