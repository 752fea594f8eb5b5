// FILE: lixenwraith/sinklog/example/fasthttp/main.go
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/lixenwraith/sinklog"
	"github.com/lixenwraith/sinklog/compat"
)

func main() {
	logger, err := sinklog.NewBuilder().
		Terminal("console", sinklog.TargetStderr).
		File("access", "/var/log/fasthttp/server.log", 64<<20, 8).
		SinkOverride("access", "buffer_size=2048", "compression=zstd").
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Shutdown()

	// Create fasthttp adapter with custom level detection
	fasthttpAdapter := compat.NewFastHTTPAdapter(
		logger,
		compat.WithDefaultLevel(sinklog.LevelInfo),
		compat.WithLevelDetector(customLevelDetector),
	)

	access := logger.With("component", "access")
	server := &fasthttp.Server{
		Handler: func(ctx *fasthttp.RequestCtx) {
			start := time.Now()
			ctx.SetContentType("text/plain")
			fmt.Fprintf(ctx, "Hello, world! Path: %s\n", ctx.Path())
			access.Info("request",
				"method", string(ctx.Method()),
				"path", string(ctx.Path()),
				"status", ctx.Response.StatusCode(),
				"latency", time.Since(start))
		},
		Logger: fasthttpAdapter,

		Name:         "sinklog-example",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	logger.Info("starting server", "addr", ":8080")
	if err := server.ListenAndServe(":8080"); err != nil {
		logger.Error("server stopped", "error", err)
	}
}

func customLevelDetector(msg string) (sinklog.Severity, bool) {
	if strings.Contains(msg, "connection cannot be served") {
		return sinklog.LevelWarn, true
	}
	if strings.Contains(msg, "error when serving connection") {
		return sinklog.LevelError, true
	}

	return compat.DetectLogLevel(msg)
}
