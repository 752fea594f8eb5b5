// FILE: lixenwraith/sinklog/compat/builder.go
package compat

import (
	"fmt"
	"log"

	"github.com/go-logr/logr"

	"github.com/lixenwraith/sinklog"
)

// Builder provides a flexible way to create configured logger adapters for
// gnet, fasthttp, logr and the standard library logger.
// It can use an existing *sinklog.Logger instance or create a new one from a *sinklog.Config
type Builder struct {
	logger *sinklog.Logger
	logCfg *sinklog.Config
	err    error
}

// NewBuilder creates a new adapter builder
func NewBuilder() *Builder {
	return &Builder{}
}

// WithLogger specifies an existing logger to use for the adapters
// If this is set WithConfig is ignored
func (b *Builder) WithLogger(l *sinklog.Logger) *Builder {
	if l == nil {
		b.err = fmt.Errorf("sinklog/compat: provided logger cannot be nil")
		return b
	}
	b.logger = l
	return b
}

// WithConfig provides a configuration for a new logger instance
// This is used only if an existing logger is NOT provided via WithLogger
// If neither is used, a logger with a single stdout terminal sink is created
func (b *Builder) WithConfig(cfg *sinklog.Config) *Builder {
	b.logCfg = cfg
	return b
}

// getLogger resolves the logger to be used, creating one if necessary
func (b *Builder) getLogger() (*sinklog.Logger, error) {
	if b.err != nil {
		return nil, b.err
	}

	if b.logger != nil {
		return b.logger, nil
	}

	cfg := b.logCfg
	if cfg == nil {
		cfg = sinklog.DefaultConfig()
		cfg.Sinks["console"] = sinklog.DefaultSinkConfig(sinklog.SinkTerminal)
	}

	l, err := sinklog.New(cfg)
	if err != nil {
		return nil, err
	}

	// Cache the newly created logger for subsequent builds with this builder
	b.logger = l
	return l, nil
}

// BuildGnet creates a gnet adapter
func (b *Builder) BuildGnet(opts ...GnetOption) (*GnetAdapter, error) {
	l, err := b.getLogger()
	if err != nil {
		return nil, err
	}
	return NewGnetAdapter(l, opts...), nil
}

// BuildStructuredGnet creates a gnet adapter that attempts to extract structured
// fields from log messages for richer, queryable logs
func (b *Builder) BuildStructuredGnet(opts ...GnetOption) (*StructuredGnetAdapter, error) {
	l, err := b.getLogger()
	if err != nil {
		return nil, err
	}
	return NewStructuredGnetAdapter(l, opts...), nil
}

// BuildFastHTTP creates a fasthttp adapter
func (b *Builder) BuildFastHTTP(opts ...FastHTTPOption) (*FastHTTPAdapter, error) {
	l, err := b.getLogger()
	if err != nil {
		return nil, err
	}
	return NewFastHTTPAdapter(l, opts...), nil
}

// BuildLogr creates a logr.Logger
func (b *Builder) BuildLogr() (logr.Logger, error) {
	l, err := b.getLogger()
	if err != nil {
		return logr.Discard(), err
	}
	return NewLogr(l), nil
}

// BuildStdLogger creates a standard library logger writing at sev
func (b *Builder) BuildStdLogger(sev sinklog.Severity) (*log.Logger, error) {
	l, err := b.getLogger()
	if err != nil {
		return nil, err
	}
	return NewStdLogger(l, sev), nil
}

// GetLogger returns the underlying *sinklog.Logger instance
// If a logger has not been provided or created yet, it will be initialized
func (b *Builder) GetLogger() (*sinklog.Logger, error) {
	return b.getLogger()
}

// --- Example Usage ---
//
//	appLogger, err := sinklog.NewBuilder().
//		LevelString("debug").
//		Terminal("console", sinklog.TargetStdout).
//		File("app", "/var/log/app.log", 64<<20, 8).
//		Build()
//	if err != nil { /* handle error */ }
//	defer appLogger.Shutdown()
//
//	builder := compat.NewBuilder().WithLogger(appLogger)
//
//	gnetLogger, _ := builder.BuildGnet()
//	go gnet.Run(events, "tcp://:9000", gnet.WithLogger(gnetLogger))
//
//	fasthttpLogger, _ := builder.BuildFastHTTP()
//	server := &fasthttp.Server{Handler: handler, Logger: fasthttpLogger}
//
//	ctrlLogger, _ := builder.BuildLogr()
//	ctrl.SetLogger(ctrlLogger)
