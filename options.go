package faceindex

import (
	"github.com/hupe1980/faceindex/engine"
	"github.com/hupe1980/faceindex/engine/flat"
	"github.com/hupe1980/faceindex/resource"
)

type options struct {
	engine       engine.Engine
	logger       *Logger
	metrics      MetricsCollector
	version      int
	ioController *resource.Controller
}

func defaultOptions() options {
	return options{
		engine:  flat.New(),
		logger:  NoopLogger(),
		metrics: NoopMetricsCollector{},
	}
}

// Option configures builder and load behavior.
type Option func(*options)

// WithEngine configures the index engine. The default is the flat
// brute-force engine.
func WithEngine(e engine.Engine) Option {
	return func(o *options) {
		if e != nil {
			o.engine = e
		}
	}
}

// WithLogger configures structured logging. The default logger discards all
// output.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics configures operational metrics collection. The default
// collector is a no-op.
func WithMetrics(m MetricsCollector) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithVersion binds the index to a descriptor model version up front.
// Without it, the version is bound by the first accepted descriptor.
func WithVersion(version int) Option {
	return func(o *options) {
		o.version = version
	}
}

// WithIOController throttles persistence IO through the given controller.
// Useful when bulk saves and loads share disks or network links with
// latency-sensitive work.
func WithIOController(c *resource.Controller) Option {
	return func(o *options) {
		o.ioController = c
	}
}
