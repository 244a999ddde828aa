package engine

import (
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/goliatone/go-flexforms/pkg/expr"
)

// Outcome labels reported to an Observer.
const (
	OutcomeOK     = "ok"
	OutcomeErrors = "errors"
	OutcomeCycle  = "cycle"
	OutcomeFatal  = "fatal"
)

// Observer receives pass-level measurements. internal/metrics provides a
// Prometheus implementation.
type Observer interface {
	ObservePass(form, outcome string, elapsed time.Duration)
	ObserveFieldError(form, kind string)
}

// Option customises compilation and evaluation.
type Option func(*config)

type config struct {
	compiler expr.Compiler
	coercer  Coercer
	logger   hclog.Logger
	observer Observer
}

func newConfig(opts []Option) config {
	cfg := config{
		compiler: expr.Default(),
		logger:   hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithCompiler selects the expression dialect. The native sandbox is the
// default.
func WithCompiler(compiler expr.Compiler) Option {
	return func(c *config) {
		if compiler != nil {
			c.compiler = compiler
		}
	}
}

// WithCoercer cleans submitted values by field type before evaluation.
func WithCoercer(coercer Coercer) Option {
	return func(c *config) {
		c.coercer = coercer
	}
}

// WithLogger routes pass diagnostics to logger.
func WithLogger(logger hclog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics reports pass outcomes to observer.
func WithMetrics(observer Observer) Option {
	return func(c *config) {
		c.observer = observer
	}
}
