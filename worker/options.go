package worker

import (
	"log/slog"

	"golang.org/x/time/rate"
)

// Option is a functional option for configuring pools and queues.
type Option func(*config)

type config struct {
	cooperative bool
	rateLimiter *rate.Limiter
	logger      *slog.Logger
}

func newConfig(opts ...Option) *config {
	cfg := &config{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithCooperative selects the wait backing used by queues and by the
// pools built on them. When false (the default) blocked consumers park
// on a native mutex and condition variable. When true they block on a
// channel token instead, which composes with select-driven code.
//
// The flag is fixed at construction time and never consulted per call.
func WithCooperative(cooperative bool) Option {
	return func(cfg *config) {
		cfg.cooperative = cooperative
	}
}

// WithRateLimit applies a token-bucket rate limit to job execution.
// perSecond specifies the maximum number of job bodies to run per
// second across all workers; burst specifies how many may run in a
// burst. Group hooks are not limited. If not specified, no rate
// limiting is applied.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(cfg *config) {
		if perSecond > 0 && burst > 0 {
			cfg.rateLimiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

// WithLogger sets the logger used for unmanaged failures such as
// recovered panics. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}
