package event

import (
	"github.com/rs/zerolog"

	"github.com/dshills/switchboard/internal/priority"
)

// Option configures a Registry.
type Option func(*registryConfig)

type registryConfig struct {
	logger          zerolog.Logger
	policy          priority.Policy
	defaultPriority int
}

func defaultRegistryConfig() registryConfig {
	return registryConfig{
		logger:          zerolog.Nop(),
		policy:          priority.Probe,
		defaultPriority: priority.DefaultPriority,
	}
}

// WithLogger sets the logger used for registration and dispatch tracing.
func WithLogger(l zerolog.Logger) Option {
	return func(c *registryConfig) {
		c.logger = l
	}
}

// WithPolicy sets the priority collision policy.
func WithPolicy(p priority.Policy) Option {
	return func(c *registryConfig) {
		c.policy = p
	}
}

// WithDefaultPriority sets the priority used when On is called without
// AtPriority.
func WithDefaultPriority(p int) Option {
	return func(c *registryConfig) {
		if p >= 0 {
			c.defaultPriority = p
		}
	}
}

// OnOption configures a single registration.
type OnOption func(*onConfig)

type onConfig struct {
	priority int
}

// AtPriority requests a priority slot. Lower runs earlier.
func AtPriority(p int) OnOption {
	return func(c *onConfig) {
		c.priority = p
	}
}
