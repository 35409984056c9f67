package config

import (
	"errors"
	"fmt"
	"time"
)

// Defaults applied by ApplyDefaults for zero-valued fields.
const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultQueryTimeout   = 10 * time.Second
	DefaultPollInterval   = 10 * time.Millisecond
	DefaultQueueBuffer    = 1024
	DefaultMediaType      = 'T'
	DefaultUserType       = 'W'
)

// Config groups the settings required to initialise the Service.
type Config struct {
	// Transport selects the native transport implementation by its
	// registered name (e.g. "sim").
	Transport string

	// ServerAddress and ServerPort are forwarded to the native transport
	// before connecting. Empty/zero values leave the transport's own
	// defaults in place.
	ServerAddress string
	ServerPort    int

	// MediaType and UserType are the one-byte connection qualifiers the
	// native login call expects. Defaults: 'T' and 'W'.
	MediaType byte
	UserType  byte

	// ConnectTimeout bounds Connect; QueryTimeout bounds Query, Attach and
	// Detach. A context with an earlier deadline tightens either.
	ConnectTimeout time.Duration
	QueryTimeout   time.Duration

	// PollInterval is the cadence at which waiting calls re-check for
	// cancellation between event arrivals.
	PollInterval time.Duration

	// QueueBuffer is the event queue depth per subscriber. The pump never
	// blocks the native callback as long as the consumer keeps up within
	// this window.
	QueueBuffer int

	// Metrics configuration.
	MetricsEnabled bool
	// MetricsPort is the port where Prometheus metrics will be exposed.
	// Zero disables the HTTP endpoint even when metrics are enabled.
	MetricsPort int
}

// Getter methods to implement transport.Config interface.
func (c *Config) GetTransport() string     { return c.Transport }
func (c *Config) GetServerAddress() string { return c.ServerAddress }
func (c *Config) GetServerPort() int       { return c.ServerPort }

func (c Config) String() string {
	// Use a type alias to avoid infinite recursion when printing
	type configAlias Config
	return fmt.Sprintf("%+v", configAlias(c))
}

// ApplyDefaults fills zero-valued fields with the package defaults and
// returns the updated copy.
func (c Config) ApplyDefaults() Config {
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.QueryTimeout == 0 {
		c.QueryTimeout = DefaultQueryTimeout
	}
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.QueueBuffer == 0 {
		c.QueueBuffer = DefaultQueueBuffer
	}
	if c.MediaType == 0 {
		c.MediaType = DefaultMediaType
	}
	if c.UserType == 0 {
		c.UserType = DefaultUserType
	}
	return c
}

// Validate checks that the configuration is usable. Returns an error
// describing every invalid field.
// Note: the transport name is not validated here; unknown names surface when
// the registry builds the transport.
func (c *Config) Validate() error {
	var errs []error

	errs = append(errs, c.validateTimeouts()...)
	errs = append(errs, c.validatePorts()...)
	errs = append(errs, c.validateQueue()...)

	return errors.Join(errs...)
}

func (c *Config) validateTimeouts() []error {
	var errs []error
	if c.ConnectTimeout < 0 {
		errs = append(errs, errors.New("timeouts: connect timeout cannot be negative"))
	}
	if c.QueryTimeout < 0 {
		errs = append(errs, errors.New("timeouts: query timeout cannot be negative"))
	}
	if c.PollInterval < 0 {
		errs = append(errs, errors.New("timeouts: poll interval cannot be negative"))
	}
	return errs
}

func (c *Config) validatePorts() []error {
	var errs []error
	if c.ServerPort < 0 || c.ServerPort > 65535 {
		errs = append(errs, fmt.Errorf("server: invalid port %d", c.ServerPort))
	}
	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		errs = append(errs, fmt.Errorf("metrics: invalid port %d", c.MetricsPort))
	}
	return errs
}

func (c *Config) validateQueue() []error {
	if c.QueueBuffer < 0 {
		return []error{errors.New("queue: buffer cannot be negative")}
	}
	return nil
}

// ValidateConfig is a convenience function to validate a config pointer.
// Returns nil if the config is valid.
func ValidateConfig(c *Config) error {
	if c == nil {
		return errors.New("config is nil")
	}
	return c.Validate()
}
