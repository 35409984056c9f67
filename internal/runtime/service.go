// Package runtime hosts the event pump and the correlated request/reply
// service on top of a native transport.
package runtime

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/quantbay/wmcaflow/internal/runtime/config"
	errs "github.com/quantbay/wmcaflow/internal/runtime/errors"
	"github.com/quantbay/wmcaflow/internal/runtime/events"
	"github.com/quantbay/wmcaflow/internal/runtime/ids"
	"github.com/quantbay/wmcaflow/internal/runtime/logging"
	"github.com/quantbay/wmcaflow/internal/runtime/metrics"
	"github.com/quantbay/wmcaflow/transport"
)

// Credentials carries the login secrets for Connect. The String method
// redacts them so accidental logging stays harmless.
type Credentials struct {
	ID           string
	Password     string
	CertPassword string
}

func (c Credentials) String() string {
	redacted := c
	if redacted.Password != "" {
		redacted.Password = "***REDACTED***"
	}
	if redacted.CertPassword != "" {
		redacted.CertPassword = "***REDACTED***"
	}
	// Use a type alias to avoid infinite recursion when printing
	type credentialsAlias Credentials
	return fmt.Sprintf("%+v", credentialsAlias(redacted))
}

// ServiceDependencies carries optional collaborators for NewService. Zero
// values select the defaults: the native transport is built from the registry
// named by Config.Transport, and metrics are created fresh when enabled.
type ServiceDependencies struct {
	// Native overrides the registry lookup with a ready transport.
	Native transport.Native

	// Registry overrides transport.DefaultRegistry.
	Registry *transport.Registry

	// Metrics overrides the collectors used when Config.MetricsEnabled.
	Metrics *metrics.Metrics
}

// Service bridges the callback-driven native transport to a pull-based API.
// One Service owns one native session, the event queue between them, and the
// transaction id sequence that correlates requests with replies.
type Service struct {
	Conf   *config.Config
	Logger logging.ServiceLogger

	native  transport.Native
	pubsub  *gochannel.GoChannel
	pump    *Pump
	events  <-chan *message.Message
	metrics *metrics.Metrics
	tracer  trace.Tracer

	trIndexes ids.Sequence
	loaded    atomic.Bool
	connected atomic.Bool

	// waitMu serializes the correlated request path: the queue has exactly
	// one consumer.
	waitMu sync.Mutex

	cancel      context.CancelFunc
	disposeOnce sync.Once
}

// NewService builds a Service or panics. Use TryNewService when the caller
// wants to handle construction errors.
func NewService(conf *config.Config, logger logging.ServiceLogger, deps ServiceDependencies) *Service {
	svc, err := TryNewService(conf, logger, deps)
	if err != nil {
		panic(err)
	}
	return svc
}

// TryNewService builds a Service: validates config, creates the event queue
// and pump, and resolves the native transport.
func TryNewService(conf *config.Config, logger logging.ServiceLogger, deps ServiceDependencies) (*Service, error) {
	if conf == nil {
		return nil, errs.ErrConfigRequired
	}
	if logger == nil {
		return nil, errs.ErrLoggerRequired
	}
	cfg := conf.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = deps.Metrics
		if m == nil {
			m = metrics.New()
		}
	}

	wmLogger := logging.NewWatermillAdapter(logger)
	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: int64(cfg.QueueBuffer),
	}, wmLogger)

	// The subscription must exist before the first request so no event can
	// slip past the queue.
	ctx, cancel := context.WithCancel(context.Background())
	eventsCh, err := pubsub.Subscribe(ctx, events.TopicEvents)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe events: %w", err)
	}

	native := deps.Native
	if native == nil {
		registry := deps.Registry
		if registry == nil {
			registry = transport.DefaultRegistry
		}
		built, err := registry.Build(&cfg, wmLogger)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("%w: %v", errs.ErrUnknownTransport, err)
		}
		native = built
	}

	pump := NewPump(pubsub, logger, m)
	if err := pump.Start(); err != nil {
		cancel()
		return nil, err
	}

	svc := &Service{
		Conf:    &cfg,
		Logger:  logger,
		native:  native,
		pubsub:  pubsub,
		pump:    pump,
		events:  eventsCh,
		metrics: m,
		tracer:  otel.Tracer("wmcaflow"),
		cancel:  cancel,
	}

	if cfg.MetricsEnabled && cfg.MetricsPort > 0 {
		m.Serve(cfg.MetricsPort, func(err error) {
			logger.Error("metrics server stopped", err, nil)
		})
	}

	logger.Info("service ready", logging.LogFields{
		"transport": cfg.Transport,
		"metrics":   cfg.MetricsEnabled,
	})
	return svc, nil
}

// Connected reports whether the native transport considers the session live.
func (s *Service) Connected() bool {
	return s.connected.Load() && s.native.IsConnected()
}

// Dispose tears the service down: disconnects if needed, releases the native
// transport, stops the pump, and closes the queue. Idempotent; the Service is
// unusable afterwards.
func (s *Service) Dispose() {
	s.disposeOnce.Do(func() {
		if s.connected.Load() {
			s.native.Disconnect()
			s.connected.Store(false)
		}
		if s.loaded.Load() {
			s.native.Free()
			s.loaded.Store(false)
		}
		s.pump.Stop()
		s.cancel()
		if err := s.pubsub.Close(); err != nil {
			s.Logger.Error("queue close failed", err, nil)
		}
		s.Logger.Info("service disposed", nil)
	})
}

// ensureLoaded loads the native transport on first use. Connect calls this
// lazily so callers never deal with the load/connect ordering themselves.
func (s *Service) ensureLoaded() error {
	if s.loaded.Load() {
		return nil
	}
	if !s.native.Load() {
		return fmt.Errorf("load transport: %w", errs.ErrRequestRejected)
	}
	s.loaded.Store(true)
	return nil
}

// claimTrIndex returns the next transaction id. Ids start at 1 and are never
// recycled.
func (s *Service) claimTrIndex() int {
	return s.trIndexes.Next()
}

// requeue puts a consumed message back at the tail of the correlated queue.
func (s *Service) requeue(msg *message.Message) {
	s.metrics.ObserveRequeue()
	if err := s.pubsub.Publish(events.TopicEvents, events.Requeue(msg)); err != nil {
		s.Logger.Error("requeue failed", err, logging.LogFields{"uuid": msg.UUID})
	}
}
