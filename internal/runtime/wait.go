package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/quantbay/wmcaflow/internal/runtime/blocks"
	errs "github.com/quantbay/wmcaflow/internal/runtime/errors"
	"github.com/quantbay/wmcaflow/internal/runtime/events"
	"github.com/quantbay/wmcaflow/internal/runtime/logging"
	"github.com/quantbay/wmcaflow/transport"
)

// Connect logs in and blocks until the server confirms or rejects the
// session. Server status messages that arrive before the outcome are folded
// into the returned error when the login fails.
func (s *Service) Connect(ctx context.Context, creds Credentials) (*blocks.LoginSession, error) {
	ctx, span := s.tracer.Start(ctx, "wmcaflow.Connect")
	defer span.End()

	s.waitMu.Lock()
	defer s.waitMu.Unlock()

	if err := s.ensureLoaded(); err != nil {
		return nil, s.spanErr(span, err)
	}
	if s.Conf.ServerAddress != "" && !s.native.SetServer(s.Conf.ServerAddress) {
		return nil, s.spanErr(span, fmt.Errorf("set server: %w", errs.ErrRequestRejected))
	}
	if s.Conf.ServerPort != 0 && !s.native.SetPort(s.Conf.ServerPort) {
		return nil, s.spanErr(span, fmt.Errorf("set port: %w", errs.ErrRequestRejected))
	}

	done := s.metrics.RequestStarted("connect")
	defer done()

	ok := s.native.Connect(s.pump, transport.TagEvent,
		s.Conf.MediaType, s.Conf.UserType,
		creds.ID, creds.Password, creds.CertPassword)
	if !ok {
		return nil, s.spanErr(span, fmt.Errorf("connect: %w", errs.ErrRequestRejected))
	}

	var (
		session    *blocks.LoginSession
		lastStatus *blocks.Status
	)
	err := s.waitEvents(ctx, "connect", s.Conf.ConnectTimeout,
		func(ev events.Event, msg *message.Message) (bool, error) {
			switch ev.Kind {
			case events.KindConnected:
				if ev.Payload.Login == nil {
					return false, fmt.Errorf("%w: connected event", errs.ErrNilEvent)
				}
				session = ev.Payload.Login
				return true, nil

			case events.KindStatusMessage:
				if ev.Payload.Status != nil {
					lastStatus = ev.Payload.Status
				}
				return false, nil

			case events.KindDisconnected:
				return false, loginFailure(lastStatus)

			case events.KindSocketError:
				if ev.Payload.Status != nil {
					return false, &errs.StatusError{Code: ev.Payload.Status.Code, Text: ev.Payload.Status.Text}
				}
				return false, errs.ErrDisconnected

			default:
				// Correlated traffic for other transactions stays queued.
				s.requeue(msg)
				return false, nil
			}
		})
	if err != nil {
		return nil, s.spanErr(span, err)
	}

	s.connected.Store(true)
	s.Logger.Info("connected", logging.LogFields{
		"server":   session.ServerName,
		"user":     session.UserID,
		"accounts": len(session.Accounts),
	})
	return session, nil
}

func loginFailure(lastStatus *blocks.Status) error {
	if lastStatus != nil && !lastStatus.OK() {
		return &errs.StatusError{Code: lastStatus.Code, Text: lastStatus.Text}
	}
	return errs.ErrDisconnected
}

// Query issues a TR request and blocks until its completion event. The reply
// is every data block the server produced for this transaction, in arrival
// order.
func (s *Service) Query(ctx context.Context, trCode string, input []byte, accountIndex int) ([]blocks.Payload, error) {
	ctx, span := s.tracer.Start(ctx, "wmcaflow.Query",
		trace.WithAttributes(attribute.String("tr_code", trCode)))
	defer span.End()

	s.waitMu.Lock()
	defer s.waitMu.Unlock()

	if !s.connected.Load() {
		return nil, s.spanErr(span, errs.ErrNotConnected)
	}

	trIndex := s.claimTrIndex()
	span.SetAttributes(attribute.Int("tr_index", trIndex))

	done := s.metrics.RequestStarted("query")
	defer done()

	if !s.native.Query(s.pump, trIndex, trCode, input, accountIndex) {
		return nil, s.spanErr(span, fmt.Errorf("query %s: %w", trCode, errs.ErrRequestRejected))
	}

	var (
		payloads   []blocks.Payload
		lastStatus *blocks.Status
	)
	err := s.waitEvents(ctx, "query", s.Conf.QueryTimeout,
		func(ev events.Event, msg *message.Message) (bool, error) {
			switch ev.Kind {
			case events.KindDataReceived:
				if ev.TrIndex != trIndex {
					s.requeue(msg)
					return false, nil
				}
				payloads = append(payloads, ev.Payload)
				return false, nil

			case events.KindComplete:
				if ev.TrIndex != trIndex {
					s.requeue(msg)
					return false, nil
				}
				if len(payloads) == 0 {
					return false, fmt.Errorf("query %s: %w", trCode, errs.ErrEmptyReply)
				}
				return true, nil

			case events.KindError:
				if ev.TrIndex != trIndex {
					s.requeue(msg)
					return false, nil
				}
				return false, serverFailure(trCode, lastStatus)

			case events.KindStatusMessage:
				if ev.TrIndex != 0 && ev.TrIndex != trIndex {
					s.requeue(msg)
					return false, nil
				}
				if ev.Payload.Status != nil {
					lastStatus = ev.Payload.Status
				}
				return false, nil

			case events.KindDisconnected, events.KindSocketError:
				s.connected.Store(false)
				if lastStatus != nil && !lastStatus.OK() {
					return false, fmt.Errorf("query %s: %w: %w", trCode, errs.ErrDisconnected,
						&errs.StatusError{Code: lastStatus.Code, Text: lastStatus.Text})
				}
				return false, fmt.Errorf("query %s: %w", trCode, errs.ErrDisconnected)

			default:
				s.Logger.Debug("unexpected event during query", logging.LogFields{
					"kind":     string(ev.Kind),
					"tr_index": ev.TrIndex,
				})
				return false, nil
			}
		})
	if err != nil {
		return nil, s.spanErr(span, err)
	}
	return payloads, nil
}

func serverFailure(trCode string, lastStatus *blocks.Status) error {
	if lastStatus != nil && !lastStatus.OK() {
		return &errs.StatusError{Code: lastStatus.Code, Text: lastStatus.Text}
	}
	return fmt.Errorf("query %s failed with no status message", trCode)
}

// Attach subscribes to a realtime feed. Ticks arrive on the Realtime channel.
func (s *Service) Attach(ctx context.Context, serviceCode, codes string, codeLen, totalLen int) error {
	_, span := s.tracer.Start(ctx, "wmcaflow.Attach",
		trace.WithAttributes(attribute.String("service_code", serviceCode)))
	defer span.End()

	if !s.connected.Load() {
		return s.spanErr(span, errs.ErrNotConnected)
	}
	if !s.native.Attach(s.pump, serviceCode, codes, codeLen, totalLen) {
		return s.spanErr(span, fmt.Errorf("attach %s: %w", serviceCode, errs.ErrRequestRejected))
	}
	return nil
}

// Detach cancels a realtime subscription made with Attach.
func (s *Service) Detach(ctx context.Context, serviceCode, codes string, codeLen, totalLen int) error {
	_, span := s.tracer.Start(ctx, "wmcaflow.Detach",
		trace.WithAttributes(attribute.String("service_code", serviceCode)))
	defer span.End()

	if !s.connected.Load() {
		return s.spanErr(span, errs.ErrNotConnected)
	}
	if !s.native.Detach(s.pump, serviceCode, codes, codeLen, totalLen) {
		return s.spanErr(span, fmt.Errorf("detach %s: %w", serviceCode, errs.ErrRequestRejected))
	}
	return nil
}

// HashAccountPassword converts an account password into the 44-character
// hash TR input blocks expect.
func (s *Service) HashAccountPassword(accountIndex int, password string) (string, error) {
	hash, ok := s.native.HashAccountPassword(accountIndex, password)
	if !ok {
		return "", errs.ErrHashFailure
	}
	if len(hash) != 44 {
		return "", fmt.Errorf("%w: got %d chars, want 44", errs.ErrHashFailure, len(hash))
	}
	return hash, nil
}

// Realtime returns a channel of decoded realtime ticks. Each call creates an
// independent subscription; the channel closes when ctx is cancelled or the
// service is disposed.
func (s *Service) Realtime(ctx context.Context) (<-chan events.Event, error) {
	sub, err := s.pubsub.Subscribe(ctx, events.TopicRealtime)
	if err != nil {
		return nil, fmt.Errorf("subscribe realtime: %w", err)
	}

	out := make(chan events.Event)
	go func() {
		defer close(out)
		for msg := range sub {
			ev, err := events.Unmarshal(msg)
			msg.Ack()
			if err != nil {
				s.Logger.Error("realtime event discarded", err, nil)
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// waitEvents drains the correlated queue until handle signals completion, the
// timeout elapses, or ctx is cancelled. Cancellation is noticed within one
// poll interval even when no events arrive.
func (s *Service) waitEvents(ctx context.Context, op string, timeout time.Duration, handle func(events.Event, *message.Message) (bool, error)) error {
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	expire := time.NewTimer(timeout)
	defer expire.Stop()
	tick := time.NewTicker(s.Conf.PollInterval)
	defer tick.Stop()

	for {
		select {
		case msg, ok := <-s.events:
			if !ok {
				return errs.ErrPumpStopped
			}
			ev, err := events.Unmarshal(msg)
			if err != nil {
				msg.Ack()
				s.Logger.Error("event discarded", err, logging.LogFields{"uuid": msg.UUID})
				continue
			}
			finished, err := handle(ev, msg)
			msg.Ack()
			if err != nil {
				return err
			}
			if finished {
				return nil
			}

		case <-tick.C:
			if err := ctx.Err(); err != nil {
				return err
			}

		case <-expire.C:
			s.metrics.ObserveTimeout(op)
			return fmt.Errorf("%s: %w", op, errs.ErrTimeout)
		}
	}
}

func (s *Service) spanErr(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
