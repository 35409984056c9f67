package runtime

import (
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/quantbay/wmcaflow/internal/runtime/blocks"
	errs "github.com/quantbay/wmcaflow/internal/runtime/errors"
	"github.com/quantbay/wmcaflow/internal/runtime/events"
	"github.com/quantbay/wmcaflow/internal/runtime/logging"
	"github.com/quantbay/wmcaflow/internal/runtime/metrics"
	"github.com/quantbay/wmcaflow/transport"
)

// Pump states. The lifecycle is one-way: Idle -> Running -> Stopped.
const (
	pumpIdle int32 = iota
	pumpRunning
	pumpStopped
)

// Pump is the transport.Endpoint the native layer delivers into. Deliver
// decodes each frame synchronously (the transport reclaims its buffers the
// moment the callback returns) and publishes the result to the event queue.
type Pump struct {
	log       logging.ServiceLogger
	publisher message.Publisher
	metrics   *metrics.Metrics
	state     atomic.Int32
}

// NewPump creates a pump in the Idle state.
func NewPump(publisher message.Publisher, log logging.ServiceLogger, m *metrics.Metrics) *Pump {
	return &Pump{
		log:       log.With(logging.LogFields{"component": "pump"}),
		publisher: publisher,
		metrics:   m,
	}
}

// Start moves the pump from Idle to Running. Starting a running pump is a
// no-op; a stopped pump cannot be restarted.
func (p *Pump) Start() error {
	if p.state.CompareAndSwap(pumpIdle, pumpRunning) {
		return nil
	}
	if p.state.Load() == pumpRunning {
		return nil
	}
	return errs.ErrPumpStopped
}

// Stop ends delivery permanently. Idempotent.
func (p *Pump) Stop() {
	p.state.Store(pumpStopped)
}

// Running reports whether the pump currently accepts frames.
func (p *Pump) Running() bool {
	return p.state.Load() == pumpRunning
}

// Deliver implements transport.Endpoint. It never blocks the transport on
// consumer progress beyond the queue buffer, never panics on malformed
// frames, and drops (with a log line) what it cannot decode.
func (p *Pump) Deliver(tag int, frame *transport.Frame) {
	if !p.Running() {
		p.log.Debug("frame dropped, pump not running", logging.LogFields{"tag": tag})
		return
	}
	if frame == nil {
		p.log.Error("frame dropped", errs.ErrNilEvent, logging.LogFields{"tag": tag})
		p.metrics.ObserveDecodeError("nil_frame")
		return
	}

	kind, ok := events.KindFromTag(tag)
	if !ok {
		p.log.Debug("frame dropped, unknown tag", logging.LogFields{"tag": tag})
		p.metrics.ObserveDecodeError("unknown_tag")
		return
	}
	p.metrics.ObserveEvent(string(kind))

	ev, err := p.decode(kind, frame)
	if err != nil {
		p.log.Error("frame dropped, decode failed", err, logging.LogFields{
			"kind":     string(kind),
			"tr_index": frame.TrIndex,
		})
		p.metrics.ObserveDecodeError("decode_failed")
		return
	}

	msg, err := events.Marshal(ev)
	if err != nil {
		p.log.Error("frame dropped, marshal failed", err, logging.LogFields{"kind": string(kind)})
		p.metrics.ObserveDecodeError("marshal_failed")
		return
	}
	if err := p.publisher.Publish(ev.Kind.Topic(), msg); err != nil {
		p.log.Error("frame dropped, publish failed", err, logging.LogFields{"kind": string(kind)})
		p.metrics.ObserveDecodeError("publish_failed")
	}
}

// decode copies everything it needs out of the frame before returning.
func (p *Pump) decode(kind events.Kind, frame *transport.Frame) (events.Event, error) {
	ev := events.Event{Kind: kind, TrIndex: frame.TrIndex}

	switch kind {
	case events.KindConnected:
		if frame.Data == nil {
			return ev, fmt.Errorf("%w: connected event", errs.ErrNilEvent)
		}
		session, err := blocks.DecodeLogin(frame.Data, frame.Len)
		if err != nil {
			return ev, err
		}
		session.TrIndex = frame.TrIndex
		ev.Payload = blocks.Payload{Kind: blocks.KindLogin, Login: session}

	case events.KindStatusMessage:
		if frame.Data == nil {
			return ev, fmt.Errorf("%w: status event", errs.ErrNilEvent)
		}
		payload, err := blocks.DecodeStatus(frame.Data, frame.Len)
		if err != nil {
			return ev, err
		}
		ev.Payload = payload

	case events.KindDataReceived:
		if frame.Data == nil {
			return ev, fmt.Errorf("%w: data event", errs.ErrNilEvent)
		}
		ev.BlockName = blocks.BlockName(frame.Name, false)
		payload, err := blocks.Decode(ev.BlockName, frame.Data, frame.Len)
		if err != nil {
			return ev, err
		}
		ev.Payload = payload

	case events.KindRealtime:
		if frame.Data == nil {
			return ev, fmt.Errorf("%w: realtime event", errs.ErrNilEvent)
		}
		ev.BlockName = blocks.BlockName(frame.Name, true)
		payload, err := blocks.Decode(ev.BlockName, frame.Data, frame.Len)
		if err != nil {
			return ev, err
		}
		ev.Payload = payload

	case events.KindSocketError:
		ev.Payload = blocks.Payload{
			Kind:   blocks.KindStatus,
			Status: &blocks.Status{Code: strconv.Itoa(frame.Code), Text: "socket error"},
		}

	default:
		// Disconnected, Complete and Error may arrive with or without a
		// payload; keep whatever bytes came along.
		ev.Payload = blocks.RawPayload(frameData(frame))
	}
	return ev, nil
}

func frameData(frame *transport.Frame) []byte {
	if frame.Data == nil {
		return nil
	}
	length := frame.Len
	if length > len(frame.Data) {
		length = len(frame.Data)
	}
	return frame.Data[:length]
}
