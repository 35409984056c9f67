// Package events maps raw transport tags onto typed event kinds and moves
// decoded events through the queue as serialized messages. Serializing at the
// queue boundary is what guarantees nothing downstream holds a reference into
// a transport-owned buffer.
package events

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/quantbay/wmcaflow/internal/runtime/blocks"
	"github.com/quantbay/wmcaflow/internal/runtime/ids"
	"github.com/quantbay/wmcaflow/internal/runtime/jsoncodec"
	"github.com/quantbay/wmcaflow/internal/runtime/metadata"
	"github.com/quantbay/wmcaflow/transport"
)

// Queue topics. Correlated events share one topic consumed by the waiting
// request; realtime ticks are demultiplexed onto their own topic so they
// never churn through the requeue path.
const (
	TopicEvents   = "wmca.events"
	TopicRealtime = "wmca.realtime"
)

// Kind identifies what a delivered event means.
type Kind string

const (
	KindConnected     Kind = "connected"
	KindDisconnected  Kind = "disconnected"
	KindSocketError   Kind = "socket_error"
	KindDataReceived  Kind = "data_received"
	KindRealtime      Kind = "realtime"
	KindStatusMessage Kind = "status_message"
	KindComplete      Kind = "complete"
	KindError         Kind = "error"
)

// KindFromTag maps a raw transport tag onto its Kind. Unknown tags return
// false and are dropped by the pump.
func KindFromTag(tag int) (Kind, bool) {
	switch tag {
	case transport.TagConnected:
		return KindConnected, true
	case transport.TagDisconnected:
		return KindDisconnected, true
	case transport.TagSocketError:
		return KindSocketError, true
	case transport.TagDataReceived:
		return KindDataReceived, true
	case transport.TagRealtime:
		return KindRealtime, true
	case transport.TagStatusMessage:
		return KindStatusMessage, true
	case transport.TagComplete:
		return KindComplete, true
	case transport.TagError:
		return KindError, true
	default:
		return "", false
	}
}

// Topic returns the queue topic events of this kind are published to.
func (k Kind) Topic() string {
	if k == KindRealtime {
		return TopicRealtime
	}
	return TopicEvents
}

// Metadata keys carried on queued messages.
const (
	MetadataKeyKind       = metadata.KeyKind
	MetadataKeyTrIndex    = metadata.KeyTrIndex
	MetadataKeyBlockName  = metadata.KeyBlockName
	MetadataKeyEnqueuedAt = metadata.KeyEnqueuedAt
)

// Event is one decoded transport event as consumers see it.
type Event struct {
	Kind      Kind
	TrIndex   int
	BlockName string
	Payload   blocks.Payload
	Metadata  metadata.Metadata
}

// Marshal serializes an event into a queue message. The message UUID is a
// fresh ULID, so queue order is also reconstructible from IDs.
func Marshal(ev Event) (*message.Message, error) {
	body, err := jsoncodec.Marshal(ev.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", ev.Kind, err)
	}

	md := metadata.ForEvent(string(ev.Kind), ev.TrIndex, ev.BlockName).
		With(metadata.KeyEnqueuedAt, time.Now().UTC().Format(time.RFC3339Nano))

	msg := message.NewMessage(ids.CreateULID(), body)
	msg.Metadata = metadata.ToWatermill(md)
	return msg, nil
}

// Unmarshal reconstructs an event from a queue message.
func Unmarshal(msg *message.Message) (Event, error) {
	kind := Kind(msg.Metadata.Get(MetadataKeyKind))
	if kind == "" {
		return Event{}, fmt.Errorf("message %s carries no event kind", msg.UUID)
	}

	trIndex := 0
	if raw := msg.Metadata.Get(MetadataKeyTrIndex); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return Event{}, fmt.Errorf("message %s carries bad tr index %q: %w", msg.UUID, raw, err)
		}
		trIndex = parsed
	}

	var payload blocks.Payload
	if err := jsoncodec.Unmarshal(msg.Payload, &payload); err != nil {
		return Event{}, fmt.Errorf("unmarshal %s payload: %w", kind, err)
	}

	return Event{
		Kind:      kind,
		TrIndex:   trIndex,
		BlockName: msg.Metadata.Get(MetadataKeyBlockName),
		Payload:   payload,
		Metadata:  metadata.FromWatermill(msg.Metadata),
	}, nil
}

// Requeue clones a consumed message for republishing at the tail of the
// queue. The UUID and metadata are preserved; only the delivery bookkeeping
// is fresh.
func Requeue(msg *message.Message) *message.Message {
	cloned := message.NewMessage(msg.UUID, msg.Payload)
	cloned.Metadata = metadata.ToWatermill(metadata.FromWatermill(msg.Metadata))
	return cloned
}
