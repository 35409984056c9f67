// Package metadata holds the string headers carried alongside queued
// events and the keys they are stamped under. Maps are treated as
// immutable: every mutation helper returns a fresh copy, so a requeued
// message can never share metadata storage with the consumed original.
package metadata

import "strconv"

// Keys of the headers stamped on every queued event message.
const (
	KeyKind       = "wmca_event_kind"
	KeyTrIndex    = "wmca_tr_index"
	KeyBlockName  = "wmca_block_name"
	KeyEnqueuedAt = "wmca_enqueued_at"
)

// Metadata represents the headers carried alongside an event.
type Metadata map[string]string

func (m Metadata) copyWithRoom(extra int) Metadata {
	size := len(m) + extra
	if size <= 0 {
		return Metadata{}
	}

	cloned := make(Metadata, size)
	for k, v := range m {
		cloned[k] = v
	}
	return cloned
}

// Clone returns a shallow copy of the metadata map.
func (m Metadata) Clone() Metadata {
	return m.copyWithRoom(0)
}

// With returns a copy of the metadata with one entry added.
func (m Metadata) With(key, value string) Metadata {
	cloned := m.copyWithRoom(1)
	cloned[key] = value
	return cloned
}

// WithAll returns a copy of the metadata with every supplied entry added.
func (m Metadata) WithAll(entries Metadata) Metadata {
	cloned := m.copyWithRoom(len(entries))
	for k, v := range entries {
		cloned[k] = v
	}
	return cloned
}

// New constructs a Metadata map from alternating key/value pairs.
func New(pairs ...string) Metadata {
	md := make(Metadata, len(pairs)/2)
	for i := 0; i < len(pairs)-1; i += 2 {
		md[pairs[i]] = pairs[i+1]
	}
	return md
}

// ForEvent builds the headers for one queued event. The block name key is
// present only when the event names a block; the enqueue timestamp is
// stamped separately by the queue writer.
func ForEvent(kind string, trIndex int, blockName string) Metadata {
	md := New(KeyKind, kind, KeyTrIndex, strconv.Itoa(trIndex))
	if blockName != "" {
		md[KeyBlockName] = blockName
	}
	return md
}
