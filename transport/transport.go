// Package transport defines the native-transport surface wmcaflow drives.
// Each implementation (the production DLL shim on Windows, the in-memory sim,
// future gateways) lives in its own sub-package and registers itself with the
// transport registry.
package transport

import (
	"github.com/ThreeDotsLabs/watermill"
)

// Event tags. The native layer numbers its callback events as offsets from a
// common base; the envelope tag is what request calls subscribe with, the
// rest arrive as the tag of each delivered frame.
const (
	tagBase = 0x0400

	// TagEvent is the envelope tag handed to Connect/Query/Attach calls.
	TagEvent = tagBase + 8400

	TagConnected     = tagBase + 110
	TagDisconnected  = tagBase + 120
	TagSocketError   = tagBase + 130
	TagDataReceived  = tagBase + 210
	TagRealtime      = tagBase + 220
	TagStatusMessage = tagBase + 230
	TagComplete      = tagBase + 240
	TagError         = tagBase + 250
)

// Frame is the transport's view of one delivered event. Every slice is owned
// by the transport and is only valid for the duration of the Endpoint
// callback: receivers must copy anything they want to keep before returning.
type Frame struct {
	// Tag is the raw event tag (one of the Tag constants above).
	Tag int

	// TrIndex is the transaction id the event belongs to. Realtime frames
	// carry no meaningful TrIndex.
	TrIndex int

	// Name is the raw block name buffer. NUL-terminated except for realtime
	// frames, which carry exactly two significant bytes.
	Name []byte

	// Data is the raw payload and Len its declared length. Nil for events
	// that carry no payload (for example a bare completion).
	Data []byte
	Len  int

	// Code carries the numeric error code of socket-error frames.
	Code int
}

// Endpoint receives frames from the native transport. Deliver is invoked
// synchronously on the transport's dispatch goroutine; implementations must
// finish with the frame before returning.
type Endpoint interface {
	Deliver(tag int, frame *Frame)
}

// Native is the capability surface of a native transport implementation.
// Boolean returns mirror the native calling convention: false means the
// request was rejected before any event was produced.
type Native interface {
	// Load prepares the transport. Idempotent; Connect loads lazily when the
	// caller has not done so.
	Load() bool
	// Free releases the transport. No calls are valid afterwards.
	Free() bool

	SetServer(address string) bool
	SetPort(port int) bool
	IsConnected() bool

	// Connect starts a login. Events for the session are delivered to ep
	// with tags offset from eventTag.
	Connect(ep Endpoint, eventTag int, mediaType, userType byte, id, password, certPassword string) bool
	Disconnect() bool

	// Query issues the TR identified by trCode with the given fixed-width
	// input record. Replies carry trIndex.
	Query(ep Endpoint, trIndex int, trCode string, input []byte, accountIndex int) bool

	// Attach subscribes to a realtime feed; codes is the concatenated list
	// of instrument codes, each codeLen bytes, totalLen bytes overall.
	Attach(ep Endpoint, serviceCode, codes string, codeLen, totalLen int) bool
	Detach(ep Endpoint, serviceCode, codes string, codeLen, totalLen int) bool

	// HashAccountPassword converts an account password into the 44-character
	// hash TR input blocks require.
	HashAccountPassword(accountIndex int, password string) (string, bool)
}

// Builder is the function signature for creating a native transport from
// config. Each transport package provides a Builder it registers under its
// name.
type Builder func(cfg Config, logger watermill.LoggerAdapter) (Native, error)

// Config provides the configuration values transports need without
// depending on the full config package.
type Config interface {
	// GetTransport returns the native transport name.
	GetTransport() string

	GetServerAddress() string
	GetServerPort() int
}
