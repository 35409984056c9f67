package wmcaflow

import (
	runtimepkg "github.com/quantbay/wmcaflow/internal/runtime"
	blockspkg "github.com/quantbay/wmcaflow/internal/runtime/blocks"
	codecpkg "github.com/quantbay/wmcaflow/internal/runtime/codec"
	configpkg "github.com/quantbay/wmcaflow/internal/runtime/config"
	errspkg "github.com/quantbay/wmcaflow/internal/runtime/errors"
	eventspkg "github.com/quantbay/wmcaflow/internal/runtime/events"
	idspkg "github.com/quantbay/wmcaflow/internal/runtime/ids"
	jsoncodec "github.com/quantbay/wmcaflow/internal/runtime/jsoncodec"
	loggingpkg "github.com/quantbay/wmcaflow/internal/runtime/logging"
	metadatapkg "github.com/quantbay/wmcaflow/internal/runtime/metadata"
	transportpkg "github.com/quantbay/wmcaflow/transport"
)

type (
	Config              = configpkg.Config
	Service             = runtimepkg.Service
	ServiceDependencies = runtimepkg.ServiceDependencies
	Credentials         = runtimepkg.Credentials

	// Block decoding
	FieldSpec    = blockspkg.FieldSpec
	Layout       = blockspkg.Layout
	FieldValue   = blockspkg.FieldValue
	Record       = blockspkg.Record
	Payload      = blockspkg.Payload
	PayloadKind  = blockspkg.Kind
	Status       = blockspkg.Status
	Account      = blockspkg.Account
	LoginSession = blockspkg.LoginSession

	// Request encoding
	RequestField = codecpkg.Field

	// Queue events
	Event     = eventspkg.Event
	EventKind = eventspkg.Kind

	Metadata = metadatapkg.Metadata

	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger

	StatusError = errspkg.StatusError

	// Native transport surface (implemented by transport sub-packages)
	NativeTransport   = transportpkg.Native
	TransportEndpoint = transportpkg.Endpoint
	TransportFrame    = transportpkg.Frame
	TransportBuilder  = transportpkg.Builder
	TransportConfig   = transportpkg.Config
	TransportRegistry = transportpkg.Registry
)

var (
	NewService     = runtimepkg.NewService
	TryNewService  = runtimepkg.TryNewService
	ValidateConfig = configpkg.ValidateConfig

	// Block registry. Register layouts for the TR codes an application uses;
	// c8201 and j8 ship pre-registered.
	RegisterLayout = blockspkg.Register
	LookupLayout   = blockspkg.Lookup
	LayoutNames    = blockspkg.Names

	// Request record helpers
	EncodeRecord     = codecpkg.EncodeRecord
	EncodeField      = codecpkg.EncodeField
	DecodeField      = codecpkg.DecodeField
	EncodeC8201Input = blockspkg.EncodeC8201Input

	// Transport registry. Import a transport package for its side effect to
	// make it buildable by name: _ "github.com/quantbay/wmcaflow/transport/sim"
	DefaultTransportRegistry = transportpkg.DefaultRegistry
	RegisterTransport        = transportpkg.Register
	BuildTransport           = transportpkg.Build

	Marshal       = jsoncodec.Marshal
	MarshalIndent = jsoncodec.MarshalIndent
	Unmarshal     = jsoncodec.Unmarshal
	Encode        = jsoncodec.Encode
	Decode        = jsoncodec.Decode

	ErrConfigRequired   = errspkg.ErrConfigRequired
	ErrLoggerRequired   = errspkg.ErrLoggerRequired
	ErrSizeMismatch     = errspkg.ErrSizeMismatch
	ErrFieldOverflow    = errspkg.ErrFieldOverflow
	ErrRequestRejected  = errspkg.ErrRequestRejected
	ErrNotConnected     = errspkg.ErrNotConnected
	ErrTimeout          = errspkg.ErrTimeout
	ErrEmptyReply       = errspkg.ErrEmptyReply
	ErrHashFailure      = errspkg.ErrHashFailure
	ErrDisconnected     = errspkg.ErrDisconnected
	ErrUnknownTransport = errspkg.ErrUnknownTransport

	NewSlogServiceLogger = loggingpkg.NewSlogServiceLogger

	NewMetadata = metadatapkg.New

	CreateULID = idspkg.CreateULID
)

// Event kinds as they appear on Event.Kind and in queue metadata.
const (
	KindConnected     = eventspkg.KindConnected
	KindDisconnected  = eventspkg.KindDisconnected
	KindSocketError   = eventspkg.KindSocketError
	KindDataReceived  = eventspkg.KindDataReceived
	KindRealtime      = eventspkg.KindRealtime
	KindStatusMessage = eventspkg.KindStatusMessage
	KindComplete      = eventspkg.KindComplete
	KindError         = eventspkg.KindError
)

// Queue topics and metadata keys, exported for consumers that subscribe to
// the underlying queue directly.
const (
	TopicEvents   = eventspkg.TopicEvents
	TopicRealtime = eventspkg.TopicRealtime

	MetadataKeyKind       = eventspkg.MetadataKeyKind
	MetadataKeyTrIndex    = eventspkg.MetadataKeyTrIndex
	MetadataKeyBlockName  = eventspkg.MetadataKeyBlockName
	MetadataKeyEnqueuedAt = eventspkg.MetadataKeyEnqueuedAt
)

// Payload kinds as they appear on Payload.Kind.
const (
	PayloadKindRaw     = blockspkg.KindRaw
	PayloadKindRecord  = blockspkg.KindRecord
	PayloadKindRecords = blockspkg.KindRecords
	PayloadKindStatus  = blockspkg.KindStatus
	PayloadKindLogin   = blockspkg.KindLogin
)

// StatusOK is the server status code meaning success.
const StatusOK = blockspkg.StatusOK
