// Package wmcaflow bridges a callback-driven securities gateway to a
// pull-based request/response API. The native transport pushes events
// (login results, TR data blocks, realtime ticks, status messages) into a
// callback; wmcaflow decodes each event synchronously, queues it through a
// Watermill in-memory pub/sub, and lets blocking calls consume the queue in
// order.
//
// Service is the entry point. Connect logs in and returns the account list,
// Query issues a TR request and returns every data block of the reply,
// Attach/Detach manage realtime subscriptions, and Realtime exposes the tick
// stream as a channel. Each request claims a fresh transaction id; replies
// for other transactions are requeued rather than dropped, so concurrent
// traffic and late replies never corrupt a pending call.
//
// # Blocks
//
// TR replies are fixed-width, blank-padded EUC-KR records. The blocks
// registry maps block names to layouts; the balance inquiry (c8201) and the
// KOSPI/KOSDAQ tick (j8) ship pre-registered, and applications add their own
// with RegisterLayout. Unknown blocks pass through as raw bytes.
//
// # Transports
//
// Native transports register themselves by name, selected via
// Config.Transport:
//   - sim: In-memory scripted gateway for tests and development
//
// The production gateway shim builds the same way on its supported platform.
// A ready transport can also be injected through ServiceDependencies.Native.
//
// A minimal setup fills Config, creates a Service with TryNewService,
// Connects, and Queries; see examples/simple for a runnable version.
package wmcaflow
