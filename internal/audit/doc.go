// Package audit relays security-relevant events to a caller-supplied sink
// without blocking the engine.
//
// # Components
//
//   - [Sink]: event consumer (channel, JSON lines writer, slog, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full or block-if-full
//     semantics.
//   - [Event]: one audit record.
//
// This package owns buffering and delivery. It does not decide which events
// to emit; the engine does.
package audit
