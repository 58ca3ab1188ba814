// Package transport defines the backend abstraction shared by every data
// source: a connection state machine that emits decoded text lines to a
// registered handler.
//
// Three implementations exist, one per subdirectory:
//
//   - serial: point-to-point serial link (go.bug.st/serial)
//   - netstream: network stream, sub-mode chosen by URL scheme: ws/wss
//     (WebSocket message socket), nats (NATS subject), http/https (one-shot
//     chunked stream)
//   - synth: locally generated waveforms, no external I/O
//
// Backends do not know about each other or about the ring store; the
// manager package selects exactly one of them and forwards its lines to the
// sample sink.
package transport
