// Package plotstream provides a data-acquisition pipeline for real-time
// plotting: interchangeable transports feeding a bounded multi-channel
// time-series store, with consistent snapshots for rendering and export.
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│        Connection Manager           │  One active transport,
//	│   (connect, disconnect, write)      │  mutual exclusion
//	└─────────────────────────────────────┘
//	           ↓ forwards lines
//	┌─────────────────────────────────────┐
//	│          Sample Sink                │  Line parsing
//	│        (parse.Sink)                 │  (timestamp, values)
//	└─────────────────────────────────────┘
//	           ↓ appends into
//	┌─────────────────────────────────────┐
//	│          Ring Store                 │  Fixed capacity,
//	│   (single writer, snapshots)        │  overwrite on wrap
//	└─────────────────────────────────────┘
//	           ↓ snapshots feed
//	┌─────────────────────────────────────┐
//	│           Exporters                 │  CSV, WAV
//	└─────────────────────────────────────┘
//
// # Framework Packages
//
// Transports:
//   - transport: backend abstraction (state, lines, capability)
//   - transport/serial: point-to-point serial link
//   - transport/netstream: WebSocket / NATS / HTTP stream
//   - transport/synth: synthetic waveform generator
//
// Pipeline:
//   - manager: transport selection state machine
//   - parse: decoded line → (timestamp, per-series values)
//   - store: ring store and viewport snapshots
//   - export: CSV and WAV writers
//
// Infrastructure:
//   - metric: Prometheus metrics
//   - errors: structured error handling
//   - config: YAML configuration
//   - pkg/cobs: COBS frame codec
//   - pkg/lineio: byte stream → line splitting
//   - pkg/buffer: bounded queue between transports and sink
//   - pkg/retry: retry policies
//   - pkg/timestamp: time utilities
//
// # Concurrency Model
//
// Exactly one Connection Manager feeds a given Store. The active transport's
// read loop is the single logical writer; renderers and exporters read
// through immutable snapshots and never observe a torn append. Switching
// transports supersedes any in-flight connection attempt; its result is
// discarded when it eventually resolves.
package plotstream
