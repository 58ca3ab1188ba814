// Package manager implements the transport-selection state machine: Idle,
// Connecting(kind), Connected(kind).
//
// Exactly one backend may be connecting or connected at any instant. A new
// Connect tears the previous backend down best-effort before dialing, and a
// generation counter discards the result of any attempt that a later
// Connect or Disconnect superseded, so an in-flight dial can never
// resurrect stale state when it finally resolves.
//
// All backends' lines flow through one bounded queue into one
// caller-supplied sink; switching backends re-targets the flow without the
// sink changing. Because the sink is the ring store's only writer, creating
// one Manager per store enforces the single-writer rule by construction.
package manager
