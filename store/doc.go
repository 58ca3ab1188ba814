// Package store implements the bounded multi-channel time-series ring at the
// center of the pipeline.
//
// The Store owns one shared time arena and one sample arena per series, all
// of identical fixed capacity C. A monotone write cursor W counts samples
// ever appended; the storage index for logical position p is p mod C, so
// once W exceeds C each append silently overwrites the oldest row. Eviction
// is implicit and unconditional: pure FIFO by overwrite, no policy choice.
//
// Series are created the first time a name appears in an append, keep their
// insertion index for the whole session, and back-fill earlier slots with
// NaN (the no-sample sentinel, never zero) so every series stays aligned
// with the time arena.
//
// Readers never touch the arenas directly: Snapshot copies the requested
// window under a read lock into an immutable Snapshot value, so renderers
// and exporters can never observe a torn append or a wrapped-over row.
// Raw storage indices stay contained in this package; everything external
// works in logical positions and timestamps.
package store
