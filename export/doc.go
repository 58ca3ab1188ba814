// Package export renders viewport snapshots into interchange formats:
// delimited text (CSV) and an uncompressed float32 WAV container. Both walk
// the snapshot's series in insertion order, which is the column/channel
// contract fixed by the store.
package export
