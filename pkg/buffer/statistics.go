package buffer

import "sync/atomic"

// Statistics tracks queue activity with atomic counters. Always collected.
type Statistics struct {
	writes    atomic.Int64
	reads     atomic.Int64
	drops     atomic.Int64
	overflows atomic.Int64
}

func (s *Statistics) write()    { s.writes.Add(1) }
func (s *Statistics) read()     { s.reads.Add(1) }
func (s *Statistics) drop()     { s.drops.Add(1) }
func (s *Statistics) overflow() { s.overflows.Add(1) }

// StatsSnapshot is a point-in-time copy of queue statistics.
type StatsSnapshot struct {
	Writes    int64
	Reads     int64
	Drops     int64
	Overflows int64
}

func (s *Statistics) snapshot() StatsSnapshot {
	return StatsSnapshot{
		Writes:    s.writes.Load(),
		Reads:     s.reads.Load(),
		Drops:     s.drops.Load(),
		Overflows: s.overflows.Load(),
	}
}
