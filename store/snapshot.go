package store

// ScopeKind selects how a snapshot bounds its view of the store.
type ScopeKind int

const (
	// ScopeAll captures the full valid range.
	ScopeAll ScopeKind = iota
	// ScopeLastN captures at most the newest n samples.
	ScopeLastN
	// ScopeTimeRange captures samples with From <= timestamp <= To.
	ScopeTimeRange
)

// Scope describes the visible window requested from Snapshot.
type Scope struct {
	Kind ScopeKind
	N    int
	From int64
	To   int64
}

// All returns a scope covering every valid sample.
func All() Scope {
	return Scope{Kind: ScopeAll}
}

// LastN returns a scope covering at most the newest n samples.
func LastN(n int) Scope {
	return Scope{Kind: ScopeLastN, N: n}
}

// TimeRange returns a scope covering samples whose timestamps fall in
// [from, to].
func TimeRange(from, to int64) Scope {
	return Scope{Kind: ScopeTimeRange, From: from, To: to}
}

// SeriesSamples holds one series' ordered values within a snapshot, aligned
// index-for-index with the snapshot's Times.
type SeriesSamples struct {
	Info   SeriesInfo
	Values []float64
}

// Snapshot is an immutable, time-ordered view over the store captured at one
// instant. Missing samples hold NaN. A snapshot is created per render or
// export call and discarded after use.
type Snapshot struct {
	Times          []int64
	Series         []SeriesSamples
	FirstTimestamp int64
}

// Len returns the number of sample rows in the snapshot.
func (sn *Snapshot) Len() int {
	return len(sn.Times)
}

// Snapshot captures a consistent view of the requested scope. The write
// cursor is read once at the start; every slot in the resolved logical range
// is copied by index mod capacity. A window that has fully evicted yields an
// empty snapshot, not an error.
func (s *Store) Snapshot(scope Scope) *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Single observation of W; all range arithmetic derives from it.
	w := s.cursor

	validStart := uint64(0)
	if w > uint64(s.capacity) {
		validStart = w - uint64(s.capacity)
	}

	start, end := validStart, w // [start, end)
	switch scope.Kind {
	case ScopeLastN:
		if scope.N <= 0 {
			start = end
		} else if n := uint64(scope.N); end-start > n {
			start = end - n
		}
	case ScopeTimeRange:
		start, end = s.resolveTimeRangeLocked(validStart, w, scope.From, scope.To)
	}
	if start > end {
		start = end
	}

	n := int(end - start)
	sn := &Snapshot{
		Times:          make([]int64, n),
		Series:         make([]SeriesSamples, len(s.series)),
		FirstTimestamp: s.firstTimestamp,
	}

	for i := range s.series {
		sn.Series[i] = SeriesSamples{
			Info:   s.series[i].info,
			Values: make([]float64, n),
		}
	}

	for i := 0; i < n; i++ {
		idx := int((start + uint64(i)) % uint64(s.capacity))
		sn.Times[i] = s.times[idx]
		for j, sr := range s.series {
			sn.Series[j].Values[i] = sr.samples[idx]
		}
	}

	return sn
}

// resolveTimeRangeLocked narrows [validStart, w) to the logical positions
// whose timestamps fall within [from, to]. Timestamps are appended in
// arrival order, so a linear scan over the valid range suffices.
func (s *Store) resolveTimeRangeLocked(validStart, w uint64, from, to int64) (uint64, uint64) {
	start, end := w, w
	for p := validStart; p < w; p++ {
		ts := s.times[p%uint64(s.capacity)]
		if ts < from {
			continue
		}
		if ts > to {
			break
		}
		if start == w {
			start = p
		}
		end = p + 1
	}
	return start, end
}
