package store

import (
	"log/slog"
	"math"
	"sync"

	"github.com/c360/plotstream/errors"
	"github.com/c360/plotstream/metric"
)

// SeriesInfo identifies one channel in the store. Index is the stable
// insertion position and fixes column/channel ordering in every export.
type SeriesInfo struct {
	Index int
	Name  string
}

// Value pairs a series name with one sample. Appends carry an ordered slice
// of these so that first-seen series order is deterministic.
type Value struct {
	Series string
	V      float64
}

// series owns one fixed-capacity sample arena aligned with the shared time
// arena at identical storage indices.
type series struct {
	info    SeriesInfo
	samples []float64
}

// Store is a fixed-capacity multi-channel time-series ring. A single writer
// appends through Append; any number of readers take consistent snapshots.
// Once the cursor passes the capacity, each append overwrites the oldest
// sample unconditionally.
type Store struct {
	mu sync.RWMutex

	capacity int
	times    []int64
	series   []*series
	byName   map[string]int

	cursor         uint64 // total samples ever appended, never wraps
	firstTimestamp int64  // epoch, set once by the first append

	logger  *slog.Logger
	metrics *storeMetrics
}

// Option configures a Store.
type Option func(*storeOptions)

type storeOptions struct {
	registry *metric.MetricsRegistry
	logger   *slog.Logger
}

// WithMetrics exposes store activity as Prometheus metrics.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(o *storeOptions) {
		o.registry = registry
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *storeOptions) {
		o.logger = logger
	}
}

// New creates a Store with the given fixed capacity. Capacity cannot be
// changed afterwards; recreate the store to resize.
func New(capacity int, opts ...Option) (*Store, error) {
	if capacity < 1 {
		return nil, errors.WrapInvalid(errors.ErrInvalidCapacity,
			"store", "New", "capacity validation")
	}

	var options storeOptions
	for _, o := range opts {
		o(&options)
	}

	logger := options.logger
	if logger == nil {
		logger = slog.Default().With("component", "store")
	}

	s := &Store{
		capacity: capacity,
		times:    make([]int64, capacity),
		byName:   make(map[string]int),
		logger:   logger,
	}

	if options.registry != nil {
		m, err := newStoreMetrics(options.registry)
		if err != nil {
			return nil, err
		}
		s.metrics = m
	}

	return s, nil
}

// Append writes one sample row: the timestamp into the shared time arena and
// one value per known series at the same storage index. Series named in
// values for the first time are registered in encounter order and their
// earlier slots back-filled with the no-sample sentinel. An append carrying
// no values is a no-op; in particular nothing is written before the first
// series exists.
//
// Append is the single point of mutation for the arenas.
func (s *Store) Append(ts int64, values []Value) {
	if len(values) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, v := range values {
		if _, known := s.byName[v.Series]; !known {
			s.registerLocked(v.Series)
		}
	}
	if len(s.series) == 0 {
		return
	}

	idx := int(s.cursor % uint64(s.capacity))
	s.times[idx] = ts

	for _, sr := range s.series {
		sr.samples[idx] = math.NaN()
	}
	for _, v := range values {
		s.series[s.byName[v.Series]].samples[idx] = v.V
	}

	if s.cursor == 0 {
		s.firstTimestamp = ts
	}
	s.cursor++

	if s.metrics != nil {
		s.metrics.recordAppend(s.cursor, len(s.series))
	}
}

// registerLocked adds a series in insertion order, back-filling every slot
// with NaN so index alignment with the time arena is preserved. Caller must
// hold the write lock.
func (s *Store) registerLocked(name string) {
	sr := &series{
		info:    SeriesInfo{Index: len(s.series), Name: name},
		samples: make([]float64, s.capacity),
	}
	for i := range sr.samples {
		sr.samples[i] = math.NaN()
	}
	s.series = append(s.series, sr)
	s.byName[name] = sr.info.Index

	s.logger.Debug("series registered", "name", name, "index", sr.info.Index)
}

// Series returns the ordered series metadata as of the call. Entries are
// never reordered or removed during a session.
func (s *Store) Series() []SeriesInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]SeriesInfo, len(s.series))
	for i, sr := range s.series {
		infos[i] = sr.info
	}
	return infos
}

// Capacity returns the fixed capacity C.
func (s *Store) Capacity() int {
	return s.capacity
}

// WriteCursor returns W, the count of samples ever appended.
func (s *Store) WriteCursor() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursor
}

// FirstTimestamp returns the epoch: the timestamp of the very first sample
// ever written, immutable once set. Zero means nothing has been written.
func (s *Store) FirstTimestamp() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.firstTimestamp
}

// Len returns the number of currently valid samples, min(W, C).
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lenLocked()
}

func (s *Store) lenLocked() int {
	if s.cursor < uint64(s.capacity) {
		return int(s.cursor)
	}
	return s.capacity
}
