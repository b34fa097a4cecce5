// Package loading serves ledger records by height out of a bounded in-memory
// cache. Misses are materialized from storage, records still being written
// by the saving manager take precedence over anything cached, and a
// background sweep keeps the cache within its time and size limits.
package loading

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/ardanlabs/blockcache/foundation/blockchain/database"
	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Default limits for the cache.
const (
	DefaultMaxBlocksMemory              = 1000
	DefaultClearOldUnusedBlocks         = 5 * time.Minute
	DefaultClearOldUnusedBlocksInterval = 30 * time.Second
	DefaultMaterializeTimeout           = 10 * time.Second
	DefaultMaxWorkRange                 = 10_000
)

// EventHandler defines a function that is called when events
// occur in the processing of cached records.
type EventHandler func(v string, args ...any)

// Materializer represents the behavior required to build a record from
// storage. Populate reports false when nothing is stored for the height.
type Materializer interface {
	CreateEmptyShell(height uint64) (*database.Record, error)
	Populate(ctx context.Context, rec *database.Record) (bool, error)
}

// Pending represents read access to the index of records that have been
// produced but are not yet durable. The first record returned for a height
// is the newest version.
type Pending interface {
	PendingRecordsAt(height uint64) []*database.Record
}

// Chain provides the current chain length.
type Chain interface {
	Length() uint64
}

// =============================================================================

// Config represents the configuration required to construct a manager.
type Config struct {
	Storage      database.Storage
	Materializer Materializer
	Pending      Pending
	Chain        Chain
	Log          *zap.SugaredLogger
	EvHandler    EventHandler
	Clock        clock.Clock
	Registerer   prometheus.Registerer

	MaxBlocksMemory              int
	ClearOldUnusedBlocks         time.Duration
	ClearOldUnusedBlocksInterval time.Duration
	MaterializeTimeout           time.Duration
	MaxWorkRange                 uint64
}

// Manager owns the in-memory mapping from height to record.
type Manager struct {
	storage      database.Storage
	materializer Materializer
	pending      Pending
	chain        Chain
	log          *zap.SugaredLogger
	evHandler    EventHandler
	clock        clock.Clock
	metrics      *metrics

	maxBlocks    int
	maxAge       time.Duration
	interval     time.Duration
	timeout      time.Duration
	maxWorkRange uint64

	mu        sync.Mutex
	records   map[uint64]*database.Record
	seq       uint64
	forgotten map[uint64]uint64
	active    int

	group singleflight.Group

	wg      sync.WaitGroup
	shut    chan struct{}
	started bool
	stopped bool
}

// New constructs a manager. The background sweep is not running until
// Start is called.
func New(cfg Config) (*Manager, error) {
	switch {
	case cfg.Storage == nil:
		return nil, errors.New("loading: storage is required")
	case cfg.Materializer == nil:
		return nil, errors.New("loading: materializer is required")
	case cfg.Pending == nil:
		return nil, errors.New("loading: pending index is required")
	case cfg.Chain == nil:
		return nil, errors.New("loading: chain is required")
	}

	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	log := cfg.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}

	m := Manager{
		storage:      cfg.Storage,
		materializer: cfg.Materializer,
		pending:      cfg.Pending,
		chain:        cfg.Chain,
		log:          log,
		evHandler:    ev,
		clock:        clk,
		metrics:      newMetrics(cfg.Registerer),
		maxBlocks:    orDefault(cfg.MaxBlocksMemory, DefaultMaxBlocksMemory),
		maxAge:       orDefault(cfg.ClearOldUnusedBlocks, DefaultClearOldUnusedBlocks),
		interval:     orDefault(cfg.ClearOldUnusedBlocksInterval, DefaultClearOldUnusedBlocksInterval),
		timeout:      orDefault(cfg.MaterializeTimeout, DefaultMaterializeTimeout),
		maxWorkRange: orDefault(cfg.MaxWorkRange, DefaultMaxWorkRange),
		records:      make(map[uint64]*database.Record),
		forgotten:    make(map[uint64]uint64),
		shut:         make(chan struct{}),
	}

	return &m, nil
}

func orDefault[T int | uint64 | time.Duration](v T, def T) T {
	if v <= 0 {
		return def
	}
	return v
}

// =============================================================================

// Get returns the record for the height. A height at or past the chain
// length fails with an OutOfRangeError. A record that is not stored, or that
// could not be built, is reported as a nil record with a nil error after the
// fault has been logged. Use Load to see why a record is absent.
func (m *Manager) Get(ctx context.Context, height uint64) (*database.Record, error) {
	rec, err := m.Load(ctx, height)
	if err == nil {
		return rec, nil
	}

	switch {
	case errors.Is(err, ErrOutOfRange):
		return nil, err

	case errors.Is(err, ErrNotFound):
		return nil, nil

	case errors.Is(err, ErrMaterialization):
		m.log.Errorw("loading", "status", "materialization fault", "height", height, "ERROR", err)
		return nil, nil
	}

	// Only the caller's own cancellation is left.
	return nil, err
}

// Load returns the record for the height with strict error reporting. An
// absent record fails with ErrNotFound and a failed build with a
// MaterializationError.
func (m *Manager) Load(ctx context.Context, height uint64) (*database.Record, error) {

	// A record still being written is the newest version of the height and
	// wins over anything cached or stored.
	if pending := m.pending.PendingRecordsAt(height); len(pending) > 0 {
		m.metrics.inFlightHits.Inc()
		return pending[0], nil
	}

	if length := m.chain.Length(); height >= length {
		return nil, &OutOfRangeError{Height: height, Length: length}
	}

	if rec, exists := m.lookup(height); exists {
		m.metrics.hits.Inc()
		return rec, nil
	}

	m.metrics.misses.Inc()

	return m.loadShared(ctx, height)
}

// lookup returns the cached record and marks it as used.
func (m *Manager) lookup(height uint64) (*database.Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, exists := m.records[height]
	if exists {
		rec.Touch(m.clock.Now())
	}

	return rec, exists
}

// loadShared coalesces concurrent misses for the same height into a single
// materialization. The materialization runs under its own deadline so a
// caller that gives up never fails the others waiting on it.
func (m *Manager) loadShared(ctx context.Context, height uint64) (*database.Record, error) {
	key := strconv.FormatUint(height, 10)

	ch := m.group.DoChan(key, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()

		return m.materialize(ctx, height)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*database.Record), nil

	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// materialize builds the record for the height from storage and caches it.
func (m *Manager) materialize(ctx context.Context, height uint64) (*database.Record, error) {

	// A previous flight may have cached the record between our lookup and
	// the start of this flight.
	if rec, exists := m.lookup(height); exists {
		return rec, nil
	}

	// Forget calls are only tracked while a materialization is running.
	m.mu.Lock()
	start := m.seq
	m.active++
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		m.active--
		if m.active == 0 {
			clear(m.forgotten)
		}
	}()

	m.evHandler("loading: materialize: blk[%d]: started", height)

	rec, err := m.materializer.CreateEmptyShell(height)
	if err != nil {
		m.metrics.faults.Inc()
		return nil, &MaterializationError{Height: height, Err: fmt.Errorf("create shell: %w", err)}
	}

	prev, prevErr := database.ReadTarget(m.storage, database.DifficultyKey(height))
	target, targetErr := database.ReadTarget(m.storage, database.DifficultyKey(height+1))
	rec.DifficultyTargetPrev = prev
	rec.DifficultyTarget = target

	found, err := m.materializer.Populate(ctx, rec)
	if err != nil {
		m.metrics.faults.Inc()
		return nil, &MaterializationError{Height: height, Err: fmt.Errorf("populate: %w", err)}
	}

	if !found {
		m.metrics.notFound.Inc()
		m.evHandler("loading: materialize: blk[%d]: not found", height)
		return nil, fmt.Errorf("height %d: %w", height, ErrNotFound)
	}

	// The payload exists, so both difficulty entries have to exist too.
	// Height zero has no parent, so its prev entry may be missing.
	if prevErr != nil && (height > 0 || !errors.Is(prevErr, database.ErrNotFound)) {
		m.metrics.faults.Inc()
		return nil, &MaterializationError{Height: height, Err: fmt.Errorf("difficulty target prev: %w", prevErr)}
	}
	if targetErr != nil {
		m.metrics.faults.Inc()
		return nil, &MaterializationError{Height: height, Err: fmt.Errorf("difficulty target: %w", targetErr)}
	}

	m.metrics.materializations.Inc()

	m.mu.Lock()
	defer m.mu.Unlock()

	rec.Touch(m.clock.Now())

	// A newer version of this height was persisted while we were reading.
	// Hand the record back but don't cache what may be stale.
	if m.forgotten[height] > start {
		m.evHandler("loading: materialize: blk[%d]: superseded while loading, not cached", height)
		return rec, nil
	}

	m.records[height] = rec
	m.metrics.size.Set(float64(len(m.records)))

	m.evHandler("loading: materialize: blk[%d]: cached", height)

	return rec, nil
}

// =============================================================================

// Forget drops the cached copy of the height. The saving manager calls this
// once a newer version of the height is durable.
func (m *Manager) Forget(height uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	if m.active > 0 {
		m.forgotten[height] = m.seq
	}
	m.group.Forget(strconv.FormatUint(height, 10))

	if _, exists := m.records[height]; exists {
		delete(m.records, height)
		m.metrics.evictions.WithLabelValues("forget").Inc()
		m.metrics.size.Set(float64(len(m.records)))
	}
}

// Contains reports whether the height is currently cached.
func (m *Manager) Contains(height uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, exists := m.records[height]
	return exists
}

// Len returns the number of cached records.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.records)
}

// Stats represents a snapshot of the cache.
type Stats struct {
	Records     int           `json:"records"`
	MaxRecords  int           `json:"max_records"`
	MaxIdle     time.Duration `json:"max_idle"`
	Interval    time.Duration `json:"sweep_interval"`
	ChainLength uint64        `json:"chain_length"`
	Oldest      time.Time     `json:"oldest_use,omitempty"`
	Newest      time.Time     `json:"newest_use,omitempty"`
}

// Stats returns a snapshot of the cache.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := Stats{
		Records:     len(m.records),
		MaxRecords:  m.maxBlocks,
		MaxIdle:     m.maxAge,
		Interval:    m.interval,
		ChainLength: m.chain.Length(),
	}

	for _, rec := range m.records {
		used := rec.LastTimeUsed()
		if st.Oldest.IsZero() || used.Before(st.Oldest) {
			st.Oldest = used
		}
		if used.After(st.Newest) {
			st.Newest = used
		}
	}

	return st
}
