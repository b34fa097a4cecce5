// Package saving accepts newly produced ledger records and writes them to
// storage in the background. Until a record is durable it is only reachable
// through the pending index this package maintains.
package saving

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ardanlabs/blockcache/foundation/blockchain/database"
)

// ErrHeightGap is returned when a record is enqueued past the end of the chain.
var ErrHeightGap = errors.New("record height leaves a gap in the chain")

// ErrShutdown is returned when a record is enqueued after shutdown.
var ErrShutdown = errors.New("saver is shut down")

// EventHandler defines a function that is called when events
// occur in the processing of persisting records.
type EventHandler func(v string, args ...any)

// =============================================================================

// Config represents the configuration required to start the saver.
type Config struct {
	Storage       database.Storage
	FlushInterval time.Duration
	Persisted     func(height uint64)
	EvHandler     EventHandler
}

// Saver manages the set of records that have been produced but are not yet
// durably stored, and the goroutine that persists them.
type Saver struct {
	storage   database.Storage
	interval  time.Duration
	persisted func(height uint64)
	evHandler EventHandler

	mu      sync.RWMutex
	pending map[uint64][]*database.Record
	length  uint64

	flushMu sync.Mutex
	wg      sync.WaitGroup
	shut    chan struct{}
	started bool
	closed  bool
}

// New constructs a saver. The chain length starts at the length recorded in
// storage.
func New(cfg Config) (*Saver, error) {
	if cfg.Storage == nil {
		return nil, errors.New("saving: storage is required")
	}

	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	persisted := func(uint64) {}
	if cfg.Persisted != nil {
		persisted = cfg.Persisted
	}

	interval := cfg.FlushInterval
	if interval <= 0 {
		interval = time.Second
	}

	length, err := database.ReadLength(cfg.Storage)
	if err != nil {
		return nil, err
	}

	s := Saver{
		storage:   cfg.Storage,
		interval:  interval,
		persisted: persisted,
		evHandler: ev,
		pending:   make(map[uint64][]*database.Record),
		length:    length,
		shut:      make(chan struct{}),
	}

	return &s, nil
}

// Start launches the goroutine that flushes pending records on the
// configured interval.
func (s *Saver) Start() {
	s.mu.Lock()
	if s.started || s.closed {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.evHandler("saving: writer: G started")
		defer s.evHandler("saving: writer: G completed")

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := s.Flush(); err != nil {
					s.evHandler("saving: writer: flush: ERROR: %s", err)
				}
			case <-s.shut:
				return
			}
		}
	}()
}

// Shutdown stops the writer goroutine and persists whatever is pending.
func (s *Saver) Shutdown() error {
	s.evHandler("saving: shutdown: started")
	defer s.evHandler("saving: shutdown: completed")

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.evHandler("saving: shutdown: terminate writer")
	close(s.shut)
	s.wg.Wait()

	s.evHandler("saving: shutdown: final flush")
	return s.Flush()
}

// =============================================================================

// Enqueue accepts a newly produced record. A record at the chain length
// extends the chain; a record below it replaces the version at that height.
// The newest version of a height is always the first one returned by
// PendingRecordsAt.
func (s *Saver) Enqueue(rec *database.Record) error {
	if rec == nil {
		return errors.New("saving: nil record")
	}

	if rec.DifficultyTarget == nil {
		return fmt.Errorf("saving: record %d: missing difficulty target", rec.Height)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrShutdown
	}

	if rec.Height > s.length {
		return fmt.Errorf("%w: height %d, length %d", ErrHeightGap, rec.Height, s.length)
	}

	s.pending[rec.Height] = append([]*database.Record{rec}, s.pending[rec.Height]...)
	if rec.Height == s.length {
		s.length++
	}

	s.evHandler("saving: Enqueue: blk[%d]: pending[%d]", rec.Height, len(s.pending[rec.Height]))

	return nil
}

// PendingRecordsAt returns the records for the height that are not yet
// durable, newest first. The returned slice is a copy.
func (s *Saver) PendingRecordsAt(height uint64) []*database.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	queue := s.pending[height]
	if len(queue) == 0 {
		return nil
	}

	return append([]*database.Record(nil), queue...)
}

// Length returns the current chain length, counting pending records.
func (s *Saver) Length() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.length
}

// PendingCount returns the number of heights waiting to be persisted.
func (s *Saver) PendingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.pending)
}

// =============================================================================

// Flush persists the newest pending version of every height in ascending
// height order. A version enqueued while its height is being written stays
// pending for the next flush.
func (s *Saver) Flush() error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	// Capture the head of every queue so the writes happen without the lock.
	type head struct {
		height uint64
		rec    *database.Record
	}

	s.mu.RLock()
	heads := make([]head, 0, len(s.pending))
	for height, queue := range s.pending {
		heads = append(heads, head{height: height, rec: queue[0]})
	}
	s.mu.RUnlock()

	sort.Slice(heads, func(i, j int) bool {
		return heads[i].height < heads[j].height
	})

	for _, h := range heads {
		if err := database.WriteRecord(s.storage, h.rec); err != nil {
			return fmt.Errorf("persisting record %d: %w", h.height, err)
		}

		// Let the cache drop any copy older than what was just written
		// while the record is still reachable as pending.
		s.persisted(h.height)

		s.release(h.height, h.rec)

		s.evHandler("saving: Flush: blk[%d]: persisted", h.height)
	}

	return nil
}

// release drops the written record and every older version queued behind it.
func (s *Saver) release(height uint64, written *database.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	queue := s.pending[height]
	for i, rec := range queue {
		if rec == written {
			queue = queue[:i]
			break
		}
	}

	if len(queue) == 0 {
		delete(s.pending, height)
		return
	}

	s.pending[height] = queue
}
