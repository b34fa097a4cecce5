package loading

import (
	"fmt"
	"sort"
	"time"
)

// SweepStats reports what a single sweep did.
type SweepStats struct {
	Aged      int `json:"aged"`      // Removed for being idle too long.
	Retained  int `json:"retained"`  // Idle too long but still pending a write.
	Overflow  int `json:"overflow"`  // Removed to bring the cache back under its size limit.
	Remaining int `json:"remaining"` // Records left in the cache.
}

// Start launches the goroutine that sweeps the cache. The next sweep is only
// scheduled once the current one has finished, so sweeps never overlap.
func (m *Manager) Start() {
	m.mu.Lock()
	if m.started || m.stopped {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	// The timer is created before the G so the first sweep is scheduled
	// relative to the call to Start.
	timer := m.clock.Timer(m.interval)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer timer.Stop()

		m.evHandler("loading: sweeper: G started")
		defer m.evHandler("loading: sweeper: G completed")

		for {
			select {
			case <-timer.C:
				m.runSweep()
				timer.Reset(m.interval)
				m.evHandler("loading: sweeper: rescheduled in %v", m.interval)

			case <-m.shut:
				m.evHandler("loading: sweeper: received shut signal")
				return
			}
		}
	}()
}

// Shutdown stops the sweeper goroutine.
func (m *Manager) Shutdown() {
	m.evHandler("loading: shutdown: started")
	defer m.evHandler("loading: shutdown: completed")

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	m.mu.Unlock()

	close(m.shut)
	m.wg.Wait()
}

// runSweep is the error boundary around a single sweep. A panic inside the
// sweep is logged and the sweeper keeps running.
func (m *Manager) runSweep() {
	defer func() {
		if r := recover(); r != nil {
			m.metrics.sweepPanics.Inc()
			m.log.Errorw("loading", "status", "sweep panic recovered", "ERROR", fmt.Sprint(r))
			m.evHandler("loading: sweep: PANIC: %v", r)
		}
	}()

	st := m.Sweep()
	m.evHandler("loading: sweep: aged[%d] retained[%d] overflow[%d] remaining[%d]", st.Aged, st.Retained, st.Overflow, st.Remaining)
}

// Sweep removes every record idle for longer than the configured age,
// except records the saving manager still holds as pending. If the cache is
// still over its size limit, the least recently used records are removed
// until exactly the limit remains.
func (m *Manager) Sweep() SweepStats {
	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	var st SweepStats

	for height, rec := range m.records {
		if now.Sub(rec.LastTimeUsed()) <= m.maxAge {
			continue
		}

		if len(m.pending.PendingRecordsAt(height)) > 0 {
			st.Retained++
			continue
		}

		delete(m.records, height)
		st.Aged++
	}

	if over := len(m.records) - m.maxBlocks; over > 0 {
		type entry struct {
			height uint64
			used   time.Time
		}

		entries := make([]entry, 0, len(m.records))
		for height, rec := range m.records {
			entries = append(entries, entry{height: height, used: rec.LastTimeUsed()})
		}

		sort.Slice(entries, func(i, j int) bool {
			if entries[i].used.Equal(entries[j].used) {
				return entries[i].height < entries[j].height
			}
			return entries[i].used.Before(entries[j].used)
		})

		for _, e := range entries[:over] {
			delete(m.records, e.height)
		}
		st.Overflow = over
	}

	st.Remaining = len(m.records)

	m.metrics.evictions.WithLabelValues("age").Add(float64(st.Aged))
	m.metrics.evictions.WithLabelValues("size").Add(float64(st.Overflow))
	m.metrics.size.Set(float64(st.Remaining))

	return st
}
