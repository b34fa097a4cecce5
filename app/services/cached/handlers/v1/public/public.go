// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ardanlabs/blockcache/business/web/errs"
	"github.com/ardanlabs/blockcache/foundation/blockchain/loading"
	"github.com/ardanlabs/blockcache/foundation/blockchain/saving"
	"github.com/ardanlabs/blockcache/foundation/events"
	"github.com/ardanlabs/blockcache/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of cache endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	Cache *loading.Manager
	Saver *saving.Saver
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case evt, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteJSON(evt); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Record returns the record for the specified height. A record still being
// written is returned ahead of anything stored.
func (h Handlers) Record(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	height, err := web.ParamUint64(r, "height")
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	rec, err := h.Cache.Get(ctx, height)
	if err != nil {
		if errors.Is(err, loading.ErrOutOfRange) {
			return errs.NewTrusted(err, http.StatusNotFound)
		}
		return err
	}

	if rec == nil {
		return errs.NewTrusted(fmt.Errorf("height %d: %w", height, loading.ErrNotFound), http.StatusNotFound)
	}

	pending := len(h.Saver.PendingRecordsAt(height)) > 0

	return web.Respond(ctx, w, toRecord(rec, pending), http.StatusOK)
}

// Work returns the work represented by the record at the specified height.
func (h Handlers) Work(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	height, err := web.ParamUint64(r, "height")
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	wrk, err := h.Cache.Work(ctx, height)
	if err != nil {
		if errors.Is(err, loading.ErrMissingDifficulty) {
			return errs.NewTrusted(err, http.StatusNotFound)
		}
		return err
	}

	resp := work{
		From: height,
		To:   height,
		Work: wrk.String(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// CumulativeWork returns the sum of the work over the inclusive range given
// by the from and to query values.
func (h Handlers) CumulativeWork(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	from, err := web.QueryUint64(r, "from")
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	to, err := web.QueryUint64(r, "to")
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if from > to {
		return errs.NewTrusted(fmt.Errorf("from %d is greater than to %d", from, to), http.StatusBadRequest)
	}

	wrk, err := h.Cache.CumulativeWork(ctx, from, to)
	if err != nil {
		switch {
		case errors.Is(err, loading.ErrOutOfRange), errors.Is(err, loading.ErrRangeTooWide):
			return errs.NewTrusted(err, http.StatusBadRequest)
		case errors.Is(err, loading.ErrMissingDifficulty):
			return errs.NewTrusted(err, http.StatusNotFound)
		}
		return err
	}

	resp := work{
		From: from,
		To:   to,
		Work: wrk.String(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Stats returns a snapshot of the cache.
func (h Handlers) Stats(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	st := h.Cache.Stats()

	resp := stats{
		Records:        st.Records,
		MaxRecords:     st.MaxRecords,
		MaxIdle:        st.MaxIdle.String(),
		SweepInterval:  st.Interval.String(),
		ChainLength:    st.ChainLength,
		PendingHeights: h.Saver.PendingCount(),
		Subscribers:    h.Evts.Len(),
	}

	if st.Records > 0 {
		resp.OldestUse = &st.Oldest
		resp.NewestUse = &st.Newest
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}
