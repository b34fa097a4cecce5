// Package private maintains the group of handlers for producer access.
package private

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ardanlabs/blockcache/business/web/errs"
	"github.com/ardanlabs/blockcache/business/web/validate"
	"github.com/ardanlabs/blockcache/foundation/blockchain/loading"
	"github.com/ardanlabs/blockcache/foundation/blockchain/saving"
	"github.com/ardanlabs/blockcache/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of producer endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	Cache *loading.Manager
	Saver *saving.Saver
}

// SubmitRecord accepts a newly produced record. The record is served from
// the pending index until the saver has written it.
func (h Handlers) SubmitRecord(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var nr newRecord
	if err := web.Decode(r, &nr); err != nil {
		return errs.NewTrusted(fmt.Errorf("unable to decode payload: %w", err), http.StatusBadRequest)
	}

	if err := validate.Check(nr); err != nil {
		return err
	}

	rec, err := toRecord(nr)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	h.Log.Infow("submit record", "traceid", v.TraceID, "height", rec.Height, "miner", rec.Miner)

	if err := h.Saver.Enqueue(rec); err != nil {
		switch {
		case errors.Is(err, saving.ErrHeightGap):
			return errs.NewTrusted(err, http.StatusConflict)
		case errors.Is(err, saving.ErrShutdown):
			return errs.NewTrusted(err, http.StatusServiceUnavailable)
		}
		return err
	}

	resp := struct {
		Status  string `json:"status"`
		Height  uint64 `json:"height"`
		Hash    string `json:"hash"`
		Pending int    `json:"pending"`
	}{
		Status:  "record accepted",
		Height:  rec.Height,
		Hash:    rec.Hash(),
		Pending: len(h.Saver.PendingRecordsAt(rec.Height)),
	}

	return web.Respond(ctx, w, resp, http.StatusAccepted)
}

// Flush writes every pending record to storage now instead of waiting for
// the next write cycle.
func (h Handlers) Flush(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if err := h.Saver.Flush(); err != nil {
		return err
	}

	resp := struct {
		Status      string `json:"status"`
		ChainLength uint64 `json:"chain_length"`
	}{
		Status:      "pending records written",
		ChainLength: h.Saver.Length(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Sweep runs an eviction pass over the cache immediately.
func (h Handlers) Sweep(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	st := h.Cache.Sweep()
	return web.Respond(ctx, w, st, http.StatusOK)
}
