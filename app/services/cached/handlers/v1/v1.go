// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/ardanlabs/blockcache/app/services/cached/handlers/v1/private"
	"github.com/ardanlabs/blockcache/app/services/cached/handlers/v1/public"
	"github.com/ardanlabs/blockcache/foundation/blockchain/loading"
	"github.com/ardanlabs/blockcache/foundation/blockchain/saving"
	"github.com/ardanlabs/blockcache/foundation/events"
	"github.com/ardanlabs/blockcache/foundation/web"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log   *zap.SugaredLogger
	Cache *loading.Manager
	Saver *saving.Saver
	Evts  *events.Events
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:   cfg.Log,
		Cache: cfg.Cache,
		Saver: cfg.Saver,
		Evts:  cfg.Evts,
	}

	app.Handle(http.MethodGet, version, "/events", pbl.Events)
	app.Handle(http.MethodGet, version, "/blocks/:height", pbl.Record)
	app.Handle(http.MethodGet, version, "/blocks/:height/work", pbl.Work)
	app.Handle(http.MethodGet, version, "/work", pbl.CumulativeWork)
	app.Handle(http.MethodGet, version, "/cache/stats", pbl.Stats)
}

// PrivateRoutes binds all the version 1 private routes.
func PrivateRoutes(app *web.App, cfg Config) {
	prv := private.Handlers{
		Log:   cfg.Log,
		Cache: cfg.Cache,
		Saver: cfg.Saver,
	}

	app.Handle(http.MethodPost, version, "/blocks/pending", prv.SubmitRecord)
	app.Handle(http.MethodPost, version, "/blocks/flush", prv.Flush)
	app.Handle(http.MethodPost, version, "/cache/sweep", prv.Sweep)
}
