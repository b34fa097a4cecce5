package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/blockcache/app/services/cached/handlers"
	"github.com/ardanlabs/blockcache/business/web/mid"
	"github.com/ardanlabs/blockcache/foundation/blockchain/creator"
	"github.com/ardanlabs/blockcache/foundation/blockchain/loading"
	"github.com/ardanlabs/blockcache/foundation/blockchain/saving"
	"github.com/ardanlabs/blockcache/foundation/blockchain/storage"
	"github.com/ardanlabs/blockcache/foundation/events"
	"github.com/ardanlabs/blockcache/foundation/logger"
	"github.com/ardanlabs/conf/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("CACHE")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	// This is all the configuration for the application and the default values.
	// Configuration values will be passed through the application as individual
	// values.
	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			PublicHost      string        `conf:"default:0.0.0.0:8080"`
			PrivateHost     string        `conf:"default:0.0.0.0:9080"`
			CORSOrigin      string        `conf:"default:*"`
		}
		Cache struct {
			MaxBlocksMemory              int           `conf:"default:1000"`
			ClearOldUnusedBlocks         time.Duration `conf:"default:5m"`
			ClearOldUnusedBlocksInterval time.Duration `conf:"default:30s"`
			MaterializeTimeout           time.Duration `conf:"default:10s"`
			MaxWorkRange                 uint64        `conf:"default:10000"`
		}
		Storage struct {
			Engine string `conf:"default:badger"`
			Path   string `conf:"default:zblock/cache"`
		}
		Saving struct {
			FlushInterval time.Duration `conf:"default:1s"`
		}
		Log struct {
			File       string
			MaxSizeMB  int `conf:"default:100"`
			MaxAgeDays int `conf:"default:7"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "copyright information here",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	const prefix = "CACHE"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// When a log file is configured, everything is also written to a file
	// that is rotated by size and age.
	if cfg.Log.File != "" {
		flog, err := logger.NewWithFile("CACHE", logger.File{
			Path:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxAgeDays: cfg.Log.MaxAgeDays,
		})
		if err != nil {
			return fmt.Errorf("constructing file logger: %w", err)
		}
		defer flog.Sync()
		log = flog
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	// Display the current configuration to the logs.
	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Metrics Support

	// Every collector of the service is registered here and exposed on the
	// debug host.
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// =========================================================================
	// Cache Support

	log.Infow("startup", "status", "opening storage", "engine", cfg.Storage.Engine, "path", cfg.Storage.Path)

	strg, err := storage.Open(cfg.Storage.Engine, cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		log.Infow("shutdown", "status", "closing storage")
		strg.Close()
	}()

	// The cache packages accept a function of this signature to allow the
	// application to log. These raw messages are also sent to any websocket
	// client that is connected into the system through the events package.
	evts := events.New()
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		evts.Send(events.Parse(s, time.Now().UTC()))
	}

	// The cache has to drop its copy of a height once the saver has written
	// a newer version, so the saver is handed a hook into the manager.
	var cache *loading.Manager

	saver, err := saving.New(saving.Config{
		Storage:       strg,
		FlushInterval: cfg.Saving.FlushInterval,
		Persisted: func(height uint64) {
			cache.Forget(height)
		},
		EvHandler: saving.EventHandler(ev),
	})
	if err != nil {
		return fmt.Errorf("constructing saver: %w", err)
	}

	cache, err = loading.New(loading.Config{
		Storage:                      strg,
		Materializer:                 creator.New(strg),
		Pending:                      saver,
		Chain:                        saver,
		Log:                          log,
		EvHandler:                    loading.EventHandler(ev),
		Registerer:                   reg,
		MaxBlocksMemory:              cfg.Cache.MaxBlocksMemory,
		ClearOldUnusedBlocks:         cfg.Cache.ClearOldUnusedBlocks,
		ClearOldUnusedBlocksInterval: cfg.Cache.ClearOldUnusedBlocksInterval,
		MaterializeTimeout:           cfg.Cache.MaterializeTimeout,
		MaxWorkRange:                 cfg.Cache.MaxWorkRange,
	})
	if err != nil {
		return fmt.Errorf("constructing cache: %w", err)
	}

	log.Infow("startup", "status", "cache started", "chain_length", saver.Length())

	saver.Start()
	defer func() {
		if err := saver.Shutdown(); err != nil {
			log.Errorw("shutdown", "status", "final flush", "ERROR", err)
		}
	}()

	cache.Start()
	defer cache.Shutdown()

	httpMetrics := mid.NewHTTPMetrics(reg)

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	// Construct the mux for the debug calls.
	debugMux := handlers.DebugMux(build, log, strg, reg)

	// Start the service listening for debug requests.
	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	// =========================================================================
	// Start Public Service

	log.Infow("startup", "status", "initializing V1 public API support")

	// Construct the mux for the public API calls.
	publicMux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown:   shutdown,
		Log:        log,
		Cache:      cache,
		Saver:      saver,
		Evts:       evts,
		Metrics:    httpMetrics,
		CORSOrigin: cfg.Web.CORSOrigin,
	})

	// Construct a server to service the requests against the mux.
	public := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      publicMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// =========================================================================
	// Start Private Service

	log.Infow("startup", "status", "initializing V1 private API support")

	// Construct the mux for the private API calls.
	privateMux := handlers.PrivateMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		Cache:    cache,
		Saver:    saver,
		Metrics:  httpMetrics,
	})

	// Construct a server to service the requests against the mux.
	private := http.Server{
		Addr:         cfg.Web.PrivateHost,
		Handler:      privateMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "private api router started", "host", private.Addr)
		serverErrors <- private.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		// Give outstanding requests a deadline for completion.
		ctx, cancelPri := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelPri()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown private API started")
		if err := private.Shutdown(ctx); err != nil {
			private.Close()
			return fmt.Errorf("could not stop private service gracefully: %w", err)
		}

		// Give outstanding requests a deadline for completion.
		ctx, cancelPub := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelPub()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown public API started")
		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("could not stop public service gracefully: %w", err)
		}
	}

	return nil
}
