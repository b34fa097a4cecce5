// Package cmd contains the admin commands.
package cmd

import (
	"context"
	"fmt"

	"github.com/ardanlabs/blockcache/foundation/blockchain/creator"
	"github.com/ardanlabs/blockcache/foundation/blockchain/database"
	"github.com/ardanlabs/blockcache/foundation/blockchain/loading"
	"github.com/ardanlabs/blockcache/foundation/blockchain/saving"
	"github.com/ardanlabs/blockcache/foundation/blockchain/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	engine string
	dbPath string
	log    *zap.SugaredLogger
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&engine, "engine", "e", storage.EngineBadger, "Storage engine: memory, disk, badger or bolt.")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db-path", "d", "zblock/cache", "Path to the storage.")
}

var rootCmd = &cobra.Command{
	Use:           "admin",
	Short:         "Administer a record cache store",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command named on the command line.
func Execute(build string, l *zap.SugaredLogger) error {
	log = l
	rootCmd.Version = build

	return rootCmd.ExecuteContext(context.Background())
}

// =============================================================================

// store holds everything a command needs to read through the cache.
type store struct {
	storage database.Storage
	saver   *saving.Saver
	cache   *loading.Manager
}

// openStore opens the configured storage and puts a cache in front of it.
// The sweeper is not started since commands are short lived.
func openStore() (*store, error) {
	strg, err := storage.Open(engine, dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	var cache *loading.Manager

	saver, err := saving.New(saving.Config{
		Storage: strg,
		Persisted: func(height uint64) {
			cache.Forget(height)
		},
	})
	if err != nil {
		strg.Close()
		return nil, fmt.Errorf("constructing saver: %w", err)
	}

	cache, err = loading.New(loading.Config{
		Storage:      strg,
		Materializer: creator.New(strg),
		Pending:      saver,
		Chain:        saver,
		Log:          log,
	})
	if err != nil {
		strg.Close()
		return nil, fmt.Errorf("constructing cache: %w", err)
	}

	s := store{
		storage: strg,
		saver:   saver,
		cache:   cache,
	}

	return &s, nil
}

// Close writes anything still pending and closes the storage.
func (s *store) Close() error {
	if err := s.saver.Shutdown(); err != nil {
		s.storage.Close()
		return err
	}

	return s.storage.Close()
}
