package cli

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cro-pilot/cro-pilot/internal/config"
	"github.com/cro-pilot/cro-pilot/internal/engine"
	"github.com/cro-pilot/cro-pilot/internal/hypothesis"
	"github.com/cro-pilot/cro-pilot/internal/store"
)

// openStore opens the configured storage backend.
func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Storage.Backend {
	case "sqlite":
		return store.OpenSQLite(cfg.Storage.DBPath, cfg.Storage.EventCapacity)
	default:
		return store.OpenJSON(cfg.Storage.DataDir, cfg.Storage.EventCapacity)
	}
}

// withEngine loads config, opens storage, builds the engine, executes the
// function, and handles cleanup.
func withEngine(fn func(*engine.Engine, *config.Config) error) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer st.Close()

	log, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Sync()

	manifest, err := hypothesis.LoadManifest(cfg.ManifestPath)
	if err != nil {
		// Hypothesis generation degrades gracefully without media.
		log.Warn("media manifest unavailable", zap.String("path", cfg.ManifestPath), zap.Error(err))
		manifest = &store.MediaManifest{}
	}

	return fn(engine.New(st, cfg, log, hypothesis.NewGenerator(manifest)), cfg)
}
