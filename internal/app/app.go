package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/seekr-cli/seekr/internal/config"
	"github.com/seekr-cli/seekr/internal/database"
	"github.com/seekr-cli/seekr/internal/logger"
)

// App is the dependency container for the CLI. Commands pull it out of the
// command context instead of rebuilding config, logging, and storage
// themselves.
type App struct {
	Config *config.Config
	Store  *database.Store
	Log    *zap.Logger
}

// New initializes the shared dependencies: config file (created on first
// run), the process logger, and the application store.
func New(ctx context.Context, debug, jsonLogs bool) (*App, error) {
	cfg, err := config.Initialize()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize config: %w", err)
	}

	log, err := logger.New(jsonLogs, debug)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	store, err := openStore()
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	return &App{
		Config: cfg,
		Store:  store,
		Log:    log,
	}, nil
}

// Close releases all resources.
func (a *App) Close() error {
	if a.Log != nil {
		_ = a.Log.Sync()
	}
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

// SessionPath is where the browser session snapshot lives. The file holds
// live credentials, so it is created with owner-only permissions.
func (a *App) SessionPath() (string, error) {
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "session.json"), nil
}

func openStore() (*database.Store, error) {
	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return database.Open(filepath.Join(dir, "seekr.db"))
}
