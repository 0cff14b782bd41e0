package history

import (
	"context"
	"fmt"

	"github.com/udisondev/rtp/internal/config"
)

// OpenBackend opens the backend selected by cfg.
func OpenBackend(ctx context.Context, cfg config.HistoryConfig) (Backend, error) {
	var (
		b   Backend
		err error
	)
	switch cfg.Backend {
	case config.BackendYAML:
		b, err = OpenYAML(cfg.Path)
	case config.BackendSQLite:
		b, err = OpenSQLite(ctx, cfg.Path)
	case config.BackendPostgres:
		b, err = OpenPostgres(ctx, cfg.Database.DSN())
	default:
		return nil, fmt.Errorf("unknown history backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s history: %w", cfg.Backend, err)
	}
	return b, nil
}
