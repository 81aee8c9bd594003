package remote

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/minhancr123/Task-Management-sub000/internal/config"
	"github.com/minhancr123/Task-Management-sub000/internal/store"
)

// Open connects the backend named in cfg and wraps it for tracing. A relative
// sqlite database path is resolved against dir.
func Open(ctx context.Context, cfg *config.Config, dir string) (Backend, error) {
	var b Backend
	switch cfg.Backend {
	case config.BackendSQLite:
		path := cfg.Database
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		s, err := store.New(path)
		if err != nil {
			return nil, err
		}
		b = s
	case config.BackendRedis:
		r, err := DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		b = r
	case config.BackendHTTP:
		b = NewHTTPStore(cfg.ServerURL, nil)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
	return NewTraced(b, cfg.Backend), nil
}
