package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/minhancr123/Task-Management-sub000/internal/board"
	"github.com/minhancr123/Task-Management-sub000/internal/config"
	"github.com/minhancr123/Task-Management-sub000/internal/remote"
	"github.com/minhancr123/Task-Management-sub000/internal/session"
	"github.com/minhancr123/Task-Management-sub000/internal/store"
)

const boardDirName = ".taskboard"

// boardPath returns the path to a file inside .taskboard/.
func boardPath(parts ...string) string {
	elems := append([]string{boardDirName}, parts...)
	return filepath.Join(elems...)
}

// loadConfig reads .taskboard/config.yaml and applies its log level.
func loadConfig() (*config.Config, error) {
	cfgPath := boardPath("config.yaml")
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("taskboard not initialized. Run: taskboard init")
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if !debug {
		log.SetLevel(cfg.Level())
	}
	return cfg, nil
}

// openBackend connects the configured record store. With tracing on, spans
// are logged to logger until the backend is closed.
func openBackend(ctx context.Context, cfg *config.Config, logger log.FieldLogger) (remote.Backend, error) {
	var stopTracing func(context.Context) error
	if trace || cfg.Trace {
		stopTracing = remote.InstallTracing(logger.WithField("component", "trace"))
	}
	b, err := remote.Open(ctx, cfg, boardDirName)
	if err != nil {
		if stopTracing != nil {
			_ = stopTracing(ctx)
		}
		return nil, fmt.Errorf("open %s backend: %w", cfg.Backend, err)
	}
	if stopTracing != nil {
		return &tracedBackend{Backend: b, stop: stopTracing}, nil
	}
	return b, nil
}

// tracedBackend removes the tracer provider when the backend closes.
type tracedBackend struct {
	remote.Backend
	stop func(context.Context) error
}

func (t *tracedBackend) Close() error {
	err := t.Backend.Close()
	if serr := t.stop(context.Background()); err == nil {
		err = serr
	}
	return err
}

// mustSQLite opens the sqlite store for commands that need more than the
// record store contract.
func mustSQLite(cfg *config.Config) (*store.Store, error) {
	if cfg.Backend != config.BackendSQLite {
		return nil, fmt.Errorf("this command needs the sqlite backend (configured: %s)", cfg.Backend)
	}
	path := cfg.Database
	if !filepath.IsAbs(path) {
		path = boardPath(path)
	}
	return store.New(path)
}

// sessionOptions maps the config onto session options.
func sessionOptions(cfg *config.Config, logger log.FieldLogger) session.Options {
	threshold := cfg.Board.DragThreshold
	return session.Options{
		Logger:          logger,
		FreshnessWindow: cfg.Cache.FreshnessWindow,
		StatsDelay:      cfg.Stats.Debounce,
		DragThreshold:   &threshold,
		Gate:            board.FrozenGate(cfg.Permissions.ReadOnly, cfg.Permissions.Frozen()...),
	}
}

// ownerFlag returns the --owner value, falling back to the configured owner.
func ownerFlag(cfg *config.Config, flag string) string {
	if flag != "" {
		return flag
	}
	return cfg.Owner
}

// startSession opens the backend and runs the session's initial fetch. The
// returned func closes both.
func startSession(ctx context.Context, cfg *config.Config, opts session.Options) (*session.Controller, func(), error) {
	b, err := openBackend(ctx, cfg, opts.Logger)
	if err != nil {
		return nil, nil, err
	}
	sess := session.New(b, session.StaticIdentity(cfg.Owner), opts)
	closeAll := func() {
		sess.Close()
		b.Close()
	}
	res, err := sess.Start(ctx)
	if err != nil && !res.Stale {
		closeAll()
		return nil, nil, fmt.Errorf("load tasks for %s: %w", cfg.Owner, err)
	}
	if err != nil {
		log.WithError(err).Warn("showing cached tasks")
	}
	return sess, closeAll, nil
}
