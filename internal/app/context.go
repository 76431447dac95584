package app

import (
	"context"
	"fmt"

	"brdflow/internal/config"
	"brdflow/internal/db"
	"brdflow/internal/engine"
	"brdflow/internal/generate"
	"brdflow/internal/logger"
	"brdflow/internal/mask"
	"brdflow/internal/migrate"
	"brdflow/internal/pdf"
	"brdflow/internal/store"
)

// Env is an engine wired to the configured storage backend.
type Env struct {
	Engine   engine.Engine
	Config   *config.Config
	Renderer pdf.Renderer
	closers  []func() error
}

// Close releases the storage backend.
func (e *Env) Close() error {
	var first error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	e.closers = nil
	return first
}

// ResolveConfig loads brdflow.yml from the workspace, falling back to the
// defaults when the file does not exist.
func ResolveConfig(workspace string) (*config.Config, error) {
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		logger.Debug("no %s, using defaults", config.Path(workspace))
		cfg = config.Default()
	}
	return cfg, nil
}

// OpenStore opens the backend named by cfg.Storage.Backend.
func OpenStore(ctx context.Context, workspace string, cfg *config.Config) (store.Store, func() error, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return store.NewMemory(), func() error { return nil }, nil
	case config.BackendSQLite, "":
		conn, err := db.Open(db.Config{Workspace: workspace})
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		version, err := migrate.Migrate(ctx, conn)
		if err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Debug("sqlite store %s at schema version %d", db.Path(workspace), version)
		return store.SQL{DB: conn}, conn.Close, nil
	case config.BackendMySQL:
		g, err := store.OpenMySQL(cfg.Storage.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open mysql: %w", err)
		}
		logger.Debug("mysql store opened")
		return g, g.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}

// NewRenderer builds the PDF renderer from the pdf and masking sections.
func NewRenderer(cfg *config.Config) pdf.Renderer {
	terms := make([]mask.Term, 0, len(cfg.Masking.ExtraTerms))
	for _, t := range cfg.Masking.ExtraTerms {
		terms = append(terms, mask.Term{Term: t.Term, Replacement: t.Replacement})
	}
	return pdf.New(pdf.Options{
		HeaderTitle:   cfg.PDF.HeaderTitle,
		Organization:  cfg.PDF.Organization,
		DocumentTitle: cfg.PDF.DocumentTitle,
		Compress:      cfg.PDF.Compress,
		Masker:        mask.New(terms),
	})
}

// Open resolves config, opens storage and returns a ready engine. The
// configured generation latency is applied here so the engine itself
// stays instant.
func Open(ctx context.Context, workspace string, cfg *config.Config) (*Env, error) {
	if cfg == nil {
		var err error
		if cfg, err = ResolveConfig(workspace); err != nil {
			return nil, err
		}
	}
	s, closeStore, err := OpenStore(ctx, workspace, cfg)
	if err != nil {
		return nil, err
	}
	eng := engine.New(s, cfg)
	eng.Generate = generate.WithLatency(generate.Draft, cfg.Latency(), nil)
	return &Env{
		Engine:   eng,
		Config:   cfg,
		Renderer: NewRenderer(cfg),
		closers:  []func() error{closeStore},
	}, nil
}
