package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/linkhoard/linkhoard/internal/classify"
	"github.com/linkhoard/linkhoard/internal/config"
	"github.com/linkhoard/linkhoard/internal/embeddings"
	"github.com/linkhoard/linkhoard/internal/jobs"
	"github.com/linkhoard/linkhoard/internal/rank"
	"github.com/linkhoard/linkhoard/internal/store"
	"github.com/linkhoard/linkhoard/internal/syncer"
	"github.com/linkhoard/linkhoard/internal/web"
	"github.com/linkhoard/linkhoard/internal/websearch"
)

// app is the wired object graph behind every command.
type app struct {
	cfg        *config.Config
	log        *slog.Logger
	store      store.Store
	engine     *rank.Engine
	runner     *jobs.Runner
	reconciler *syncer.Reconciler
}

// newApp opens the store and wires the engine and job runner. Optional
// collaborators (embedder, web search, classifier, remote) are enabled only
// when configured, and an unreachable embedding provider disables semantic
// scoring rather than failing startup.
func newApp(opts *RootOptions) (*app, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}
	log := opts.logger(cfg)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	st, err := store.Open(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	var embedder embeddings.Embedder
	if cfg.Embedding.Provider != "" {
		e, err := embeddings.NewEmbedder(cfg.Embedding.Provider, cfg.Embedding.BaseURL, cfg.Embedding.APIKey, cfg.Embedding.Model)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("embedding provider: %w", err)
		}
		healthCtx, cancel := context.WithTimeout(context.Background(), embeddings.DefaultTimeout)
		err = e.Health(healthCtx)
		cancel()
		if err != nil {
			log.Warn("embedding provider unavailable, semantic scoring disabled",
				"provider", cfg.Embedding.Provider, "error", err)
		} else {
			embedder = e
		}
	}

	engineOpts := []rank.Option{}
	if embedder != nil {
		engineOpts = append(engineOpts, rank.WithEmbedder(embedder))
	}
	if cfg.WebSearch.APIKey != "" {
		engineOpts = append(engineOpts, rank.WithAugmenter(websearch.NewClient(cfg.WebSearch.Provider, cfg.WebSearch.APIKey)))
	}
	engine := rank.New(st, log, engineOpts...)

	coord := jobs.NewCoordinator(st, log)
	runner := jobs.NewRunner(coord, st, log)
	if embedder != nil {
		runner.WithEmbedder(embedder)
	}
	if cfg.Classify.BaseURL != "" {
		runner.WithClassifier(classify.NewChatClassifier(cfg.Classify.BaseURL, cfg.Classify.APIKey, cfg.Classify.Model))
	}

	a := &app{cfg: cfg, log: log, store: st, engine: engine, runner: runner}
	if cfg.Remote.BaseURL != "" {
		remote := syncer.NewClient(cfg.Remote.BaseURL, cfg.Remote.APIKey, cfg.Remote.UserID)
		a.reconciler = syncer.NewReconciler(st, remote, log)
		runner.WithRemote(a.syncOnce, a.reconciler)
	}
	return a, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("close store", "error", err)
	}
}

// syncOnce adapts the reconciler to the runner's sync hook.
func (a *app) syncOnce(ctx context.Context) (pushed, pulled int, err error) {
	stats, err := a.reconciler.Sync(ctx)
	if err != nil {
		return stats.Pushed, stats.Pulled, err
	}
	a.log.Info("sync finished",
		"pushed", stats.Pushed, "pulled", stats.Pulled,
		"merged", stats.Merged, "adopted", stats.Adopted, "conflicts", stats.Conflicts)
	return stats.Pushed, stats.Pulled, nil
}

// serveHandler builds the HTTP handler for the serve command.
func (a *app) serveHandler() *web.Server {
	return web.NewServer(a.store, a.engine, a.runner, a.log)
}

// runPeriodic fires a job on a fixed interval until the context ends.
// Lease-held and transient failures are logged, never fatal.
func (a *app) runPeriodic(ctx context.Context, id jobs.ID, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := a.runner.Run(ctx, id, jobs.Options{}); err != nil {
				if errors.Is(err, jobs.ErrNotAcquired) {
					continue
				}
				a.log.Warn("periodic job failed", "job", id, "error", err)
			}
		}
	}
}
