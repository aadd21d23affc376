// Package daemon wires the stores, queues, stage workers, ingress API, and
// library client into a single lifecycle with flock-based locking to prevent
// multiple concurrent instances.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"wai/internal/aging"
	"wai/internal/config"
	"wai/internal/decision"
	"wai/internal/deps"
	"wai/internal/download"
	"wai/internal/item"
	"wai/internal/logging"
	"wai/internal/matcher"
	"wai/internal/pipeline"
	"wai/internal/policy"
	"wai/internal/queue"
	"wai/internal/server"
	"wai/internal/sonarr"
	"wai/internal/store"
	"wai/internal/supervisor"
	"wai/internal/tagger"
	"wai/internal/ytdlp"
)

const (
	validationAttempts = 5
	validationDelay    = 10 * time.Second
)

// catalogAdapter shapes the sonarr client for the matcher-facing interfaces.
type catalogAdapter struct {
	*sonarr.Client
}

func (a catalogAdapter) ListShows(ctx context.Context) ([]matcher.Show, error) {
	series, err := a.Client.ListSeries(ctx)
	if err != nil {
		return nil, err
	}
	shows := make([]matcher.Show, 0, len(series))
	for _, s := range series {
		shows = append(shows, matcher.Show{Title: s.Title, ID: s.ID, Monitored: s.Monitored})
	}
	return shows, nil
}

// Daemon owns the long-lived process state.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *store.Store
	sonarr *sonarr.Client
	queues map[item.Stage]*queue.Queue
	router *pipeline.Router

	sup *supervisor.Supervisor
	api *server.Server

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs a daemon from configuration. No goroutines are started and
// no locks taken until Start.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires configuration")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	st, err := store.New(cfg.Paths.DataDir, logger)
	if err != nil {
		return nil, err
	}

	client := sonarr.NewClient(sonarr.Config{
		URL:            cfg.Sonarr.URL,
		APIKey:         cfg.Sonarr.APIKey,
		TimeoutSeconds: cfg.Sonarr.TimeoutSeconds,
	}, sonarr.WithLogger(logger))

	decisionQueue, err := queue.New(st, item.StageDecision, cfg.Workflow.FlipFlopQueue)
	if err != nil {
		return nil, err
	}
	agingQueue, err := queue.New(st, item.StageAging, false)
	if err != nil {
		return nil, err
	}
	downloadQueue, err := queue.New(st, item.StageDownload, cfg.Workflow.FlipFlopQueue)
	if err != nil {
		return nil, err
	}
	queues := map[item.Stage]*queue.Queue{
		item.StageDecision: decisionQueue,
		item.StageAging:    agingQueue,
		item.StageDownload: downloadQueue,
	}

	router := pipeline.NewRouter()
	router.Register(decisionQueue, nil)
	router.Register(agingQueue, aging.Prepare(cfg.Workflow.RipenessPerDay, nil))
	router.Register(downloadQueue, nil)

	lockPath := filepath.Join(cfg.Paths.DataDir, "waid.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    st,
		sonarr:   client,
		queues:   queues,
		router:   router,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start validates the library connection, takes the instance lock, and
// launches the enabled stage workers plus the ingress API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another wai daemon instance is already running")
	}

	if missing := deps.MissingRequired(deps.CheckBinaries(deps.Requirements())); len(missing) > 0 {
		d.logger.Warn("external tools missing, downloads will fail until installed",
			logging.String("tools", strings.Join(missing, ", ")))
	}

	if err := d.validateLibrary(ctx); err != nil {
		_ = d.lock.Unlock()
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	catalog := catalogAdapter{d.sonarr}
	gate := policy.NewGate(catalog, policy.Rules{
		HonorUnmonitoredEpisodes: d.cfg.Policy.HonorUnmonitoredEpisodes,
		OverwriteEpisodes:        d.cfg.Policy.OverwriteEpisodes,
	}, d.logger)

	d.sup = supervisor.New(runCtx, d.logger)
	d.sup.Register(decision.New(
		d.queues[item.StageDecision], d.store, catalog, gate, d.router,
		decision.Config{
			Interval:               time.Duration(d.cfg.Workflow.DecisionInterval) * time.Minute,
			HonorUnmonitoredSeries: d.cfg.Policy.HonorUnmonitoredSeries,
			RipenessPerDay:         d.cfg.Workflow.RipenessPerDay,
		}, d.logger))
	d.sup.Register(aging.New(
		d.queues[item.StageAging], d.store, catalog, gate, d.router,
		aging.Config{
			Interval:       time.Duration(d.cfg.Workflow.AgingInterval) * time.Minute,
			RipenessPerDay: d.cfg.Workflow.RipenessPerDay,
		}, d.logger))
	d.sup.Register(download.New(
		d.queues[item.StageDownload], d.store,
		ytdlp.New(d.cfg.Paths.ConfDir, ytdlp.WithLogger(d.logger)),
		tagger.New(tagger.WithLogger(d.logger)),
		d.sonarr,
		download.Config{
			Interval:     time.Duration(d.cfg.Workflow.DownloadInterval) * time.Minute,
			DownloadDir:  d.cfg.DownloadDir(),
			LibraryDir:   d.cfg.Paths.OutPath,
			StageMove:    d.cfg.Paths.OutTemp != "",
			ImportFolder: d.cfg.Sonarr.InPath,
		}, d.logger))

	if d.cfg.Workflow.RunDecision {
		d.sup.Start(item.StageDecision)
	}
	if d.cfg.Workflow.RunAging {
		d.sup.Start(item.StageAging)
	}
	if d.cfg.Workflow.RunDownload {
		d.sup.Start(item.StageDownload)
	}

	d.api = server.New(d.cfg.Paths.APIBind, d.store, d.queues, d.router, d.sup, d.logger)
	if err := d.api.Start(runCtx); err != nil {
		d.sup.Shutdown()
		cancel()
		d.cancel = nil
		_ = d.lock.Unlock()
		return err
	}

	d.running.Store(true)
	d.logger.Info("daemon started", logging.String("lock", d.lockPath))
	return nil
}

// validateLibrary checks the library service connection, retrying a fixed
// number of times before giving up.
func (d *Daemon) validateLibrary(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= validationAttempts; attempt++ {
		lastErr = d.sonarr.Health(ctx)
		if lastErr == nil {
			d.logger.Info("library connection validated")
			return nil
		}
		d.logger.Warn("library validation failed",
			logging.Int("attempt", attempt), logging.Error(lastErr))
		if attempt == validationAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(validationDelay):
		}
	}
	return fmt.Errorf("library validation failed after %d attempts: %w", validationAttempts, lastErr)
}

// Stop shuts down the API, joins the stage workers, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.api != nil {
		d.api.Stop()
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.sup != nil {
		d.sup.Shutdown()
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Running reports whether the daemon is live.
func (d *Daemon) Running() bool { return d.running.Load() }

// Queues exposes the stage queues for CLI introspection.
func (d *Daemon) Queues() map[item.Stage]*queue.Queue { return d.queues }

// Store exposes the persistence store for CLI introspection.
func (d *Daemon) Store() *store.Store { return d.store }
