// Package aging implements the holding stage for items whose episode has
// not appeared in the catalog yet. Items ripen on a timer; each dispatch
// either promotes them back toward download, asks the library to refresh
// the series, or gives up to manual intervention.
package aging

import (
	"context"
	"log/slog"
	"time"

	"wai/internal/item"
	"wai/internal/logging"
	"wai/internal/matcher"
	"wai/internal/pipeline"
	"wai/internal/policy"
	"wai/internal/queue"
	"wai/internal/store"
)

// refreshGate is the minimum spacing between upstream refresh requests for
// one item. Prevents refresh storms when the interval is short.
const refreshGate = 120 * time.Second

// Catalog is the slice of the library service this stage consults.
type Catalog interface {
	ListEpisodes(ctx context.Context, seriesTitle string, seriesID int64) ([]item.Episode, error)
	IsMonitoredEpisode(ctx context.Context, seriesID int64, season, episode int) (bool, error)
	RefreshSeries(ctx context.Context, seriesID int64) error
}

// Config carries the stage knobs.
type Config struct {
	Interval       time.Duration
	RipenessPerDay int
}

// Prepare returns the enqueue hook that seeds aging bookkeeping on items
// entering the stage for the first time. Items returning to the queue keep
// their state.
func Prepare(perDay int, now func() time.Time) func(*item.Item) {
	if now == nil {
		now = time.Now
	}
	return func(it *item.Item) {
		if it.Aging != nil {
			return
		}
		ts := now()
		it.Aging = &item.AgingState{
			Ripeness:  item.DerivedRipeness(it.Datecode, perDay, ts),
			NextAging: nextAging(ts, perDay),
		}
	}
}

func nextAging(now time.Time, perDay int) int64 {
	if perDay < 1 {
		perDay = 1
	}
	return now.Unix() + int64(86400/perDay)
}

// Worker is the aging stage handler.
type Worker struct {
	queue    *queue.Queue
	store    *store.Store
	catalog  Catalog
	gate     *policy.Gate
	dispatch pipeline.Dispatcher
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time

	pending *item.Item
}

// Option configures the worker.
type Option func(*Worker)

// WithClock overrides the time source (for tests).
func WithClock(now func() time.Time) Option {
	return func(w *Worker) {
		if now != nil {
			w.now = now
		}
	}
}

// New constructs the aging worker.
func New(q *queue.Queue, st *store.Store, catalog Catalog, gate *policy.Gate,
	dispatch pipeline.Dispatcher, cfg Config, logger *slog.Logger, opts ...Option) *Worker {
	if logger == nil {
		logger = logging.NewNop()
	}
	w := &Worker{
		queue:    q,
		store:    st,
		catalog:  catalog,
		gate:     gate,
		dispatch: dispatch,
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "aging"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Stage implements pipeline.Handler.
func (w *Worker) Stage() item.Stage { return item.StageAging }

// Wake implements pipeline.Handler.
func (w *Worker) Wake() <-chan struct{} { return w.queue.Wake() }

// Interval implements pipeline.Handler.
func (w *Worker) Interval() time.Duration { return w.cfg.Interval }

// Resume picks up an item left in the current-item file by a crash.
func (w *Worker) Resume(ctx context.Context) (pipeline.Disposition, error) {
	current, err := w.store.LoadCurrent(w.Stage())
	if err != nil {
		return pipeline.Sleep, err
	}
	if current != nil {
		w.logger.Info("resuming in-flight item", logging.String("title", current.Title))
		w.pending = current
	}
	return pipeline.Continue, nil
}

// Tick dispatches the most overdue due item, if any.
func (w *Worker) Tick(ctx context.Context) (pipeline.Disposition, error) {
	if w.pending == nil {
		// The current-item file is written while the item is still in the
		// queue file, so a crash mid-handoff never loses it.
		next, err := w.queue.DequeueDue(w.now().Unix(), func(it item.Item) error {
			return w.store.SaveCurrent(w.Stage(), it)
		})
		if err != nil {
			return pipeline.Sleep, err
		}
		if next == nil {
			return pipeline.Sleep, nil
		}
		w.pending = next
	}

	if err := w.process(ctx, w.pending); err != nil {
		return pipeline.Sleep, err
	}
	w.pending = nil
	return pipeline.Continue, nil
}

func (w *Worker) process(ctx context.Context, it *item.Item) error {
	if it.Aging == nil {
		it.Aging = &item.AgingState{
			Ripeness: item.DerivedRipeness(it.Datecode, w.cfg.RipenessPerDay, w.now()),
		}
	}
	w.logger.Info("processing aging item",
		logging.String("title", it.Title),
		logging.Int("ripeness", it.Aging.Ripeness))

	if it.TitleResult == nil || it.TitleResult.Score < 0 {
		return w.closeItem(it, item.OutcomeManualIntervention, "aging item has no show match")
	}

	if it.Aging.Ripeness >= w.cfg.RipenessPerDay*3 {
		w.logger.Info("item old enough for settled metadata",
			logging.Int("ripeness", it.Aging.Ripeness))
		return w.closeItem(it, item.OutcomeManualIntervention, "moving to manual intervention")
	}

	if promoted, err := w.recheck(ctx, it); err != nil {
		return err
	} else if promoted {
		return nil
	}

	now := w.now()
	if now.Unix()-it.Aging.LastScan > int64(refreshGate.Seconds()) {
		it.Aging.LastScan = now.Unix()
		it.Aging.NextAging = nextAging(now, w.cfg.RipenessPerDay)
		if err := w.catalog.RefreshSeries(ctx, it.TitleResult.MatchedID); err != nil {
			w.logger.Warn("series refresh failed", logging.Error(err))
		} else {
			w.logger.Info("requested series refresh",
				logging.String("show", it.TitleResult.MatchedShow))
		}
	} else {
		it.Aging.Ripeness++
		it.Aging.NextAging = nextAging(now, w.cfg.RipenessPerDay)
	}

	if err := w.queue.Enqueue(*it); err != nil {
		return err
	}
	return w.store.ClearCurrent(w.Stage())
}

// recheck re-runs episode matching against the matched series. On success
// the item clears the policy gate and moves to the download queue.
func (w *Worker) recheck(ctx context.Context, it *item.Item) (bool, error) {
	episodes, err := w.catalog.ListEpisodes(ctx, it.TitleResult.MatchedShow, it.TitleResult.MatchedID)
	if err != nil {
		w.logger.Warn("episode listing failed", logging.Error(err))
		return false, nil
	}

	probe := func(seriesID int64, season, episode int) bool {
		monitored, err := w.catalog.IsMonitoredEpisode(ctx, seriesID, season, episode)
		if err != nil {
			return false
		}
		return monitored
	}

	episodeMatch := matcher.MatchEpisode(it.MatchInput(), it.Datecode, episodes, probe)
	if episodeMatch.Score < matcher.EpisodeThreshold {
		return false, nil
	}
	it.EpisodeResult = &episodeMatch
	w.logger.Info("episode found",
		logging.Int("score", episodeMatch.Score),
		logging.Int("season", episodeMatch.Season),
		logging.Int("episode", episodeMatch.Episode))

	outcome, err := w.gate.Check(ctx, episodeMatch.MatchedSeriesID, episodeMatch.Season, episodeMatch.Episode)
	if err != nil {
		return false, err
	}
	if outcome != "" {
		return true, w.closeItem(it, outcome, "policy rejected rematched episode")
	}

	if err := w.dispatch.Dispatch(item.StageDownload, *it); err != nil {
		return false, err
	}
	return true, w.closeItem(it, item.OutcomeRequeued, "returning item toward download")
}

func (w *Worker) closeItem(it *item.Item, outcome item.Outcome, message string) error {
	if outcome != "" {
		if err := w.store.ArchiveAppend(outcome, *it); err != nil {
			return err
		}
		w.logger.Info(message, logging.String("outcome", string(outcome)))
	} else {
		w.logger.Info(message)
	}
	return w.store.ClearCurrent(w.Stage())
}
