// Package decision implements the first pipeline stage: match an ingress
// item against the library catalog and either hand it to the download stage,
// park it in the aging queue, or archive it with the reason it was rejected.
package decision

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
	"wai/internal/textutil"
)

// tagPrefix is the label prefix of the tagged-candidate shortcut: a series
// labeled wai-<creator> is a candidate even when its title score falls short.
const tagPrefix = "wai-"

// Catalog is the slice of the library service this stage consults.
type Catalog interface {
	ListShows(ctx context.Context) ([]matcher.Show, error)
	ListEpisodes(ctx context.Context, seriesTitle string, seriesID int64) ([]item.Episode, error)
	IsMonitoredEpisode(ctx context.Context, seriesID int64, season, episode int) (bool, error)
	TagSeriesIDs(ctx context.Context, label string) ([]int64, error)
}

// Config carries the stage knobs.
type Config struct {
	Interval               time.Duration
	HonorUnmonitoredSeries bool
	RipenessPerDay         int
}

// Worker is the decision stage handler.
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

// New constructs the decision worker.
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
		logger:   logging.NewComponentLogger(logger, "decision"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Stage implements pipeline.Handler.
func (w *Worker) Stage() item.Stage { return item.StageDecision }

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

// Tick processes at most one item. A processing error keeps the item pending
// so the next tick retries it.
func (w *Worker) Tick(ctx context.Context) (pipeline.Disposition, error) {
	if w.pending == nil {
		// The current-item file is written while the item is still in the
		// queue file, so a crash mid-handoff never loses it.
		next, err := w.queue.DequeueFIFO(func(it item.Item) error {
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
	w.logger.Info("processing item",
		logging.String("creator", it.Creator),
		logging.String("title", it.Title),
		logging.String("datecode", it.Datecode),
		logging.String("url", it.URL))

	shows, err := w.catalog.ListShows(ctx)
	if err != nil {
		// A catalog outage reads as an empty candidate pool; the item
		// lands in series_score and the operator sees the reason.
		w.logger.Warn("catalog listing failed, treating as no candidates", logging.Error(err))
		shows = nil
	}

	titleMatch := matcher.MatchShow(it.MatchInput(), shows)
	it.TitleResult = &titleMatch
	w.logger.Info("show match result",
		logging.String("input", titleMatch.Input),
		logging.Int("score", titleMatch.Score),
		logging.String("matched_show", titleMatch.MatchedShow),
		logging.Int64("matched_id", titleMatch.MatchedID))

	candidates := w.candidateSet(ctx, it, shows, &titleMatch)
	if len(candidates) == 0 {
		return w.closeItem(it, item.OutcomeSeriesScore, "series match score not high enough")
	}

	if w.cfg.HonorUnmonitoredSeries {
		monitored := candidates[:0]
		for _, show := range candidates {
			if show.Monitored {
				monitored = append(monitored, show)
			}
		}
		if len(monitored) == 0 {
			return w.closeItem(it, item.OutcomeUnmonitoredSeries, "series not monitored")
		}
		candidates = monitored
	}

	pool := make([]item.Episode, 0, 64)
	for _, show := range candidates {
		episodes, err := w.catalog.ListEpisodes(ctx, show.Title, show.ID)
		if err != nil {
			w.logger.Warn("episode listing failed",
				logging.Int64("series_id", show.ID), logging.Error(err))
			continue
		}
		pool = append(pool, episodes...)
	}

	probe := func(seriesID int64, season, episode int) bool {
		monitored, err := w.catalog.IsMonitoredEpisode(ctx, seriesID, season, episode)
		if err != nil {
			return false
		}
		return monitored
	}

	episodeMatch := matcher.MatchEpisode(it.MatchInput(), it.Datecode, pool, probe)
	it.EpisodeResult = &episodeMatch
	w.logger.Info("episode match result",
		logging.String("input", episodeMatch.MatchInput),
		logging.Int("score", episodeMatch.Score),
		logging.Int("season", episodeMatch.Season),
		logging.Int("episode", episodeMatch.Episode),
		logging.String("episode_title", episodeMatch.EpisodeOrigTitle),
		logging.String("reason", episodeMatch.Reason))

	if episodeMatch.Score < matcher.EpisodeThreshold {
		return w.diagnoseEpisodeScore(it)
	}

	outcome, err := w.gate.Check(ctx, episodeMatch.MatchedSeriesID, episodeMatch.Season, episodeMatch.Episode)
	if err != nil {
		return err
	}
	if outcome != "" {
		return w.closeItem(it, outcome, "policy rejected episode")
	}

	if err := w.dispatch.Dispatch(item.StageDownload, *it); err != nil {
		return err
	}
	return w.closeItem(it, item.OutcomeDownloadEnqueue, "enqueued for download")
}

// candidateSet folds the tag shortcut into the scored match. Duplicate ids
// are suppressed.
func (w *Worker) candidateSet(ctx context.Context, it *item.Item, shows []matcher.Show, titleMatch *item.ShowMatch) []matcher.Show {
	seen := make(map[int64]struct{})
	candidates := make([]matcher.Show, 0, 2)

	if titleMatch.Score >= matcher.ShowThreshold {
		for _, show := range shows {
			if show.ID == titleMatch.MatchedID {
				candidates = append(candidates, show)
				seen[show.ID] = struct{}{}
				break
			}
		}
	}

	label := tagPrefix + textutil.SanitizeToken(it.Creator)
	ids, err := w.catalog.TagSeriesIDs(ctx, label)
	if err != nil {
		w.logger.Warn("tag lookup failed", logging.String("label", label), logging.Error(err))
		return candidates
	}
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		for _, show := range shows {
			if show.ID == id {
				w.logger.Info("tagged-candidate shortcut hit",
					logging.String("label", label), logging.Int64("series_id", id))
				candidates = append(candidates, show)
				seen[id] = struct{}{}
				break
			}
		}
	}
	return candidates
}

// diagnoseEpisodeScore decides between aging and manual intervention for an
// item whose episode match fell short.
func (w *Worker) diagnoseEpisodeScore(it *item.Item) error {
	ripeness := item.DerivedRipeness(it.Datecode, w.cfg.RipenessPerDay, w.now())
	if it.Aging != nil {
		ripeness = it.Aging.Ripeness
	}

	if ripeness < w.cfg.RipenessPerDay*3 {
		w.logger.Info("episode not found yet, aging item",
			logging.Int("ripeness", ripeness))
		if err := w.dispatch.Dispatch(item.StageAging, *it); err != nil {
			return err
		}
		return w.closeItem(it, "", "requeued to aging queue")
	}

	w.logger.Info("item old enough for settled metadata",
		logging.Int("ripeness", ripeness))
	return w.closeItem(it, item.OutcomeManualIntervention, "moving to manual intervention")
}

// closeItem archives the item (when the outcome is terminal) and clears the
// crash-recovery anchor.
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
