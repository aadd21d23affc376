// Package policy holds the post-match gates an episode must clear before it
// is handed to the download stage. The decision and aging stages share one
// gate so the rules cannot drift apart.
package policy

import (
	"context"
	"log/slog"

	"wai/internal/item"
	"wai/internal/logging"
)

// Catalog is the slice of the library service the gate consults.
type Catalog interface {
	IsMonitoredEpisode(ctx context.Context, seriesID int64, season, episode int) (bool, error)
	HasEpisodeFile(ctx context.Context, seriesID int64, season, episode int) (bool, error)
}

// Rules carries the configured gate switches.
type Rules struct {
	HonorUnmonitoredEpisodes bool
	OverwriteEpisodes        bool
}

// Gate evaluates the rules against live catalog state.
type Gate struct {
	catalog Catalog
	rules   Rules
	logger  *slog.Logger
}

// NewGate constructs a gate. A nil logger is replaced with a no-op.
func NewGate(catalog Catalog, rules Rules, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Gate{
		catalog: catalog,
		rules:   rules,
		logger:  logging.NewComponentLogger(logger, "policy"),
	}
}

// Check returns the rejection outcome for an episode, or "" when it may
// proceed to download. Catalog lookup failures fall back to the service
// defaults (monitored, no file) so a transient error never strands an item.
func (g *Gate) Check(ctx context.Context, seriesID int64, season, episode int) (item.Outcome, error) {
	if g.rules.HonorUnmonitoredEpisodes {
		monitored, err := g.catalog.IsMonitoredEpisode(ctx, seriesID, season, episode)
		if err != nil {
			g.logger.Warn("monitored lookup failed, assuming monitored", logging.Error(err))
			monitored = true
		}
		if !monitored {
			return item.OutcomeUnmonitoredEpisode, nil
		}
	}

	if !g.rules.OverwriteEpisodes {
		hasFile, err := g.catalog.HasEpisodeFile(ctx, seriesID, season, episode)
		if err != nil {
			g.logger.Warn("episode file lookup failed, assuming absent", logging.Error(err))
			hasFile = false
		}
		if hasFile {
			return item.OutcomeEpisodeHasFile, nil
		}
	}

	return "", nil
}
