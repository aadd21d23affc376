package sonarr

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"

	"wai/internal/item"
)

// Series is one catalog entry from the series listing.
type Series struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Monitored bool   `json:"monitored"`
}

// Tag is a label attached to series in the library.
type Tag struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
}

type tagDetail struct {
	ID        int64   `json:"id"`
	Label     string  `json:"label"`
	SeriesIDs []int64 `json:"seriesIds"`
}

type episodeRecord struct {
	ID            int64  `json:"id"`
	SeasonNumber  int    `json:"seasonNumber"`
	EpisodeNumber int    `json:"episodeNumber"`
	Title         string `json:"title"`
	AirDate       string `json:"airDate"`
	Monitored     bool   `json:"monitored"`
	EpisodeFileID int64  `json:"episodeFileId"`
}

type manualImportFile struct {
	Path      string         `json:"path"`
	Quality   map[string]any `json:"quality"`
	Languages []any          `json:"languages"`
}

// Health checks the service URL and API key.
func (c *Client) Health(ctx context.Context) error {
	return c.get(ctx, "/api/v3/health", nil, nil)
}

// ListSeries returns every series in the library.
func (c *Client) ListSeries(ctx context.Context) ([]Series, error) {
	var series []Series
	if err := c.get(ctx, "/api/v3/series", nil, &series); err != nil {
		return nil, err
	}
	return series, nil
}

// IsMonitoredSeries reports whether the series with the given id is
// monitored. Unknown ids report false.
func (c *Client) IsMonitoredSeries(ctx context.Context, seriesID int64) (bool, error) {
	series, err := c.ListSeries(ctx)
	if err != nil {
		return false, err
	}
	for _, s := range series {
		if s.ID == seriesID {
			return s.Monitored, nil
		}
	}
	return false, nil
}

// ListEpisodes returns the episode records of a series, shaped for matching.
// The series title is stamped onto each record.
func (c *Client) ListEpisodes(ctx context.Context, seriesTitle string, seriesID int64) ([]item.Episode, error) {
	records, err := c.episodes(ctx, seriesID)
	if err != nil {
		return nil, err
	}
	episodes := make([]item.Episode, 0, len(records))
	for _, rec := range records {
		episodes = append(episodes, item.Episode{
			Series:    seriesTitle,
			SeriesID:  seriesID,
			Season:    rec.SeasonNumber,
			Episode:   rec.EpisodeNumber,
			EpisodeID: rec.ID,
			Title:     rec.Title,
			AirDate:   rec.AirDate,
			Monitored: rec.Monitored,
			HasFile:   rec.EpisodeFileID != 0,
		})
	}
	return episodes, nil
}

func (c *Client) episodes(ctx context.Context, seriesID int64) ([]episodeRecord, error) {
	query := url.Values{"seriesId": {strconv.FormatInt(seriesID, 10)}}
	var records []episodeRecord
	if err := c.get(ctx, "/api/v3/episode", query, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *Client) episode(ctx context.Context, seriesID int64, season, episode int) (*episodeRecord, error) {
	records, err := c.episodes(ctx, seriesID)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].SeasonNumber == season && records[i].EpisodeNumber == episode {
			return &records[i], nil
		}
	}
	return nil, nil
}

// IsMonitoredEpisode reports the monitored flag of one episode. An unknown
// episode reports true, matching the upstream default.
func (c *Client) IsMonitoredEpisode(ctx context.Context, seriesID int64, season, episode int) (bool, error) {
	rec, err := c.episode(ctx, seriesID, season, episode)
	if err != nil {
		return false, err
	}
	if rec == nil {
		return true, nil
	}
	return rec.Monitored, nil
}

// HasEpisodeFile reports whether the episode already has a media file.
func (c *Client) HasEpisodeFile(ctx context.Context, seriesID int64, season, episode int) (bool, error) {
	rec, err := c.episode(ctx, seriesID, season, episode)
	if err != nil {
		return false, err
	}
	if rec == nil {
		return false, nil
	}
	return rec.EpisodeFileID != 0, nil
}

// RefreshSeries asks the service to rescan one series' metadata.
func (c *Client) RefreshSeries(ctx context.Context, seriesID int64) error {
	payload := map[string]any{"name": "RefreshSeries", "seriesId": seriesID}
	return c.post(ctx, "/api/v3/command", payload, nil)
}

// Tags lists the labels defined in the library.
func (c *Client) Tags(ctx context.Context) ([]Tag, error) {
	var tags []Tag
	if err := c.get(ctx, "/api/v3/tag", nil, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

// TagSeriesIDs returns the ids of every series carrying the given label, or
// nil when the label does not exist.
func (c *Client) TagSeriesIDs(ctx context.Context, label string) ([]int64, error) {
	tags, err := c.Tags(ctx)
	if err != nil {
		return nil, err
	}
	for _, tag := range tags {
		if tag.Label != label {
			continue
		}
		var detail tagDetail
		path := "/api/v3/tag/detail/" + strconv.FormatInt(tag.ID, 10)
		if err := c.get(ctx, path, nil, &detail); err != nil {
			return nil, err
		}
		return detail.SeriesIDs, nil
	}
	return nil, nil
}

// ImportEpisode drives the manual-import command for a downloaded file that
// already sits inside the service's import folder. The service supplies the
// quality and language detection; the command response is returned verbatim
// for archival.
func (c *Client) ImportEpisode(ctx context.Context, seriesID int64, season, episode int, fileName, folder string) (map[string]any, error) {
	if folder == "" {
		return nil, fmt.Errorf("sonarr: import folder not configured")
	}

	rec, err := c.episode(ctx, seriesID, season, episode)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("sonarr: episode S%02dE%02d not found for series %d", season, episode, seriesID)
	}

	filePath := filepath.Join(folder, fileName)
	candidate, err := c.manualImportCandidate(ctx, filePath)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"name": "manualImport",
		"files": []map[string]any{{
			"path":         filePath,
			"seriesId":     seriesID,
			"episodeIds":   []int64{rec.ID},
			"releaseGroup": "cfwai",
			"quality":      candidate.Quality,
			"languages":    candidate.Languages,
			"releaseType":  "singleEpisode",
		}},
		"importMode": "Move",
	}

	var result map[string]any
	if err := c.post(ctx, "/api/v3/command", payload, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) manualImportCandidate(ctx context.Context, filePath string) (*manualImportFile, error) {
	query := url.Values{
		"folder":              {filepath.Dir(filePath)},
		"filterExistingFiles": {"false"},
	}
	var files []manualImportFile
	if err := c.get(ctx, "/api/v3/manualimport", query, &files); err != nil {
		return nil, err
	}
	for i := range files {
		if files[i].Path == filePath {
			return &files[i], nil
		}
	}
	return nil, fmt.Errorf("sonarr: no manual-import candidate for %s", filePath)
}
