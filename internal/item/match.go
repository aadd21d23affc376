package item

import "encoding/json"

// Episode is one catalog episode record, shaped for matching. FullMatch on
// an EpisodeMatch carries the winning record verbatim.
type Episode struct {
	Series    string `json:"series"`
	SeriesID  int64  `json:"series_id"`
	Season    int    `json:"season"`
	Episode   int    `json:"episode"`
	EpisodeID int64  `json:"episode_id"`
	Title     string `json:"title"`
	AirDate   string `json:"air_date"`
	Monitored bool   `json:"monitored"`
	HasFile   bool   `json:"has_file"`
}

// ShowMatch records the outcome of matching an ingress title against the
// show catalog. A negative score means no candidate was available; the
// matched fields serialize as null in that case.
type ShowMatch struct {
	Input       string `json:"input"`
	MatchedShow string `json:"matched_show"`
	MatchedID   int64  `json:"matched_id"`
	Score       int    `json:"score"`
	Reason      string `json:"reason"`
}

// MarshalJSON emits null matched fields when no candidate was scored.
func (m ShowMatch) MarshalJSON() ([]byte, error) {
	type wire struct {
		Input       string  `json:"input"`
		MatchedShow *string `json:"matched_show"`
		MatchedID   *int64  `json:"matched_id"`
		Score       int     `json:"score"`
		Reason      string  `json:"reason"`
	}
	out := wire{Input: m.Input, Score: m.Score, Reason: m.Reason}
	if m.Score >= 0 {
		out.MatchedShow = &m.MatchedShow
		out.MatchedID = &m.MatchedID
	}
	return json.Marshal(out)
}

// EpisodeMatch records the outcome of matching a title and air date against
// a series' episode list.
type EpisodeMatch struct {
	MatchInput       string   `json:"input"`
	MatchedShow      string   `json:"matched_show"`
	MatchedSeriesID  int64    `json:"matched_series_id"`
	Season           int      `json:"season"`
	Episode          int      `json:"episode"`
	EpisodeTitle     string   `json:"episode_title"`
	EpisodeOrigTitle string   `json:"episode_orig_title"`
	Score            int      `json:"score"`
	Reason           string   `json:"reason"`
	FullMatch        *Episode `json:"full_match"`
}

// MarshalJSON emits null matched fields when no candidate was scored.
func (m EpisodeMatch) MarshalJSON() ([]byte, error) {
	type wire struct {
		Input            string   `json:"input"`
		MatchedShow      *string  `json:"matched_show"`
		MatchedSeriesID  *int64   `json:"matched_series_id"`
		Season           *int     `json:"season"`
		Episode          *int     `json:"episode"`
		EpisodeTitle     *string  `json:"episode_title"`
		EpisodeOrigTitle *string  `json:"episode_orig_title"`
		Score            int      `json:"score"`
		Reason           string   `json:"reason"`
		FullMatch        *Episode `json:"full_match"`
	}
	out := wire{Input: m.MatchInput, Score: m.Score, Reason: m.Reason}
	if m.Score >= 0 {
		out.MatchedShow = &m.MatchedShow
		out.MatchedSeriesID = &m.MatchedSeriesID
		out.Season = &m.Season
		out.Episode = &m.Episode
		out.EpisodeTitle = &m.EpisodeTitle
		out.EpisodeOrigTitle = &m.EpisodeOrigTitle
		out.FullMatch = m.FullMatch
	}
	return json.Marshal(out)
}
