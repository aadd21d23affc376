// Package matcher scores ingress titles against the library catalog. Both
// entry points are pure functions: callers supply the candidate pool and
// read the score and rationale off the result.
package matcher

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"wai/internal/item"
	"wai/internal/textutil"
)

// ShowThreshold is the minimum show-match score the decision stage accepts.
const ShowThreshold = 80

// EpisodeThreshold is the minimum episode-match score that promotes an item
// out of matching.
const EpisodeThreshold = 70

// Show is one catalog series candidate.
type Show struct {
	Title     string
	ID        int64
	Monitored bool
}

// MonitorProbe reports whether an episode is monitored upstream. A nil probe
// skips the monitored bonus.
type MonitorProbe func(seriesID int64, season, episode int) bool

// MatchShow scores the composite input against every show title and returns
// the best candidate. An empty pool yields score -1 with null matched fields.
func MatchShow(input string, shows []Show) item.ShowMatch {
	result := item.ShowMatch{Input: input, Score: -1, Reason: "no candidates"}

	normalizedInput := textutil.Normalize(input)
	inputTokens := textutil.TokenSet(input)

	for _, show := range shows {
		normalizedShow := textutil.Normalize(show.Title)
		showTokens := textutil.TokenSet(show.Title)

		verbatim := normalizedShow != "" && strings.Contains(normalizedInput, normalizedShow)
		verbatimBonus := 0
		if verbatim {
			verbatimBonus = 35 + utf8.RuneCountInString(show.Title)
		}

		tokenScore := textutil.TokenSetRatio(input, show.Title)
		overlap := 0.0
		if len(showTokens) > 0 {
			overlap = float64(intersectionSize(showTokens, inputTokens)) / float64(len(showTokens))
		}

		score := verbatimBonus + round(tokenScore*0.10) + round(overlap*50)

		reason := fmt.Sprintf("token set similarity: %d%%, keyword overlap: %d%%",
			round(tokenScore), round(overlap*100))
		if verbatim {
			reason = "verbatim match; " + reason
		}

		if score > result.Score {
			result.MatchedShow = show.Title
			result.MatchedID = show.ID
			result.Score = score
			result.Reason = reason
		}
	}
	return result
}

// MatchEpisode scores the composite input and air date against a series'
// episode list. The returned match carries the winning record verbatim in
// FullMatch; callers apply the score threshold.
func MatchEpisode(input, airdate string, episodes []item.Episode, monitored MonitorProbe) item.EpisodeMatch {
	result := item.EpisodeMatch{MatchInput: input, Score: -1, Reason: "no candidates"}

	normalizedInput := textutil.Normalize(input)
	inputTokens := textutil.TokenSet(input)
	freq := tokenFrequencies(episodes)
	season, episode := extractEpisodeHint(normalizedInput)

	for idx := range episodes {
		candidate := &episodes[idx]
		score, reason := scoreCandidate(normalizedInput, inputTokens, season, episode, candidate, freq)

		if gap := item.DateDistanceDays(airdate, candidate.AirDate); gap >= 0 {
			bonus := 50 - 25*gap
			if bonus < 0 {
				bonus = 0
			}
			score += bonus
			reason += fmt.Sprintf("; date_gap=%dd (bonus=%d)", gap, bonus)
		} else {
			reason += "; no airdate match"
		}

		if score > EpisodeThreshold && monitored != nil &&
			monitored(candidate.SeriesID, candidate.Season, candidate.Episode) {
			score++
		}

		if score > result.Score {
			result.MatchedShow = textutil.Normalize(candidate.Series)
			result.MatchedSeriesID = candidate.SeriesID
			result.Season = candidate.Season
			result.Episode = candidate.Episode
			result.EpisodeTitle = textutil.Normalize(candidate.Title)
			result.EpisodeOrigTitle = candidate.Title
			result.Score = score
			result.Reason = reason
			full := *candidate
			result.FullMatch = &full
		}
	}
	return result
}

func scoreCandidate(input string, inputTokens map[string]struct{}, season, episode int, candidate *item.Episode, freq map[string]int) (int, string) {
	score := 0
	reasons := make([]string, 0, 5)

	if season != -1 && episode != -1 {
		if candidate.Season == season && candidate.Episode == episode {
			score += 50
			reasons = append(reasons, "season/episode exact match")
		} else {
			reasons = append(reasons, "season/episode mismatch")
		}
	}

	candidateTokens := textutil.TokenSet(candidate.Title)

	tokenScore := textutil.TokenSetRatio(input, candidate.Title)
	recall := weightedRecall(inputTokens, candidateTokens, freq)

	score += round(tokenScore * 0.30)
	score += round(recall * 70)

	missed := differenceSize(inputTokens, candidateTokens)
	score -= missed * 5
	reasons = append(reasons, fmt.Sprintf("missed tokens: %d (-%d)", missed, missed*5))

	extra := differenceSize(candidateTokens, inputTokens)
	extraPenalty := round(2.5 * float64(extra))
	score -= extraPenalty
	reasons = append(reasons, fmt.Sprintf("extra tokens: %d (-%d)", extra, extraPenalty))

	reasons = append(reasons, fmt.Sprintf("token set similarity: %d%%", round(tokenScore)))
	reasons = append(reasons, fmt.Sprintf("weighted keyword recall: %d%%", round(recall*100)))

	return score, strings.Join(reasons, "; ")
}

// tokenFrequencies counts token occurrences across the whole candidate pool,
// duplicates included, so common words carry less weight in recall.
func tokenFrequencies(episodes []item.Episode) map[string]int {
	freq := make(map[string]int)
	for i := range episodes {
		for _, token := range textutil.Tokens(episodes[i].Title) {
			freq[token]++
		}
	}
	return freq
}

// weightedRecall measures how much of the candidate's rare-token mass the
// input covers. Weight per token is the inverse of its pool frequency.
func weightedRecall(inputTokens, candidateTokens map[string]struct{}, freq map[string]int) float64 {
	if len(candidateTokens) == 0 {
		return 0
	}
	var total, overlap float64
	for token := range candidateTokens {
		count := freq[token]
		if count == 0 {
			count = 1
		}
		weight := 1 / float64(count)
		total += weight
		if _, ok := inputTokens[token]; ok {
			overlap += weight
		}
	}
	if total == 0 {
		return 0
	}
	return overlap / total
}

func intersectionSize(a, b map[string]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for token := range a {
		if _, ok := b[token]; ok {
			n++
		}
	}
	return n
}

func differenceSize(a, b map[string]struct{}) int {
	n := 0
	for token := range a {
		if _, ok := b[token]; !ok {
			n++
		}
	}
	return n
}

func round(v float64) int {
	return int(math.Round(v))
}
