package matcher

import (
	"regexp"
	"strconv"
)

// hintPatterns is an ordered cascade from most to least specific. Two-group
// patterns yield season and episode; one-group patterns yield episode only.
var hintPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)s(\d+)e(\d+)`),
	regexp.MustCompile(`(?i)season[^\d]*(\d+)[^\d]+episode[^\d]*(\d+)`),
	regexp.MustCompile(`(?i)s(\d+)[^\d]+ep(?:isode)?[^\d]*(\d+)`),
	regexp.MustCompile(`(?i)episode[^\d]*(\d+)`),
	regexp.MustCompile(`(?i)ep[^\d]*(\d+)`),
}

// extractEpisodeHint parses season and episode numbers from a title.
// Returns -1 for whichever part is absent.
func extractEpisodeHint(title string) (int, int) {
	for _, pattern := range hintPatterns {
		match := pattern.FindStringSubmatch(title)
		if match == nil {
			continue
		}
		groups := match[1:]
		switch len(groups) {
		case 2:
			return atoiOr(groups[0], -1), atoiOr(groups[1], -1)
		case 1:
			return -1, atoiOr(groups[0], -1)
		}
	}
	return -1, -1
}

func atoiOr(value string, fallback int) int {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}
