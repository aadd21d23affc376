package textutil

import "strings"

// Ratio computes a normalized indel similarity between two strings on a
// 0-100 scale: 100*(1 - distance/(len(a)+len(b))), where the distance is
// the minimum number of insertions and deletions turning a into b.
func Ratio(a, b string) float64 {
	if a == "" && b == "" {
		return 100
	}
	la, lb := len(a), len(b)
	if la == 0 || lb == 0 {
		return 0
	}
	common := lcsLength(a, b)
	distance := la + lb - 2*common
	return 100 * (1 - float64(distance)/float64(la+lb))
}

// TokenSetRatio compares the unique-token decompositions of two strings.
// The shared token prefix is compared against each full token sequence and
// the best of the three pairings wins, so a string whose tokens are a
// subset of the other's scores 100.
func TokenSetRatio(a, b string) float64 {
	setA := TokenSet(a)
	setB := TokenSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 100
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := make(map[string]struct{})
	onlyA := make(map[string]struct{})
	for token := range setA {
		if _, ok := setB[token]; ok {
			intersection[token] = struct{}{}
		} else {
			onlyA[token] = struct{}{}
		}
	}
	onlyB := make(map[string]struct{})
	for token := range setB {
		if _, ok := setA[token]; !ok {
			onlyB[token] = struct{}{}
		}
	}

	shared := strings.Join(sortedTokens(intersection), " ")
	fullA := joinSections(shared, sortedTokens(onlyA))
	fullB := joinSections(shared, sortedTokens(onlyB))

	best := Ratio(fullA, fullB)
	if shared != "" {
		if r := Ratio(shared, fullA); r > best {
			best = r
		}
		if r := Ratio(shared, fullB); r > best {
			best = r
		}
	}
	return best
}

func joinSections(shared string, rest []string) string {
	tail := strings.Join(rest, " ")
	switch {
	case shared == "":
		return tail
	case tail == "":
		return shared
	default:
		return shared + " " + tail
	}
}

func lcsLength(a, b string) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	prev := make([]int, len(a)+1)
	curr := make([]int, len(a)+1)
	for j := 1; j <= len(b); j++ {
		for i := 1; i <= len(a); i++ {
			if a[i-1] == b[j-1] {
				curr[i] = prev[i-1] + 1
			} else if prev[i] >= curr[i-1] {
				curr[i] = prev[i]
			} else {
				curr[i] = curr[i-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(a)]
}
