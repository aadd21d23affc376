package tagger

import (
	"strings"

	"golang.org/x/text/language"

	"wai/internal/textutil"
)

const defaultLanguage = "eng"

// ToAlpha3 converts any parseable language code (alpha-2, alpha-3, or a
// full BCP 47 tag) into its three-letter base code.
func ToAlpha3(code string) (string, bool) {
	tag, err := language.Parse(strings.TrimSpace(code))
	if err != nil {
		return "", false
	}
	base, confidence := tag.Base()
	if confidence == language.No {
		return "", false
	}
	return base.ISO3(), true
}

// Classifier guesses the language of free text. Used only when the sidecar
// carries no language field.
type Classifier interface {
	Classify(text string) string
}

// stopwords per language, chosen for being common and mutually distinctive.
var stopwords = map[string][]string{
	"en": {"the", "and", "of", "to", "in", "is", "you", "that", "it", "we"},
	"de": {"der", "die", "und", "das", "ist", "nicht", "ich", "ein", "mit", "wir"},
	"fr": {"le", "la", "les", "et", "est", "une", "que", "dans", "nous", "pas"},
	"es": {"el", "los", "las", "es", "una", "que", "por", "con", "para", "como"},
	"it": {"il", "che", "di", "non", "per", "una", "sono", "con", "del", "questo"},
	"nl": {"de", "het", "een", "van", "en", "niet", "dat", "zijn", "voor", "met"},
	"pt": {"o", "os", "um", "uma", "que", "dos", "para", "com", "por", "mais"},
}

// StopwordClassifier scores text by stopword hits per language and returns
// the alpha-2 code of the best scorer. Empty result means no signal.
type StopwordClassifier struct{}

func (StopwordClassifier) Classify(text string) string {
	tokens := textutil.TokenSet(text)
	if len(tokens) == 0 {
		return ""
	}

	best := ""
	bestHits := 0
	for code, words := range stopwords {
		hits := 0
		for _, word := range words {
			if _, ok := tokens[word]; ok {
				hits++
			}
		}
		if hits > bestHits || (hits == bestHits && hits > 0 && code < best) {
			best = code
			bestHits = hits
		}
	}
	if bestHits == 0 {
		return ""
	}
	return best
}
