// Package tagger renames a downloaded media file so its name carries the
// resolution bucket and three-letter language code, release-group style:
// video.WEB-DL.1920x1080.eng-cfwai.mkv. The metadata sidecar is renamed in
// lockstep so the import step can still find it.
package tagger

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"wai/internal/logging"
	"wai/internal/ytdlp"
)

const releaseGroup = "cfwai"

// taggedPattern recognizes an already-tagged basename so Tag stays
// idempotent across crash-replays of the download stage.
var taggedPattern = regexp.MustCompile(`\.WEB-DL\.\d+x\d+\.[a-z]{3}-` + releaseGroup + `\.`)

// Sidecar is the subset of the downloader's metadata document the tagger
// reads.
type Sidecar struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Language    string `json:"language"`
	Description string `json:"description"`
	Title       string `json:"title"`
}

// Tagger composes tagged filenames from sidecar metadata.
type Tagger struct {
	classifier Classifier
	logger     *slog.Logger
}

// Option configures the tagger.
type Option func(*Tagger)

// WithClassifier overrides the fallback language classifier.
func WithClassifier(classifier Classifier) Option {
	return func(t *Tagger) {
		if classifier != nil {
			t.classifier = classifier
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tagger) {
		if logger != nil {
			t.logger = logging.NewComponentLogger(logger, "tagger")
		}
	}
}

// New constructs a tagger.
func New(opts ...Option) *Tagger {
	t := &Tagger{
		classifier: StopwordClassifier{},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Tag renames mediaPath and its sidecar, returning the new media path. An
// already-tagged file is returned unchanged.
func (t *Tagger) Tag(mediaPath string) (string, error) {
	base := filepath.Base(mediaPath)
	if taggedPattern.MatchString(base) {
		return mediaPath, nil
	}

	sidecarPath := ytdlp.SidecarPath(mediaPath)
	sidecar, err := readSidecar(sidecarPath)
	if err != nil {
		return "", err
	}

	width, height := BucketResolution(sidecar.Width, sidecar.Height)
	lang := t.resolveLanguage(sidecar)

	ext := filepath.Ext(mediaPath)
	stem := strings.TrimSuffix(mediaPath, ext)
	newPath := fmt.Sprintf("%s.WEB-DL.%dx%d.%s-%s%s", stem, width, height, lang, releaseGroup, ext)

	if err := os.Rename(mediaPath, newPath); err != nil {
		return "", fmt.Errorf("tagger: rename media: %w", err)
	}
	if err := os.Rename(sidecarPath, ytdlp.SidecarPath(newPath)); err != nil {
		// Roll the media rename back so the pair never diverges.
		_ = os.Rename(newPath, mediaPath)
		return "", fmt.Errorf("tagger: rename sidecar: %w", err)
	}

	t.logger.Info("tagged file",
		logging.String("from", filepath.Base(mediaPath)),
		logging.String("to", filepath.Base(newPath)))
	return newPath, nil
}

func (t *Tagger) resolveLanguage(sidecar *Sidecar) string {
	if code := strings.TrimSpace(sidecar.Language); code != "" {
		if three, ok := ToAlpha3(code); ok {
			return three
		}
	}
	text := sidecar.Description
	if strings.TrimSpace(text) == "" {
		text = sidecar.Title
	}
	if guess := t.classifier.Classify(text); guess != "" {
		if three, ok := ToAlpha3(guess); ok {
			return three
		}
	}
	return defaultLanguage
}

func readSidecar(path string) (*Sidecar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tagger: read sidecar: %w", err)
	}
	var sidecar Sidecar
	if err := json.Unmarshal(data, &sidecar); err != nil {
		return nil, fmt.Errorf("tagger: parse sidecar: %w", err)
	}
	return &sidecar, nil
}
