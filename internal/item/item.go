package item

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// AgingState carries the aging-stage bookkeeping. Its fields serialize as
// top-level item keys for compatibility with the persisted queue format.
type AgingState struct {
	Ripeness  int   `json:"ripeness"`
	NextAging int64 `json:"next_aging"`
	LastScan  int64 `json:"last_scan"`
}

// Item is the unit of work flowing through the pipeline. The four ingress
// fields are set at creation and never mutate; stages append their own
// derived fields as the item advances. Unknown fields survive persistence
// round-trips in Extra.
type Item struct {
	Creator  string
	Title    string
	Datecode string
	URL      string

	TitleResult   *ShowMatch
	EpisodeResult *EpisodeMatch

	Aging *AgingState

	DownloadFilename string
	FileName         string
	ImportResult     map[string]any

	Extra map[string]json.RawMessage
}

// New builds an item from the four ingress fields.
func New(creator, title, datecode, url string) Item {
	return Item{
		Creator:  strings.TrimSpace(creator),
		Title:    strings.TrimSpace(title),
		Datecode: strings.TrimSpace(datecode),
		URL:      strings.TrimSpace(url),
	}
}

// MatchInput returns the composite string the matcher scores against.
func (i *Item) MatchInput() string {
	return fmt.Sprintf("%s :: %s", i.Creator, i.Title)
}

// Validate checks that all four ingress fields are present.
func (i *Item) Validate() error {
	switch {
	case i.Creator == "":
		return fmt.Errorf("item missing creator")
	case i.Title == "":
		return fmt.Errorf("item missing title")
	case i.Datecode == "":
		return fmt.Errorf("item missing datecode")
	case i.URL == "":
		return fmt.Errorf("item missing url")
	}
	return nil
}

const (
	keyCreator          = "creator"
	keyTitle            = "title"
	keyDatecode         = "datecode"
	keyURL              = "url"
	keyTitleResult      = "title_result"
	keyEpisodeResult    = "episode_result"
	keyRipeness         = "ripeness"
	keyNextAging        = "next_aging"
	keyLastScan         = "last_scan"
	keyDownloadFilename = "download_filename"
	keyFileName         = "file_name"
	keyImportResult     = "import_result"
)

// MarshalJSON flattens the aging sub-record into top-level keys and merges
// the unknown-field bag back in. Known keys always win over stale Extra
// entries.
func (i Item) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(i.Extra)+12)
	for key, raw := range i.Extra {
		out[key] = raw
	}

	set := func(key string, value any) error {
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", key, err)
		}
		out[key] = raw
		return nil
	}

	if err := set(keyCreator, i.Creator); err != nil {
		return nil, err
	}
	if err := set(keyTitle, i.Title); err != nil {
		return nil, err
	}
	if err := set(keyDatecode, i.Datecode); err != nil {
		return nil, err
	}
	if err := set(keyURL, i.URL); err != nil {
		return nil, err
	}
	if i.TitleResult != nil {
		if err := set(keyTitleResult, i.TitleResult); err != nil {
			return nil, err
		}
	}
	if i.EpisodeResult != nil {
		if err := set(keyEpisodeResult, i.EpisodeResult); err != nil {
			return nil, err
		}
	}
	if i.Aging != nil {
		if err := set(keyRipeness, i.Aging.Ripeness); err != nil {
			return nil, err
		}
		if err := set(keyNextAging, i.Aging.NextAging); err != nil {
			return nil, err
		}
		if err := set(keyLastScan, i.Aging.LastScan); err != nil {
			return nil, err
		}
	}
	if i.DownloadFilename != "" {
		if err := set(keyDownloadFilename, i.DownloadFilename); err != nil {
			return nil, err
		}
	}
	if i.FileName != "" {
		if err := set(keyFileName, i.FileName); err != nil {
			return nil, err
		}
	}
	if i.ImportResult != nil {
		if err := set(keyImportResult, i.ImportResult); err != nil {
			return nil, err
		}
	}

	return json.Marshal(out)
}

// UnmarshalJSON splits known keys out of the document and stashes the rest
// in Extra verbatim.
func (i *Item) UnmarshalJSON(data []byte) error {
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	take := func(key string, dst any) error {
		raw, ok := fields[key]
		if !ok {
			return nil
		}
		delete(fields, key)
		if string(raw) == "null" {
			return nil
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return fmt.Errorf("unmarshal %s: %w", key, err)
		}
		return nil
	}

	*i = Item{}
	if err := take(keyCreator, &i.Creator); err != nil {
		return err
	}
	if err := take(keyTitle, &i.Title); err != nil {
		return err
	}
	if err := take(keyDatecode, &i.Datecode); err != nil {
		return err
	}
	if err := take(keyURL, &i.URL); err != nil {
		return err
	}
	if err := take(keyTitleResult, &i.TitleResult); err != nil {
		return err
	}
	if err := take(keyEpisodeResult, &i.EpisodeResult); err != nil {
		return err
	}

	_, hasRipeness := fields[keyRipeness]
	_, hasNextAging := fields[keyNextAging]
	_, hasLastScan := fields[keyLastScan]
	if hasRipeness || hasNextAging || hasLastScan {
		aging := &AgingState{}
		if err := take(keyRipeness, &aging.Ripeness); err != nil {
			return err
		}
		if err := take(keyNextAging, &aging.NextAging); err != nil {
			return err
		}
		if err := take(keyLastScan, &aging.LastScan); err != nil {
			return err
		}
		i.Aging = aging
	}

	if err := take(keyDownloadFilename, &i.DownloadFilename); err != nil {
		return err
	}
	if err := take(keyFileName, &i.FileName); err != nil {
		return err
	}
	if err := take(keyImportResult, &i.ImportResult); err != nil {
		return err
	}

	if len(fields) > 0 {
		i.Extra = fields
	}
	return nil
}

// Equal reports deep equality of two items after JSON canonicalization, so
// formatting differences in raw Extra fields do not matter.
func (i Item) Equal(other Item) bool {
	a, err := canonicalize(i)
	if err != nil {
		return false
	}
	b, err := canonicalize(other)
	if err != nil {
		return false
	}
	return reflect.DeepEqual(a, b)
}

// Clone returns a deep copy via a JSON round-trip.
func (i Item) Clone() Item {
	data, err := json.Marshal(i)
	if err != nil {
		return i
	}
	var out Item
	if err := json.Unmarshal(data, &out); err != nil {
		return i
	}
	return out
}

func canonicalize(it Item) (any, error) {
	data, err := json.Marshal(it)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
