package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"wai/internal/item"
)

// messagePattern matches the notification grammar:
// CREATOR :: YYYYMMDD :: TITLE, a blank line, then the URL.
var messagePattern = regexp.MustCompile(`(?s)^(.*?)\s*::\s*(\d{8})\s*::\s*(.*?)\s*\n+(\S+)`)

// ErrBadMessage reports a notification that does not match the grammar.
var ErrBadMessage = errors.New("message does not match CREATOR :: YYYYMMDD :: TITLE / URL")

// ParseMessage parses one notification message into an item.
func ParseMessage(raw string) (item.Item, error) {
	groups := messagePattern.FindStringSubmatch(strings.TrimSpace(raw))
	if groups == nil {
		return item.Item{}, ErrBadMessage
	}
	it := item.New(groups[1], groups[3], groups[2], groups[4])
	if err := it.Validate(); err != nil {
		return item.Item{}, fmt.Errorf("%w: %w", ErrBadMessage, err)
	}
	return it, nil
}

// matchFilter implements the archive query rules: name and value together
// mean exact equality on that field, name alone means the field exists, and
// value alone means the value appears among the item's stringified values.
func matchFilter(it item.Item, name, value string, hasValue bool) bool {
	doc := itemDocument(it)
	switch {
	case name != "" && hasValue:
		raw, ok := doc[name]
		return ok && stringify(raw) == value
	case name != "":
		_, ok := doc[name]
		return ok
	case hasValue:
		for _, raw := range doc {
			if stringify(raw) == value {
				return true
			}
		}
		return false
	}
	return true
}

func itemDocument(it item.Item) map[string]any {
	data, err := it.MarshalJSON()
	if err != nil {
		return nil
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil
	}
	return doc
}

func stringify(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(value)
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%v", value)
	}
}
