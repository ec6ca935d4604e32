package provider

import (
	"encoding/json"
	"fmt"
	"log/slog"
)

// flexString accepts both JSON strings and JSON numbers, preserving the
// literal text. Providers are inconsistent about quoting ids and prices.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

func (f flexString) String() string {
	return string(f)
}

// extractItems pulls the items array out of a response body. A missing root
// key yields an empty list; a malformed root is an error.
func extractItems(body json.RawMessage, rootKey string) ([]json.RawMessage, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(body, &root); err != nil {
		return nil, fmt.Errorf("malformed response: %w", err)
	}

	raw, ok := root[rootKey]
	if !ok {
		return nil, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("malformed %q array: %w", rootKey, err)
	}
	return items, nil
}

// warnSkip logs one skipped item. The batch continues regardless.
func warnSkip(slug string, index int, reason error) {
	slog.Warn("skipping malformed item",
		slog.String("provider", slug),
		slog.Int("index", index),
		slog.String("reason", reason.Error()))
}
