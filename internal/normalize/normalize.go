// Package normalize turns remote collection values of unknown shape into
// the typed, ordered lists the Document schema expects.
package normalize

import (
	"bytes"
	"encoding/json"
)

var null = []byte("null")

// Normalize coerces a raw remote collection into an ordered list:
//
//   - absent or null: fallback
//   - array: its elements in order
//   - object: its member values in the order they appear in the payload
//     (the keys themselves are discarded)
//   - anything else: fallback
//
// Null elements and elements that do not decode as T are skipped; Decode
// reports the latter. Normalize never panics and never fails.
func Normalize[T any](raw json.RawMessage, fallback []T) []T {
	list, _, ok := Decode[T](raw)
	if !ok {
		return fallback
	}
	return list
}

// Decode splits a raw collection into the elements that decode as T and
// the raw elements that do not, both in payload order. ok is false when raw
// is absent, null or not a list or object.
func Decode[T any](raw json.RawMessage) (list []T, rejected []json.RawMessage, ok bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, null) {
		return nil, nil, false
	}

	var elements []json.RawMessage
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &elements); err != nil {
			return nil, nil, false
		}
	case '{':
		values, err := objectValues(trimmed)
		if err != nil {
			return nil, nil, false
		}
		elements = values
	default:
		return nil, nil, false
	}

	list = make([]T, 0, len(elements))
	for _, element := range elements {
		if bytes.Equal(bytes.TrimSpace(element), null) {
			continue
		}
		var item T
		if err := json.Unmarshal(element, &item); err != nil {
			rejected = append(rejected, element)
			continue
		}
		list = append(list, item)
	}
	return list, rejected, true
}

// objectValues returns the member values of a JSON object in payload order.
func objectValues(raw []byte) ([]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	var values []json.RawMessage
	for dec.More() {
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		values = append(values, value)
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return values, nil
}
