package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/support/util/exception"
)

// errNotArrayOfObjects marks JSON that parsed but has the wrong top-level shape.
var errNotArrayOfObjects = errors.New("top-level JSON value is not an array of objects")

// cell is one decoded value. A nil cell is a null.
type cell = *string

// records is a decoded JSON array of objects. Columns keep the order of first appearance.
type records struct {
	columns []string
	rows    []map[string]cell
}

// decodeRecords decodes a JSON array of flat objects.
// Numbers keep their source text and nested values are kept as compact JSON.
// A missing key and an explicit null both decode to a nil cell.
func decodeRecords(raw []byte) (*records, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, malformed("invalid JSON", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, exception.NewTypeContractError(module, fmt.Sprintf("expected '[', got %v", tok), errNotArrayOfObjects)
	}

	out := &records{}
	seen := make(map[string]struct{})
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, malformed("invalid JSON", err)
		}
		if d, ok := tok.(json.Delim); !ok || d != '{' {
			return nil, exception.NewTypeContractError(module, fmt.Sprintf("record %d is not an object", len(out.rows)), errNotArrayOfObjects)
		}

		row := make(map[string]cell)
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, malformed("invalid JSON", err)
			}
			key, _ := keyTok.(string)

			var value json.RawMessage
			if err := dec.Decode(&value); err != nil {
				return nil, malformed("invalid JSON", err)
			}
			c, err := toCell(value)
			if err != nil {
				return nil, malformed(fmt.Sprintf("invalid value for '%s'", key), err)
			}
			row[key] = c
			if _, ok := seen[key]; !ok {
				seen[key] = struct{}{}
				out.columns = append(out.columns, key)
			}
		}
		if _, err := dec.Token(); err != nil {
			return nil, malformed("invalid JSON", err)
		}
		out.rows = append(out.rows, row)
	}
	if _, err := dec.Token(); err != nil {
		return nil, malformed("invalid JSON", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, malformed("unexpected data after the top-level array", err)
	}
	return out, nil
}

// toCell converts one raw JSON value to its cell text.
func toCell(raw json.RawMessage) (cell, error) {
	trimmed := bytes.TrimSpace(raw)
	switch {
	case bytes.Equal(trimmed, []byte("null")):
		return nil, nil
	case len(trimmed) > 0 && trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, err
		}
		return &s, nil
	case len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '['):
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err != nil {
			return nil, err
		}
		s := buf.String()
		return &s, nil
	default:
		s := string(trimmed)
		return &s, nil
	}
}

func malformed(message string, err error) error {
	return exception.NewMalformedInputError(module, message, err)
}
