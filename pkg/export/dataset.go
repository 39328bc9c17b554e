package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// RecordsToDataset converts a slice of JSON-serialisable records into a
// tabular Dataset. Column order follows the key order of the FIRST record's
// JSON encoding; later records only fill the columns the first one named.
// Nested objects and arrays are rendered as compact JSON strings.
func RecordsToDataset(records []interface{}) (Dataset, error) {
	if len(records) == 0 {
		return Dataset{}, fmt.Errorf("dataset requires at least one record")
	}

	first, err := json.Marshal(records[0])
	if err != nil {
		return Dataset{}, fmt.Errorf("marshal record: %w", err)
	}
	headers, err := topLevelKeys(first)
	if err != nil {
		return Dataset{}, err
	}
	if len(headers) == 0 {
		return Dataset{}, fmt.Errorf("dataset requires at least one column")
	}

	rows := make([]map[string]string, 0, len(records))
	for _, record := range records {
		raw, err := json.Marshal(record)
		if err != nil {
			return Dataset{}, fmt.Errorf("marshal record: %w", err)
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return Dataset{}, fmt.Errorf("decode record: %w", err)
		}
		row := make(map[string]string, len(headers))
		for _, header := range headers {
			row[header] = cellValue(fields[header])
		}
		rows = append(rows, row)
	}
	return Dataset{Headers: headers, Rows: rows}, nil
}

// topLevelKeys walks the token stream of a JSON object and returns its keys
// in encoding order, which json.Unmarshal into a map would lose.
func topLevelKeys(raw []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("record must be a JSON object")
	}

	var keys []string
	depth := 0
	expectKey := true
	for dec.More() || depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		switch t := tok.(type) {
		case json.Delim:
			switch t {
			case '{', '[':
				depth++
				expectKey = false
			case '}', ']':
				depth--
				if depth < 0 {
					return keys, nil
				}
				expectKey = depth == 0
			}
		case string:
			if depth == 0 && expectKey {
				keys = append(keys, t)
				expectKey = false
				continue
			}
			if depth == 0 {
				expectKey = true
			}
		default:
			if depth == 0 {
				expectKey = true
			}
		}
	}
	return keys, nil
}

// cellValue renders one JSON value for a CSV/PDF cell. Strings drop their
// quotes, null becomes empty, everything else keeps its JSON form.
func cellValue(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	if raw[0] != '{' && raw[0] != '[' {
		var f float64
		if err := json.Unmarshal(raw, &f); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
	}
	return string(raw)
}
