package reconcile

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"

	"github.com/danmuck/zbxctl/internal/protocol"
)

// Section names read from the configuration payload.
const (
	SectionHosts = "hosts"
	SectionItems = "items"
)

// Row is one table row keyed by column name.
type Row map[string]any

// DecodePayload parses a configuration payload. Numbers are kept as json.Number so that
// 64-bit ids survive intact.
func DecodePayload(b []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &protocol.DecodeError{What: "config", Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &protocol.DecodeError{What: "config", Err: errors.New("trailing data after payload")}
	}
	payload, ok := v.(map[string]any)
	if !ok {
		return nil, &protocol.DecodeError{What: "config", Err: protocol.ErrNotObject}
	}
	return payload, nil
}

// Section returns the rows of payload[name], or nil when the section is missing or
// malformed.
func Section(payload map[string]any, name string) []Row {
	sec, ok := payload[name].(map[string]any)
	if !ok {
		return nil
	}
	return Tabulate(sec["fields"], sec["data"])
}

// Tabulate zips every row of data against the column names in fields. A non-array
// fields or data yields no rows; a non-array row is skipped; a non-string column name
// skips that column; ragged rows zip up to the shorter side.
func Tabulate(fields, data any) []Row {
	columns, ok := fields.([]any)
	if !ok {
		return nil
	}
	rows, ok := data.([]any)
	if !ok {
		return nil
	}

	out := make([]Row, 0, len(rows))
	for _, raw := range rows {
		values, ok := raw.([]any)
		if !ok {
			continue
		}
		n := min(len(columns), len(values))
		row := make(Row, n)
		for i := 0; i < n; i++ {
			name, ok := columns[i].(string)
			if !ok {
				continue
			}
			row[name] = values[i]
		}
		out = append(out, row)
	}
	return out
}
