// Package ingest turns raw import payloads into flat, untyped records.
// It knows nothing about prospects beyond the column conventions of
// delimited text.
package ingest

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Format is the detected shape of a payload.
type Format string

const (
	FormatJSONObject Format = "json_object"
	FormatJSONArray  Format = "json_array"
	FormatDelimited  Format = "delimited"
)

// Extension is the file extension used when archiving a payload of this format.
func (f Format) Extension() string {
	if f == FormatDelimited {
		return "csv"
	}
	return "json"
}

// ContentType is the MIME type used when archiving a payload of this format.
func (f Format) ContentType() string {
	if f == FormatDelimited {
		return "text/csv"
	}
	return "application/json"
}

var (
	ErrEmptyInput = errors.New("input is empty")
	ErrNoHeader   = errors.New("delimited input needs a header row")
)

// Child column prefixes of delimited input. Every row yields at most one
// contact and one signal.
const (
	contactPrefix = "contact."
	signalPrefix  = "signal."
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parse detects the payload shape and returns its records.
// JSON numbers are kept as json.Number.
func Parse(data []byte) ([]map[string]any, Format, error) {
	trimmed := bytes.TrimSpace(bytes.TrimPrefix(data, utf8BOM))
	if len(trimmed) == 0 {
		return nil, "", ErrEmptyInput
	}

	switch trimmed[0] {
	case '{':
		var record map[string]any
		if err := decodeJSON(trimmed, &record); err != nil {
			return nil, "", err
		}
		return []map[string]any{record}, FormatJSONObject, nil
	case '[':
		var items []any
		if err := decodeJSON(trimmed, &items); err != nil {
			return nil, "", err
		}
		records := make([]map[string]any, 0, len(items))
		for i, item := range items {
			record, ok := item.(map[string]any)
			if !ok {
				return nil, "", fmt.Errorf("element %d is not an object", i)
			}
			records = append(records, record)
		}
		return records, FormatJSONArray, nil
	default:
		records, err := parseDelimited(trimmed)
		if err != nil {
			return nil, "", err
		}
		return records, FormatDelimited, nil
	}
}

func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("decode json: unexpected data after top-level value")
	}
	return nil
}

// DetectDelimiter picks comma, semicolon or tab, whichever occurs most in the header line.
func DetectDelimiter(headerLine string) rune {
	best, bestCount := ',', strings.Count(headerLine, ",")
	for _, candidate := range []rune{';', '\t'} {
		if n := strings.Count(headerLine, string(candidate)); n > bestCount {
			best, bestCount = candidate, n
		}
	}
	return best
}

func parseDelimited(data []byte) ([]map[string]any, error) {
	firstLine, _, _ := strings.Cut(string(data), "\n")

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = DetectDelimiter(firstLine)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	records := make([]map[string]any, 0)
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if record := rowToRecord(header, row); record != nil {
			records = append(records, record)
		}
	}
	return records, nil
}

// rowToRecord maps cells onto header names. Blank cells are left out, and a
// row with no non-blank cell yields nil.
func rowToRecord(header, row []string) map[string]any {
	record := make(map[string]any, len(header))
	contact := map[string]any{}
	signal := map[string]any{}

	for i, name := range header {
		if i >= len(row) || name == "" {
			continue
		}
		value := strings.TrimSpace(row[i])
		if value == "" {
			continue
		}
		switch {
		case strings.HasPrefix(name, contactPrefix):
			contact[strings.TrimPrefix(name, contactPrefix)] = value
		case strings.HasPrefix(name, signalPrefix):
			signal[strings.TrimPrefix(name, signalPrefix)] = value
		default:
			record[name] = value
		}
	}

	if len(contact) > 0 {
		record["contacts"] = []any{contact}
	}
	if len(signal) > 0 {
		record["signals"] = []any{signal}
	}
	if len(record) == 0 {
		return nil
	}
	return record
}
