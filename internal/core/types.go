package core

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/buger/jsonparser"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Format identifies the kind of data behind a source URL.
type Format string

const (
	FormatArcGIS  Format = "arcgis"
	FormatGeoJSON Format = "geojson"
	FormatCSV     Format = "csv"
	FormatUnknown Format = "unknown"
)

func (f Format) String() string {
	return string(f)
}

// DefaultSampleLimit is the number of records returned when no limit is configured.
const DefaultSampleLimit = 10

// Source describes the URL being sampled. Format is derived once by
// ParseSource and never changes afterwards.
type Source struct {
	URL    string
	Format Format
}

// Record is a single sample: field name to value, in source order.
type Record = orderedmap.OrderedMap[string, any]

// NewRecord returns an empty record.
func NewRecord() *Record {
	return orderedmap.New[string, any]()
}

// RecordKeys returns the field names of r in insertion order.
func RecordKeys(r *Record) []string {
	keys := make([]string, 0, r.Len())
	for pair := r.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// decodeRecord decodes a JSON object into a Record, keeping key order at
// every depth: nested objects become *Record too. A missing or null value
// yields an empty record.
func decodeRecord(raw json.RawMessage) (*Record, error) {
	rec := NewRecord()
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return rec, nil
	}
	err := jsonparser.ObjectEach(trimmed, func(key, value []byte, dt jsonparser.ValueType, _ int) error {
		v, err := decodeValue(value, dt)
		if err != nil {
			return err
		}
		rec.Set(string(key), v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// decodeValue converts one value reported by jsonparser. Numbers decode to
// float64 like encoding/json does.
func decodeValue(value []byte, dt jsonparser.ValueType) (any, error) {
	switch dt {
	case jsonparser.String:
		return jsonparser.ParseString(value)
	case jsonparser.Number:
		return jsonparser.ParseFloat(value)
	case jsonparser.Boolean:
		return jsonparser.ParseBoolean(value)
	case jsonparser.Null:
		return nil, nil
	case jsonparser.Object:
		return decodeRecord(value)
	case jsonparser.Array:
		items := []any{}
		var itemErr error
		_, err := jsonparser.ArrayEach(value, func(item []byte, it jsonparser.ValueType, _ int, _ error) {
			if itemErr != nil {
				return
			}
			v, err := decodeValue(item, it)
			if err != nil {
				itemErr = err
				return
			}
			items = append(items, v)
		})
		if err != nil {
			return nil, err
		}
		return items, itemErr
	default:
		return nil, fmt.Errorf("unexpected json value %q", value)
	}
}

// Outcome records why a sampling run stopped reading its source.
type Outcome int

const (
	// OutcomeEndOfData means the source ran out before the limit.
	OutcomeEndOfData Outcome = iota
	// OutcomeCapReached means the limit was hit and the transfer was cancelled.
	OutcomeCapReached
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCapReached:
		return "cap_reached"
	default:
		return "end_of_data"
	}
}

// CSVOptions configures the delimited-text tokenizer.
type CSVOptions struct {
	Comma      rune
	LazyQuotes bool
}

// SampleOptions is passed explicitly into every extractor call.
type SampleOptions struct {
	Limit int
	CSV   CSVOptions
}

// DefaultSampleOptions returns options matching the service defaults.
func DefaultSampleOptions() SampleOptions {
	return SampleOptions{
		Limit: DefaultSampleLimit,
		CSV:   CSVOptions{Comma: ',', LazyQuotes: true},
	}
}

func (o SampleOptions) limit() int {
	if o.Limit <= 0 {
		return DefaultSampleLimit
	}
	return o.Limit
}

// Extraction is what an extractor hands to the assembler. Nil Fields or
// Records mean the extractor could not produce that part.
type Extraction struct {
	Fields  []string
	Records []*Record
	Outcome Outcome

	// Cancelled is set when a streamed transfer was aborted before the
	// body ended.
	Cancelled bool
}

// Result is the response for one sampled source. It is built once by
// Assemble and not modified afterwards.
type Result struct {
	Type    Format    `json:"type"`
	Fields  []string  `json:"fields,omitzero"`
	Results []*Record `json:"results,omitzero"`
}
