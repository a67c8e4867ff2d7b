package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
)

// ErrMissingFeatures is returned when a GeoJSON body has no top-level
// features array.
var ErrMissingFeatures = fmt.Errorf("%w: no features array", ErrMalformedBody)

// GeoJSONExtractor samples feature properties from a FeatureCollection
// while it is still being transferred.
type GeoJSONExtractor struct {
	fetcher *Fetcher
}

// NewGeoJSONExtractor creates a GeoJSON extractor.
func NewGeoJSONExtractor(fetcher *Fetcher) *GeoJSONExtractor {
	return &GeoJSONExtractor{fetcher: fetcher}
}

// Extract reads features until the limit is reached or the features array
// ends. The field list comes from the first feature's properties only; an
// empty collection yields no field list and an empty sample set.
func (e *GeoJSONExtractor) Extract(ctx context.Context, src Source, opts SampleOptions) (*Extraction, error) {
	stream, err := e.fetcher.Stream(ctx, src.URL)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	records, outcome, err := collect(featureProperties(NewBOMSkippingReader(stream)), opts.limit(), stream.Cancel)

	ext := &Extraction{Records: records, Outcome: outcome, Cancelled: stream.Cancelled()}
	if len(records) > 0 {
		ext.Fields = RecordKeys(records[0])
	}
	return ext, err
}

// featureProperties yields the properties of each element of the top-level
// features array, decoding one feature at a time.
func featureProperties(r io.Reader) iter.Seq2[*Record, error] {
	return func(yield func(*Record, error) bool) {
		dec := json.NewDecoder(r)

		if err := seekFeatures(dec); err != nil {
			yield(nil, err)
			return
		}

		for dec.More() {
			var feature struct {
				Properties json.RawMessage `json:"properties"`
			}
			if err := dec.Decode(&feature); err != nil {
				yield(nil, jsonError(err))
				return
			}

			rec, err := decodeRecord(feature.Properties)
			if err != nil {
				yield(nil, fmt.Errorf("%w: properties: %v", ErrMalformedBody, err))
				return
			}
			if !yield(rec, nil) {
				return
			}
		}

		// closing ']' of the features array; the rest of the document is never read
		if _, err := dec.Token(); err != nil {
			yield(nil, jsonError(err))
		}
	}
}

// seekFeatures advances dec to just inside the top-level features array.
func seekFeatures(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return jsonError(err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("%w: top-level value is not an object", ErrMissingFeatures)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return jsonError(err)
		}

		if key, _ := tok.(string); key == "features" {
			tok, err := dec.Token()
			if err != nil {
				return jsonError(err)
			}
			if delim, ok := tok.(json.Delim); ok && delim == '[' {
				return nil
			}
			return fmt.Errorf("%w: features is not an array", ErrMissingFeatures)
		}

		if err := skipValue(dec); err != nil {
			return err
		}
	}

	return ErrMissingFeatures
}

// skipValue consumes one JSON value token by token without buffering it.
func skipValue(dec *json.Decoder) error {
	depth := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			return jsonError(err)
		}
		if delim, ok := tok.(json.Delim); ok {
			switch delim {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
		if depth == 0 {
			return nil
		}
	}
}

// jsonError classifies a decoder error. Syntax problems and truncated
// documents are malformed bodies; anything else came from the transport
// and is returned as is.
func jsonError(err error) error {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr),
		errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return fmt.Errorf("%w: %v", ErrMalformedBody, err)
	default:
		return err
	}
}
