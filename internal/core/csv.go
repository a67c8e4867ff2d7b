package core

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
)

// ErrMissingHeader is returned when a delimited-text body has no header row.
var ErrMissingHeader = fmt.Errorf("%w: missing header row", ErrMalformedBody)

// CSVExtractor samples rows from delimited text while it is still being
// transferred. The first row is the header.
type CSVExtractor struct {
	fetcher *Fetcher
}

// NewCSVExtractor creates a CSV extractor.
func NewCSVExtractor(fetcher *Fetcher) *CSVExtractor {
	return &CSVExtractor{fetcher: fetcher}
}

// Extract reads rows until the limit is reached or the body ends. A
// header-only source yields an empty field list and an empty sample set.
func (e *CSVExtractor) Extract(ctx context.Context, src Source, opts SampleOptions) (*Extraction, error) {
	stream, err := e.fetcher.Stream(ctx, src.URL)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	records, outcome, err := collect(csvRows(WrapText(stream), opts.CSV), opts.limit(), stream.Cancel)

	ext := &Extraction{Fields: []string{}, Records: records, Outcome: outcome, Cancelled: stream.Cancelled()}
	if len(records) > 0 {
		ext.Fields = RecordKeys(records[0])
	}
	return ext, err
}

// csvRows yields each data row keyed by the header. Blank lines are
// skipped by the tokenizer. Short rows omit the missing columns, extra
// cells are dropped, and a repeated header name keeps the later value.
func csvRows(r io.Reader, opts CSVOptions) iter.Seq2[*Record, error] {
	return func(yield func(*Record, error) bool) {
		reader := csv.NewReader(r)
		if opts.Comma != 0 {
			reader.Comma = opts.Comma
		}
		reader.LazyQuotes = opts.LazyQuotes
		reader.FieldsPerRecord = -1

		header, err := reader.Read()
		if err == io.EOF {
			yield(nil, ErrMissingHeader)
			return
		}
		if err != nil {
			yield(nil, csvError(err))
			return
		}

		for {
			row, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(nil, csvError(err))
				return
			}
			if !yield(rowRecord(header, row), nil) {
				return
			}
		}
	}
}

func rowRecord(header, row []string) *Record {
	rec := NewRecord()
	for i, name := range header {
		if i >= len(row) {
			break
		}
		rec.Set(name, row[i])
	}
	return rec
}

// csvError marks tokenizer errors as malformed bodies and passes
// transport errors through.
func csvError(err error) error {
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	return err
}
