package core

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/JonMunkholm/sourcefields/internal/logging"
	"golang.org/x/sync/errgroup"
)

// arcgisError is the error envelope ArcGIS servers return with status 200.
type arcgisError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type arcgisLayer struct {
	Fields []struct {
		Name string `json:"name"`
	} `json:"fields"`
	Error *arcgisError `json:"error"`
}

type arcgisQuery struct {
	Features []struct {
		Attributes json.RawMessage `json:"attributes"`
	} `json:"features"`
	Error *arcgisError `json:"error"`
}

// ArcGISExtractor samples an ArcGIS feature layer with two independent
// calls: layer metadata for the field list and a bounded query for records.
type ArcGISExtractor struct {
	fetcher *Fetcher
}

// NewArcGISExtractor creates an ArcGIS extractor.
func NewArcGISExtractor(fetcher *Fetcher) *ArcGISExtractor {
	return &ArcGISExtractor{fetcher: fetcher}
}

// Extract never fails. A call that errors leaves its part of the
// extraction nil and is logged.
func (e *ArcGISExtractor) Extract(ctx context.Context, src Source, opts SampleOptions) (*Extraction, error) {
	logger := logging.WithFields(ctx, "source", src.URL)

	var (
		fields  []string
		records []*Record
		g       errgroup.Group
	)

	g.Go(func() error {
		var err error
		if fields, err = e.layerFields(ctx, src.URL); err != nil {
			logger.Warn("arcgis layer metadata unavailable", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if records, err = e.sampleFeatures(ctx, src.URL, opts.limit()); err != nil {
			logger.Warn("arcgis sample query failed", "error", err)
		}
		return nil
	})
	_ = g.Wait()

	return &Extraction{Fields: fields, Records: records, Outcome: OutcomeEndOfData}, nil
}

func (e *ArcGISExtractor) layerFields(ctx context.Context, layerURL string) ([]string, error) {
	var layer arcgisLayer
	if err := e.fetcher.GetJSON(ctx, layerURL, url.Values{"f": {"json"}}, &layer); err != nil {
		return nil, err
	}
	if layer.Error != nil {
		return nil, fmt.Errorf("arcgis error %d: %s", layer.Error.Code, layer.Error.Message)
	}
	if layer.Fields == nil {
		return nil, fmt.Errorf("%w: layer metadata has no fields", ErrMalformedBody)
	}

	fields := make([]string, len(layer.Fields))
	for i, f := range layer.Fields {
		fields[i] = f.Name
	}
	return fields, nil
}

func (e *ArcGISExtractor) sampleFeatures(ctx context.Context, layerURL string, limit int) ([]*Record, error) {
	u, err := url.Parse(layerURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	queryURL := u.JoinPath("query").String()

	params := url.Values{
		"outFields":         {"*"},
		"where":             {"1=1"},
		"resultRecordCount": {strconv.Itoa(limit)},
		"resultOffset":      {"0"},
		"f":                 {"json"},
	}

	var result arcgisQuery
	if err := e.fetcher.GetJSON(ctx, queryURL, params, &result); err != nil {
		return nil, err
	}
	if result.Error != nil {
		return nil, fmt.Errorf("arcgis error %d: %s", result.Error.Code, result.Error.Message)
	}
	if result.Features == nil {
		return nil, fmt.Errorf("%w: query response has no features", ErrMalformedBody)
	}

	// Servers that ignore resultRecordCount still must not exceed the limit
	features := result.Features
	if len(features) > limit {
		features = features[:limit]
	}

	records := make([]*Record, 0, len(features))
	for _, f := range features {
		rec, err := decodeRecord(f.Attributes)
		if err != nil {
			return nil, fmt.Errorf("%w: attributes: %v", ErrMalformedBody, err)
		}
		records = append(records, rec)
	}
	return records, nil
}
