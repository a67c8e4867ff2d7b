package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/JonMunkholm/sourcefields/internal/logging"
	"github.com/google/uuid"
)

// Extractor samples one kind of source.
type Extractor interface {
	Extract(ctx context.Context, src Source, opts SampleOptions) (*Extraction, error)
}

// Service runs the classify, extract, assemble pipeline.
type Service struct {
	extractors map[Format]Extractor
	limiter    *Limiter
	opts       SampleOptions
}

// NewService wires the three extractors around a shared fetcher.
func NewService(fetcher *Fetcher, limiter *Limiter, opts SampleOptions) *Service {
	return NewServiceWithExtractors(map[Format]Extractor{
		FormatArcGIS:  NewArcGISExtractor(fetcher),
		FormatGeoJSON: NewGeoJSONExtractor(fetcher),
		FormatCSV:     NewCSVExtractor(fetcher),
	}, limiter, opts)
}

// NewServiceWithExtractors creates a service with explicit extractors.
func NewServiceWithExtractors(extractors map[Format]Extractor, limiter *Limiter, opts SampleOptions) *Service {
	if limiter == nil {
		limiter = NewLimiter(DefaultMaxConcurrentFetches, DefaultMaxWaitTime)
	}
	return &Service{extractors: extractors, limiter: limiter, opts: opts}
}

// Options returns the sample options passed to every extractor.
func (s *Service) Options() SampleOptions {
	return s.opts
}

// LimiterStatus reports how many sampling slots are in use.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// WaitForRuns blocks until in-flight sampling runs finish or ctx is done.
func (s *Service) WaitForRuns(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// Sample classifies rawSource and returns its preview.
//
// Upstream transport failures never surface as errors: the result simply
// lacks the parts that could not be sampled. Errors are returned for a
// missing or invalid source, a malformed source body, and when no
// sampling slot is available.
func (s *Service) Sample(ctx context.Context, rawSource string) (*Result, error) {
	start := time.Now()

	src, err := ParseSource(rawSource)
	if err != nil {
		return nil, err
	}

	logger := logging.WithFields(ctx,
		"run_id", uuid.New().String(),
		"source", src.URL,
		"type", src.Format,
	).With(clientAttrs(ctx)...)
	logger.Debug("source classified")

	extractor, ok := s.extractors[src.Format]
	if !ok {
		return Assemble(src.Format, nil), nil
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	logger.Debug("extracting")
	ext, err := s.extract(ctx, extractor, src, logger)
	if err != nil {
		logger.Warn("sampling failed", "error", err)
		return nil, err
	}

	result := Assemble(src.Format, ext)
	logger.Info("source sampled",
		"fields", len(result.Fields),
		"results", len(result.Results),
		"outcome", ext.Outcome,
		"cancelled", ext.Cancelled,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// extract runs the extractor and applies the soft-fail policy: anything
// other than a malformed body is logged and dropped, keeping whatever the
// extractor managed to collect.
func (s *Service) extract(ctx context.Context, extractor Extractor, src Source, logger *slog.Logger) (*Extraction, error) {
	ext, err := extractor.Extract(ctx, src, s.opts)
	if err == nil {
		return ext, nil
	}
	if errors.Is(err, ErrMalformedBody) {
		return nil, fmt.Errorf("sample %s: %w", src.Format, err)
	}

	logger.Warn("upstream unavailable, returning partial sample", "error", err)
	if ext == nil || len(ext.Records) == 0 {
		return &Extraction{}, nil
	}
	return ext, nil
}

// Assemble builds the response for a classified source. Nil parts of ext
// stay absent in the result; nothing is defaulted.
func Assemble(format Format, ext *Extraction) *Result {
	result := &Result{Type: format}
	if ext != nil {
		result.Fields = ext.Fields
		result.Results = ext.Records
	}
	return result
}
