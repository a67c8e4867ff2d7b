// Package core provides source classification and bounded sampling.
//
// This package is the heart of the service, containing all domain logic
// independent of the HTTP layer. It can be used by web handlers, CLI tools,
// or tests without modification.
//
// # Pipeline
//
// A sampling run is a sequence of explicit stages, each returning a value
// or an error:
//
//  1. [ParseSource] validates the URL and [Classify] tags it with a [Format]
//  2. The [Limiter] grants a slot for outbound traffic
//  3. Exactly one [Extractor] runs for the format
//  4. [Assemble] builds the immutable [Result]
//
// Unknown formats short-circuit after step 1 with a type-only result.
//
// # Extractors
//
//   - ArcGIS: two independent buffered calls (layer metadata and a bounded
//     query). Either may fail without failing the run.
//   - GeoJSON: incremental token walk to the top-level features array,
//     decoding one feature at a time.
//   - CSV: incremental row reads with the first row as header.
//
// The streaming extractors pull records through [collect], which invokes
// the stream's cancellation token as soon as the sample limit is reached.
// No record past the limit is ever kept, and the run finalizes once
// whether it stopped on the cap or at end of data.
//
// # Error Handling
//
// Upstream transport failures (unreachable host, non-2xx, dropped
// connection) are soft failures: the run still completes with whatever
// was collected. Malformed bodies wrap [ErrMalformedBody] and fail the
// run. Technical errors are mapped to user-facing messages with [MapError]:
//
//   - REQ001-REQ004: Request errors (missing or invalid source, cancelled)
//   - SRC001-SRC006: Source errors (malformed body, missing features or header)
//   - BUSY001: Sampling capacity exhausted
//   - RATE001: Rate limited
package core
