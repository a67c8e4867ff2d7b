package core

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

var (
	// ErrMissingSource is returned when no source URL was supplied.
	ErrMissingSource = errors.New("missing source parameter")

	// ErrInvalidSource is returned when the source is not an absolute http(s) URL.
	ErrInvalidSource = errors.New("invalid source url")
)

// arcgisPattern matches ArcGIS map or feature layer endpoints, e.g.
// .../rest/services/Parcels/MapServer/0 with an optional trailing slash.
var arcgisPattern = regexp.MustCompile(`(Map|Feature)Server/\d+/?$`)

// Classify tags a source URL with its format. The first matching rule wins.
func Classify(source string) Format {
	switch {
	case arcgisPattern.MatchString(source):
		return FormatArcGIS
	case strings.HasSuffix(source, ".geojson"):
		return FormatGeoJSON
	case strings.HasSuffix(source, ".csv"):
		return FormatCSV
	default:
		return FormatUnknown
	}
}

// ParseSource validates a raw source URL and classifies it.
func ParseSource(raw string) (Source, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Source{}, ErrMissingSource
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Source{}, errors.Join(ErrInvalidSource, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Source{}, ErrInvalidSource
	}

	return Source{URL: raw, Format: Classify(raw)}, nil
}
