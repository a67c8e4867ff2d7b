package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		source string
		want   Format
	}{
		{"http://example.com/arcgis/rest/services/Parcels/MapServer/0", FormatArcGIS},
		{"http://example.com/arcgis/rest/services/Parcels/FeatureServer/12/", FormatArcGIS},
		{"http://example.com/arcgis/rest/services/Parcels/MapServer", FormatUnknown},
		{"http://example.com/arcgis/rest/services/Parcels/MapServer/0/query", FormatUnknown},
		{"http://example.com/arcgis/rest/services/Parcels/ImageServer/0", FormatUnknown},
		{"http://example.com/data/parcels.geojson", FormatGeoJSON},
		{"http://example.com/data/parcels.csv", FormatCSV},
		{"http://example.com/data/parcels.geojson.zip", FormatUnknown},
		{"http://example.com/data/parcels.csv.zip", FormatUnknown},
		{"http://example.com/data/parcels.CSV", FormatUnknown},
		{"http://example.com/data/parcels.csv?download=1", FormatUnknown},
		{"http://example.com/data/parcels.json", FormatUnknown},
		// arcgis rule is checked first
		{"http://example.com/files.csv/MapServer/3", FormatArcGIS},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.source))
		})
	}
}

func TestParseSource(t *testing.T) {
	t.Run("valid source is classified", func(t *testing.T) {
		src, err := ParseSource("  http://example.com/data.csv ")
		require.NoError(t, err)
		assert.Equal(t, "http://example.com/data.csv", src.URL)
		assert.Equal(t, FormatCSV, src.Format)
	})

	t.Run("unknown format is not an error", func(t *testing.T) {
		src, err := ParseSource("https://example.com/data.zip")
		require.NoError(t, err)
		assert.Equal(t, FormatUnknown, src.Format)
	})

	t.Run("empty source", func(t *testing.T) {
		_, err := ParseSource("   ")
		assert.ErrorIs(t, err, ErrMissingSource)
	})

	invalid := []string{
		"ftp://example.com/data.csv",
		"/data/parcels.csv",
		"http://",
		"http://exa mple.com/%zz.csv",
		"file:///etc/passwd.csv",
	}
	for _, raw := range invalid {
		t.Run("invalid "+raw, func(t *testing.T) {
			_, err := ParseSource(raw)
			assert.ErrorIs(t, err, ErrInvalidSource)
		})
	}
}

func TestFormatString(t *testing.T) {
	assert.Equal(t, "arcgis", FormatArcGIS.String())
	assert.Equal(t, "unknown", FormatUnknown.String())
}
