package core

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const layerPath = "/arcgis/rest/services/Parcels/MapServer/0"

// arcgisServer serves layer metadata at layerPath and a query endpoint
// below it. A nil handler answers 500.
func arcgisServer(t *testing.T, layer, query http.HandlerFunc) *httptest.Server {
	t.Helper()
	fail := func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}
	if layer == nil {
		layer = fail
	}
	if query == nil {
		query = fail
	}

	mux := http.NewServeMux()
	mux.HandleFunc(layerPath, layer)
	mux.HandleFunc(layerPath+"/query", query)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func jsonBody(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}
}

func extractArcGIS(t *testing.T, srv *httptest.Server, opts SampleOptions) *Extraction {
	t.Helper()
	e := NewArcGISExtractor(newTestFetcher(srv))
	ext, err := e.Extract(context.Background(), Source{URL: srv.URL + layerPath, Format: FormatArcGIS}, opts)
	require.NoError(t, err)
	require.NotNil(t, ext)
	return ext
}

func TestArcGISExtractor(t *testing.T) {
	var mu sync.Mutex
	var layerQuery, featureQuery map[string][]string

	srv := arcgisServer(t,
		func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			layerQuery = r.URL.Query()
			mu.Unlock()
			jsonBody(`{"fields":[{"name":"field 1"},{"name":"field 2"}]}`)(w, r)
		},
		func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			featureQuery = r.URL.Query()
			mu.Unlock()
			jsonBody(`{"features":[{"attributes":{"attribute1":"value1","attribute2":"value2"}}]}`)(w, r)
		},
	)

	ext := extractArcGIS(t, srv, DefaultSampleOptions())

	assert.Equal(t, []string{"field 1", "field 2"}, ext.Fields)
	require.Len(t, ext.Records, 1)
	assert.Equal(t, []string{"attribute1", "attribute2"}, RecordKeys(ext.Records[0]))
	v, _ := ext.Records[0].Get("attribute1")
	assert.Equal(t, "value1", v)

	assert.Equal(t, "json", layerQuery["f"][0])
	assert.Equal(t, "*", featureQuery["outFields"][0])
	assert.Equal(t, "1=1", featureQuery["where"][0])
	assert.Equal(t, "10", featureQuery["resultRecordCount"][0])
	assert.Equal(t, "0", featureQuery["resultOffset"][0])
	assert.Equal(t, "json", featureQuery["f"][0])
}

func TestArcGISExtractor_MetadataFails(t *testing.T) {
	srv := arcgisServer(t, nil,
		jsonBody(`{"features":[{"attributes":{"a":1}}]}`))

	ext := extractArcGIS(t, srv, DefaultSampleOptions())

	assert.Nil(t, ext.Fields)
	assert.Len(t, ext.Records, 1)
}

func TestArcGISExtractor_QueryFails(t *testing.T) {
	srv := arcgisServer(t,
		jsonBody(`{"fields":[{"name":"a"}]}`), nil)

	ext := extractArcGIS(t, srv, DefaultSampleOptions())

	assert.Equal(t, []string{"a"}, ext.Fields)
	assert.Nil(t, ext.Records)
}

func TestArcGISExtractor_BothFail(t *testing.T) {
	srv := arcgisServer(t, nil, nil)

	ext := extractArcGIS(t, srv, DefaultSampleOptions())

	assert.Nil(t, ext.Fields)
	assert.Nil(t, ext.Records)
}

func TestArcGISExtractor_ErrorEnvelope(t *testing.T) {
	envelope := `{"error":{"code":499,"message":"Token Required"}}`
	srv := arcgisServer(t, jsonBody(envelope), jsonBody(envelope))

	ext := extractArcGIS(t, srv, DefaultSampleOptions())

	assert.Nil(t, ext.Fields)
	assert.Nil(t, ext.Records)
}

func TestArcGISExtractor_ClientSideCap(t *testing.T) {
	features := make([]string, 25)
	for i := range features {
		features[i] = fmt.Sprintf(`{"attributes":{"id":%d}}`, i)
	}
	srv := arcgisServer(t,
		jsonBody(`{"fields":[{"name":"id"}]}`),
		jsonBody(`{"features":[`+strings.Join(features, ",")+`]}`))

	ext := extractArcGIS(t, srv, DefaultSampleOptions())

	assert.Len(t, ext.Records, DefaultSampleLimit)
}

func TestArcGISExtractor_NullAttributes(t *testing.T) {
	srv := arcgisServer(t,
		jsonBody(`{"fields":[]}`),
		jsonBody(`{"features":[{"attributes":null},{"geometry":{}}]}`))

	ext := extractArcGIS(t, srv, DefaultSampleOptions())

	assert.NotNil(t, ext.Fields)
	assert.Empty(t, ext.Fields)
	require.Len(t, ext.Records, 2)
	assert.Zero(t, ext.Records[0].Len())
	assert.Zero(t, ext.Records[1].Len())
}

func TestArcGISExtractor_TrailingSlash(t *testing.T) {
	var hits sync.Map
	mux := http.NewServeMux()
	mux.HandleFunc(layerPath+"/", func(w http.ResponseWriter, r *http.Request) {
		hits.Store(r.URL.Path, true)
		jsonBody(`{"fields":[],"features":[]}`)(w, r)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	e := NewArcGISExtractor(newTestFetcher(srv))
	_, err := e.Extract(context.Background(), Source{URL: srv.URL + layerPath + "/"}, DefaultSampleOptions())
	require.NoError(t, err)

	_, ok := hits.Load(layerPath + "/query")
	assert.True(t, ok, "query endpoint is joined without a double slash")
}
