package core

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func csvBody(n int) string {
	var b strings.Builder
	b.WriteString("attribute 1,attribute 2\n")
	for i := range n {
		fmt.Fprintf(&b, "value %d,%d\n", i, i)
	}
	return b.String()
}

func extractCSV(t *testing.T, srv *httptest.Server, opts SampleOptions) (*Extraction, error) {
	t.Helper()
	e := NewCSVExtractor(newTestFetcher(srv))
	return e.Extract(context.Background(), Source{URL: srv.URL + "/data.csv", Format: FormatCSV}, opts)
}

func TestCSVExtractor_CapsAtLimit(t *testing.T) {
	srv := serveBody(t, csvBody(11))

	ext, err := extractCSV(t, srv, DefaultSampleOptions())

	require.NoError(t, err)
	assert.Equal(t, []string{"attribute 1", "attribute 2"}, ext.Fields)
	require.Len(t, ext.Records, 10)
	assert.Equal(t, OutcomeCapReached, ext.Outcome)
	assert.True(t, ext.Cancelled, "transfer is aborted at the limit")

	v, _ := ext.Records[0].Get("attribute 2")
	assert.Equal(t, "0", v, "cells stay strings")
}

func TestCSVExtractor_FewerThanLimit(t *testing.T) {
	srv := serveBody(t, csvBody(2))

	ext, err := extractCSV(t, srv, DefaultSampleOptions())

	require.NoError(t, err)
	assert.Equal(t, []string{"attribute 1", "attribute 2"}, ext.Fields)
	assert.Len(t, ext.Records, 2)
	assert.Equal(t, OutcomeEndOfData, ext.Outcome)
	assert.False(t, ext.Cancelled)
}

func TestCSVExtractor_HeaderOnly(t *testing.T) {
	srv := serveBody(t, "attribute 1,attribute 2\n")

	ext, err := extractCSV(t, srv, DefaultSampleOptions())

	require.NoError(t, err)
	assert.NotNil(t, ext.Fields)
	assert.Empty(t, ext.Fields)
	assert.NotNil(t, ext.Records)
	assert.Empty(t, ext.Records)
}

func TestCSVExtractor_EmptyBody(t *testing.T) {
	srv := serveBody(t, "")

	_, err := extractCSV(t, srv, DefaultSampleOptions())

	assert.ErrorIs(t, err, ErrMissingHeader)
	assert.ErrorIs(t, err, ErrMalformedBody)
}

func TestCSVExtractor_RowShapes(t *testing.T) {
	body := "\xEF\xBB\xBFid,name,id\r\n" +
		"\r\n" +
		"1,alpha,9\r\n" +
		"2\r\n" +
		"3,gamma,7,extra\r\n"
	srv := serveBody(t, body)

	ext, err := extractCSV(t, srv, DefaultSampleOptions())

	require.NoError(t, err)
	require.Len(t, ext.Records, 3, "blank lines are skipped")

	assert.Equal(t, []string{"id", "name"}, ext.Fields, "BOM stripped and duplicate header collapsed")
	id, _ := ext.Records[0].Get("id")
	assert.Equal(t, "9", id, "later duplicate column wins")

	assert.Equal(t, []string{"id"}, RecordKeys(ext.Records[1]), "short row omits missing columns")
	assert.Equal(t, 2, ext.Records[2].Len(), "extra cells are dropped")
}

func TestCSVExtractor_Delimiter(t *testing.T) {
	srv := serveBody(t, "a;b\n1;2\n")
	opts := DefaultSampleOptions()
	opts.CSV.Comma = ';'

	ext, err := extractCSV(t, srv, opts)

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ext.Fields)
	b, _ := ext.Records[0].Get("b")
	assert.Equal(t, "2", b)
}

func TestCSVExtractor_Quotes(t *testing.T) {
	body := "a,b\n\"x, y\",\"say \"\"hi\"\"\"\nbad\"quote,2\n"

	t.Run("lazy", func(t *testing.T) {
		srv := serveBody(t, body)

		ext, err := extractCSV(t, srv, DefaultSampleOptions())

		require.NoError(t, err)
		require.Len(t, ext.Records, 2)
		a, _ := ext.Records[0].Get("a")
		assert.Equal(t, "x, y", a)
		b, _ := ext.Records[0].Get("b")
		assert.Equal(t, `say "hi"`, b)
	})

	t.Run("strict", func(t *testing.T) {
		srv := serveBody(t, body)
		opts := DefaultSampleOptions()
		opts.CSV.LazyQuotes = false

		ext, err := extractCSV(t, srv, opts)

		assert.ErrorIs(t, err, ErrMalformedBody)
		require.NotNil(t, ext)
		assert.Len(t, ext.Records, 1, "rows before the bad one are kept")
	})
}

func TestCSVExtractor_InvalidUTF8(t *testing.T) {
	srv := serveBody(t, "name\nbad\x80byte\n")

	ext, err := extractCSV(t, srv, DefaultSampleOptions())

	require.NoError(t, err)
	v, _ := ext.Records[0].Get("name")
	assert.Equal(t, "bad?byte", v)
}

func TestCSVExtractor_UpstreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	ext, err := extractCSV(t, srv, DefaultSampleOptions())

	assert.Nil(t, ext)
	var statusErr *StatusError
	assert.ErrorAs(t, err, &statusErr)
}

func TestCSVExtractor_CancelsEndlessSource(t *testing.T) {
	aborted := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer close(aborted)
		flusher := w.(http.Flusher)
		fmt.Fprint(w, "id,name\n")
		for i := 0; ; i++ {
			if _, err := fmt.Fprintf(w, "%d,row %d\n", i, i); err != nil {
				return
			}
			flusher.Flush()
			select {
			case <-r.Context().Done():
				return
			default:
			}
		}
	}))
	defer srv.Close()

	ext, err := extractCSV(t, srv, DefaultSampleOptions())

	require.NoError(t, err)
	require.Len(t, ext.Records, 10)
	assert.Equal(t, OutcomeCapReached, ext.Outcome)
	assert.True(t, ext.Cancelled, "stream must be cancelled once the limit is reached")
	assert.Equal(t, []string{"id", "name"}, ext.Fields)

	last, _ := ext.Records[9].Get("id")
	assert.Equal(t, "9", last)

	select {
	case <-aborted:
	case <-time.After(5 * time.Second):
		t.Fatal("upstream transfer was not cancelled")
	}
}
