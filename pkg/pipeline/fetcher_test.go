package pipeline_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/enviromon/enviromon/pkg/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcher_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		w.Write([]byte("Temp: 22.0 C, Hum: 45.0 %, Light: 60 %, Dist: 50 cm\n"))
	}))
	defer srv.Close()

	f := pipeline.NewFetcher(srv.URL, "secret", time.Second)
	line, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Temp: 22.0 C, Hum: 45.0 %, Light: 60 %, Dist: 50 cm", line)
}

func TestFetcher_NoAPIKeyHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present := r.Header["X-Api-Key"]
		assert.False(t, present)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := pipeline.NewFetcher(srv.URL, "", time.Second)
	_, err := f.Fetch(context.Background())
	require.NoError(t, err)
}

func TestFetcher_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := pipeline.NewFetcher(srv.URL, "", time.Second)
	_, err := f.Fetch(context.Background())
	require.Error(t, err)

	var fetchErr *pipeline.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, http.StatusServiceUnavailable, fetchErr.StatusCode)
	assert.Equal(t, "Bridge HTTP error: 503", fetchErr.PublicMessage())
}

func TestFetcher_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	f := pipeline.NewFetcher(srv.URL, "", time.Second)
	_, err := f.Fetch(context.Background())
	require.Error(t, err)

	var fetchErr *pipeline.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Zero(t, fetchErr.StatusCode)
	assert.Contains(t, fetchErr.PublicMessage(), "Network error:")
}
