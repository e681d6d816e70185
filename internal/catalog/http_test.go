package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPLookupParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ep1", r.URL.Query().Get("contentId"))
		_, _ = w.Write([]byte(`{"title":"Episode Name","year":2024,"show":"Some Show","season":2,"episode":5}`))
	}))
	defer srv.Close()

	l := NewHTTPLookup(srv.Client(), srv.URL)
	info, err := l.Lookup(context.Background(), "ep1")
	require.NoError(t, err)
	assert.Equal(t, "Episode Name", info.Title)
	assert.Equal(t, "Some Show", info.Show)
	assert.Equal(t, 2, info.Season)
	assert.Equal(t, 5, info.Episode)
}

func TestHTTPLookupErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	l := NewHTTPLookup(srv.Client(), srv.URL)
	_, err := l.Lookup(context.Background(), "ep1")
	require.Error(t, err)
}
