package resolver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alvarorichard/vixstream/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPResolverReturnsURLs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "show1", r.URL.Query().Get("contentId"))
		assert.Equal(t, "en", r.URL.Query().Get("language"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"refererUrl":"https://embed/1","masterPlaylistUrl":"https://cdn/master.m3u8","available":true}`))
	}))
	defer srv.Close()

	r := NewHTTPResolver(srv.Client(), srv.URL)
	referer, master, err := r.Resolve(context.Background(), domain.ContentEpisode, "show1", nil, nil, "en")
	require.NoError(t, err)
	assert.Equal(t, "https://embed/1", referer)
	assert.Equal(t, "https://cdn/master.m3u8", master)
}

func TestHTTPResolverNotAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	r := NewHTTPResolver(srv.Client(), srv.URL)
	_, _, err := r.Resolve(context.Background(), domain.ContentEpisode, "missing", nil, nil, "en")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotAvailable))
}

func TestHTTPResolverUnavailableFlagInBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"available":false}`))
	}))
	defer srv.Close()

	r := NewHTTPResolver(srv.Client(), srv.URL)
	_, _, err := r.Resolve(context.Background(), domain.ContentEpisode, "show1", nil, nil, "fr")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotAvailable))
}
