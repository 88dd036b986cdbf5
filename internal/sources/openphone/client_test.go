package openphone

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careops/visitsync/pkg/errors"
	"github.com/careops/visitsync/pkg/records"
)

func TestFetch(t *testing.T) {
	var gotAuth, gotAfter string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/calls", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotAfter = r.URL.Query().Get("createdAfter")
		w.Write([]byte(`{"data": [
			{"callId": "call-1", "from": "15125551234"},
			{"callId": "call-2", "from": "15125559999"}
		]}`))
	}))
	defer srv.Close()

	c := New("op-key", WithBaseURL(srv.URL))
	assert.Equal(t, records.SystemOpenPhone, c.ID())

	raws, err := c.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, raws, 2)
	assert.Equal(t, "op-key", gotAuth)
	assert.NotEmpty(t, gotAfter)
}

func TestFetchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New("op-key", WithBaseURL(srv.URL))
	_, err := c.Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
}
