package lookup

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/psds-microservice/support-chat-service/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchUserReturnsUpstreamBodyVerbatim(t *testing.T) {
	const body = `{"id":"190512504082136065","avatar":"a1b2c3","banner":null}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/190512504082136065", r.URL.Path)
		assert.Equal(t, "Bot secret-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret-token")
	got, err := c.FetchUser(context.Background(), "190512504082136065")
	require.NoError(t, err)
	assert.JSONEq(t, body, string(got))
}

func TestFetchUserWithoutToken(t *testing.T) {
	c := NewClient("http://unused", "")
	_, err := c.FetchUser(context.Background(), "0")
	assert.True(t, errors.Is(err, errs.ErrTokenMissing))
}

func TestFetchUserUpstream404IsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"message":"Unknown User"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret-token")
	_, err := c.FetchUser(context.Background(), "0")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchUserRetriesOn5xx(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "boom", http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"id":"1"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret-token")
	got, err := c.FetchUser(context.Background(), "1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"1"}`, string(got))
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchUserGivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret-token")
	_, err := c.FetchUser(context.Background(), "1")
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}
