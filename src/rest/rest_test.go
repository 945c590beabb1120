package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestSendsAuthHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bot secret", r.Header.Get("Authorization"))
		assert.Contains(t, r.Header.Get("Content-Type"), "application/json")
		w.Write([]byte(`{"id":"1","username":"wumpus"}`))
	}))
	defer server.Close()

	r := NewRESTWithBaseURL("secret", server.URL)
	raw, err := r.Get(context.Background(), "/users/1", nil)
	require.NoError(t, err)

	var user struct {
		Username string `json:"username"`
	}
	require.NoError(t, json.Unmarshal(raw, &user))
	assert.Equal(t, "wumpus", user.Username)
}

func TestRequestMapsPermissionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"code":50013,"message":"Missing Permissions"}`))
	}))
	defer server.Close()

	r := NewRESTWithBaseURL("secret", server.URL)
	_, err := r.Get(context.Background(), "/guilds/1/bans/2", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPermission)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, uint(50013), apiErr.Code)
}

func TestRequestRetriesRateLimitOnce(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0.01")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"code":0,"message":"You are being rate limited."}`))
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	r := NewRESTWithBaseURL("secret", server.URL)
	_, err := r.Get(context.Background(), "/channels/1/messages", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRequestSurfacesPersistentRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "0.01")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"code":0,"message":"You are being rate limited."}`))
	}))
	defer server.Close()

	r := NewRESTWithBaseURL("secret", server.URL)
	_, err := r.Get(context.Background(), "/channels/1/messages", nil)
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestRequestMapsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"code":10013,"message":"Unknown User"}`))
	}))
	defer server.Close()

	r := NewRESTWithBaseURL("secret", server.URL)
	_, err := r.Get(context.Background(), "/users/0", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}
