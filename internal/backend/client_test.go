package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterActivityPushToken(t *testing.T) {
	t.Parallel()

	var got registerTokenRequest
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/push-tokens/activity", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(registerTokenResponse{Success: true})
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", "access-token", "development")
	err := client.RegisterActivityPushToken(context.Background(), "tok-1", "act-1", "session-1")
	require.NoError(t, err)

	assert.Equal(t, "Bearer access-token", gotAuth)
	assert.Equal(t, registerTokenRequest{
		Token:       "tok-1",
		ActivityID:  "act-1",
		SessionID:   "session-1",
		Environment: "development",
	}, got)
}

func TestRegisterActivityPushTokenRejected(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(registerTokenResponse{Success: false, Error: "unknown session"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "production")
	err := client.RegisterActivityPushToken(context.Background(), "tok-1", "act-1", "session-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown session")
}

func TestRegisterActivityPushTokenHTTPError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "production")
	err := client.RegisterActivityPushToken(context.Background(), "tok-1", "act-1", "session-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestInvalidatePushToken(t *testing.T) {
	t.Parallel()

	var got invalidateTokenRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/push-tokens/invalidate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, "access-token", "production")
	require.NoError(t, client.InvalidatePushToken(context.Background(), "activity", "tok-1"))
	assert.Equal(t, invalidateTokenRequest{Kind: "activity", Token: "tok-1"}, got)
}

func TestCancelledContextAborts(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(server.URL, "", "production")
	err := client.RegisterActivityPushToken(ctx, "tok-1", "act-1", "session-1")
	require.Error(t, err)
}
