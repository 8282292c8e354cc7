package sync_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tenantpkg "github.com/openclaw/gateway-core/pkg/tenant"
	gwsync "github.com/openclaw/gateway-core/svc/sync"
)

func TestCloudClient_VerifyToken_Active(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/verify-token", r.URL.Path)
		assert.Equal(t, "gt_abc", r.URL.Query().Get("token"))
		fmt.Fprint(w, `{"data":{"user_id":"u-1","status":"active","openclaw_config":{"model":"x"}}}`)
	}))
	defer srv.Close()

	c := gwsync.NewCloudClient(srv.URL, "svc-token")
	rec, err := c.VerifyToken(context.Background(), "gt_abc")
	require.NoError(t, err)
	assert.Equal(t, "u-1", rec.UserID)
	assert.Equal(t, tenantpkg.StatusActive, rec.Status)
	assert.Equal(t, "gt_abc", rec.GatewayToken)
	assert.Equal(t, "x", rec.OpenclawConfig["model"])
}

func TestCloudClient_VerifyToken_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := gwsync.NewCloudClient(srv.URL, "svc-token")
	_, err := c.VerifyToken(context.Background(), "bad")
	assert.ErrorIs(t, err, gwsync.ErrUnauthorized)
}

func TestCloudClient_VerifyToken_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := gwsync.NewCloudClient(srv.URL, "svc-token")
	_, err := c.VerifyToken(context.Background(), "gt_abc")
	assert.ErrorIs(t, err, gwsync.ErrTransport)
}

func TestCloudClient_FetchConfigs_SendsBearerAndSince(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/gateway/configs", r.URL.Path)
		assert.Equal(t, "2026-01-01T00:00:00Z", r.URL.Query().Get("since"))
		assert.Equal(t, "Bearer svc-token", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"users":[{"user_id":"u-1","status":"active"}],"syncTimestamp":"2026-01-02T00:00:00Z","hasMore":false}`)
	}))
	defer srv.Close()

	c := gwsync.NewCloudClient(srv.URL, "svc-token")
	page, err := c.FetchConfigs(context.Background(), "2026-01-01T00:00:00Z", "")
	require.NoError(t, err)
	require.Len(t, page.Users, 1)
	assert.Equal(t, "u-1", page.Users[0].UserID)
	assert.False(t, page.HasMore)
}

func TestCloudClient_FetchConfigs_CursorTakesPrecedenceOverSince(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "page-2", r.URL.Query().Get("cursor"))
		assert.Equal(t, "", r.URL.Query().Get("since"))
		fmt.Fprint(w, `{"users":[],"syncTimestamp":"2026-01-02T00:00:00Z","hasMore":false}`)
	}))
	defer srv.Close()

	c := gwsync.NewCloudClient(srv.URL, "svc-token")
	_, err := c.FetchConfigs(context.Background(), "2026-01-01T00:00:00Z", "page-2")
	require.NoError(t, err)
}

func TestCloudClient_FetchConfigs_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := gwsync.NewCloudClient(srv.URL, "svc-token")
	_, err := c.FetchConfigs(context.Background(), "", "")
	assert.ErrorIs(t, err, gwsync.ErrTransport)
}
