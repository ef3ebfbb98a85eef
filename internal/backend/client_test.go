// internal/backend/client_test.go
package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boltvisa/internal/common/config"
	apperrors "boltvisa/internal/common/errors"
	"boltvisa/internal/common/logger"
)

// ==========================
// Test Helper Functions
// ==========================

type staticCreds string

func (s staticCreds) Credential() string { return string(s) }

func createTestClient(t *testing.T, handler http.Handler, token string) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.BackendConfig{
		BaseURL:    srv.URL,
		Timeout:    5000,
		DeviceType: "web",
	}
	return NewClient(cfg, staticCreds(token), logger.NewTestLogger(t)), srv
}

// ==========================
// Authentication Tests
// ==========================

func TestClient_Login_Success(t *testing.T) {
	var gotBody map[string]interface{}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"), "login goes out unauthenticated")

		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"data":{"id":"u1","token":"tok-1"}}`))
	})
	c, _ := createTestClient(t, handler, "")

	payload, err := c.Login(context.Background(), "a@b.com", "secret")
	require.NoError(t, err)
	assert.Contains(t, string(payload), "tok-1")

	assert.Equal(t, "a@b.com", gotBody["email"])
	assert.Equal(t, "web", gotBody["deviceType"])
}

func TestClient_Login_BadCredentials(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Invalid email or password"}`))
	})
	c, _ := createTestClient(t, handler, "")

	_, err := c.Login(context.Background(), "a@b.com", "wrong")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeAuth))

	var serr *apperrors.StandardError
	require.ErrorAs(t, err, &serr)
	assert.Contains(t, serr.Details, "Invalid email or password")
}

func TestClient_AuthorizationHeader(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-99", r.Header.Get("Authorization"))
		w.Write([]byte(`{"data":[]}`))
	})
	c, _ := createTestClient(t, handler, "tok-99")

	_, err := c.ListUsers(context.Background(), 1, 10)
	require.NoError(t, err)
}

// ==========================
// Error Mapping Tests
// ==========================

func TestClient_BackendError(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantMessage   string
		wantRetryable bool
	}{
		{
			name:          "client error is terminal",
			status:        http.StatusBadRequest,
			body:          `{"message":"bad input"}`,
			wantMessage:   "bad input",
			wantRetryable: false,
		},
		{
			name:          "server error is retryable",
			status:        http.StatusBadGateway,
			body:          `{"error":"upstream down"}`,
			wantMessage:   "upstream down",
			wantRetryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			c, _ := createTestClient(t, handler, "tok")

			_, err := c.ListApplications(context.Background(), 1, 10)
			require.Error(t, err)

			var serr *apperrors.StandardError
			require.ErrorAs(t, err, &serr)
			assert.Equal(t, apperrors.ErrCodeBackend, serr.Code)
			assert.Equal(t, tt.wantRetryable, serr.Retryable)
			assert.Contains(t, serr.Message, tt.wantMessage)
		})
	}
}

func TestClient_NetworkError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	c, srv := createTestClient(t, handler, "tok")
	srv.Close()

	_, err := c.ListApplications(context.Background(), 1, 10)
	require.Error(t, err)

	var serr *apperrors.StandardError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, apperrors.ErrCodeNetwork, serr.Code)
	assert.True(t, serr.Retryable)
}

// ==========================
// Endpoint Routing Tests
// ==========================

func TestClient_Routes(t *testing.T) {
	type captured struct {
		method string
		path   string
		query  string
	}
	var got captured

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = captured{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery}
		w.Write([]byte(`{"success":true}`))
	})
	c, _ := createTestClient(t, handler, "tok")
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
		want captured
	}{
		{
			name: "list applications",
			call: func() error { _, err := c.ListApplications(ctx, 2, 25); return err },
			want: captured{"GET", "/application", "limit=25&page=2"},
		},
		{
			name: "create application keeps the backend's route spelling",
			call: func() error {
				_, err := c.CreateApplication(ctx, map[string]interface{}{"applyFor": "Albania"})
				return err
			},
			want: captured{"POST", "/application/create-applicaiton", ""},
		},
		{
			name: "update application status",
			call: func() error { _, err := c.UpdateApplicationStatus(ctx, "a1", "approved", "ALB001"); return err },
			want: captured{"POST", "/application/update-application-status", ""},
		},
		{
			name: "update application",
			call: func() error {
				_, err := c.UpdateApplication(ctx, "a1", map[string]interface{}{"notes": "x"})
				return err
			},
			want: captured{"POST", "/application/update-application", "id=a1"},
		},
		{
			name: "delete application",
			call: func() error { _, err := c.DeleteApplication(ctx, "a1"); return err },
			want: captured{"DELETE", "/applications/a1", ""},
		},
		{
			name: "list users",
			call: func() error { _, err := c.ListUsers(ctx, 1, 10); return err },
			want: captured{"GET", "/admin/users", "limit=10&page=1"},
		},
		{
			name: "view user profile",
			call: func() error { _, err := c.ViewUserProfile(ctx, "u1"); return err },
			want: captured{"POST", "/admin/viewUserProfile", ""},
		},
		{
			name: "register",
			call: func() error {
				_, err := c.Register(ctx, map[string]interface{}{"email": "a@b.com"})
				return err
			},
			want: captured{"POST", "/admin/register", ""},
		},
		{
			name: "delete user",
			call: func() error { _, err := c.DeleteUser(ctx, "u1"); return err },
			want: captured{"DELETE", "/admin/users/u1", ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.call())
			assert.Equal(t, tt.want, got)
		})
	}
}
