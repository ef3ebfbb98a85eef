// Package backend is the REST client for the remote portal API. It owns
// nothing: every call is a single attempt whose raw payload is handed to
// the normalizer by the synchronizers.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"boltvisa/internal/common/config"
	apperrors "boltvisa/internal/common/errors"
	commonhttp "boltvisa/internal/common/http"
	"boltvisa/internal/common/logger"
)

// CredentialSource supplies the current bearer credential. An empty
// string means the call goes out unauthenticated.
type CredentialSource interface {
	Credential() string
}

// Client talks to the portal backend.
type Client struct {
	baseURL    string
	deviceType string
	httpClient *commonhttp.Client
	creds      CredentialSource
	log        logger.Logger
}

// NewClient creates a backend client.
func NewClient(cfg config.BackendConfig, creds CredentialSource, log logger.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		deviceType: cfg.DeviceType,
		httpClient: commonhttp.NewClient(cfg.RequestTimeout()),
		creds:      creds,
		log:        log.WithFields(map[string]interface{}{"component": "backend"}),
	}
}

// Login authenticates and returns the raw login payload. Non-2xx
// responses surface as AUTH_ERROR regardless of the backend's status
// code, since the portal reports bad credentials inconsistently.
func (c *Client) Login(ctx context.Context, email, password string) ([]byte, error) {
	body := map[string]interface{}{
		"email":      email,
		"password":   password,
		"deviceType": c.deviceType,
	}
	status, payload, err := c.doRequest(ctx, http.MethodPost, "/auth/login", nil, body, false)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		msg := backendMessage(payload)
		if msg == "" {
			msg = "Invalid credentials"
		}
		return nil, apperrors.NewAuthError(msg)
	}
	return payload, nil
}

// ViewUserProfile fetches a user's profile.
func (c *Client) ViewUserProfile(ctx context.Context, userID string) ([]byte, error) {
	return c.doJSON(ctx, http.MethodPost, "/admin/viewUserProfile", nil, map[string]interface{}{
		"userId": userID,
	})
}

// UpdateProfile edits a user profile (also used for session self-edit).
func (c *Client) UpdateProfile(ctx context.Context, updates map[string]interface{}) ([]byte, error) {
	return c.doJSON(ctx, http.MethodPost, "/admin/updateprofile", nil, updates)
}

// Register creates a new portal user.
func (c *Client) Register(ctx context.Context, payload map[string]interface{}) ([]byte, error) {
	return c.doJSON(ctx, http.MethodPost, "/admin/register", nil, payload)
}

// ListUsers fetches a page of users.
func (c *Client) ListUsers(ctx context.Context, page, limit int) ([]byte, error) {
	q := url.Values{}
	q.Set("page", fmt.Sprintf("%d", page))
	q.Set("limit", fmt.Sprintf("%d", limit))
	return c.doJSON(ctx, http.MethodGet, "/admin/users", q, nil)
}

// DeleteUser removes a portal user.
func (c *Client) DeleteUser(ctx context.Context, id string) ([]byte, error) {
	return c.doJSON(ctx, http.MethodDelete, "/admin/users/"+url.PathEscape(id), nil, nil)
}

// ListApplications fetches a page of visa cases.
func (c *Client) ListApplications(ctx context.Context, page, limit int) ([]byte, error) {
	q := url.Values{}
	q.Set("page", fmt.Sprintf("%d", page))
	q.Set("limit", fmt.Sprintf("%d", limit))
	return c.doJSON(ctx, http.MethodGet, "/application", q, nil)
}

// CreateApplication creates a visa case. The route's misspelling is the
// backend's, not ours.
func (c *Client) CreateApplication(ctx context.Context, payload map[string]interface{}) ([]byte, error) {
	return c.doJSON(ctx, http.MethodPost, "/application/create-applicaiton", nil, payload)
}

// UpdateApplicationStatus issues the status-only update used by
// approve/reject.
func (c *Client) UpdateApplicationStatus(ctx context.Context, applicationID string, status, caseID string) ([]byte, error) {
	return c.doJSON(ctx, http.MethodPost, "/application/update-application-status", nil, map[string]interface{}{
		"applicationId": applicationID,
		"status":        status,
		"caseId":        caseID,
	})
}

// UpdateApplication issues a full structural edit.
func (c *Client) UpdateApplication(ctx context.Context, id string, updates map[string]interface{}) ([]byte, error) {
	q := url.Values{}
	q.Set("id", id)
	return c.doJSON(ctx, http.MethodPost, "/application/update-application", q, updates)
}

// DeleteApplication removes a visa case.
func (c *Client) DeleteApplication(ctx context.Context, id string) ([]byte, error) {
	return c.doJSON(ctx, http.MethodDelete, "/applications/"+url.PathEscape(id), nil, nil)
}

// doJSON executes an authenticated request and maps non-2xx responses
// to BACKEND_ERROR carrying the backend's message.
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body interface{}) ([]byte, error) {
	status, payload, err := c.doRequest(ctx, method, path, query, body, true)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, apperrors.NewBackendError(status, backendMessage(payload))
	}
	return payload, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body interface{}, authed bool) (int, []byte, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, apperrors.NewValidationError("Failed to serialize request", err.Error())
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return 0, nil, apperrors.NewNetworkError(err)
	}

	req.Header.Set("Content-Type", "application/json")
	if authed {
		if token := c.creds.Credential(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("backend request failed", map[string]interface{}{
			"method": method,
			"path":   path,
			"error":  err.Error(),
		})
		return 0, nil, apperrors.NewNetworkError(err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, apperrors.NewNetworkError(err)
	}

	return resp.StatusCode, payload, nil
}

// backendMessage extracts the backend's own error message.
func backendMessage(payload []byte) string {
	if v := gjson.GetBytes(payload, "message"); v.Exists() {
		return v.String()
	}
	if v := gjson.GetBytes(payload, "error"); v.Type == gjson.String {
		return v.String()
	}
	return ""
}
