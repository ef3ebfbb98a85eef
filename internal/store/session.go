package store

import (
	"context"
	"encoding/json"
	"sync"

	"boltvisa/internal/backend"
	"boltvisa/internal/cache"
	apperrors "boltvisa/internal/common/errors"
	"boltvisa/internal/common/logger"
	"boltvisa/internal/models"
	"boltvisa/internal/normalize"
)

// SessionStore holds the authenticated identity and its credential. It
// implements backend.CredentialSource, so every authenticated request
// reads the live token. The credential and identity are mirrored to the
// cache for cold-start resume.
type SessionStore struct {
	mu         sync.Mutex
	user       *models.User
	credential string
	loading    bool
	lastError  string

	api        *backend.Client
	cache      *cache.Cache
	deviceType string
	log        logger.Logger
}

// NewSessionStore creates an unauthenticated session. Bind attaches
// the backend client once it exists; the client depends on the session
// for credentials, so construction is two-phase.
func NewSessionStore(c *cache.Cache, deviceType string, log logger.Logger) *SessionStore {
	return &SessionStore{
		cache:      c,
		deviceType: deviceType,
		log:        log.WithFields(map[string]interface{}{"component": "session"}),
	}
}

// Bind attaches the backend client.
func (s *SessionStore) Bind(api *backend.Client) { s.api = api }

var _ backend.CredentialSource = (*SessionStore)(nil)

// Credential returns the live token. Satisfies backend.CredentialSource.
func (s *SessionStore) Credential() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credential
}

// Current returns a copy of the authenticated user, nil when logged out.
func (s *SessionStore) Current() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Authenticated reports whether an identity is materialized.
func (s *SessionStore) Authenticated() bool { return s.Current() != nil }

// Loading reports whether a session operation is in flight.
func (s *SessionStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Error returns the last session failure message.
func (s *SessionStore) Error() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// ClearError resets the failure message.
func (s *SessionStore) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = ""
}

func (s *SessionStore) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

func (s *SessionStore) fail(err error, fallback string) error {
	s.mu.Lock()
	s.lastError = apperrors.Message(err, fallback)
	s.loading = false
	s.mu.Unlock()
	return err
}

// Login authenticates, materializes the identity, persists the
// credential and identity mirror, and records at most one login-history
// entry for the day.
func (s *SessionStore) Login(ctx context.Context, email, password string) (*models.User, error) {
	s.setLoading(true)

	payload, err := s.api.Login(ctx, email, password)
	if err != nil {
		return nil, s.fail(err, "Login failed")
	}

	u, err := decodeUser(payload)
	if err != nil {
		return nil, s.fail(err, "Login failed")
	}

	s.mu.Lock()
	s.user = &u
	s.credential = u.Token
	s.lastError = ""
	s.loading = false
	s.mu.Unlock()

	if cerr := s.cache.SetCredential(ctx, u.Token); cerr != nil {
		s.log.WithError(cerr).Warn("credential persist failed", nil)
	}
	if cerr := s.cache.SetSessionUser(ctx, u); cerr != nil {
		s.log.WithError(cerr).Warn("session mirror failed", nil)
	}
	created, cerr := s.cache.RecordLogin(ctx, models.LoginHistoryEntry{
		UserID:     u.Key(),
		UserName:   u.Name,
		DeviceType: s.deviceType,
	})
	if cerr != nil {
		s.log.WithError(cerr).Warn("login history write failed", nil)
	} else if created {
		s.log.Debug("login recorded", map[string]interface{}{"user_id": u.Key()})
	}

	s.log.Info("user logged in", map[string]interface{}{"user_id": u.Key(), "role": string(u.Role)})
	out := u
	return &out, nil
}

// Logout clears the identity and persisted credential. Always succeeds
// locally even when the cache is unreachable.
func (s *SessionStore) Logout(ctx context.Context) {
	s.mu.Lock()
	s.user = nil
	s.credential = ""
	s.lastError = ""
	s.mu.Unlock()

	if err := s.cache.ClearCredential(ctx); err != nil {
		s.log.WithError(err).Debug("credential clear failed", nil)
	}
	if err := s.cache.ClearSessionUser(ctx); err != nil {
		s.log.WithError(err).Debug("session mirror clear failed", nil)
	}
	s.log.Info("user logged out", nil)
}

// RefreshProfile re-fetches the identity from the backend and replaces
// the materialized user, keeping the current credential.
func (s *SessionStore) RefreshProfile(ctx context.Context, userID string) (*models.User, error) {
	s.setLoading(true)

	payload, err := s.api.ViewUserProfile(ctx, userID)
	if err != nil {
		return nil, s.fail(err, "Failed to fetch profile")
	}

	u, err := decodeUser(payload)
	if err != nil {
		return nil, s.fail(err, "Failed to fetch profile")
	}
	return s.replaceUser(ctx, u), nil
}

// replaceUser swaps the identity, keeping the live credential.
func (s *SessionStore) replaceUser(ctx context.Context, u models.User) *models.User {
	s.mu.Lock()
	u.Token = s.credential
	s.user = &u
	s.lastError = ""
	s.loading = false
	s.mu.Unlock()

	if cerr := s.cache.SetSessionUser(ctx, u); cerr != nil {
		s.log.WithError(cerr).Warn("session mirror failed", nil)
	}
	out := u
	return &out
}

// UpdateProfile pushes profile changes to the backend and merges the
// returned record over the identity.
func (s *SessionStore) UpdateProfile(ctx context.Context, updates map[string]interface{}) (*models.User, error) {
	s.setLoading(true)

	payload, err := s.api.UpdateProfile(ctx, updates)
	if err != nil {
		return nil, s.fail(err, "Failed to update profile")
	}

	raw, ok := normalize.Item(payload)
	s.mu.Lock()
	if ok && s.user != nil {
		merged := *s.user
		if json.Unmarshal(raw, &merged) == nil {
			merged.Token = s.credential
			s.user = &merged
		}
	}
	u := s.user
	s.lastError = ""
	s.loading = false
	s.mu.Unlock()

	if u != nil {
		if cerr := s.cache.SetSessionUser(ctx, *u); cerr != nil {
			s.log.WithError(cerr).Warn("session mirror failed", nil)
		}
		out := *u
		return &out, nil
	}
	return nil, nil
}

// Resume restores a prior session from the persisted credential and
// identity mirror. When a credential exists but no identity is cached,
// or the cached identity may be stale, the profile is refreshed from
// the backend; a refresh failure keeps the cached identity.
func (s *SessionStore) Resume(ctx context.Context) (bool, error) {
	s.mu.Lock()
	already := s.user != nil
	s.mu.Unlock()
	if already {
		return false, nil
	}

	token, err := s.cache.Credential(ctx)
	if err != nil {
		s.log.WithError(err).Warn("credential read failed", nil)
		return false, apperrors.NewStorageError("read credential", err)
	}
	if token == "" {
		return false, nil
	}

	s.mu.Lock()
	s.credential = token
	s.mu.Unlock()

	cached, err := s.cache.SessionUser(ctx)
	if err != nil {
		s.log.WithError(err).Warn("session mirror read failed", nil)
	}
	if cached != nil {
		cached.Token = token
		s.mu.Lock()
		s.user = cached
		s.mu.Unlock()

		if _, rerr := s.RefreshProfile(ctx, cached.Key()); rerr != nil {
			s.log.WithError(rerr).Warn("profile refresh failed, keeping cached identity", nil)
			s.ClearError()
		}
		return true, nil
	}

	// Credential without an identity mirror: the token alone cannot
	// name the user, so the session stays unmaterialized until login.
	s.log.Warn("credential found without identity mirror", nil)
	return false, nil
}

// SyncEarnings reflects an earnings award into the materialized
// identity when the awarded user is the one logged in.
func (s *SessionStore) SyncEarnings(ctx context.Context, u models.User) {
	s.mu.Lock()
	match := s.user != nil && s.user.Key() == u.Key()
	if match {
		s.user.TotalEarnings = u.TotalEarnings
		s.user.MainDeals = u.MainDeals
		s.user.ReferenceDeals = u.ReferenceDeals
	}
	var snapshot models.User
	if match {
		snapshot = *s.user
	}
	s.mu.Unlock()

	if match {
		if cerr := s.cache.SetSessionUser(ctx, snapshot); cerr != nil {
			s.log.WithError(cerr).Warn("session mirror failed", nil)
		}
	}
}

// decodeUser extracts a user record from a session payload.
func decodeUser(payload []byte) (models.User, error) {
	var u models.User
	raw, ok := normalize.Item(payload)
	if !ok {
		return u, apperrors.NewAuthError("Malformed session response")
	}
	if err := json.Unmarshal(raw, &u); err != nil || u.Key() == "" {
		return u, apperrors.NewAuthError("Malformed session response")
	}
	return u, nil
}
