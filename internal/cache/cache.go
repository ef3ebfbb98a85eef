// Package cache is the persistent local mirror of each collection plus
// credential and login-audit storage. It is the degraded-mode data
// source when the backend has not yet answered, and the system of
// record for purely local entities (expenses).
//
// Records are stored individually as hash fields keyed by record id, so
// two writers touching different records of the same collection cannot
// clobber each other.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"boltvisa/internal/common/config"
	apperrors "boltvisa/internal/common/errors"
	"boltvisa/internal/common/logger"
	"boltvisa/internal/models"
)

const loginHistoryPrefix = "bolt_visa_login_history"

// Cache mirrors collections into redis.
type Cache struct {
	rdb  *redis.Client
	cfg  config.CacheConfig
	auth config.AuthConfig
	log  logger.Logger
	now  func() time.Time
}

// New creates a Cache over an established redis client.
func New(rdb *redis.Client, cfg config.CacheConfig, auth config.AuthConfig, log logger.Logger) *Cache {
	return &Cache{
		rdb:  rdb,
		cfg:  cfg,
		auth: auth,
		log:  log.WithFields(map[string]interface{}{"component": "cache"}),
		now:  time.Now,
	}
}

// Collection keys.
func (c *Cache) DealsKey() string    { return c.cfg.DealsKey }
func (c *Cache) UsersKey() string    { return c.cfg.UsersKey }
func (c *Cache) ExpensesKey() string { return c.cfg.ExpensesKey }

// PutRecord writes one record into a collection mirror.
func (c *Cache) PutRecord(ctx context.Context, key, id string, rec interface{}) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return apperrors.NewStorageError("put", err)
	}
	if err := c.rdb.HSet(ctx, key, id, data).Err(); err != nil {
		return apperrors.NewStorageError("put", err)
	}
	return nil
}

// ReplaceAll atomically replaces a collection mirror with the given
// records, keyed by id.
func (c *Cache) ReplaceAll(ctx context.Context, key string, recs map[string]interface{}) error {
	pipe := c.rdb.TxPipeline()
	pipe.Del(ctx, key)
	if len(recs) > 0 {
		flat := make([]interface{}, 0, len(recs)*2)
		for id, rec := range recs {
			data, err := json.Marshal(rec)
			if err != nil {
				return apperrors.NewStorageError("replace", err)
			}
			flat = append(flat, id, data)
		}
		pipe.HSet(ctx, key, flat...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.NewStorageError("replace", err)
	}
	return nil
}

// Records returns the raw JSON of every record in a collection mirror.
func (c *Cache) Records(ctx context.Context, key string) ([][]byte, error) {
	vals, err := c.rdb.HVals(ctx, key).Result()
	if err != nil {
		return nil, apperrors.NewStorageError("records", err)
	}
	out := make([][]byte, 0, len(vals))
	for _, v := range vals {
		out = append(out, []byte(v))
	}
	return out, nil
}

// DeleteRecord removes one record from a collection mirror.
func (c *Cache) DeleteRecord(ctx context.Context, key, id string) error {
	if err := c.rdb.HDel(ctx, key, id).Err(); err != nil {
		return apperrors.NewStorageError("delete", err)
	}
	return nil
}

// SetCredential persists the bearer credential with its configured
// expiry so a restart can resume the session.
func (c *Cache) SetCredential(ctx context.Context, token string) error {
	if err := c.rdb.Set(ctx, c.auth.CredentialKey, token, c.auth.TTL()).Err(); err != nil {
		return apperrors.NewStorageError("set_credential", err)
	}
	return nil
}

// Credential returns the persisted credential, or empty when none exists.
func (c *Cache) Credential(ctx context.Context) (string, error) {
	val, err := c.rdb.Get(ctx, c.auth.CredentialKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", apperrors.NewStorageError("credential", err)
	}
	return val, nil
}

// ClearCredential removes the persisted credential.
func (c *Cache) ClearCredential(ctx context.Context) error {
	if err := c.rdb.Del(ctx, c.auth.CredentialKey).Err(); err != nil {
		return apperrors.NewStorageError("clear_credential", err)
	}
	return nil
}

// SetSessionUser mirrors the authenticated identity so a restart can
// rebuild the session without a profile fetch.
func (c *Cache) SetSessionUser(ctx context.Context, u models.User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return apperrors.NewStorageError("set_session", err)
	}
	if err := c.rdb.Set(ctx, c.cfg.SessionKey, data, c.auth.TTL()).Err(); err != nil {
		return apperrors.NewStorageError("set_session", err)
	}
	return nil
}

// SessionUser returns the mirrored identity, or nil when none exists.
func (c *Cache) SessionUser(ctx context.Context) (*models.User, error) {
	val, err := c.rdb.Get(ctx, c.cfg.SessionKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewStorageError("session", err)
	}
	var u models.User
	if err := json.Unmarshal([]byte(val), &u); err != nil {
		return nil, apperrors.NewStorageError("session", err)
	}
	return &u, nil
}

// ClearSessionUser removes the mirrored identity.
func (c *Cache) ClearSessionUser(ctx context.Context) error {
	if err := c.rdb.Del(ctx, c.cfg.SessionKey).Err(); err != nil {
		return apperrors.NewStorageError("clear_session", err)
	}
	return nil
}

// RecordLogin appends a login-history audit entry. At most one entry is
// kept per user per calendar day; the first login of the day wins.
// Returns whether a new entry was written.
func (c *Cache) RecordLogin(ctx context.Context, entry models.LoginHistoryEntry) (bool, error) {
	if entry.Date == "" {
		entry.Date = c.now().UTC().Format("2006-01-02")
	}
	if entry.LoginAt == "" {
		entry.LoginAt = c.now().UTC().Format(time.RFC3339)
	}

	key := loginHistoryPrefix + ":" + entry.UserID + ":" + entry.Date
	data, err := json.Marshal(entry)
	if err != nil {
		return false, apperrors.NewStorageError("record_login", err)
	}

	created, err := c.rdb.SetNX(ctx, key, data, c.cfg.HistoryTTL()).Result()
	if err != nil {
		return false, apperrors.NewStorageError("record_login", err)
	}
	return created, nil
}

// LoginHistory returns the audit entries for a user, newest unordered.
func (c *Cache) LoginHistory(ctx context.Context, userID string) ([]models.LoginHistoryEntry, error) {
	pattern := loginHistoryPrefix + ":" + userID + ":*"
	var entries []models.LoginHistoryEntry

	iter := c.rdb.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		val, err := c.rdb.Get(ctx, iter.Val()).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, apperrors.NewStorageError("login_history", err)
		}
		var entry models.LoginHistoryEntry
		if err := json.Unmarshal([]byte(val), &entry); err != nil {
			c.log.Warn("skipping corrupt login history entry", map[string]interface{}{
				"key": iter.Val(),
			})
			continue
		}
		entries = append(entries, entry)
	}
	if err := iter.Err(); err != nil {
		return nil, apperrors.NewStorageError("login_history", err)
	}
	return entries, nil
}
