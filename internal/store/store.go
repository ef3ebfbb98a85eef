package store

import (
	"context"

	"boltvisa/internal/backend"
	"boltvisa/internal/cache"
	"boltvisa/internal/common/config"
	"boltvisa/internal/common/logger"
	"boltvisa/internal/common/observability"
	"boltvisa/internal/models"
	"boltvisa/internal/rules"
)

// Store is the application-state container. Callers construct as many
// as they need; nothing here is process-global.
type Store struct {
	session  *SessionStore
	deals    *Collection[models.Case]
	users    *Collection[models.User]
	expenses *ExpenseLedger

	api   *backend.Client
	cache *cache.Cache
	rules *rules.Engine
	obs   *observability.Observability
	log   logger.Logger
}

// New wires the container. The session is built first and handed to
// the backend client as its credential source, then bound back.
func New(cfg *config.Config, c *cache.Cache, obs *observability.Observability, log logger.Logger) *Store {
	session := NewSessionStore(c, cfg.Backend.DeviceType, log)
	api := backend.NewClient(cfg.Backend, session, log)
	session.Bind(api)

	engine := rules.New(log)

	return &Store{
		session:  session,
		deals:    newCollection[models.Case]("applications", c.DealsKey(), c, log),
		users:    newCollection[models.User]("users", c.UsersKey(), c, log),
		expenses: NewExpenseLedger(c, engine, log),
		api:      api,
		cache:    c,
		rules:    engine,
		obs:      obs,
		log:      log.WithFields(map[string]interface{}{"component": "store"}),
	}
}

// Session returns the session store.
func (s *Store) Session() *SessionStore { return s.session }

// Deals returns the case synchronizer.
func (s *Store) Deals() *Collection[models.Case] { return s.deals }

// Users returns the user synchronizer.
func (s *Store) Users() *Collection[models.User] { return s.users }

// Expenses returns the expense ledger.
func (s *Store) Expenses() *ExpenseLedger { return s.expenses }

// Startup resumes any persisted session and loads the expense ledger.
func (s *Store) Startup(ctx context.Context) error {
	resumed, err := s.session.Resume(ctx)
	if err != nil {
		s.log.WithError(err).Warn("session resume failed", nil)
	} else if resumed {
		s.log.Info("session resumed", nil)
	}
	return s.expenses.Load(ctx)
}

func (s *Store) record(ctx context.Context, collection string, err error) {
	if s.obs == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	s.obs.RecordOperation(ctx, collection, status)
}
