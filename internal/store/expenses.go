package store

import (
	"context"
	"encoding/json"
	"sync"

	"boltvisa/internal/cache"
	apperrors "boltvisa/internal/common/errors"
	"boltvisa/internal/common/logger"
	"boltvisa/internal/models"
	"boltvisa/internal/rules"
)

// ExpenseLedger is the expense collection. Unlike deals and users it
// has no backend endpoint: the persisted cache copy is the source of
// truth and every mutation writes through to it.
type ExpenseLedger struct {
	mu        sync.Mutex
	items     []models.Expense
	inflight  map[OpKind]int
	lastError string

	cache *cache.Cache
	rules *rules.Engine
	log   logger.Logger
}

// NewExpenseLedger creates an empty ledger. Load populates it.
func NewExpenseLedger(c *cache.Cache, r *rules.Engine, log logger.Logger) *ExpenseLedger {
	return &ExpenseLedger{
		inflight: make(map[OpKind]int),
		cache:    c,
		rules:    r,
		log:      log.WithFields(map[string]interface{}{"collection": "expenses"}),
	}
}

// Items returns a copy of the current records.
func (l *ExpenseLedger) Items() []models.Expense {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.Expense, len(l.items))
	copy(out, l.items)
	return out
}

// Find returns a copy of the record with the given id.
func (l *ExpenseLedger) Find(id string) (models.Expense, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.items {
		if e.ID == id {
			return e, true
		}
	}
	return models.Expense{}, false
}

// Loading reports whether any ledger operation is in flight.
func (l *ExpenseLedger) Loading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, n := range l.inflight {
		if n > 0 {
			return true
		}
	}
	return false
}

// Error returns the last ledger failure message.
func (l *ExpenseLedger) Error() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastError
}

// ClearError resets the failure message.
func (l *ExpenseLedger) ClearError() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastError = ""
}

// Load reads the persisted records and seeds any missing recurring
// singletons. Loading repeatedly never duplicates a singleton.
func (l *ExpenseLedger) Load(ctx context.Context) error {
	l.mu.Lock()
	l.inflight[OpFetch]++
	l.mu.Unlock()

	raws, err := l.cache.Records(ctx, l.cache.ExpensesKey())
	if err != nil {
		l.mu.Lock()
		l.lastError = apperrors.Message(err, "Failed to load expenses")
		l.inflight[OpFetch]--
		l.mu.Unlock()
		return apperrors.NewStorageError("load expenses", err)
	}

	items := make([]models.Expense, 0, len(raws))
	for _, r := range raws {
		var e models.Expense
		if json.Unmarshal(r, &e) == nil && e.ID != "" {
			items = append(items, e)
		}
	}

	seeds := l.rules.SeedRecurringExpenses(items)
	for _, seed := range seeds {
		if cerr := l.cache.PutRecord(ctx, l.cache.ExpensesKey(), seed.ID, seed); cerr != nil {
			l.log.WithError(cerr).Warn("seed persist failed", map[string]interface{}{"type": seed.Type})
		}
	}
	// Singletons lead the listing, then user records.
	items = append(seeds, items...)

	l.mu.Lock()
	l.items = items
	l.lastError = ""
	l.inflight[OpFetch]--
	l.mu.Unlock()

	l.log.Info("expenses loaded", map[string]interface{}{"count": len(items), "seeded": len(seeds)})
	return nil
}

// Add stamps and persists a new expense. Non-recurring records require
// an owner; recurring ones become system-owned singleton candidates.
func (l *ExpenseLedger) Add(ctx context.Context, in models.Expense, owner *models.User) (models.Expense, error) {
	if !in.IsRecurring && owner == nil {
		err := apperrors.NewAuthError("User not authenticated")
		l.setError(err, "Failed to add expense")
		return models.Expense{}, err
	}

	rec := l.rules.PrepareExpense(in, owner)

	if err := l.cache.PutRecord(ctx, l.cache.ExpensesKey(), rec.ID, rec); err != nil {
		serr := apperrors.NewStorageError("persist expense", err)
		l.setError(serr, "Failed to add expense")
		return models.Expense{}, serr
	}

	l.mu.Lock()
	l.items = append(l.items, rec)
	l.lastError = ""
	l.mu.Unlock()
	return rec, nil
}

// Apply mutates the record with the given id and persists the result.
func (l *ExpenseLedger) Apply(ctx context.Context, id string, f func(*models.Expense)) (models.Expense, error) {
	l.mu.Lock()
	var updated models.Expense
	found := false
	for i := range l.items {
		if l.items[i].ID == id {
			f(&l.items[i])
			updated = l.items[i]
			found = true
			break
		}
	}
	if found {
		l.lastError = ""
	}
	l.mu.Unlock()

	if !found {
		err := apperrors.NewNotFoundError("Expense", id)
		l.setError(err, "Expense not found")
		return models.Expense{}, err
	}

	if err := l.cache.PutRecord(ctx, l.cache.ExpensesKey(), updated.ID, updated); err != nil {
		serr := apperrors.NewStorageError("persist expense", err)
		l.setError(serr, "Failed to update expense")
		return updated, serr
	}
	return updated, nil
}

// Update merges field updates into an expense record. Only keys present
// in updates change; the record id is never reassigned.
func (l *ExpenseLedger) Update(ctx context.Context, id string, updates map[string]interface{}) (models.Expense, error) {
	data, err := json.Marshal(updates)
	if err != nil {
		verr := apperrors.NewValidationError("Invalid expense update", err.Error())
		l.setError(verr, "Failed to update expense")
		return models.Expense{}, verr
	}
	return l.Apply(ctx, id, func(e *models.Expense) {
		if uerr := json.Unmarshal(data, e); uerr != nil {
			l.log.WithError(uerr).Warn("expense update merge failed", map[string]interface{}{"id": id})
		}
		e.ID = id
	})
}

// Approve transitions an expense to approved.
func (l *ExpenseLedger) Approve(ctx context.Context, id string) error {
	_, err := l.Apply(ctx, id, func(e *models.Expense) {
		e.Status = models.ExpenseStatusApproved
		e.ApprovedAt = l.rules.Timestamp()
		e.RejectedAt = ""
		e.RejectionReason = ""
	})
	return err
}

// Reject transitions an expense to rejected, keeping the reason verbatim.
func (l *ExpenseLedger) Reject(ctx context.Context, id string, reason string) error {
	_, err := l.Apply(ctx, id, func(e *models.Expense) {
		e.Status = models.ExpenseStatusRejected
		e.RejectedAt = l.rules.Timestamp()
		e.RejectionReason = reason
	})
	return err
}

// Delete removes a user expense. Recurring singletons are immutable:
// the delete fails and the collection is untouched.
func (l *ExpenseLedger) Delete(ctx context.Context, id string) error {
	rec, ok := l.Find(id)
	if !ok {
		err := apperrors.NewNotFoundError("Expense", id)
		l.setError(err, "Expense not found")
		return err
	}
	if err := l.rules.CheckExpenseDeletable(rec); err != nil {
		l.setError(err, "Cannot delete recurring expense")
		return err
	}

	if err := l.cache.DeleteRecord(ctx, l.cache.ExpensesKey(), id); err != nil {
		serr := apperrors.NewStorageError("delete expense", err)
		l.setError(serr, "Failed to delete expense")
		return serr
	}

	l.mu.Lock()
	kept := l.items[:0:0]
	for _, e := range l.items {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	l.items = kept
	l.lastError = ""
	l.mu.Unlock()
	return nil
}

func (l *ExpenseLedger) setError(err error, fallback string) {
	l.mu.Lock()
	l.lastError = apperrors.Message(err, fallback)
	l.mu.Unlock()
}
