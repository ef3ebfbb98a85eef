// Package rules embeds the portal's business rules: case-identifier
// generation, earnings on approval, recurring-expense seeding and the
// approve/reject transitions. The engine mutates records handed to it
// but owns no collection state.
package rules

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "boltvisa/internal/common/errors"
	"boltvisa/internal/common/logger"
	"boltvisa/internal/models"
)

// Earnings awarded when a case transitions to approved.
const (
	MainDealReward      = 2000
	ReferenceDealReward = 1000
)

// Engine applies business rules.
type Engine struct {
	log logger.Logger
	now func() time.Time
}

// New creates an Engine.
func New(log logger.Logger) *Engine {
	return &Engine{
		log: log.WithFields(map[string]interface{}{"component": "rules"}),
		now: time.Now,
	}
}

// WithClock overrides the engine's clock. Test hook.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// GenerateCaseID derives a case identifier from the destination country
// and the count of existing cases sharing its 3-letter prefix:
// "Albania" with no existing ALB cases yields ALB001. An empty
// destination yields a UNDEF placeholder salted with the last five
// digits of the current timestamp.
func (e *Engine) GenerateCaseID(applyFor string, existing []models.Case) string {
	if applyFor == "" {
		ts := fmt.Sprintf("%d", e.now().UnixMilli())
		return "UNDEF" + ts[len(ts)-5:]
	}

	prefix := strings.ToUpper(applyFor)
	if runes := []rune(prefix); len(runes) > 3 {
		prefix = string(runes[:3])
	}

	count := 0
	for _, c := range existing {
		if strings.HasPrefix(c.CaseID, prefix) {
			count++
		}
	}
	return fmt.Sprintf("%s%03d", prefix, count+1)
}

// ApplyEarnings adds the approval bonus for a case to its owner's
// record: 2000 for a main deal plus a main-deal count, 1000 and a
// reference-deal count otherwise.
func (e *Engine) ApplyEarnings(u *models.User, c models.Case) {
	if c.IsMainDeal() {
		u.TotalEarnings += MainDealReward
		u.MainDeals++
	} else {
		u.TotalEarnings += ReferenceDealReward
		u.ReferenceDeals++
	}
}

// ApproveCase transitions a case to approved with a timestamp. Returns
// false without touching the record when it is already approved, so a
// repeated approval can never re-award earnings.
func (e *Engine) ApproveCase(c *models.Case) bool {
	if c.Status == models.CaseStatusApproved {
		return false
	}
	c.Status = models.CaseStatusApproved
	c.ApprovedAt = e.now().UTC().Format(time.RFC3339)
	c.RejectedAt = ""
	c.RejectionReason = ""
	return true
}

// RejectCase transitions a case to rejected, recording the reason
// verbatim (an empty reason is stored as-is).
func (e *Engine) RejectCase(c *models.Case, reason string) {
	c.Status = models.CaseStatusRejected
	c.RejectedAt = e.now().UTC().Format(time.RFC3339)
	c.RejectionReason = reason
}

// recurringDefaults are the system-owned singleton expenses, one per type.
func (e *Engine) recurringDefaults() []models.Expense {
	today := e.now().UTC().Format("2006-01-02")
	createdAt := e.now().UTC().Format(time.RFC3339)

	build := func(typ, title, amount, description string) models.Expense {
		return models.Expense{
			ID:          "fixed-" + typ,
			Type:        typ,
			Title:       title,
			Amount:      amount,
			Currency:    "AED",
			Category:    "Fixed Expenses",
			Description: description,
			Date:        today,
			Status:      models.ExpenseStatusApproved,
			IsRecurring: true,
			UserID:      models.SystemOwnerID,
			UserName:    "System Fixed",
			CreatedAt:   createdAt,
		}
	}

	return []models.Expense{
		build(models.ExpenseTypeOfficeRent, "Monthly Office Rent", "1500", "Monthly office space rental"),
		build(models.ExpenseTypeStaffSalary, "Staff Salaries", "6000", "Monthly staff salaries"),
		build(models.ExpenseTypeTravel, "Business Travel Expenses", "0", "Monthly travel and transportation costs"),
	}
}

// SeedRecurringExpenses returns the default records missing from the
// collection. Existence is checked by type, so repeated seeding never
// produces duplicates.
func (e *Engine) SeedRecurringExpenses(existing []models.Expense) []models.Expense {
	present := make(map[string]bool, 3)
	for _, exp := range existing {
		if exp.IsRecurring {
			present[exp.Type] = true
		}
	}

	var seeds []models.Expense
	for _, def := range e.recurringDefaults() {
		if !present[def.Type] {
			seeds = append(seeds, def)
		}
	}
	return seeds
}

// PrepareExpense stamps a new expense record: recurring records become
// system-owned and pre-approved, user records are owner-scoped and
// start pending.
func (e *Engine) PrepareExpense(in models.Expense, owner *models.User) models.Expense {
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if in.IsRecurring {
		in.UserID = models.SystemOwnerID
		in.UserName = "System Fixed"
		in.Status = models.ExpenseStatusApproved
	} else {
		if owner != nil {
			in.UserID = owner.Key()
			in.UserName = owner.Name
		}
		in.Status = models.ExpenseStatusPending
	}
	in.CreatedAt = e.now().UTC().Format(time.RFC3339)
	if in.Date == "" {
		in.Date = e.now().UTC().Format("2006-01-02")
	}
	return in
}

// CheckExpenseDeletable rejects deletes of recurring singletons.
func (e *Engine) CheckExpenseDeletable(exp models.Expense) error {
	if exp.IsRecurring {
		return apperrors.NewImmutableRecordError(exp.ID)
	}
	return nil
}

// Timestamp returns the engine's current time in the wire format.
func (e *Engine) Timestamp() string {
	return e.now().UTC().Format(time.RFC3339)
}
