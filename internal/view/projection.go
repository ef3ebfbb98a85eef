// Package view derives role-scoped read models from the canonical
// collections. Projections are pure: they never mutate their input and
// always return fresh slices.
package view

import "boltvisa/internal/models"

// Deals returns the cases visible to a viewer. Admins and the admin
// dashboard see everything; agents see only cases they own. A missing
// viewer sees nothing.
func Deals(deals []models.Case, viewer *models.User, adminView bool) []models.Case {
	if adminView || (viewer != nil && viewer.IsAdmin()) {
		out := make([]models.Case, len(deals))
		copy(out, deals)
		return out
	}
	if viewer == nil {
		return []models.Case{}
	}

	out := make([]models.Case, 0, len(deals))
	for _, d := range deals {
		if d.UserID == viewer.Key() {
			out = append(out, d)
		}
	}
	return out
}

// Expenses returns the expense records visible to a viewer. Agents see
// their own records only; the system-owned recurring singletons are
// admin-only.
func Expenses(expenses []models.Expense, viewer *models.User, adminView bool) []models.Expense {
	if adminView || (viewer != nil && viewer.IsAdmin()) {
		out := make([]models.Expense, len(expenses))
		copy(out, expenses)
		return out
	}
	if viewer == nil {
		return []models.Expense{}
	}

	out := make([]models.Expense, 0, len(expenses))
	for _, e := range expenses {
		if e.IsRecurring {
			continue
		}
		if e.UserID == viewer.Key() {
			out = append(out, e)
		}
	}
	return out
}
