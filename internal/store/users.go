package store

import (
	"context"

	"boltvisa/internal/common/validation"
	"boltvisa/internal/models"
	"boltvisa/internal/view"
)

// FetchUsers refreshes the user collection for the given page. Zero
// values keep the current paging.
func (s *Store) FetchUsers(ctx context.Context, page, limit int) error {
	s.users.SetPage(page)
	s.users.SetLimit(limit)
	p := s.users.Pagination()

	err := s.users.fetch(ctx, func(ctx context.Context) ([]byte, error) {
		return s.api.ListUsers(ctx, p.Page, p.Limit)
	}, "Failed to fetch users")
	s.record(ctx, "users", err)
	return err
}

// RegisterUser validates and creates a new account.
func (s *Store) RegisterUser(ctx context.Context, payload map[string]interface{}) (models.User, error) {
	if err := validation.ValidateRegistration(payload); err != nil {
		s.record(ctx, "users", err)
		return models.User{}, err
	}

	created, err := s.users.create(ctx, func(ctx context.Context) ([]byte, error) {
		return s.api.Register(ctx, payload)
	}, "Registration failed")
	s.record(ctx, "users", err)
	return created, err
}

// EditUser pushes profile changes for a user and merges the returned
// record locally. When the edited user is the session identity, the
// session follows.
func (s *Store) EditUser(ctx context.Context, id string, updates map[string]interface{}) error {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["userId"] = id

	err := s.users.update(ctx, id, func(ctx context.Context) ([]byte, error) {
		return s.api.UpdateProfile(ctx, updates)
	}, "Failed to update user")
	s.record(ctx, "users", err)
	if err != nil {
		return err
	}

	if u, ok := s.users.Find(id); ok {
		s.session.SyncEarnings(ctx, u)
	}
	return nil
}

// DeleteUser removes an account remotely and locally.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	err := s.users.remove(ctx, id, func(ctx context.Context) ([]byte, error) {
		return s.api.DeleteUser(ctx, id)
	}, "Failed to delete user")
	s.record(ctx, "users", err)
	return err
}

// VisibleDeals projects the case collection for the current session.
func (s *Store) VisibleDeals(adminView bool) []models.Case {
	return view.Deals(s.deals.Items(), s.session.Current(), adminView)
}

// VisibleExpenses projects the expense ledger for the current session.
func (s *Store) VisibleExpenses(adminView bool) []models.Expense {
	return view.Expenses(s.expenses.Items(), s.session.Current(), adminView)
}
