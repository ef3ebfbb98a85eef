package store

import (
	"context"

	apperrors "boltvisa/internal/common/errors"
	"boltvisa/internal/common/validation"
	"boltvisa/internal/models"
)

// FetchDeals refreshes the case collection for the given page. Zero
// values keep the current paging.
func (s *Store) FetchDeals(ctx context.Context, page, limit int) error {
	s.deals.SetPage(page)
	s.deals.SetLimit(limit)
	p := s.deals.Pagination()

	err := s.deals.fetch(ctx, func(ctx context.Context) ([]byte, error) {
		return s.api.ListApplications(ctx, p.Page, p.Limit)
	}, "Failed to fetch applications")
	s.record(ctx, "applications", err)
	return err
}

// AddDeal validates the submission, derives its case identifier and
// creates it on the backend. Returns the assigned case identifier.
func (s *Store) AddDeal(ctx context.Context, payload map[string]interface{}) (string, error) {
	if !s.session.Authenticated() {
		err := apperrors.NewAuthError("User not authenticated")
		s.record(ctx, "applications", err)
		return "", err
	}
	if err := validation.ValidateDeal(payload); err != nil {
		s.record(ctx, "applications", err)
		return "", err
	}

	applyFor, _ := payload["applyFor"].(string)
	caseID := s.rules.GenerateCaseID(applyFor, s.deals.Items())
	payload["caseId"] = caseID

	_, err := s.deals.create(ctx, func(ctx context.Context) ([]byte, error) {
		return s.api.CreateApplication(ctx, payload)
	}, "Failed to add application")
	s.record(ctx, "applications", err)
	if err != nil {
		return "", err
	}

	s.log.Info("application created", map[string]interface{}{"case_id": caseID})
	return caseID, nil
}

// EditDeal pushes field changes for a case and merges the backend's
// record over the local copy.
func (s *Store) EditDeal(ctx context.Context, id string, updates map[string]interface{}) error {
	err := s.deals.update(ctx, id, func(ctx context.Context) ([]byte, error) {
		return s.api.UpdateApplication(ctx, id, updates)
	}, "Failed to update application")
	s.record(ctx, "applications", err)
	return err
}

// DeleteDeal removes a case remotely and locally.
func (s *Store) DeleteDeal(ctx context.Context, id string) error {
	err := s.deals.remove(ctx, id, func(ctx context.Context) ([]byte, error) {
		return s.api.DeleteApplication(ctx, id)
	}, "Failed to delete application")
	s.record(ctx, "applications", err)
	return err
}

// ApproveDeal transitions a case to approved and awards its owner's
// earnings. The backend is updated first; the local check-and-transition
// is atomic under the collection lock, so a case approved twice pays
// out exactly once.
func (s *Store) ApproveDeal(ctx context.Context, id string) error {
	existing, ok := s.deals.Find(id)
	if !ok {
		err := apperrors.NewNotFoundError("Deal", id)
		s.record(ctx, "applications", err)
		return err
	}
	if existing.Status == models.CaseStatusApproved {
		return nil
	}

	err := s.deals.execute(ctx, OpUpdate, func(ctx context.Context) ([]byte, error) {
		return s.api.UpdateApplicationStatus(ctx, id, string(models.CaseStatusApproved), existing.CaseID)
	}, "Failed to approve application")
	s.record(ctx, "applications", err)
	if err != nil {
		return err
	}

	approved, changed := s.deals.mutate(ctx, id, func(c *models.Case) bool {
		return s.rules.ApproveCase(c)
	})
	if changed {
		s.awardEarnings(ctx, approved)
	}
	return nil
}

// RejectDeal transitions a case to rejected, storing the reason
// verbatim. No earnings move.
func (s *Store) RejectDeal(ctx context.Context, id, reason string) error {
	existing, ok := s.deals.Find(id)
	if !ok {
		err := apperrors.NewNotFoundError("Deal", id)
		s.record(ctx, "applications", err)
		return err
	}

	err := s.deals.execute(ctx, OpUpdate, func(ctx context.Context) ([]byte, error) {
		return s.api.UpdateApplicationStatus(ctx, id, string(models.CaseStatusRejected), existing.CaseID)
	}, "Failed to reject application")
	s.record(ctx, "applications", err)
	if err != nil {
		return err
	}

	s.deals.mutate(ctx, id, func(c *models.Case) bool {
		s.rules.RejectCase(c, reason)
		return true
	})
	return nil
}

// awardEarnings applies the approval bonus to the case owner wherever
// that user is materialized: the user collection, the persisted user
// copy, and the live session when it is the same person.
func (s *Store) awardEarnings(ctx context.Context, c models.Case) {
	if c.UserID == "" {
		s.log.Warn("approved case has no owner", map[string]interface{}{"case_id": c.CaseID})
		return
	}

	updated, changed := s.users.mutate(ctx, c.UserID, func(u *models.User) bool {
		s.rules.ApplyEarnings(u, c)
		return true
	})
	if !changed {
		// Owner not in the loaded collection. Fall back to the live
		// session identity when it matches.
		if cur := s.session.Current(); cur != nil && cur.Key() == c.UserID {
			s.rules.ApplyEarnings(cur, c)
			updated = *cur
			changed = true
			if cerr := s.cache.PutRecord(ctx, s.cache.UsersKey(), cur.Key(), *cur); cerr != nil {
				s.log.WithError(cerr).Warn("cache write failed", nil)
			}
		}
	}

	if !changed {
		s.log.Warn("case owner not materialized, earnings not applied locally",
			map[string]interface{}{"user_id": c.UserID, "case_id": c.CaseID})
		return
	}

	s.session.SyncEarnings(ctx, updated)
	s.log.Info("earnings awarded", map[string]interface{}{
		"user_id": updated.Key(),
		"case_id": c.CaseID,
		"total":   updated.TotalEarnings,
	})
}
