// internal/rules/rules_test.go
package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "boltvisa/internal/common/errors"
	"boltvisa/internal/common/logger"
	"boltvisa/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestEngine(t *testing.T) *Engine {
	return New(logger.NewTestLogger(t)).WithClock(func() time.Time {
		return time.Date(2025, 3, 15, 10, 30, 0, 0, time.UTC)
	})
}

func createCase(caseID, userID string, dealType models.DealType, status models.CaseStatus) models.Case {
	return models.Case{
		ID:       "id-" + caseID,
		CaseID:   caseID,
		UserID:   userID,
		DealType: dealType,
		Status:   status,
	}
}

// ==========================
// Case Identifier Tests
// ==========================

func TestEngine_GenerateCaseID(t *testing.T) {
	tests := []struct {
		name     string
		applyFor string
		existing []models.Case
		expected string
	}{
		{
			name:     "first case for a country",
			applyFor: "Albania",
			existing: nil,
			expected: "ALB001",
		},
		{
			name:     "increments within the prefix",
			applyFor: "Albania",
			existing: []models.Case{
				createCase("ALB001", "u1", models.DealTypeMain, models.CaseStatusPending),
				createCase("ALB002", "u1", models.DealTypeMain, models.CaseStatusPending),
			},
			expected: "ALB003",
		},
		{
			name:     "other prefixes do not count",
			applyFor: "Canada",
			existing: []models.Case{
				createCase("ALB001", "u1", models.DealTypeMain, models.CaseStatusPending),
				createCase("ALB002", "u1", models.DealTypeMain, models.CaseStatusPending),
			},
			expected: "CAN001",
		},
		{
			name:     "lowercase destination is normalized",
			applyFor: "albania",
			existing: []models.Case{
				createCase("ALB001", "u1", models.DealTypeMain, models.CaseStatusApproved),
			},
			expected: "ALB002",
		},
		{
			name:     "short destination uses the whole name",
			applyFor: "UK",
			existing: nil,
			expected: "UK001",
		},
		{
			name:     "zero padding holds to three digits",
			applyFor: "India",
			existing: func() []models.Case {
				var cs []models.Case
				for i := 0; i < 99; i++ {
					cs = append(cs, models.Case{ID: "x", CaseID: "IND001"})
				}
				return cs
			}(),
			expected: "IND100",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := createTestEngine(t)
			got := e.GenerateCaseID(tt.applyFor, tt.existing)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestEngine_GenerateCaseID_Deterministic(t *testing.T) {
	e := createTestEngine(t)
	existing := []models.Case{
		createCase("ALB001", "u1", models.DealTypeMain, models.CaseStatusPending),
	}

	first := e.GenerateCaseID("Albania", existing)
	second := e.GenerateCaseID("Albania", existing)
	assert.Equal(t, first, second)
}

func TestEngine_GenerateCaseID_EmptyDestination(t *testing.T) {
	e := createTestEngine(t)
	got := e.GenerateCaseID("", nil)

	require.Len(t, got, 10)
	assert.Equal(t, "UNDEF", got[:5])
	assert.Regexp(t, `^UNDEF\d{5}$`, got)
}

// ==========================
// Earnings Tests
// ==========================

func TestEngine_ApplyEarnings(t *testing.T) {
	tests := []struct {
		name         string
		dealType     models.DealType
		wantEarnings int
		wantMain     int
		wantRef      int
	}{
		{"main deal pays 2000", models.DealTypeMain, 2000, 1, 0},
		{"sub deal pays 1000", models.DealTypeSub, 1000, 0, 1},
		{"family deal pays 1000", models.DealTypeFamily, 1000, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := createTestEngine(t)
			u := models.User{ID: "u1", TotalEarnings: 500}
			c := createCase("ALB001", "u1", tt.dealType, models.CaseStatusPending)

			e.ApplyEarnings(&u, c)

			assert.Equal(t, 500+tt.wantEarnings, u.TotalEarnings)
			assert.Equal(t, tt.wantMain, u.MainDeals)
			assert.Equal(t, tt.wantRef, u.ReferenceDeals)
		})
	}
}

func TestEngine_ApplyEarnings_MainDealSpellings(t *testing.T) {
	e := createTestEngine(t)
	for _, spelling := range []string{"Main", "main", "Main Deal"} {
		u := models.User{ID: "u1"}
		c := models.Case{ID: "c1", UserID: "u1", DealType: models.DealType(spelling)}

		e.ApplyEarnings(&u, c)
		assert.Equal(t, 2000, u.TotalEarnings, "spelling %q", spelling)
		assert.Equal(t, 1, u.MainDeals, "spelling %q", spelling)
	}
}

// ==========================
// Transition Tests
// ==========================

func TestEngine_ApproveCase(t *testing.T) {
	e := createTestEngine(t)
	c := createCase("ALB001", "u1", models.DealTypeMain, models.CaseStatusPending)

	changed := e.ApproveCase(&c)

	require.True(t, changed)
	assert.Equal(t, models.CaseStatusApproved, c.Status)
	assert.Equal(t, "2025-03-15T10:30:00Z", c.ApprovedAt)
	assert.Empty(t, c.RejectedAt)
	assert.Empty(t, c.RejectionReason)
}

func TestEngine_ApproveCase_AlreadyApproved(t *testing.T) {
	e := createTestEngine(t)
	c := createCase("ALB001", "u1", models.DealTypeMain, models.CaseStatusApproved)
	c.ApprovedAt = "2024-01-01T00:00:00Z"

	changed := e.ApproveCase(&c)

	assert.False(t, changed)
	assert.Equal(t, "2024-01-01T00:00:00Z", c.ApprovedAt, "record must not be touched")
}

func TestEngine_ApproveCase_ClearsRejection(t *testing.T) {
	e := createTestEngine(t)
	c := createCase("ALB001", "u1", models.DealTypeMain, models.CaseStatusRejected)
	c.RejectedAt = "2024-01-01T00:00:00Z"
	c.RejectionReason = "missing documents"

	changed := e.ApproveCase(&c)

	require.True(t, changed)
	assert.Empty(t, c.RejectedAt)
	assert.Empty(t, c.RejectionReason)
}

func TestEngine_RejectCase(t *testing.T) {
	tests := []struct {
		name   string
		reason string
	}{
		{"explicit reason stored verbatim", "incomplete paperwork  "},
		{"empty reason stays empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := createTestEngine(t)
			c := createCase("ALB001", "u1", models.DealTypeMain, models.CaseStatusPending)

			e.RejectCase(&c, tt.reason)

			assert.Equal(t, models.CaseStatusRejected, c.Status)
			assert.Equal(t, tt.reason, c.RejectionReason)
			assert.Equal(t, "2025-03-15T10:30:00Z", c.RejectedAt)
		})
	}
}

// ==========================
// Recurring Expense Tests
// ==========================

func TestEngine_SeedRecurringExpenses_Empty(t *testing.T) {
	e := createTestEngine(t)

	seeds := e.SeedRecurringExpenses(nil)

	require.Len(t, seeds, 3)
	byType := map[string]models.Expense{}
	for _, s := range seeds {
		byType[s.Type] = s
	}

	assert.Equal(t, "1500", byType[models.ExpenseTypeOfficeRent].Amount)
	assert.Equal(t, "6000", byType[models.ExpenseTypeStaffSalary].Amount)
	assert.Equal(t, "0", byType[models.ExpenseTypeTravel].Amount)

	for typ, s := range byType {
		assert.Equal(t, "AED", s.Currency, typ)
		assert.Equal(t, models.ExpenseStatusApproved, s.Status, typ)
		assert.True(t, s.IsRecurring, typ)
		assert.Equal(t, models.SystemOwnerID, s.UserID, typ)
		assert.Equal(t, "fixed-"+typ, s.ID)
	}
}

func TestEngine_SeedRecurringExpenses_Idempotent(t *testing.T) {
	e := createTestEngine(t)

	first := e.SeedRecurringExpenses(nil)
	second := e.SeedRecurringExpenses(first)

	assert.Empty(t, second, "seeding an already-seeded collection must add nothing")
}

func TestEngine_SeedRecurringExpenses_PartiallySeeded(t *testing.T) {
	e := createTestEngine(t)
	existing := []models.Expense{
		{ID: "fixed-office_rent", Type: models.ExpenseTypeOfficeRent, IsRecurring: true},
	}

	seeds := e.SeedRecurringExpenses(existing)

	require.Len(t, seeds, 2)
	types := []string{seeds[0].Type, seeds[1].Type}
	assert.Contains(t, types, models.ExpenseTypeStaffSalary)
	assert.Contains(t, types, models.ExpenseTypeTravel)
}

func TestEngine_PrepareExpense(t *testing.T) {
	e := createTestEngine(t)
	owner := &models.User{ID: "u1", Name: "Amira"}

	t.Run("user expense is owner scoped and pending", func(t *testing.T) {
		rec := e.PrepareExpense(models.Expense{Title: "Taxi", Amount: "40"}, owner)

		assert.NotEmpty(t, rec.ID)
		assert.Equal(t, "u1", rec.UserID)
		assert.Equal(t, "Amira", rec.UserName)
		assert.Equal(t, models.ExpenseStatusPending, rec.Status)
	})

	t.Run("recurring expense becomes system owned and approved", func(t *testing.T) {
		rec := e.PrepareExpense(models.Expense{Title: "Rent", IsRecurring: true}, owner)

		assert.Equal(t, models.SystemOwnerID, rec.UserID)
		assert.Equal(t, models.ExpenseStatusApproved, rec.Status)
	})
}

func TestEngine_CheckExpenseDeletable(t *testing.T) {
	e := createTestEngine(t)

	err := e.CheckExpenseDeletable(models.Expense{ID: "fixed-travel", IsRecurring: true})
	require.Error(t, err)
	assert.True(t, apperrors.IsImmutableRecord(err))

	assert.NoError(t, e.CheckExpenseDeletable(models.Expense{ID: "e1"}))
}
