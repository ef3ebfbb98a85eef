// internal/store/expenses_test.go
package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "boltvisa/internal/common/errors"
	"boltvisa/internal/models"
)

// ==========================
// Seeding Tests
// ==========================

func TestExpenseLedger_Load_SeedsRecurring(t *testing.T) {
	s, _ := createTestStore(t, newFakeBackend())
	ctx := context.Background()

	require.NoError(t, s.Expenses().Load(ctx))

	items := s.Expenses().Items()
	require.Len(t, items, 3)

	byType := map[string]models.Expense{}
	for _, e := range items {
		byType[e.Type] = e
	}
	assert.Equal(t, "1500", byType[models.ExpenseTypeOfficeRent].Amount)
	assert.Equal(t, "6000", byType[models.ExpenseTypeStaffSalary].Amount)
	assert.Equal(t, "0", byType[models.ExpenseTypeTravel].Amount)
	for _, e := range items {
		assert.True(t, e.IsRecurring)
		assert.Equal(t, models.ExpenseStatusApproved, e.Status)
		assert.Equal(t, models.SystemOwnerID, e.UserID)
	}
}

func TestExpenseLedger_Load_Idempotent(t *testing.T) {
	s, _ := createTestStore(t, newFakeBackend())
	ctx := context.Background()

	require.NoError(t, s.Expenses().Load(ctx))
	require.NoError(t, s.Expenses().Load(ctx))

	assert.Len(t, s.Expenses().Items(), 3, "reloading must not duplicate singletons")
}

func TestExpenseLedger_Load_SurvivesRestart(t *testing.T) {
	s, mr := createTestStore(t, newFakeBackend())
	ctx := context.Background()

	require.NoError(t, s.Expenses().Load(ctx))
	login(t, s)
	added, err := s.Expenses().Add(ctx, models.Expense{Title: "Taxi", Amount: "40"}, s.Session().Current())
	require.NoError(t, err)

	// A fresh ledger over the same cache sees all four records.
	s2 := restartStore(t, mr, newFakeBackend())
	require.NoError(t, s2.Expenses().Load(ctx))

	items := s2.Expenses().Items()
	assert.Len(t, items, 4)
	found, ok := s2.Expenses().Find(added.ID)
	require.True(t, ok)
	assert.Equal(t, "Taxi", found.Title)
}

// ==========================
// Mutation Tests
// ==========================

func TestExpenseLedger_Add_UserExpense(t *testing.T) {
	s, _ := createTestStore(t, newFakeBackend())
	ctx := context.Background()

	require.NoError(t, s.Expenses().Load(ctx))
	login(t, s)

	rec, err := s.Expenses().Add(ctx, models.Expense{Title: "Taxi", Amount: "40"}, s.Session().Current())
	require.NoError(t, err)

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "agent-1", rec.UserID)
	assert.Equal(t, "Amira", rec.UserName)
	assert.Equal(t, models.ExpenseStatusPending, rec.Status)
	assert.Len(t, s.Expenses().Items(), 4)
}

func TestExpenseLedger_Add_RequiresOwner(t *testing.T) {
	s, _ := createTestStore(t, newFakeBackend())

	_, err := s.Expenses().Add(context.Background(), models.Expense{Title: "Taxi"}, nil)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeAuth))
	assert.NotEmpty(t, s.Expenses().Error())
}

func TestExpenseLedger_ApproveAndReject(t *testing.T) {
	s, _ := createTestStore(t, newFakeBackend())
	ctx := context.Background()

	require.NoError(t, s.Expenses().Load(ctx))
	login(t, s)
	rec, err := s.Expenses().Add(ctx, models.Expense{Title: "Taxi", Amount: "40"}, s.Session().Current())
	require.NoError(t, err)

	require.NoError(t, s.Expenses().Approve(ctx, rec.ID))
	got, _ := s.Expenses().Find(rec.ID)
	assert.Equal(t, models.ExpenseStatusApproved, got.Status)
	assert.NotEmpty(t, got.ApprovedAt)

	require.NoError(t, s.Expenses().Reject(ctx, rec.ID, "no receipt"))
	got, _ = s.Expenses().Find(rec.ID)
	assert.Equal(t, models.ExpenseStatusRejected, got.Status)
	assert.Equal(t, "no receipt", got.RejectionReason)
}

func TestExpenseLedger_Update_MergesFields(t *testing.T) {
	s, _ := createTestStore(t, newFakeBackend())
	ctx := context.Background()

	require.NoError(t, s.Expenses().Load(ctx))
	login(t, s)
	rec, err := s.Expenses().Add(ctx, models.Expense{Title: "Taxi", Amount: "40", Category: "Transport"}, s.Session().Current())
	require.NoError(t, err)

	updated, err := s.Expenses().Update(ctx, rec.ID, map[string]interface{}{
		"amount": "55",
		"id":     "should-not-change",
	})
	require.NoError(t, err)

	assert.Equal(t, rec.ID, updated.ID, "id is never reassigned")
	assert.Equal(t, "55", updated.Amount)
	assert.Equal(t, "Taxi", updated.Title, "untouched fields survive")
	assert.Equal(t, "Transport", updated.Category)
}

func TestExpenseLedger_Apply_NotFound(t *testing.T) {
	s, _ := createTestStore(t, newFakeBackend())

	err := s.Expenses().Approve(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

// ==========================
// Deletion Guard Tests
// ==========================

func TestExpenseLedger_Delete_UserExpense(t *testing.T) {
	s, _ := createTestStore(t, newFakeBackend())
	ctx := context.Background()

	require.NoError(t, s.Expenses().Load(ctx))
	login(t, s)
	rec, err := s.Expenses().Add(ctx, models.Expense{Title: "Taxi", Amount: "40"}, s.Session().Current())
	require.NoError(t, err)

	require.NoError(t, s.Expenses().Delete(ctx, rec.ID))
	assert.Len(t, s.Expenses().Items(), 3)
}

func TestExpenseLedger_Delete_RecurringFails(t *testing.T) {
	s, _ := createTestStore(t, newFakeBackend())
	ctx := context.Background()

	require.NoError(t, s.Expenses().Load(ctx))

	err := s.Expenses().Delete(ctx, "fixed-office_rent")
	require.Error(t, err)
	assert.True(t, apperrors.IsImmutableRecord(err))

	// The collection is untouched.
	assert.Len(t, s.Expenses().Items(), 3)
	_, ok := s.Expenses().Find("fixed-office_rent")
	assert.True(t, ok)
}

// ==========================
// Projection Tests
// ==========================

func TestStore_VisibleExpenses(t *testing.T) {
	s, _ := createTestStore(t, newFakeBackend())
	ctx := context.Background()

	require.NoError(t, s.Expenses().Load(ctx))
	login(t, s)
	_, err := s.Expenses().Add(ctx, models.Expense{Title: "Taxi", Amount: "40"}, s.Session().Current())
	require.NoError(t, err)

	mine := s.VisibleExpenses(false)
	require.Len(t, mine, 1, "agent view hides recurring singletons")
	assert.Equal(t, "Taxi", mine[0].Title)

	all := s.VisibleExpenses(true)
	assert.Len(t, all, 4)
}
