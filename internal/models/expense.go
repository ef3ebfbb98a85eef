// internal/models/expense.go
package models

// ExpenseStatus is the review state of an expense record.
type ExpenseStatus string

const (
	ExpenseStatusPending  ExpenseStatus = "pending"
	ExpenseStatusApproved ExpenseStatus = "approved"
	ExpenseStatusRejected ExpenseStatus = "rejected"
)

// Recurring expense types. Exactly one system-owned record per type
// exists in the collection at any time.
const (
	ExpenseTypeOfficeRent  = "office_rent"
	ExpenseTypeStaffSalary = "staff_salary"
	ExpenseTypeTravel      = "travel"
)

// SystemOwnerID marks records owned by the system rather than a user.
const SystemOwnerID = "system"

// Expense represents a tracked cost. Amount is kept as the backend's
// string representation.
type Expense struct {
	ID              string        `json:"id"`
	Title           string        `json:"title"`
	Amount          string        `json:"amount"`
	Currency        string        `json:"currency"`
	Category        string        `json:"category"`
	Description     string        `json:"description,omitempty"`
	Date            string        `json:"date"`
	Type            string        `json:"type,omitempty"`
	IsRecurring     bool          `json:"isRecurring"`
	Status          ExpenseStatus `json:"status"`
	UserID          string        `json:"userId,omitempty"`
	UserName        string        `json:"userName,omitempty"`
	CreatedAt       string        `json:"createdAt,omitempty"`
	ApprovedAt      string        `json:"approvedAt,omitempty"`
	RejectedAt      string        `json:"rejectedAt,omitempty"`
	RejectionReason string        `json:"rejectionReason,omitempty"`
}

// Key returns the record identifier.
func (e Expense) Key() string { return e.ID }
