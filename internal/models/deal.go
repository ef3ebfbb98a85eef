// internal/models/deal.go
package models

// DealType classifies a visa case.
type DealType string

const (
	DealTypeMain   DealType = "Main"
	DealTypeSub    DealType = "Sub"
	DealTypeFamily DealType = "Family"
)

// CaseStatus is the lifecycle state of a visa case.
type CaseStatus string

const (
	CaseStatusPending  CaseStatus = "pending"
	CaseStatusApproved CaseStatus = "approved"
	CaseStatusRejected CaseStatus = "rejected"
)

// Case represents a visa application (deal) progressing through
// pending/approved/rejected.
type Case struct {
	ID              string     `json:"id,omitempty"`
	MongoID         string     `json:"_id,omitempty"`
	CaseID          string     `json:"caseId"`
	UserID          string     `json:"userId"`
	DealType        DealType   `json:"dealType"`
	Status          CaseStatus `json:"status"`
	ApplyFor        string     `json:"applyFor"`
	CreatedAt       string     `json:"createdAt,omitempty"`
	ApprovedAt      string     `json:"approvedAt,omitempty"`
	RejectedAt      string     `json:"rejectedAt,omitempty"`
	RejectionReason string     `json:"rejectionReason,omitempty"`
}

// Key returns the canonical record identifier. The backend emits either
// "id" or a Mongo-style "_id" depending on the endpoint.
func (c Case) Key() string {
	if c.ID != "" {
		return c.ID
	}
	return c.MongoID
}

// IsMainDeal reports whether the case awards the main-deal bonus.
// The backend is inconsistent about casing ("main", "Main", "Main Deal").
func (c Case) IsMainDeal() bool {
	switch c.DealType {
	case DealTypeMain, "main", "Main Deal":
		return true
	}
	return false
}
