package funding

import (
	"time"

	"github.com/kymanga/ruzuku/core"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Request is a travel-funding request: the approval subject backed by a
// flat budget pool. AmountGranted is non-zero only once approved; the pool
// reference may stay empty until approval.
type Request struct {
	ID              string    `json:"id"`
	ApplicantID     string    `json:"applicant_id"`
	Status          Status    `json:"status"`
	Purpose         string    `json:"purpose"`
	Destination     string    `json:"destination"`
	EventDate       time.Time `json:"event_date"`
	AmountRequested int       `json:"amount_requested"`
	AmountGranted   int       `json:"amount_granted"`
	PoolID          string    `json:"budget_id,omitempty"`
	Response        string    `json:"response,omitempty"`
	CreatedAt       time.Time `json:"created_at"` // UTC
	UpdatedAt       time.Time `json:"updated_at"` // UTC
}

func (r Request) Terminal() bool { return r.Status != StatusPending }

// NewRequest contains information needed by an applicant to file a Request.
type NewRequest struct {
	Purpose         string    `json:"purpose" validate:"required"`
	Destination     string    `json:"destination" validate:"required"`
	EventDate       time.Time `json:"event_date" validate:"required"`
	AmountRequested int       `json:"amount_requested" validate:"gte=0"`
}

func (nr *NewRequest) Validate() error {
	nr.Purpose = core.CleanString(nr.Purpose)
	nr.Destination = core.CleanString(nr.Destination)
	return core.Validate.Struct(nr)
}

// UpdateRequest defines the non-decision fields an applicant may edit on
// their own still-pending Request.
type UpdateRequest struct {
	Purpose         string     `json:"purpose"`
	Destination     string     `json:"destination"`
	EventDate       *time.Time `json:"event_date"`
	AmountRequested *int       `json:"amount_requested" validate:"omitempty,gte=0"`
}

func (ur *UpdateRequest) Validate(orig Request) error {
	purpose := core.CleanString(ur.Purpose)
	if purpose != "" {
		ur.Purpose = purpose
	} else {
		ur.Purpose = orig.Purpose
	}
	dest := core.CleanString(ur.Destination)
	if dest != "" {
		ur.Destination = dest
	} else {
		ur.Destination = orig.Destination
	}
	return core.Validate.Struct(ur)
}

// Decision is an executive's verdict on a Request. A nil AmountGranted
// keeps the currently granted amount (delta zero). PoolID may name the
// pool to draw from; absent, the request's stored reference is used.
type Decision struct {
	Status        Status `json:"status" validate:"required,oneof=approved rejected"`
	AmountGranted *int   `json:"amount_granted"`
	PoolID        string `json:"budget_id"`
	Response      string `json:"response"`
}

func (d *Decision) Validate() error {
	d.PoolID = core.CleanString(d.PoolID)
	d.Response = core.CleanString(d.Response)
	return core.Validate.Struct(d)
}

type QueryFilter struct {
	Status      Status `query:"status"`
	ApplicantID string `query:"applicant_id"`
}
