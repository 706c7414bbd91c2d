package scholarship

import (
	"strings"
	"time"

	"github.com/kymanga/ruzuku/core"
	"github.com/kymanga/ruzuku/core/budget"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Application is a scholarship application: the approval subject backed by
// a category-partitioned application period. The period reference is fixed
// at creation; the category is derived from the academic-degree string at
// decision time.
type Application struct {
	ID              string    `json:"id"`
	StudentID       string    `json:"student_id"`
	PeriodID        string    `json:"application_period_id"`
	Status          Status    `json:"status"`
	TutorStatus     Status    `json:"status_tutor"`
	Degree          string    `json:"degree"`
	Motivation      string    `json:"motivation"`
	AmountRequested float64   `json:"amount_requested"`
	AmountGranted   float64   `json:"amount_granted"`
	Response        string    `json:"response,omitempty"`
	CreatedAt       time.Time `json:"created_at"` // UTC
	UpdatedAt       time.Time `json:"updated_at"` // UTC
}

func (a Application) Terminal() bool { return a.Status != StatusPending }

// Category classifies the applicant's academic-degree string into one of
// the fixed budget categories.
func (a Application) Category() budget.Category {
	return ClassifyDegree(a.Degree)
}

// ClassifyDegree maps a free-form academic-degree string onto the closed
// category enum: doctorate-level strings first, then master-level, and
// bachelor for everything else.
func ClassifyDegree(degree string) budget.Category {
	d := strings.ToLower(degree)
	switch {
	case strings.Contains(d, "doctor") || strings.Contains(d, "phd"):
		return budget.CategoryDoctorate
	case strings.Contains(d, "magister") || strings.Contains(d, "master"):
		return budget.CategoryMaster
	default:
		return budget.CategoryBachelor
	}
}

// NewApplication contains information needed by a student to apply.
type NewApplication struct {
	PeriodID        string  `json:"application_period_id" validate:"required"`
	Degree          string  `json:"degree" validate:"required"`
	Motivation      string  `json:"motivation" validate:"required"`
	AmountRequested float64 `json:"amount_requested" validate:"gte=0"`
}

func (na *NewApplication) Validate() error {
	na.PeriodID = core.CleanString(na.PeriodID)
	na.Degree = core.CleanString(na.Degree)
	na.Motivation = core.CleanString(na.Motivation)
	return core.Validate.Struct(na)
}

// UpdateApplication defines the non-decision fields a student may edit on
// their own still-pending Application.
type UpdateApplication struct {
	Degree          string   `json:"degree"`
	Motivation      string   `json:"motivation"`
	AmountRequested *float64 `json:"amount_requested" validate:"omitempty,gte=0"`
}

func (ua *UpdateApplication) Validate(orig Application) error {
	degree := core.CleanString(ua.Degree)
	if degree != "" {
		ua.Degree = degree
	} else {
		ua.Degree = orig.Degree
	}
	motivation := core.CleanString(ua.Motivation)
	if motivation != "" {
		ua.Motivation = motivation
	} else {
		ua.Motivation = orig.Motivation
	}
	return core.Validate.Struct(ua)
}

// Decision is an executive's verdict on an Application. A nil AmountGranted
// keeps the currently granted amount (delta zero).
type Decision struct {
	Status        Status   `json:"status" validate:"required,oneof=approved rejected"`
	AmountGranted *float64 `json:"amount_granted"`
	Response      string   `json:"response"`
}

func (d *Decision) Validate() error {
	d.Response = core.CleanString(d.Response)
	return core.Validate.Struct(d)
}

type QueryFilter struct {
	Status    Status `query:"status"`
	StudentID string `query:"student_id"`
	PeriodID  string `query:"application_period_id"`
}
