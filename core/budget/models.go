package budget

import (
	"time"

	"github.com/kymanga/ruzuku/core"
)

type PoolStatus string

const (
	StatusActive    PoolStatus = "active"
	StatusInactive  PoolStatus = "inactive"
	StatusCompleted PoolStatus = "completed"
)

// Category is one of the fixed academic-degree tiers partitioning a Period.
type Category string

const (
	CategoryBachelor  Category = "bachelor"
	CategoryMaster    Category = "master"
	CategoryDoctorate Category = "doctorate"
)

var Categories = []Category{CategoryBachelor, CategoryMaster, CategoryDoctorate}

func (c Category) Valid() bool {
	switch c {
	case CategoryBachelor, CategoryMaster, CategoryDoctorate:
		return true
	}
	return false
}

// CategoryAmounts holds one amount per category. A closed record rather
// than a map: a category that does not exist cannot be addressed.
type CategoryAmounts struct {
	Bachelor  float64 `json:"bachelor" validate:"gte=0"`
	Master    float64 `json:"master" validate:"gte=0"`
	Doctorate float64 `json:"doctorate" validate:"gte=0"`
}

func (a CategoryAmounts) For(c Category) float64 {
	switch c {
	case CategoryMaster:
		return a.Master
	case CategoryDoctorate:
		return a.Doctorate
	default:
		return a.Bachelor
	}
}

func (a *CategoryAmounts) Set(c Category, v float64) {
	switch c {
	case CategoryMaster:
		a.Master = v
	case CategoryDoctorate:
		a.Doctorate = v
	default:
		a.Bachelor = v
	}
}

// Pool is a flat, single-currency allocation backing travel-funding
// requests. Invariant: 0 <= Used <= Total.
type Pool struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      PoolStatus `json:"status"`
	Total       int        `json:"total"`
	Used        int        `json:"used"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     time.Time  `json:"end_date"`
	CreatedAt   time.Time  `json:"created_at"` // UTC
	UpdatedAt   time.Time  `json:"updated_at"` // UTC
}

func (p Pool) Available() int { return p.Total - p.Used }

// Period is a scholarship application period: an allocation partitioned by
// academic-degree category. Invariant per category: Used <= Totals.
type Period struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Totals      CategoryAmounts `json:"total"`
	Used        CategoryAmounts `json:"used"`
	StartDate   time.Time       `json:"start_date"`
	EndDate     time.Time       `json:"end_date"`
	CreatedAt   time.Time       `json:"created_at"` // UTC
	UpdatedAt   time.Time       `json:"updated_at"` // UTC
}

func (p Period) Available(c Category) float64 { return p.Totals.For(c) - p.Used.For(c) }

// NewPool contains information needed to create a new Pool.
type NewPool struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	Total       int       `json:"total" validate:"gte=0"`
	StartDate   time.Time `json:"start_date" validate:"required"`
	EndDate     time.Time `json:"end_date" validate:"required,gtefield=StartDate"`
}

func (np *NewPool) Validate() error {
	np.Title = core.CleanString(np.Title)
	np.Description = core.CleanString(np.Description)
	return core.Validate.Struct(np)
}

// UpdatePool defines what information may be provided to modify an existing
// Pool. A nil Total leaves the allocation untouched; a provided one is
// validated against the current used amount before it is accepted.
type UpdatePool struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      PoolStatus `json:"status" validate:"omitempty,oneof=active inactive completed"`
	Total       *int       `json:"total" validate:"omitempty,gte=0"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     time.Time  `json:"end_date" validate:"gtefield=StartDate"`
}

func (up *UpdatePool) Validate(orig Pool) error {
	title := core.CleanString(up.Title)
	if title != "" {
		up.Title = title
	} else {
		up.Title = orig.Title
	}
	up.Description = core.CleanString(up.Description)
	if up.Status == "" {
		up.Status = orig.Status
	}
	if up.StartDate.IsZero() {
		up.StartDate = orig.StartDate
	}
	if up.EndDate.IsZero() {
		up.EndDate = orig.EndDate
	}
	return core.Validate.Struct(up)
}

// NewPeriod contains information needed to create a new Period.
type NewPeriod struct {
	Title       string          `json:"title" validate:"required"`
	Description string          `json:"description"`
	Totals      CategoryAmounts `json:"total"`
	StartDate   time.Time       `json:"start_date" validate:"required"`
	EndDate     time.Time       `json:"end_date" validate:"required,gtefield=StartDate"`
}

func (np *NewPeriod) Validate() error {
	np.Title = core.CleanString(np.Title)
	np.Description = core.CleanString(np.Description)
	return core.Validate.Struct(np)
}

// UpdatePeriod defines what information may be provided to modify an
// existing Period. Nil Totals leave the allocations untouched.
type UpdatePeriod struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Totals      *CategoryAmounts `json:"total"`
	StartDate   time.Time        `json:"start_date"`
	EndDate     time.Time        `json:"end_date" validate:"gtefield=StartDate"`
}

func (up *UpdatePeriod) Validate(orig Period) error {
	title := core.CleanString(up.Title)
	if title != "" {
		up.Title = title
	} else {
		up.Title = orig.Title
	}
	up.Description = core.CleanString(up.Description)
	if up.StartDate.IsZero() {
		up.StartDate = orig.StartDate
	}
	if up.EndDate.IsZero() {
		up.EndDate = orig.EndDate
	}
	return core.Validate.Struct(up)
}
