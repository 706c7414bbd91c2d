package budget

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/kymanga/ruzuku/core"
	"github.com/kymanga/ruzuku/core/user"
)

var (
	// errors
	ErrNotFound        = errors.New("budget pool not found")
	ErrPeriodNotFound  = errors.New("application period not found")
	ErrBudgetExceeded  = errors.New("insufficient budget available")
	ErrBudgetBelowUsed = errors.New("total cannot be set below the amount already used")
	ErrInactivePool    = errors.New("budget pool is not active")
	ErrPoolInUse       = errors.New("budget pool is referenced by funding requests")
)

type (
	// Repository persists pools and periods. ApplyPoolDelta and
	// ApplyPeriodDelta are conditional updates: the capacity check and the
	// write happen as one atomic operation against storage, never as a
	// read-then-write in application code. They are the only entry points
	// that change the used counters; UpdatePool and UpdatePeriod guard
	// their totals the same way, in the same statement as the rest of the
	// row.
	Repository interface {
		CreatePool(ctx context.Context, pool Pool) (Pool, error)
		GetPool(ctx context.Context, id string) (Pool, error)
		QueryPools(ctx context.Context, ordering []core.DBOrdering) ([]Pool, error)
		// UpdatePool updates everything but Used; the row is written iff
		// used <= total still holds for the incoming total.
		UpdatePool(ctx context.Context, pool Pool) (Pool, error)
		// ApplyPoolDelta sets used += delta iff 0 <= used+delta <= total.
		ApplyPoolDelta(ctx context.Context, id string, delta int) error
		PoolInUse(ctx context.Context, id string) (bool, error)
		DeletePool(ctx context.Context, id string) error
		CompleteExpiredPools(ctx context.Context, now time.Time) (int64, error)

		CreatePeriod(ctx context.Context, period Period) (Period, error)
		GetPeriod(ctx context.Context, id string) (Period, error)
		QueryPeriods(ctx context.Context, ordering []core.DBOrdering) ([]Period, error)
		// UpdatePeriod updates everything but Used, guarded per category
		// like UpdatePool.
		UpdatePeriod(ctx context.Context, period Period) (Period, error)
		ApplyPeriodDelta(ctx context.Context, id string, cat Category, delta float64) error
	}

	Service interface {
		CreatePool(ctx context.Context, actor user.User, np NewPool) (Pool, error)
		GetPool(ctx context.Context, id string) (Pool, error)
		QueryPools(ctx context.Context, ordering []core.DBOrdering) ([]Pool, error)
		UpdatePool(ctx context.Context, actor user.User, id string, up UpdatePool) (Pool, error)
		DeletePool(ctx context.Context, actor user.User, id string) error
		PoolAvailable(ctx context.Context, id string) (int, error)
		ApplyPoolDelta(ctx context.Context, id string, delta int) error
		CompleteExpired(ctx context.Context) (int64, error)

		CreatePeriod(ctx context.Context, actor user.User, np NewPeriod) (Period, error)
		GetPeriod(ctx context.Context, id string) (Period, error)
		QueryPeriods(ctx context.Context, ordering []core.DBOrdering) ([]Period, error)
		UpdatePeriod(ctx context.Context, actor user.User, id string, up UpdatePeriod) (Period, error)
		PeriodAvailable(ctx context.Context, id string, cat Category) (float64, error)
		ApplyPeriodDelta(ctx context.Context, id string, cat Category, delta float64) error
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// requireExecutive is the single capability gate for pool management.
func requireExecutive(actor user.User) error {
	if !actor.IsExecutive() {
		return core.ErrForbidden
	}
	return nil
}

func (svc *service) CreatePool(ctx context.Context, actor user.User, np NewPool) (Pool, error) {
	if err := requireExecutive(actor); err != nil {
		return Pool{}, err
	}
	if err := np.Validate(); err != nil {
		return Pool{}, err
	}
	now := time.Now().UTC()
	pool := Pool{
		Title:       np.Title,
		Description: np.Description,
		Status:      StatusActive,
		Total:       np.Total,
		Used:        0,
		StartDate:   np.StartDate,
		EndDate:     np.EndDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreatePool(ctx, pool)
}

func (svc *service) GetPool(ctx context.Context, id string) (Pool, error) {
	return svc.repo.GetPool(ctx, id)
}

func (svc *service) QueryPools(ctx context.Context, ordering []core.DBOrdering) ([]Pool, error) {
	return svc.repo.QueryPools(ctx, ordering)
}

func (svc *service) UpdatePool(ctx context.Context, actor user.User, id string, up UpdatePool) (Pool, error) {
	if err := requireExecutive(actor); err != nil {
		return Pool{}, err
	}
	pool, err := svc.repo.GetPool(ctx, id)
	if err != nil {
		return Pool{}, err
	}
	if err := up.Validate(pool); err != nil {
		return Pool{}, err
	}

	// The new total rides in the same guarded statement as the rest of
	// the row, validated against the current used amount; never clamped,
	// and nothing is written when it does not fit.
	if up.Total != nil {
		pool.Total = *up.Total
	}
	pool.Title = up.Title
	pool.Description = up.Description
	pool.Status = up.Status
	pool.StartDate = up.StartDate
	pool.EndDate = up.EndDate
	pool.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdatePool(ctx, pool)
}

func (svc *service) DeletePool(ctx context.Context, actor user.User, id string) error {
	if err := requireExecutive(actor); err != nil {
		return err
	}
	inUse, err := svc.repo.PoolInUse(ctx, id)
	if err != nil {
		return err
	}
	if inUse {
		return ErrPoolInUse
	}
	return svc.repo.DeletePool(ctx, id)
}

func (svc *service) PoolAvailable(ctx context.Context, id string) (int, error) {
	pool, err := svc.repo.GetPool(ctx, id)
	if err != nil {
		return 0, err
	}
	return pool.Available(), nil
}

func (svc *service) ApplyPoolDelta(ctx context.Context, id string, delta int) error {
	return svc.repo.ApplyPoolDelta(ctx, id, delta)
}

func (svc *service) CompleteExpired(ctx context.Context) (int64, error) {
	return svc.repo.CompleteExpiredPools(ctx, time.Now().UTC())
}

func (svc *service) CreatePeriod(ctx context.Context, actor user.User, np NewPeriod) (Period, error) {
	if err := requireExecutive(actor); err != nil {
		return Period{}, err
	}
	if err := np.Validate(); err != nil {
		return Period{}, err
	}
	now := time.Now().UTC()
	period := Period{
		Title:       np.Title,
		Description: np.Description,
		Totals:      np.Totals,
		StartDate:   np.StartDate,
		EndDate:     np.EndDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreatePeriod(ctx, period)
}

func (svc *service) GetPeriod(ctx context.Context, id string) (Period, error) {
	return svc.repo.GetPeriod(ctx, id)
}

func (svc *service) QueryPeriods(ctx context.Context, ordering []core.DBOrdering) ([]Period, error) {
	return svc.repo.QueryPeriods(ctx, ordering)
}

func (svc *service) UpdatePeriod(ctx context.Context, actor user.User, id string, up UpdatePeriod) (Period, error) {
	if err := requireExecutive(actor); err != nil {
		return Period{}, err
	}
	period, err := svc.repo.GetPeriod(ctx, id)
	if err != nil {
		return Period{}, err
	}
	if err := up.Validate(period); err != nil {
		return Period{}, err
	}

	if up.Totals != nil {
		period.Totals = *up.Totals
	}
	period.Title = up.Title
	period.Description = up.Description
	period.StartDate = up.StartDate
	period.EndDate = up.EndDate
	period.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdatePeriod(ctx, period)
}

func (svc *service) PeriodAvailable(ctx context.Context, id string, cat Category) (float64, error) {
	period, err := svc.repo.GetPeriod(ctx, id)
	if err != nil {
		return 0, err
	}
	return period.Available(cat), nil
}

func (svc *service) ApplyPeriodDelta(ctx context.Context, id string, cat Category, delta float64) error {
	return svc.repo.ApplyPeriodDelta(ctx, id, cat, delta)
}
