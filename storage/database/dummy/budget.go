package dummydb

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kymanga/ruzuku/core"
	"github.com/kymanga/ruzuku/core/budget"
)

type budgetRepository struct {
	pools   *poolTable
	periods *periodTable
	funding *fundingTable
}

var _ budget.Repository = (*budgetRepository)(nil) // interface compliance check

func NewBudgetRepository(db *DB) budget.Repository {
	return &budgetRepository{pools: db.pool, periods: db.period, funding: db.funding}
}

func (repo *budgetRepository) CreatePool(ctx context.Context, pool budget.Pool) (budget.Pool, error) {
	repo.pools.Lock()
	defer repo.pools.Unlock()

	pool.ID = uuid.New().String()
	repo.pools.table[pool.ID] = &pool
	return pool, nil
}

func (repo *budgetRepository) GetPool(ctx context.Context, id string) (budget.Pool, error) {
	repo.pools.RLock()
	defer repo.pools.RUnlock()

	if pool, ok := repo.pools.table[id]; ok {
		return *pool, nil
	}
	return budget.Pool{}, budget.ErrNotFound
}

func (repo *budgetRepository) QueryPools(ctx context.Context, ordering []core.DBOrdering) ([]budget.Pool, error) {
	repo.pools.RLock()
	defer repo.pools.RUnlock()

	pools := make([]budget.Pool, 0, len(repo.pools.table))
	for _, p := range repo.pools.table {
		pools = append(pools, *p)
	}
	return pools, nil
}

// UpdatePool checks the total against the current used amount and writes
// the row under the table lock, like the single guarded statement in
// PostgreSQL. Nothing changes when the check fails.
func (repo *budgetRepository) UpdatePool(ctx context.Context, pool budget.Pool) (budget.Pool, error) {
	repo.pools.Lock()
	defer repo.pools.Unlock()

	orig, ok := repo.pools.table[pool.ID]
	if !ok {
		return budget.Pool{}, budget.ErrNotFound
	}
	if orig.Used > pool.Total {
		return budget.Pool{}, budget.ErrBudgetBelowUsed
	}
	orig.Title = pool.Title
	orig.Description = pool.Description
	orig.Status = pool.Status
	orig.Total = pool.Total
	orig.StartDate = pool.StartDate
	orig.EndDate = pool.EndDate
	orig.UpdatedAt = pool.UpdatedAt
	return *orig, nil
}

// ApplyPoolDelta checks and applies the delta under the table lock, like
// the single-statement conditional update in PostgreSQL.
func (repo *budgetRepository) ApplyPoolDelta(ctx context.Context, id string, delta int) error {
	repo.pools.Lock()
	defer repo.pools.Unlock()

	pool, ok := repo.pools.table[id]
	if !ok {
		return budget.ErrNotFound
	}
	used := pool.Used + delta
	if used < 0 || used > pool.Total {
		return budget.ErrBudgetExceeded
	}
	pool.Used = used
	pool.UpdatedAt = time.Now().UTC()
	return nil
}

func (repo *budgetRepository) PoolInUse(ctx context.Context, id string) (bool, error) {
	repo.funding.RLock()
	defer repo.funding.RUnlock()

	for _, req := range repo.funding.table {
		if req.PoolID == id {
			return true, nil
		}
	}
	return false, nil
}

func (repo *budgetRepository) DeletePool(ctx context.Context, id string) error {
	repo.pools.Lock()
	defer repo.pools.Unlock()

	if _, ok := repo.pools.table[id]; !ok {
		return budget.ErrNotFound
	}
	delete(repo.pools.table, id)
	return nil
}

func (repo *budgetRepository) CompleteExpiredPools(ctx context.Context, now time.Time) (int64, error) {
	repo.pools.Lock()
	defer repo.pools.Unlock()

	var completed int64
	for _, pool := range repo.pools.table {
		if pool.Status == budget.StatusActive && pool.EndDate.Before(now) {
			pool.Status = budget.StatusCompleted
			pool.UpdatedAt = now
			completed++
		}
	}
	return completed, nil
}

func (repo *budgetRepository) CreatePeriod(ctx context.Context, period budget.Period) (budget.Period, error) {
	repo.periods.Lock()
	defer repo.periods.Unlock()

	period.ID = uuid.New().String()
	repo.periods.table[period.ID] = &period
	return period, nil
}

func (repo *budgetRepository) GetPeriod(ctx context.Context, id string) (budget.Period, error) {
	repo.periods.RLock()
	defer repo.periods.RUnlock()

	if period, ok := repo.periods.table[id]; ok {
		return *period, nil
	}
	return budget.Period{}, budget.ErrPeriodNotFound
}

func (repo *budgetRepository) QueryPeriods(ctx context.Context, ordering []core.DBOrdering) ([]budget.Period, error) {
	repo.periods.RLock()
	defer repo.periods.RUnlock()

	periods := make([]budget.Period, 0, len(repo.periods.table))
	for _, p := range repo.periods.table {
		periods = append(periods, *p)
	}
	return periods, nil
}

// UpdatePeriod checks every category's total against its used amount and
// writes the row under the table lock. Nothing changes when a check fails.
func (repo *budgetRepository) UpdatePeriod(ctx context.Context, period budget.Period) (budget.Period, error) {
	repo.periods.Lock()
	defer repo.periods.Unlock()

	orig, ok := repo.periods.table[period.ID]
	if !ok {
		return budget.Period{}, budget.ErrPeriodNotFound
	}
	for _, cat := range budget.Categories {
		if orig.Used.For(cat) > period.Totals.For(cat) {
			return budget.Period{}, budget.ErrBudgetBelowUsed
		}
	}
	orig.Title = period.Title
	orig.Description = period.Description
	orig.Totals = period.Totals
	orig.StartDate = period.StartDate
	orig.EndDate = period.EndDate
	orig.UpdatedAt = period.UpdatedAt
	return *orig, nil
}

func (repo *budgetRepository) ApplyPeriodDelta(ctx context.Context, id string, cat budget.Category, delta float64) error {
	repo.periods.Lock()
	defer repo.periods.Unlock()

	period, ok := repo.periods.table[id]
	if !ok {
		return budget.ErrPeriodNotFound
	}
	used := period.Used.For(cat) + delta
	if used < 0 || used > period.Totals.For(cat) {
		return budget.ErrBudgetExceeded
	}
	period.Used.Set(cat, used)
	period.UpdatedAt = time.Now().UTC()
	return nil
}
