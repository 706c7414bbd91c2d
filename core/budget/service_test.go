package budget_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kymanga/ruzuku/core"
	"github.com/kymanga/ruzuku/core/budget"
	"github.com/kymanga/ruzuku/core/funding"
	"github.com/kymanga/ruzuku/core/user"
	dummydb "github.com/kymanga/ruzuku/storage/database/dummy"
)

var (
	exec    = user.User{ID: "a9f6f1dc-94c4-4dd3-9291-f4bbde0eb053", Roles: []string{user.RoleExecBoard}}
	student = user.User{ID: "e48fdbb0-32ae-46f6-bd0a-d020ec94ff57", Roles: []string{user.RoleStudent}}
)

func setup(t *testing.T) (budget.Service, *dummydb.DB) {
	t.Helper()
	db, err := dummydb.Open()
	require.NoError(t, err)
	return budget.NewService(dummydb.NewBudgetRepository(db)), db
}

func newPool(total int) budget.NewPool {
	now := time.Now()
	return budget.NewPool{
		Title:     "Conference travel",
		Total:     total,
		StartDate: now,
		EndDate:   now.AddDate(0, 6, 0),
	}
}

func TestService_CreatePool(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.CreatePool(ctx, student, newPool(100))
	assert.Equal(t, core.ErrForbidden, errors.Cause(err))

	pool, err := svc.CreatePool(ctx, exec, newPool(100))
	require.NoError(t, err)
	assert.Equal(t, budget.StatusActive, pool.Status)
	assert.Equal(t, 100, pool.Total)
	assert.Equal(t, 0, pool.Used)
	assert.Equal(t, 100, pool.Available())

	// end date before start date is refused
	np := newPool(100)
	np.EndDate = np.StartDate.AddDate(0, 0, -1)
	_, err = svc.CreatePool(ctx, exec, np)
	assert.Error(t, err)

	// a single-day pool with equal start and end dates is fine
	same := newPool(100)
	same.EndDate = same.StartDate
	_, err = svc.CreatePool(ctx, exec, same)
	assert.NoError(t, err)
}

func TestService_ApplyPoolDelta(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	pool, err := svc.CreatePool(ctx, exec, newPool(100))
	require.NoError(t, err)

	require.NoError(t, svc.ApplyPoolDelta(ctx, pool.ID, 60))
	require.NoError(t, svc.ApplyPoolDelta(ctx, pool.ID, 40))

	// full; nothing more fits
	err = svc.ApplyPoolDelta(ctx, pool.ID, 1)
	assert.Equal(t, budget.ErrBudgetExceeded, errors.Cause(err))

	// releases may not drive used below zero
	err = svc.ApplyPoolDelta(ctx, pool.ID, -101)
	assert.Equal(t, budget.ErrBudgetExceeded, errors.Cause(err))

	require.NoError(t, svc.ApplyPoolDelta(ctx, pool.ID, -100))
	available, err := svc.PoolAvailable(ctx, pool.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, available)

	err = svc.ApplyPoolDelta(ctx, "1a0c0cae-7917-4a46-a9ca-f55bcb14ad3b", 1)
	assert.Equal(t, budget.ErrNotFound, errors.Cause(err))
}

func TestService_UpdatePool(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	pool, err := svc.CreatePool(ctx, exec, newPool(100))
	require.NoError(t, err)
	require.NoError(t, svc.ApplyPoolDelta(ctx, pool.ID, 80))

	// total cannot be lowered under the amount already used, and a
	// refused update leaves the whole row untouched, metadata included
	lower := 50
	_, err = svc.UpdatePool(ctx, exec, pool.ID, budget.UpdatePool{Title: "Renamed", Total: &lower})
	assert.Equal(t, budget.ErrBudgetBelowUsed, errors.Cause(err))
	stored, err := svc.GetPool(ctx, pool.ID)
	require.NoError(t, err)
	assert.Equal(t, pool.Title, stored.Title)
	assert.Equal(t, 100, stored.Total)

	// raising it is fine; unset fields keep their stored values
	higher := 200
	updated, err := svc.UpdatePool(ctx, exec, pool.ID, budget.UpdatePool{Total: &higher})
	require.NoError(t, err)
	assert.Equal(t, 200, updated.Total)
	assert.Equal(t, 80, updated.Used)
	assert.Equal(t, pool.Title, updated.Title)

	_, err = svc.UpdatePool(ctx, student, pool.ID, budget.UpdatePool{})
	assert.Equal(t, core.ErrForbidden, errors.Cause(err))
}

func TestService_DeletePool(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()

	pool, err := svc.CreatePool(ctx, exec, newPool(100))
	require.NoError(t, err)

	// referenced pools cannot be deleted
	fundingRepo := dummydb.NewFundingRepository(db)
	_, err = fundingRepo.CreateRequest(ctx, funding.Request{ApplicantID: student.ID, PoolID: pool.ID})
	require.NoError(t, err)

	err = svc.DeletePool(ctx, exec, pool.ID)
	assert.Equal(t, budget.ErrPoolInUse, errors.Cause(err))

	free, err := svc.CreatePool(ctx, exec, newPool(50))
	require.NoError(t, err)
	require.NoError(t, svc.DeletePool(ctx, exec, free.ID))
	_, err = svc.GetPool(ctx, free.ID)
	assert.Equal(t, budget.ErrNotFound, errors.Cause(err))

	assert.Equal(t, core.ErrForbidden, errors.Cause(svc.DeletePool(ctx, student, pool.ID)))
}

func TestService_CompleteExpired(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	np := newPool(100)
	np.StartDate = time.Now().AddDate(0, -2, 0)
	np.EndDate = time.Now().AddDate(0, -1, 0)
	expired, err := svc.CreatePool(ctx, exec, np)
	require.NoError(t, err)

	current, err := svc.CreatePool(ctx, exec, newPool(100))
	require.NoError(t, err)

	n, err := svc.CompleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	pool, err := svc.GetPool(ctx, expired.ID)
	require.NoError(t, err)
	assert.Equal(t, budget.StatusCompleted, pool.Status)

	pool, err = svc.GetPool(ctx, current.ID)
	require.NoError(t, err)
	assert.Equal(t, budget.StatusActive, pool.Status)
}

func newPeriod(bachelor, master, doctorate float64) budget.NewPeriod {
	now := time.Now()
	return budget.NewPeriod{
		Title:     "Fall intake",
		Totals:    budget.CategoryAmounts{Bachelor: bachelor, Master: master, Doctorate: doctorate},
		StartDate: now,
		EndDate:   now.AddDate(0, 3, 0),
	}
}

func TestService_ApplyPeriodDelta(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	period, err := svc.CreatePeriod(ctx, exec, newPeriod(1000, 500, 0))
	require.NoError(t, err)

	require.NoError(t, svc.ApplyPeriodDelta(ctx, period.ID, budget.CategoryBachelor, 400))

	// buckets are independent: the master bucket is untouched
	available, err := svc.PeriodAvailable(ctx, period.ID, budget.CategoryMaster)
	require.NoError(t, err)
	assert.Equal(t, 500.0, available)

	available, err = svc.PeriodAvailable(ctx, period.ID, budget.CategoryBachelor)
	require.NoError(t, err)
	assert.Equal(t, 600.0, available)

	// the doctorate bucket has no allocation at all
	err = svc.ApplyPeriodDelta(ctx, period.ID, budget.CategoryDoctorate, 1)
	assert.Equal(t, budget.ErrBudgetExceeded, errors.Cause(err))
}

func TestService_UpdatePeriod(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	period, err := svc.CreatePeriod(ctx, exec, newPeriod(1000, 500, 200))
	require.NoError(t, err)
	require.NoError(t, svc.ApplyPeriodDelta(ctx, period.ID, budget.CategoryMaster, 450))

	// lowering the master total below its used amount is refused and the
	// whole row keeps its stored values
	totals := budget.CategoryAmounts{Bachelor: 1000, Master: 400, Doctorate: 200}
	_, err = svc.UpdatePeriod(ctx, exec, period.ID, budget.UpdatePeriod{Title: "Renamed", Totals: &totals})
	assert.Equal(t, budget.ErrBudgetBelowUsed, errors.Cause(err))
	stored, err := svc.GetPeriod(ctx, period.ID)
	require.NoError(t, err)
	assert.Equal(t, period.Title, stored.Title)
	assert.Equal(t, 500.0, stored.Totals.Master)

	totals.Master = 450
	updated, err := svc.UpdatePeriod(ctx, exec, period.ID, budget.UpdatePeriod{Totals: &totals})
	require.NoError(t, err)
	assert.Equal(t, 450.0, updated.Totals.Master)
	assert.Equal(t, 0.0, updated.Available(budget.CategoryMaster))
}
