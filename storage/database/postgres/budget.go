package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/kymanga/ruzuku/core"
	"github.com/kymanga/ruzuku/core/budget"
)

type poolRow struct {
	ID          string      `db:"id"`
	Title       string      `db:"title"`
	Description null.String `db:"description"`
	Status      string      `db:"status"`
	Total       int         `db:"total"`
	Used        int         `db:"used"`
	StartDate   time.Time   `db:"start_date"`
	EndDate     time.Time   `db:"end_date"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

func unpackPool(row poolRow) budget.Pool {
	return budget.Pool{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description.String,
		Status:      budget.PoolStatus(row.Status),
		Total:       row.Total,
		Used:        row.Used,
		StartDate:   row.StartDate,
		EndDate:     row.EndDate,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

type periodRow struct {
	ID             string      `db:"id"`
	Title          string      `db:"title"`
	Description    null.String `db:"description"`
	TotalBachelor  float64     `db:"total_bachelor"`
	UsedBachelor   float64     `db:"used_bachelor"`
	TotalMaster    float64     `db:"total_master"`
	UsedMaster     float64     `db:"used_master"`
	TotalDoctorate float64     `db:"total_doctorate"`
	UsedDoctorate  float64     `db:"used_doctorate"`
	StartDate      time.Time   `db:"start_date"`
	EndDate        time.Time   `db:"end_date"`
	CreatedAt      time.Time   `db:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at"`
}

func unpackPeriod(row periodRow) budget.Period {
	return budget.Period{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description.String,
		Totals: budget.CategoryAmounts{
			Bachelor:  row.TotalBachelor,
			Master:    row.TotalMaster,
			Doctorate: row.TotalDoctorate,
		},
		Used: budget.CategoryAmounts{
			Bachelor:  row.UsedBachelor,
			Master:    row.UsedMaster,
			Doctorate: row.UsedDoctorate,
		},
		StartDate: row.StartDate,
		EndDate:   row.EndDate,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

// usedColumn maps a category to its counter column pair. The columns are
// fixed identifiers, never user input.
func usedColumn(cat budget.Category) (used, total string) {
	switch cat {
	case budget.CategoryMaster:
		return "used_master", "total_master"
	case budget.CategoryDoctorate:
		return "used_doctorate", "total_doctorate"
	default:
		return "used_bachelor", "total_bachelor"
	}
}

var (
	poolOrderColumns   = []string{"title", "status", "total", "used", "start_date", "end_date", "created_at", "updated_at"}
	periodOrderColumns = []string{"title", "start_date", "end_date", "created_at", "updated_at"}
)

type budgetRepository struct {
	db *sqlx.DB
}

var _ budget.Repository = (*budgetRepository)(nil) // interface compliance check

func NewBudgetRepository(db *sql.DB) *budgetRepository {
	return &budgetRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo *budgetRepository) CreatePool(ctx context.Context, pool budget.Pool) (budget.Pool, error) {
	pool.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO budget_pool (id, title, description, status, total, used, start_date, end_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		pool.ID, pool.Title, pool.Description, pool.Status, pool.Total, pool.Used,
		pool.StartDate.UTC(), pool.EndDate.UTC(), pool.CreatedAt, pool.UpdatedAt,
	)
	if err != nil {
		return budget.Pool{}, errors.Wrap(err, "inserting budget pool")
	}
	return pool, nil
}

func (repo *budgetRepository) GetPool(ctx context.Context, id string) (budget.Pool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return budget.Pool{}, budget.ErrNotFound
	}
	var row poolRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM budget_pool WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return budget.Pool{}, budget.ErrNotFound
		}
		return budget.Pool{}, errors.Wrap(err, "finding budget pool")
	}
	return unpackPool(row), nil
}

func (repo *budgetRepository) QueryPools(ctx context.Context, ordering []core.DBOrdering) ([]budget.Pool, error) {
	var rows []poolRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM budget_pool`+orderBy(ordering, poolOrderColumns...)); err != nil {
		return nil, errors.Wrap(err, "querying budget pools")
	}
	pools := make([]budget.Pool, 0, len(rows))
	for _, row := range rows {
		pools = append(pools, unpackPool(row))
	}
	return pools, nil
}

// UpdatePool writes the row in one statement, guarded so that a new total
// is only accepted while the amount already used still fits under it.
// Nothing persists when the guard fails.
func (repo *budgetRepository) UpdatePool(ctx context.Context, pool budget.Pool) (budget.Pool, error) {
	if _, err := uuid.Parse(pool.ID); err != nil {
		return budget.Pool{}, budget.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, `
		UPDATE budget_pool
		SET title = $2, description = $3, status = $4, total = $5, start_date = $6, end_date = $7, updated_at = $8
		WHERE id = $1 AND used <= $5`,
		pool.ID, pool.Title, pool.Description, pool.Status, pool.Total,
		pool.StartDate.UTC(), pool.EndDate.UTC(), pool.UpdatedAt,
	)
	if err != nil {
		return budget.Pool{}, errors.Wrap(err, "updating budget pool")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, err := repo.GetPool(ctx, pool.ID); err != nil {
			return budget.Pool{}, err
		}
		return budget.Pool{}, budget.ErrBudgetBelowUsed
	}
	return repo.GetPool(ctx, pool.ID)
}

// ApplyPoolDelta reserves (or releases) an amount on the pool. The guard
// and the increment are a single statement so concurrent approvals can
// never overspend the pool.
func (repo *budgetRepository) ApplyPoolDelta(ctx context.Context, id string, delta int) error {
	if _, err := uuid.Parse(id); err != nil {
		return budget.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, `
		UPDATE budget_pool
		SET used = used + $2, updated_at = $3
		WHERE id = $1 AND used + $2 >= 0 AND used + $2 <= total`,
		id, delta, time.Now().UTC(),
	)
	if err != nil {
		return errors.Wrap(err, "applying budget pool delta")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, err := repo.GetPool(ctx, id); err != nil {
			return err
		}
		return budget.ErrBudgetExceeded
	}
	return nil
}

func (repo *budgetRepository) PoolInUse(ctx context.Context, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, budget.ErrNotFound
	}
	var inUse bool
	err := repo.db.GetContext(ctx, &inUse, `SELECT EXISTS (SELECT 1 FROM funding_request WHERE budget_id = $1)`, id)
	if err != nil {
		return false, errors.Wrap(err, "checking budget pool references")
	}
	return inUse, nil
}

func (repo *budgetRepository) DeletePool(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return budget.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM budget_pool WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting budget pool")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return budget.ErrNotFound
	}
	return nil
}

func (repo *budgetRepository) CompleteExpiredPools(ctx context.Context, now time.Time) (int64, error) {
	res, err := repo.db.ExecContext(ctx, `
		UPDATE budget_pool
		SET status = $1, updated_at = $2
		WHERE status = $3 AND end_date < $2`,
		budget.StatusCompleted, now.UTC(), budget.StatusActive,
	)
	if err != nil {
		return 0, errors.Wrap(err, "completing expired budget pools")
	}
	return res.RowsAffected()
}

func (repo *budgetRepository) CreatePeriod(ctx context.Context, period budget.Period) (budget.Period, error) {
	period.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO scholarship_period
			(id, title, description, total_bachelor, used_bachelor, total_master, used_master,
			 total_doctorate, used_doctorate, start_date, end_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		period.ID, period.Title, period.Description,
		period.Totals.Bachelor, period.Used.Bachelor,
		period.Totals.Master, period.Used.Master,
		period.Totals.Doctorate, period.Used.Doctorate,
		period.StartDate.UTC(), period.EndDate.UTC(), period.CreatedAt, period.UpdatedAt,
	)
	if err != nil {
		return budget.Period{}, errors.Wrap(err, "inserting application period")
	}
	return period, nil
}

func (repo *budgetRepository) GetPeriod(ctx context.Context, id string) (budget.Period, error) {
	if _, err := uuid.Parse(id); err != nil {
		return budget.Period{}, budget.ErrPeriodNotFound
	}
	var row periodRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM scholarship_period WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return budget.Period{}, budget.ErrPeriodNotFound
		}
		return budget.Period{}, errors.Wrap(err, "finding application period")
	}
	return unpackPeriod(row), nil
}

func (repo *budgetRepository) QueryPeriods(ctx context.Context, ordering []core.DBOrdering) ([]budget.Period, error) {
	var rows []periodRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM scholarship_period`+orderBy(ordering, periodOrderColumns...)); err != nil {
		return nil, errors.Wrap(err, "querying application periods")
	}
	periods := make([]budget.Period, 0, len(rows))
	for _, row := range rows {
		periods = append(periods, unpackPeriod(row))
	}
	return periods, nil
}

// UpdatePeriod writes the row in one statement, guarded so that new
// per-category totals are only accepted while each category's used amount
// still fits under its total.
func (repo *budgetRepository) UpdatePeriod(ctx context.Context, period budget.Period) (budget.Period, error) {
	if _, err := uuid.Parse(period.ID); err != nil {
		return budget.Period{}, budget.ErrPeriodNotFound
	}
	res, err := repo.db.ExecContext(ctx, `
		UPDATE scholarship_period
		SET title = $2, description = $3, total_bachelor = $4, total_master = $5, total_doctorate = $6,
			start_date = $7, end_date = $8, updated_at = $9
		WHERE id = $1 AND used_bachelor <= $4 AND used_master <= $5 AND used_doctorate <= $6`,
		period.ID, period.Title, period.Description,
		period.Totals.Bachelor, period.Totals.Master, period.Totals.Doctorate,
		period.StartDate.UTC(), period.EndDate.UTC(), period.UpdatedAt,
	)
	if err != nil {
		return budget.Period{}, errors.Wrap(err, "updating application period")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, err := repo.GetPeriod(ctx, period.ID); err != nil {
			return budget.Period{}, err
		}
		return budget.Period{}, budget.ErrBudgetBelowUsed
	}
	return repo.GetPeriod(ctx, period.ID)
}

// ApplyPeriodDelta reserves (or releases) an amount on the period's
// category bucket, with the same single-statement guard as pools.
func (repo *budgetRepository) ApplyPeriodDelta(ctx context.Context, id string, cat budget.Category, delta float64) error {
	if _, err := uuid.Parse(id); err != nil {
		return budget.ErrPeriodNotFound
	}
	used, total := usedColumn(cat)
	res, err := repo.db.ExecContext(ctx, `
		UPDATE scholarship_period
		SET `+used+` = `+used+` + $2, updated_at = $3
		WHERE id = $1 AND `+used+` + $2 >= 0 AND `+used+` + $2 <= `+total,
		id, delta, time.Now().UTC(),
	)
	if err != nil {
		return errors.Wrap(err, "applying application period delta")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, err := repo.GetPeriod(ctx, id); err != nil {
			return err
		}
		return budget.ErrBudgetExceeded
	}
	return nil
}
