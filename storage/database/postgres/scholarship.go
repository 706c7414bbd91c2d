package postgres

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/kymanga/ruzuku/core"
	"github.com/kymanga/ruzuku/core/scholarship"
)

type scholarshipRow struct {
	ID              string      `db:"id"`
	StudentID       string      `db:"student_id"`
	PeriodID        string      `db:"period_id"`
	Status          string      `db:"status"`
	TutorStatus     string      `db:"status_tutor"`
	Degree          string      `db:"degree"`
	Motivation      string      `db:"motivation"`
	AmountRequested float64     `db:"amount_requested"`
	AmountGranted   float64     `db:"amount_granted"`
	Response        null.String `db:"response"`
	CreatedAt       time.Time   `db:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at"`
}

func packApplication(app scholarship.Application) scholarshipRow {
	return scholarshipRow{
		ID:              app.ID,
		StudentID:       app.StudentID,
		PeriodID:        app.PeriodID,
		Status:          string(app.Status),
		TutorStatus:     string(app.TutorStatus),
		Degree:          app.Degree,
		Motivation:      app.Motivation,
		AmountRequested: app.AmountRequested,
		AmountGranted:   app.AmountGranted,
		Response:        null.NewString(app.Response, app.Response != ""),
		CreatedAt:       app.CreatedAt,
		UpdatedAt:       app.UpdatedAt,
	}
}

func unpackApplication(row scholarshipRow) scholarship.Application {
	return scholarship.Application{
		ID:              row.ID,
		StudentID:       row.StudentID,
		PeriodID:        row.PeriodID,
		Status:          scholarship.Status(row.Status),
		TutorStatus:     scholarship.Status(row.TutorStatus),
		Degree:          row.Degree,
		Motivation:      row.Motivation,
		AmountRequested: row.AmountRequested,
		AmountGranted:   row.AmountGranted,
		Response:        row.Response.String,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
}

var applicationOrderColumns = []string{"status", "status_tutor", "degree", "amount_requested", "amount_granted", "created_at", "updated_at"}

type scholarshipRepository struct {
	db *sqlx.DB
}

var _ scholarship.Repository = (*scholarshipRepository)(nil) // interface compliance check

func NewScholarshipRepository(db *sql.DB) *scholarshipRepository {
	return &scholarshipRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo *scholarshipRepository) CreateApplication(ctx context.Context, app scholarship.Application) (scholarship.Application, error) {
	app.ID = uuid.New().String()
	row := packApplication(app)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO scholarship_application
			(id, student_id, period_id, status, status_tutor, degree, motivation,
			 amount_requested, amount_granted, response, created_at, updated_at)
		VALUES (:id, :student_id, :period_id, :status, :status_tutor, :degree, :motivation,
			:amount_requested, :amount_granted, :response, :created_at, :updated_at)`,
		row,
	)
	if err != nil {
		return scholarship.Application{}, errors.Wrap(err, "inserting scholarship application")
	}
	return app, nil
}

func (repo *scholarshipRepository) GetApplication(ctx context.Context, id string) (scholarship.Application, error) {
	if _, err := uuid.Parse(id); err != nil {
		return scholarship.Application{}, scholarship.ErrNotFound
	}
	var row scholarshipRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM scholarship_application WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return scholarship.Application{}, scholarship.ErrNotFound
		}
		return scholarship.Application{}, errors.Wrap(err, "finding scholarship application")
	}
	return unpackApplication(row), nil
}

func (repo *scholarshipRepository) QueryApplications(ctx context.Context, filter *scholarship.QueryFilter, ordering []core.DBOrdering) ([]scholarship.Application, error) {
	query := `SELECT * FROM scholarship_application`
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter != nil {
		if filter.Status != "" {
			conds = append(conds, "status = "+arg(string(filter.Status)))
		}
		if filter.StudentID != "" {
			if _, err := uuid.Parse(filter.StudentID); err != nil {
				return []scholarship.Application{}, nil
			}
			conds = append(conds, "student_id = "+arg(filter.StudentID))
		}
		if filter.PeriodID != "" {
			if _, err := uuid.Parse(filter.PeriodID); err != nil {
				return []scholarship.Application{}, nil
			}
			conds = append(conds, "period_id = "+arg(filter.PeriodID))
		}
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += orderBy(ordering, applicationOrderColumns...)

	var rows []scholarshipRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying scholarship applications")
	}
	apps := make([]scholarship.Application, 0, len(rows))
	for _, row := range rows {
		apps = append(apps, unpackApplication(row))
	}
	return apps, nil
}

func (repo *scholarshipRepository) UpdateApplication(ctx context.Context, app scholarship.Application) (scholarship.Application, error) {
	if _, err := uuid.Parse(app.ID); err != nil {
		return scholarship.Application{}, scholarship.ErrNotFound
	}
	row := packApplication(app)
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE scholarship_application
		SET status = :status, status_tutor = :status_tutor, degree = :degree, motivation = :motivation,
			amount_requested = :amount_requested, amount_granted = :amount_granted,
			response = :response, updated_at = :updated_at
		WHERE id = :id`,
		row,
	)
	if err != nil {
		return scholarship.Application{}, errors.Wrap(err, "updating scholarship application")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return scholarship.Application{}, scholarship.ErrNotFound
	}
	return app, nil
}
