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
	"github.com/kymanga/ruzuku/core/funding"
)

type fundingRow struct {
	ID              string      `db:"id"`
	ApplicantID     string      `db:"applicant_id"`
	Status          string      `db:"status"`
	Purpose         string      `db:"purpose"`
	Destination     string      `db:"destination"`
	EventDate       null.Time   `db:"event_date"`
	AmountRequested int         `db:"amount_requested"`
	AmountGranted   int         `db:"amount_granted"`
	PoolID          null.String `db:"budget_id"`
	Response        null.String `db:"response"`
	CreatedAt       time.Time   `db:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at"`
}

func packRequest(req funding.Request) fundingRow {
	return fundingRow{
		ID:              req.ID,
		ApplicantID:     req.ApplicantID,
		Status:          string(req.Status),
		Purpose:         req.Purpose,
		Destination:     req.Destination,
		EventDate:       null.NewTime(req.EventDate.UTC(), !req.EventDate.IsZero()),
		AmountRequested: req.AmountRequested,
		AmountGranted:   req.AmountGranted,
		PoolID:          null.NewString(req.PoolID, req.PoolID != ""),
		Response:        null.NewString(req.Response, req.Response != ""),
		CreatedAt:       req.CreatedAt,
		UpdatedAt:       req.UpdatedAt,
	}
}

func unpackRequest(row fundingRow) funding.Request {
	return funding.Request{
		ID:              row.ID,
		ApplicantID:     row.ApplicantID,
		Status:          funding.Status(row.Status),
		Purpose:         row.Purpose,
		Destination:     row.Destination,
		EventDate:       row.EventDate.Time,
		AmountRequested: row.AmountRequested,
		AmountGranted:   row.AmountGranted,
		PoolID:          row.PoolID.String,
		Response:        row.Response.String,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
}

var requestOrderColumns = []string{"status", "destination", "event_date", "amount_requested", "amount_granted", "created_at", "updated_at"}

type fundingRepository struct {
	db *sqlx.DB
}

var _ funding.Repository = (*fundingRepository)(nil) // interface compliance check

func NewFundingRepository(db *sql.DB) *fundingRepository {
	return &fundingRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo *fundingRepository) CreateRequest(ctx context.Context, req funding.Request) (funding.Request, error) {
	req.ID = uuid.New().String()
	row := packRequest(req)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO funding_request
			(id, applicant_id, status, purpose, destination, event_date,
			 amount_requested, amount_granted, budget_id, response, created_at, updated_at)
		VALUES (:id, :applicant_id, :status, :purpose, :destination, :event_date,
			:amount_requested, :amount_granted, :budget_id, :response, :created_at, :updated_at)`,
		row,
	)
	if err != nil {
		return funding.Request{}, errors.Wrap(err, "inserting funding request")
	}
	return req, nil
}

func (repo *fundingRepository) GetRequest(ctx context.Context, id string) (funding.Request, error) {
	if _, err := uuid.Parse(id); err != nil {
		return funding.Request{}, funding.ErrNotFound
	}
	var row fundingRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM funding_request WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return funding.Request{}, funding.ErrNotFound
		}
		return funding.Request{}, errors.Wrap(err, "finding funding request")
	}
	return unpackRequest(row), nil
}

func (repo *fundingRepository) QueryRequests(ctx context.Context, filter *funding.QueryFilter, ordering []core.DBOrdering) ([]funding.Request, error) {
	query := `SELECT * FROM funding_request`
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
		if filter.ApplicantID != "" {
			if _, err := uuid.Parse(filter.ApplicantID); err != nil {
				return []funding.Request{}, nil
			}
			conds = append(conds, "applicant_id = "+arg(filter.ApplicantID))
		}
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += orderBy(ordering, requestOrderColumns...)

	var rows []fundingRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying funding requests")
	}
	reqs := make([]funding.Request, 0, len(rows))
	for _, row := range rows {
		reqs = append(reqs, unpackRequest(row))
	}
	return reqs, nil
}

func (repo *fundingRepository) UpdateRequest(ctx context.Context, req funding.Request) (funding.Request, error) {
	if _, err := uuid.Parse(req.ID); err != nil {
		return funding.Request{}, funding.ErrNotFound
	}
	row := packRequest(req)
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE funding_request
		SET status = :status, purpose = :purpose, destination = :destination, event_date = :event_date,
			amount_requested = :amount_requested, amount_granted = :amount_granted,
			budget_id = :budget_id, response = :response, updated_at = :updated_at
		WHERE id = :id`,
		row,
	)
	if err != nil {
		return funding.Request{}, errors.Wrap(err, "updating funding request")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return funding.Request{}, funding.ErrNotFound
	}
	return req, nil
}
