package dummydb

import (
	"context"

	"github.com/google/uuid"

	"github.com/kymanga/ruzuku/core"
	"github.com/kymanga/ruzuku/core/funding"
)

type fundingRepository struct {
	db *fundingTable
}

var _ funding.Repository = (*fundingRepository)(nil) // interface compliance check

func NewFundingRepository(db *DB) funding.Repository {
	return &fundingRepository{db: db.funding}
}

func (repo *fundingRepository) CreateRequest(ctx context.Context, req funding.Request) (funding.Request, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	req.ID = uuid.New().String()
	repo.db.table[req.ID] = &req
	return req, nil
}

func (repo *fundingRepository) GetRequest(ctx context.Context, id string) (funding.Request, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if req, ok := repo.db.table[id]; ok {
		return *req, nil
	}
	return funding.Request{}, funding.ErrNotFound
}

func (repo *fundingRepository) QueryRequests(ctx context.Context, filter *funding.QueryFilter, ordering []core.DBOrdering) ([]funding.Request, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	reqs := make([]funding.Request, 0, len(repo.db.table))
	for _, req := range repo.db.table {
		if filter != nil {
			if filter.Status != "" && req.Status != filter.Status {
				continue
			}
			if filter.ApplicantID != "" && req.ApplicantID != filter.ApplicantID {
				continue
			}
		}
		reqs = append(reqs, *req)
	}
	return reqs, nil
}

func (repo *fundingRepository) UpdateRequest(ctx context.Context, req funding.Request) (funding.Request, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[req.ID]; !ok {
		return funding.Request{}, funding.ErrNotFound
	}
	repo.db.table[req.ID] = &req
	return req, nil
}
