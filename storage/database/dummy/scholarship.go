package dummydb

import (
	"context"

	"github.com/google/uuid"

	"github.com/kymanga/ruzuku/core"
	"github.com/kymanga/ruzuku/core/scholarship"
)

type scholarshipRepository struct {
	db *scholarshipTable
}

var _ scholarship.Repository = (*scholarshipRepository)(nil) // interface compliance check

func NewScholarshipRepository(db *DB) scholarship.Repository {
	return &scholarshipRepository{db: db.scholarship}
}

func (repo *scholarshipRepository) CreateApplication(ctx context.Context, app scholarship.Application) (scholarship.Application, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	app.ID = uuid.New().String()
	repo.db.table[app.ID] = &app
	return app, nil
}

func (repo *scholarshipRepository) GetApplication(ctx context.Context, id string) (scholarship.Application, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if app, ok := repo.db.table[id]; ok {
		return *app, nil
	}
	return scholarship.Application{}, scholarship.ErrNotFound
}

func (repo *scholarshipRepository) QueryApplications(ctx context.Context, filter *scholarship.QueryFilter, ordering []core.DBOrdering) ([]scholarship.Application, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	apps := make([]scholarship.Application, 0, len(repo.db.table))
	for _, app := range repo.db.table {
		if filter != nil {
			if filter.Status != "" && app.Status != filter.Status {
				continue
			}
			if filter.StudentID != "" && app.StudentID != filter.StudentID {
				continue
			}
			if filter.PeriodID != "" && app.PeriodID != filter.PeriodID {
				continue
			}
		}
		apps = append(apps, *app)
	}
	return apps, nil
}

func (repo *scholarshipRepository) UpdateApplication(ctx context.Context, app scholarship.Application) (scholarship.Application, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[app.ID]; !ok {
		return scholarship.Application{}, scholarship.ErrNotFound
	}
	repo.db.table[app.ID] = &app
	return app, nil
}
