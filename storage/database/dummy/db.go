// Package dummydb is an in-memory database used in tests. The budget
// tables enforce the same capacity invariants under their table lock that
// PostgreSQL enforces with conditional updates.
package dummydb

import (
	"sync"

	"github.com/kymanga/ruzuku/core/budget"
	"github.com/kymanga/ruzuku/core/funding"
	"github.com/kymanga/ruzuku/core/scholarship"
	"github.com/kymanga/ruzuku/core/user"
)

type (
	DB struct {
		user        *userTable
		pool        *poolTable
		period      *periodTable
		funding     *fundingTable
		scholarship *scholarshipTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	poolTable struct {
		sync.RWMutex
		table map[string]*budget.Pool
	}

	periodTable struct {
		sync.RWMutex
		table map[string]*budget.Period
	}

	fundingTable struct {
		sync.RWMutex
		table map[string]*funding.Request
	}

	scholarshipTable struct {
		sync.RWMutex
		table map[string]*scholarship.Application
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:        &userTable{table: make(map[string]*user.User)},
		pool:        &poolTable{table: make(map[string]*budget.Pool)},
		period:      &periodTable{table: make(map[string]*budget.Period)},
		funding:     &fundingTable{table: make(map[string]*funding.Request)},
		scholarship: &scholarshipTable{table: make(map[string]*scholarship.Application)},
	}
	return db, nil
}
