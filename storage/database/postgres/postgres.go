// Package postgres implements the domain repositories on PostgreSQL with
// sqlx. The budget counters are only ever changed through conditional
// UPDATEs so that the capacity check and the write are a single atomic
// statement.
package postgres

import (
	"strings"

	"github.com/kymanga/ruzuku/core"
)

// orderBy renders an ORDER BY clause from the requested ordering. Ordering
// fields come in from the query string; only fields named in the table's
// sortable-column list make it into the SQL, the rest are dropped.
func orderBy(ordering []core.DBOrdering, columns ...string) string {
	if len(ordering) == 0 {
		return ""
	}
	allowed := make(map[string]bool, len(columns))
	for _, col := range columns {
		allowed[col] = true
	}
	orderList := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		if !allowed[ord.Field] {
			continue
		}
		orderList = append(orderList, ord.String())
	}
	if len(orderList) == 0 {
		return ""
	}
	return " ORDER BY " + strings.Join(orderList, ", ")
}
