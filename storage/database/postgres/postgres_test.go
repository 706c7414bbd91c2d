package postgres

import (
	"testing"

	"github.com/kymanga/ruzuku/core"
)

func Test_orderBy(t *testing.T) {
	tests := []struct {
		name     string
		ordering []core.DBOrdering
		want     string
	}{
		{name: "no ordering"},
		{
			name: "known columns",
			ordering: []core.DBOrdering{
				{Field: "created_at", Ascending: false},
				{Field: "title", Ascending: true},
			},
			want: " ORDER BY created_at DESC, title ASC",
		},
		{
			name: "unknown field is dropped",
			ordering: []core.DBOrdering{
				{Field: "total; DROP TABLE budget_pool; --", Ascending: true},
				{Field: "title", Ascending: true},
			},
			want: " ORDER BY title ASC",
		},
		{
			name:     "only unknown fields",
			ordering: []core.DBOrdering{{Field: "(SELECT 1)", Ascending: true}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := orderBy(tt.ordering, "title", "created_at"); got != tt.want {
				t.Errorf("orderBy() = %q, want %q", got, tt.want)
			}
		})
	}
}
