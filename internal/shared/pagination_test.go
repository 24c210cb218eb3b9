package shared

import "testing"

func TestNewPagination(t *testing.T) {
	cases := []struct {
		name              string
		page, perPage     int
		total             int
		wantPage, wantPer int
		wantTotalPages    int
	}{
		{"defaults", 0, 0, 45, 1, 20, 3},
		{"explicit", 2, 10, 45, 2, 10, 5},
		{"negative inputs", -1, -5, 7, 1, 20, 1},
		{"empty set", 1, 20, 0, 1, 20, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewPagination(tc.page, tc.perPage, tc.total)
			if p.Page != tc.wantPage {
				t.Fatalf("page: expected %d, got %d", tc.wantPage, p.Page)
			}
			if p.PerPage != tc.wantPer {
				t.Fatalf("per page: expected %d, got %d", tc.wantPer, p.PerPage)
			}
			if p.Total != tc.total {
				t.Fatalf("total: expected %d, got %d", tc.total, p.Total)
			}
			if p.TotalPages != tc.wantTotalPages {
				t.Fatalf("total pages: expected %d, got %d", tc.wantTotalPages, p.TotalPages)
			}
		})
	}
}
