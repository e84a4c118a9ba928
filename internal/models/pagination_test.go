package models

import "testing"

func TestNewPaginationResult(t *testing.T) {
	tests := []struct {
		name       string
		page       int
		pageSize   int
		totalCount int64
		wantPages  int
	}{
		{"exact multiple", 1, 20, 100, 5},
		{"partial last page", 1, 20, 101, 6},
		{"single page", 1, 20, 5, 1},
		{"empty", 1, 20, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewPaginationResult(tt.page, tt.pageSize, tt.totalCount)
			if result.TotalPages != tt.wantPages {
				t.Errorf("TotalPages = %d, want %d", result.TotalPages, tt.wantPages)
			}
			if result.TotalCount != tt.totalCount {
				t.Errorf("TotalCount = %d, want %d", result.TotalCount, tt.totalCount)
			}
		})
	}
}

func TestValidateAndSetDefaults(t *testing.T) {
	tests := []struct {
		name         string
		page         int
		pageSize     int
		wantPage     int
		wantPageSize int
	}{
		{"zero values", 0, 0, 1, DefaultPageSize},
		{"negative page", -3, 50, 1, 50},
		{"page size over max", 2, 500, 2, MaxPageSize},
		{"valid unchanged", 3, 25, 3, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, pageSize := tt.page, tt.pageSize
			ValidateAndSetDefaults(&page, &pageSize)
			if page != tt.wantPage || pageSize != tt.wantPageSize {
				t.Errorf("got page %d size %d, want page %d size %d", page, pageSize, tt.wantPage, tt.wantPageSize)
			}
		})
	}
}

func TestCalculateOffset(t *testing.T) {
	if got := CalculateOffset(1, 20); got != 0 {
		t.Errorf("offset for first page = %d, want 0", got)
	}
	if got := CalculateOffset(4, 25); got != 75 {
		t.Errorf("offset = %d, want 75", got)
	}
}
