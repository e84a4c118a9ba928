package models

// Pagination defaults and bounds for list endpoints
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PaginationResult holds pagination metadata returned alongside list results
type PaginationResult struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalCount int64 `json:"total_count"`
	TotalPages int   `json:"total_pages"`
}

// NewPaginationResult builds pagination metadata for one page of results
func NewPaginationResult(page, pageSize int, totalCount int64) PaginationResult {
	return PaginationResult{
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
		TotalPages: int((totalCount + int64(pageSize) - 1) / int64(pageSize)),
	}
}

// ValidateAndSetDefaults clamps page and page size into their allowed ranges
func ValidateAndSetDefaults(page, pageSize *int) {
	if *page < 1 {
		*page = 1
	}
	if *pageSize < 1 {
		*pageSize = DefaultPageSize
	}
	if *pageSize > MaxPageSize {
		*pageSize = MaxPageSize
	}
}

// CalculateOffset converts a page number into a SQL offset
func CalculateOffset(page, pageSize int) int {
	return (page - 1) * pageSize
}
