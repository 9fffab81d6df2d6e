package domain

// CurrencyNPR is the only currency the marketplace operates in. Amounts are
// minor units (paisa).
const CurrencyNPR = "NPR"

// PaginatedResult wraps a page of items with its total count.
type PaginatedResult[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

// NewPaginatedResult creates a PaginatedResult.
func NewPaginatedResult[T any](items []T, total int64, page, limit int) PaginatedResult[T] {
	return PaginatedResult[T]{Items: items, Total: total, Page: page, Limit: limit}
}
