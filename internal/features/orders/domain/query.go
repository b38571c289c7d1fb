package domain

// ListFilter selects orders for the listing endpoints.
type ListFilter struct {
	// CustomerID restricts the list to one account. Empty lists all orders.
	CustomerID string
	// Status restricts the list to one status. Empty means any.
	Status OrderStatus
	// Search matches order number, customer name or email, case-insensitively.
	Search string
	// Page is 1-based.
	Page int
	// Limit is the page size.
	Limit int
}

// Pagination describes where a page sits in the full result.
type Pagination struct {
	CurrentPage int   `json:"current_page"`
	TotalPages  int   `json:"total_pages"`
	TotalOrders int64 `json:"total_orders"`
	HasNext     bool  `json:"has_next"`
	HasPrev     bool  `json:"has_prev"`
}

// NewPagination computes the pagination block for a page of a result of size total.
func NewPagination(page, limit int, total int64) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalOrders: total,
		HasNext:     page < totalPages,
		HasPrev:     page > 1,
	}
}

// OrderPage is a page of orders with its pagination block.
type OrderPage struct {
	Orders     []Order    `json:"orders"`
	Pagination Pagination `json:"pagination"`
}
