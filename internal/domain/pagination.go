package domain

const (
	DefaultPage    = 1
	DefaultPerPage = 20
	MaxPerPage     = 100
	// MaxPage keeps the offset well inside the int range and away from runaway scans.
	MaxPage = 100_000
)

type (
	PageRequest struct {
		Page    int
		PerPage int
	}

	Pagination struct {
		Page       int `json:"page"`
		PerPage    int `json:"per_page"`
		Total      int `json:"total"`
		TotalPages int `json:"total_pages"`
	}

	Page[T any] struct {
		Data       []T        `json:"data"`
		Pagination Pagination `json:"pagination"`
	}
)

// NewPageRequest clamps page and per page into their allowed ranges.
func NewPageRequest(page, perPage int) PageRequest {
	if page < 1 {
		page = DefaultPage
	}

	if page > MaxPage {
		page = MaxPage
	}

	if perPage < 1 {
		perPage = DefaultPerPage
	}

	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	return PageRequest{Page: page, PerPage: perPage}
}

func (p PageRequest) Offset() uint64 {
	return uint64((p.Page - 1) * p.PerPage)
}

func (p PageRequest) Limit() uint64 {
	return uint64(p.PerPage)
}

func NewPage[T any](data []T, req PageRequest, total int) Page[T] {
	if data == nil {
		data = []T{}
	}

	totalPages := 0
	if req.PerPage > 0 {
		totalPages = (total + req.PerPage - 1) / req.PerPage
	}

	return Page[T]{
		Data: data,
		Pagination: Pagination{
			Page:       req.Page,
			PerPage:    req.PerPage,
			Total:      total,
			TotalPages: totalPages,
		},
	}
}
