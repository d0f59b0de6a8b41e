package pagination

import "gorm.io/gorm"

const MaxLimit = 250

type Pagination struct {
	Limit  int `form:"limit" binding:"omitempty,gte=1,lte=250"`
	Offset int `form:"offset" binding:"omitempty,gte=0"`
}

type PageInfo struct {
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	HasMore bool  `json:"has_more"`
}

// Normalize fills the default limit and clamps out-of-range values.
func (p Pagination) Normalize(defaultLimit int) Pagination {
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// Apply adds LIMIT/OFFSET to the statement.
func (p Pagination) Apply(stmt *gorm.DB) *gorm.DB {
	if p.Limit > 0 {
		stmt = stmt.Limit(p.Limit)
	}
	if p.Offset > 0 {
		stmt = stmt.Offset(p.Offset)
	}
	return stmt
}

func BuildPageInfo(p Pagination, total int64) PageInfo {
	return PageInfo{
		Total:   total,
		Limit:   p.Limit,
		Offset:  p.Offset,
		HasMore: int64(p.Offset+p.Limit) < total,
	}
}
