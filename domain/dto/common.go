package dto

type PaginationMeta struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

// NewPaginationMeta สร้าง meta จาก page/limit ที่ normalize แล้ว
func NewPaginationMeta(total int64, page, limit int) PaginationMeta {
	page, limit = NormalizePage(page, limit)
	return PaginationMeta{Total: total, Page: page, Limit: limit}
}

// NormalizePage page เริ่มที่ 1, limit default 20
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	return page, limit
}
