package services

import (
	"math"

	"retail-sales/models"
)

// NormalizePage clamps page and size to at least one. A zero size means unset
// and takes the default.
func NormalizePage(page, size int) (int, int) {
	if page < 1 {
		page = models.DefaultPage
	}
	if size == 0 {
		size = models.DefaultPageSize
	}
	if size < 1 {
		size = 1
	}
	return page, size
}

// PageInfo computes pagination metadata for total items.
func PageInfo(total, page, size int) models.Pagination {
	page, size = NormalizePage(page, size)
	totalPages := total / size
	if total%size != 0 {
		totalPages++
	}
	return models.Pagination{
		CurrentPage:     page,
		PageSize:        size,
		TotalItems:      total,
		TotalPages:      totalPages,
		HasNextPage:     page < totalPages,
		HasPreviousPage: page > 1,
	}
}

// Offset returns the index of the first item on page. ok is false when the
// offset does not fit in an int, which can only be past the end of any result.
func Offset(page, size int) (offset int, ok bool) {
	page, size = NormalizePage(page, size)
	if page-1 > math.MaxInt/size {
		return 0, false
	}
	return (page - 1) * size, true
}

// Paginate slices records to the requested page. A page past the end is empty.
func Paginate(records []models.SalesRecord, page, size int) ([]models.SalesRecord, models.Pagination) {
	info := PageInfo(len(records), page, size)
	start, ok := Offset(info.CurrentPage, info.PageSize)
	if !ok || start >= len(records) {
		return []models.SalesRecord{}, info
	}
	end := len(records)
	if info.PageSize < end-start {
		end = start + info.PageSize
	}
	return records[start:end], info
}
