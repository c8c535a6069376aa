package services

import (
	"strings"

	"retail-sales/models"
)

// FilterBySearch keeps records whose lowercased name contains the lowercased
// term or whose phone number contains the term verbatim.
func FilterBySearch(records []models.SalesRecord, term string) []models.SalesRecord {
	if term == "" {
		return records
	}
	lower := strings.ToLower(term)
	out := make([]models.SalesRecord, 0, len(records))
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.CustomerName), lower) || strings.Contains(r.PhoneNumber, term) {
			out = append(out, r)
		}
	}
	return out
}

// FilterByTags keeps records that carry at least one of tags.
func FilterByTags(records []models.SalesRecord, tags []string) []models.SalesRecord {
	if len(tags) == 0 {
		return records
	}
	out := make([]models.SalesRecord, 0, len(records))
	for _, r := range records {
		if r.Tags.HasAny(tags) {
			out = append(out, r)
		}
	}
	return out
}

// ApplyDeferred runs the search predicate, then the tag predicate.
func ApplyDeferred(records []models.SalesRecord, def Deferred) []models.SalesRecord {
	return FilterByTags(FilterBySearch(records, def.Search), def.Tags)
}
