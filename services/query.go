package services

import (
	"strings"
	"time"

	"retail-sales/models"
)

// Deferred holds predicates the store cannot evaluate.
type Deferred struct {
	Search string
	Tags   []string
}

func (d Deferred) Active() bool {
	return d.Search != "" || len(d.Tags) > 0
}

var sortFields = map[string]models.Field{
	"date":         models.FieldDate,
	"quantity":     models.FieldQuantity,
	"customerName": models.FieldCustomerName,
}

// BuildQuery translates req into a store query. Skip and Limit are left for the
// caller since they depend on whether a deferred predicate is active.
func BuildQuery(req models.FilterRequest) (models.Query, Deferred) {
	var (
		q   models.Query
		def Deferred
	)

	search := strings.TrimSpace(req.SearchText)
	if search != "" {
		if isDigits(search) {
			def.Search = search
		} else {
			q.NameContains = search
		}
	}

	f := req.Filters
	in := map[models.Field][]string{}
	if len(f.Regions) > 0 {
		in[models.FieldCustomerRegion] = f.Regions
	}
	if len(f.Genders) > 0 {
		in[models.FieldGender] = f.Genders
	}
	if len(f.Categories) > 0 {
		in[models.FieldProductCategory] = f.Categories
	}
	if len(f.PaymentMethods) > 0 {
		in[models.FieldPaymentMethod] = f.PaymentMethods
	}
	if len(in) > 0 {
		q.In = in
	}

	if tags := models.NormalizeTags(f.Tags); len(tags) > 0 {
		def.Tags = tags
	}

	q.AgeMin = f.AgeMin
	q.AgeMax = f.AgeMax
	if f.DateFrom != nil {
		from := *f.DateFrom
		q.DateFrom = &from
	}
	if f.DateTo != nil {
		to := EndOfDay(*f.DateTo)
		q.DateTo = &to
	}

	q.Sort = SortFor(req.SortBy, req.SortOrder)
	return q, def
}

// SortFor maps the public sort key to a field. Unknown keys mean no sort.
func SortFor(sortBy, order string) *models.Sort {
	field, ok := sortFields[sortBy]
	if !ok {
		return nil
	}
	return &models.Sort{Field: field, Desc: order == models.SortDesc}
}

// EndOfDay returns the last millisecond of t's calendar day in t's location.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
