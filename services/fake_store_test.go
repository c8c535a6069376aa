package services

import (
	"context"
	"sort"
	"strings"
	"sync"

	"retail-sales/models"
)

// memStore evaluates models.Query over an in-memory slice in insertion order.
type memStore struct {
	mu      sync.Mutex
	records []models.SalesRecord
	pingErr error
	findErr error
	tagsErr error
	queries []models.Query
}

func newMemStore(records ...models.SalesRecord) *memStore {
	for i := range records {
		records[i].ID = int64(i + 1)
	}
	return &memStore{records: records}
}

func (m *memStore) Ping(context.Context) error { return m.pingErr }

func (m *memStore) Find(_ context.Context, q models.Query) ([]models.SalesRecord, error) {
	m.mu.Lock()
	m.queries = append(m.queries, q)
	m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}

	out := m.match(q)
	if q.Sort != nil {
		sort.SliceStable(out, func(i, j int) bool {
			c := compareField(out[i], out[j], q.Sort.Field)
			if q.Sort.Desc {
				return c > 0
			}
			return c < 0
		})
	}
	if q.Skip >= len(out) {
		return []models.SalesRecord{}, nil
	}
	out = out[q.Skip:]
	if q.Limit > 0 && q.Limit < len(out) {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *memStore) Totals(_ context.Context, q models.Query) (models.Totals, error) {
	if m.findErr != nil {
		return models.Totals{}, m.findErr
	}
	return TotalsOf(m.match(q)), nil
}

func (m *memStore) Distinct(_ context.Context, field models.Field) ([]string, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	var out []string
	for _, r := range m.records {
		out = append(out, stringField(r, field))
	}
	return out, nil
}

func (m *memStore) SampleTags(_ context.Context, limit int) ([]models.Tags, error) {
	if m.tagsErr != nil {
		return nil, m.tagsErr
	}
	var out []models.Tags
	for _, r := range m.records {
		if len(r.Tags) == 0 {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, r.Tags)
	}
	return out, nil
}

func (m *memStore) lastQuery() models.Query {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queries[len(m.queries)-1]
}

func (m *memStore) match(q models.Query) []models.SalesRecord {
	out := []models.SalesRecord{}
	for _, r := range m.records {
		if q.NameContains != "" && !strings.Contains(strings.ToLower(r.CustomerName), strings.ToLower(q.NameContains)) {
			continue
		}
		if !matchesIn(r, q.In) {
			continue
		}
		if q.AgeMin != nil && (r.Age == nil || *r.Age < *q.AgeMin) {
			continue
		}
		if q.AgeMax != nil && (r.Age == nil || *r.Age > *q.AgeMax) {
			continue
		}
		if q.DateFrom != nil && (r.Date == nil || r.Date.Before(*q.DateFrom)) {
			continue
		}
		if q.DateTo != nil && (r.Date == nil || r.Date.After(*q.DateTo)) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func matchesIn(r models.SalesRecord, in map[models.Field][]string) bool {
	for field, accepted := range in {
		v := stringField(r, field)
		ok := false
		for _, a := range accepted {
			if a == v {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

func stringField(r models.SalesRecord, f models.Field) string {
	switch f {
	case models.FieldCustomerRegion:
		return r.CustomerRegion
	case models.FieldGender:
		return r.Gender
	case models.FieldProductCategory:
		return r.ProductCategory
	case models.FieldPaymentMethod:
		return r.PaymentMethod
	case models.FieldCustomerName:
		return r.CustomerName
	}
	return ""
}

func compareField(a, b models.SalesRecord, f models.Field) int {
	switch f {
	case models.FieldQuantity:
		return compareInt(a.Quantity, b.Quantity)
	case models.FieldDate:
		switch {
		case a.Date == nil && b.Date == nil:
			return 0
		case a.Date == nil:
			return -1
		case b.Date == nil:
			return 1
		}
		return a.Date.Compare(*b.Date)
	}
	return strings.Compare(stringField(a, f), stringField(b, f))
}

func compareInt(a, b *int) int {
	av, bv := -1, -1
	if a != nil {
		av = *a
	}
	if b != nil {
		bv = *b
	}
	switch {
	case av < bv:
		return -1
	case av > bv:
		return 1
	}
	return 0
}
