package services

import (
	"context"
	"errors"

	"retail-sales/models"
)

var (
	// ErrStoreUnavailable means the record store could not be reached.
	ErrStoreUnavailable = errors.New("record store unavailable")
)

// Store is the read side of the record store. Implementations coerce loosely
// typed stored values into models.SalesRecord before returning them.
type Store interface {
	Ping(ctx context.Context) error
	// Find returns records matching q, sorted by q.Sort and then insertion order,
	// honouring q.Skip and q.Limit.
	Find(ctx context.Context, q models.Query) ([]models.SalesRecord, error)
	// Totals aggregates over every record matching q, ignoring Skip/Limit/Sort.
	Totals(ctx context.Context, q models.Query) (models.Totals, error)
	// Distinct returns the non-empty distinct values of field, ascending.
	Distinct(ctx context.Context, field models.Field) ([]string, error)
	// SampleTags returns the tags of at most limit records whose tags are non-empty.
	SampleTags(ctx context.Context, limit int) ([]models.Tags, error)
}
