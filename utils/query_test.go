package utils

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-sales/models"
)

func parse(t *testing.T, rawQuery string) models.FilterRequest {
	t.Helper()
	var got models.FilterRequest
	app := fiber.New()
	app.Get("/sales", func(c *fiber.Ctx) error {
		got = ParseSalesRequest(c)
		return c.SendStatus(fiber.StatusNoContent)
	})
	resp, err := app.Test(httptest.NewRequest("GET", "/sales?"+rawQuery, nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	return got
}

func TestParseSalesRequest_Defaults(t *testing.T) {
	got := parse(t, "")
	assert.Equal(t, 1, got.Page)
	assert.Equal(t, 10, got.PageSize)
	assert.Equal(t, "asc", got.SortOrder)
	assert.Empty(t, got.SearchText)
	assert.Nil(t, got.Filters.Regions)
	assert.Nil(t, got.Filters.AgeMin)
	assert.Nil(t, got.Filters.DateFrom)
}

func TestParseSalesRequest_PageCoercion(t *testing.T) {
	tests := []struct {
		query            string
		wantPage, wantSz int
	}{
		{"page=abc&pageSize=xyz", 1, 10},
		{"page=0&pageSize=0", 1, 1},
		{"page=-4&pageSize=-1", 1, 1},
		{"page=3&pageSize=25", 3, 25},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := parse(t, tt.query)
			assert.Equal(t, tt.wantPage, got.Page)
			assert.Equal(t, tt.wantSz, got.PageSize)
		})
	}
}

func TestParseSalesRequest_Lists(t *testing.T) {
	got := parse(t, "regions=North,South&regions=East&genders[]=Male&genders[]=Female&tags=%20organic%20,,&categories=")
	assert.Equal(t, []string{"North", "South", "East"}, got.Filters.Regions)
	assert.Equal(t, []string{"Male", "Female"}, got.Filters.Genders)
	assert.Equal(t, []string{"organic"}, got.Filters.Tags)
	assert.Nil(t, got.Filters.Categories)
}

func TestParseSalesRequest_EncodedBracketKeys(t *testing.T) {
	got := parse(t, "paymentMethods%5B%5D=UPI&paymentMethods%5B%5D=Credit%20Card")
	assert.Equal(t, []string{"UPI", "Credit Card"}, got.Filters.PaymentMethods)
}

func TestParseSalesRequest_RangesAndSort(t *testing.T) {
	got := parse(t, "search=%20john%20&ageMin=30&ageMax=oops&dateFrom=2024-01-01&dateTo=garbage&sortBy=date&sortOrder=DESC")

	assert.Equal(t, "john", got.SearchText)
	require.NotNil(t, got.Filters.AgeMin)
	assert.Equal(t, 30, *got.Filters.AgeMin)
	assert.Nil(t, got.Filters.AgeMax)
	require.NotNil(t, got.Filters.DateFrom)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), *got.Filters.DateFrom)
	assert.Nil(t, got.Filters.DateTo)
	assert.Equal(t, "date", got.SortBy)
	assert.Equal(t, "desc", got.SortOrder)
}

func TestParseSalesRequest_RFC3339Date(t *testing.T) {
	got := parse(t, "dateTo=2024-02-10T08:00:00Z")
	require.NotNil(t, got.Filters.DateTo)
	assert.True(t, time.Date(2024, 2, 10, 8, 0, 0, 0, time.UTC).Equal(*got.Filters.DateTo))
}

func TestParseSalesRequest_DateTimeWithoutZone(t *testing.T) {
	got := parse(t, "dateFrom=2024-01-01%2008:00:00&dateTo=2024-01-01T23:59:00")
	require.NotNil(t, got.Filters.DateFrom)
	assert.True(t, time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC).Equal(*got.Filters.DateFrom))
	require.NotNil(t, got.Filters.DateTo)
	assert.True(t, time.Date(2024, 1, 1, 23, 59, 0, 0, time.UTC).Equal(*got.Filters.DateTo))
}
