package utils

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"retail-sales/models"
)

// ParseSalesRequest reads GET /sales parameters. Bad values fall back to
// defaults or are ignored; nothing here fails the request.
func ParseSalesRequest(c *fiber.Ctx) models.FilterRequest {
	req := models.FilterRequest{
		SearchText: strings.TrimSpace(c.Query("search")),
		SortBy:     strings.TrimSpace(c.Query("sortBy")),
		SortOrder:  models.SortAsc,
		Page:       atLeastOne(c.Query("page"), models.DefaultPage),
		PageSize:   atLeastOne(c.Query("pageSize"), models.DefaultPageSize),
		Filters: models.Filters{
			Regions:        QueryList(c, "regions"),
			Genders:        QueryList(c, "genders"),
			Categories:     QueryList(c, "categories"),
			PaymentMethods: QueryList(c, "paymentMethods"),
			Tags:           QueryList(c, "tags"),
			AgeMin:         optionalInt(c.Query("ageMin")),
			AgeMax:         optionalInt(c.Query("ageMax")),
			DateFrom:       optionalDate(c.Query("dateFrom")),
			DateTo:         optionalDate(c.Query("dateTo")),
		},
	}
	if strings.EqualFold(strings.TrimSpace(c.Query("sortOrder")), models.SortDesc) {
		req.SortOrder = models.SortDesc
	}
	return req
}

// QueryList collects a list parameter given as repeated keys, key[] keys or a
// comma joined value.
func QueryList(c *fiber.Ctx, key string) []string {
	args := c.Context().QueryArgs()
	var out []string
	for _, k := range []string{key, key + "[]"} {
		for _, v := range args.PeekMulti(k) {
			out = append(out, splitCSV(string(v))...)
		}
	}
	return out
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		v := strings.TrimSpace(p)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func atLeastOne(raw string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	if n < 1 {
		return 1
	}
	return n
}

func optionalInt(raw string) *int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return nil
	}
	return &n
}

func optionalDate(raw string) *time.Time {
	return models.ParseDate(raw)
}
