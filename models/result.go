package models

import "github.com/shopspring/decimal"

type Pagination struct {
	CurrentPage     int  `json:"currentPage"`
	PageSize        int  `json:"pageSize"`
	TotalItems      int  `json:"totalItems"`
	TotalPages      int  `json:"totalPages"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

type Summary struct {
	TotalUnits    int64   `json:"totalUnits"`
	TotalAmount   float64 `json:"totalAmount"`
	TotalDiscount float64 `json:"totalDiscount"`
	SalesRecords  int     `json:"salesRecords"`
}

// ResultPage is the body of GET /sales.
type ResultPage struct {
	Data       []SalesRecord `json:"data"`
	Pagination Pagination    `json:"pagination"`
	Summary    Summary       `json:"summary"`
}

// Totals are unrounded aggregates over a filtered record set.
type Totals struct {
	Count    int
	Units    int64
	Amount   decimal.Decimal
	Discount decimal.Decimal
}

type FilterOptions struct {
	Regions        []string `json:"regions"`
	Genders        []string `json:"genders"`
	Categories     []string `json:"categories"`
	Tags           []string `json:"tags"`
	PaymentMethods []string `json:"paymentMethods"`
}

// EmptyFilterOptions has every list non-nil so it encodes as [] rather than null.
func EmptyFilterOptions() FilterOptions {
	return FilterOptions{
		Regions:        []string{},
		Genders:        []string{},
		Categories:     []string{},
		Tags:           []string{},
		PaymentMethods: []string{},
	}
}
