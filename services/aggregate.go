package services

import (
	"github.com/shopspring/decimal"

	"retail-sales/models"
)

var hundred = decimal.NewFromInt(100)

// TotalsOf sums a record set. Missing values count as zero.
func TotalsOf(records []models.SalesRecord) models.Totals {
	t := models.Totals{Count: len(records), Amount: decimal.Zero, Discount: decimal.Zero}
	for _, r := range records {
		if r.Quantity != nil {
			t.Units += int64(*r.Quantity)
		}
		if r.TotalAmount == nil {
			continue
		}
		amount := decimal.NewFromFloat(*r.TotalAmount)
		t.Amount = t.Amount.Add(amount)
		if r.DiscountPercentage != nil {
			pct := decimal.NewFromFloat(*r.DiscountPercentage)
			t.Discount = t.Discount.Add(amount.Mul(pct).Div(hundred))
		}
	}
	return t
}

// SummaryFromTotals rounds money half up to cents.
func SummaryFromTotals(t models.Totals) models.Summary {
	return models.Summary{
		TotalUnits:    t.Units,
		TotalAmount:   t.Amount.Round(2).InexactFloat64(),
		TotalDiscount: t.Discount.Round(2).InexactFloat64(),
		SalesRecords:  t.Count,
	}
}

// Summarize is SummaryFromTotals(TotalsOf(records)).
func Summarize(records []models.SalesRecord) models.Summary {
	return SummaryFromTotals(TotalsOf(records))
}
