package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SalesRecord is one retail transaction. Optional numeric fields are nil when the
// source value was missing or not numeric.
type SalesRecord struct {
	ID                 int64      `json:"-"`
	TransactionID      string     `json:"Transaction ID"`
	Date               *time.Time `json:"Date"`
	CustomerID         string     `json:"Customer ID"`
	CustomerName       string     `json:"Customer Name"`
	PhoneNumber        string     `json:"Phone Number"`
	Gender             string     `json:"Gender"`
	Age                *int       `json:"Age"`
	CustomerRegion     string     `json:"Customer Region"`
	ProductID          string     `json:"Product ID"`
	ProductCategory    string     `json:"Product Category"`
	Quantity           *int       `json:"Quantity"`
	TotalAmount        *float64   `json:"Total Amount"`
	DiscountPercentage *float64   `json:"Discount Percentage"`
	PaymentMethod      string     `json:"Payment Method"`
	Tags               Tags       `json:"Tags"`
	EmployeeName       string     `json:"Employee Name"`
}

// Tags is the normalized tag list of a record.
type Tags []string

// ParseTags splits a comma separated string, trimming entries and dropping empties.
func ParseTags(raw string) Tags {
	out := Tags{}
	for _, p := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// NormalizeTags applies the same trimming to an already split list.
func NormalizeTags(list []string) Tags {
	out := Tags{}
	for _, p := range list {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// UnmarshalJSON accepts a comma separated string, an array of strings or null.
func (t *Tags) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = Tags{}
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = ParseTags(s)
		return nil
	case '[':
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*t = NormalizeTags(list)
		return nil
	}
	return fmt.Errorf("tags: unsupported json value %s", data)
}

func (t Tags) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(t))
}

// HasAny reports whether t shares at least one tag with want.
func (t Tags) HasAny(want []string) bool {
	for _, have := range t {
		for _, w := range want {
			if have == w {
				return true
			}
		}
	}
	return false
}
