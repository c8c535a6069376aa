package models

import "time"

// Filters holds the UI selections. Empty slices and nil bounds mean "not set".
type Filters struct {
	Regions        []string
	Genders        []string
	Categories     []string
	PaymentMethods []string
	Tags           []string
	AgeMin         *int
	AgeMax         *int
	DateFrom       *time.Time
	DateTo         *time.Time
}

// FilterRequest is built once per request and never mutated afterwards.
type FilterRequest struct {
	SearchText string
	Filters    Filters
	SortBy     string // date | quantity | customerName
	SortOrder  string // asc | desc
	Page       int
	PageSize   int
}

const (
	DefaultPage     = 1
	DefaultPageSize = 10

	SortAsc  = "asc"
	SortDesc = "desc"
)

// Field names a sortable or filterable record attribute. Values are the
// relational column names; the document store maps them to its own fields.
type Field string

const (
	FieldDate            Field = "date"
	FieldQuantity        Field = "quantity"
	FieldCustomerName    Field = "customer_name"
	FieldCustomerRegion  Field = "customer_region"
	FieldGender          Field = "gender"
	FieldProductCategory Field = "product_category"
	FieldPaymentMethod   Field = "payment_method"
)

type Sort struct {
	Field Field
	Desc  bool
}

// Query is the store neutral form of a FilterRequest. Limit 0 means no limit.
type Query struct {
	NameContains string
	In           map[Field][]string
	AgeMin       *int
	AgeMax       *int
	DateFrom     *time.Time
	DateTo       *time.Time
	Sort         *Sort
	Skip         int
	Limit        int
}
