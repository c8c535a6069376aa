package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"

	"retail-sales/models"
	"retail-sales/services"
)

// columns maps query fields onto sales columns. Anything not listed here never
// reaches SQL text.
var columns = map[models.Field]string{
	models.FieldDate:            "date",
	models.FieldQuantity:        "quantity",
	models.FieldCustomerName:    "customer_name",
	models.FieldCustomerRegion:  "customer_region",
	models.FieldGender:          "gender",
	models.FieldProductCategory: "product_category",
	models.FieldPaymentMethod:   "payment_method",
}

// filter columns in a fixed order so generated SQL is stable
var inOrder = []models.Field{
	models.FieldCustomerRegion,
	models.FieldGender,
	models.FieldProductCategory,
	models.FieldPaymentMethod,
}

const selectColumns = `id, COALESCE(transaction_id,''), date, COALESCE(customer_id,''),
  COALESCE(customer_name,''), COALESCE(phone_number,''), COALESCE(gender,''), age,
  COALESCE(customer_region,''), COALESCE(product_id,''), COALESCE(product_category,''),
  quantity, total_amount::float8, discount_percentage::float8,
  COALESCE(payment_method,''), tags, COALESCE(employee_name,'')`

// Postgres is the relational record store.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) Ping(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", services.ErrStoreUnavailable, err)
	}
	return nil
}

func (p *Postgres) Find(ctx context.Context, q models.Query) ([]models.SalesRecord, error) {
	sql, args := findSQL(q)
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, wrapErr("find sales", err)
	}
	defer rows.Close()

	out := make([]models.SalesRecord, 0, 16)
	for rows.Next() {
		var (
			r    models.SalesRecord
			tags []byte
		)
		if err := rows.Scan(
			&r.ID, &r.TransactionID, &r.Date, &r.CustomerID,
			&r.CustomerName, &r.PhoneNumber, &r.Gender, &r.Age,
			&r.CustomerRegion, &r.ProductID, &r.ProductCategory,
			&r.Quantity, &r.TotalAmount, &r.DiscountPercentage,
			&r.PaymentMethod, &tags, &r.EmployeeName,
		); err != nil {
			return nil, fmt.Errorf("scan sales row: %w", err)
		}
		r.Tags = decodeTags(tags)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate sales", err)
	}
	return out, nil
}

func (p *Postgres) Totals(ctx context.Context, q models.Query) (models.Totals, error) {
	sql, args := totalsSQL(q)

	var (
		count            int64
		units            int64
		amount, discount string
	)
	if err := p.pool.QueryRow(ctx, sql, args...).Scan(&count, &units, &amount, &discount); err != nil {
		return models.Totals{}, wrapErr("aggregate sales", err)
	}

	t := models.Totals{Count: int(count), Units: units}
	var err error
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return models.Totals{}, fmt.Errorf("parse amount sum %q: %w", amount, err)
	}
	if t.Discount, err = decimal.NewFromString(discount); err != nil {
		return models.Totals{}, fmt.Errorf("parse discount sum %q: %w", discount, err)
	}
	return t, nil
}

func (p *Postgres) Distinct(ctx context.Context, field models.Field) ([]string, error) {
	col, ok := columns[field]
	if !ok {
		return nil, fmt.Errorf("distinct: unsupported field %q", field)
	}
	rows, err := p.pool.Query(ctx, `SELECT DISTINCT `+col+` FROM sales WHERE `+col+` IS NOT NULL AND `+col+` <> '' ORDER BY `+col+` ASC`)
	if err != nil {
		return nil, wrapErr("distinct "+col, err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan distinct %s: %w", col, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("distinct "+col, err)
	}
	return out, nil
}

func (p *Postgres) SampleTags(ctx context.Context, limit int) ([]models.Tags, error) {
	rows, err := p.pool.Query(ctx, `
SELECT tags FROM sales
WHERE tags IS NOT NULL
  AND tags NOT IN ('null'::jsonb, '""'::jsonb, '[]'::jsonb)
ORDER BY id
LIMIT $1`, limit)
	if err != nil {
		return nil, wrapErr("sample tags", err)
	}
	defer rows.Close()

	var out []models.Tags
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan tags: %w", err)
		}
		if tags := decodeTags(raw); len(tags) > 0 {
			out = append(out, tags)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("sample tags", err)
	}
	return out, nil
}

// Count returns the number of stored records.
func (p *Postgres) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sales`).Scan(&n); err != nil {
		return 0, wrapErr("count sales", err)
	}
	return n, nil
}

var copyColumns = []string{
	"transaction_id", "date", "customer_id", "customer_name", "phone_number",
	"gender", "age", "customer_region", "product_id", "product_category",
	"quantity", "total_amount", "discount_percentage", "payment_method",
	"tags", "employee_name",
}

// InsertBatch bulk loads records with COPY.
func (p *Postgres) InsertBatch(ctx context.Context, records []models.SalesRecord) (int64, error) {
	rows := make([][]interface{}, 0, len(records))
	for _, r := range records {
		tags, err := json.Marshal(r.Tags)
		if err != nil {
			return 0, fmt.Errorf("encode tags of %s: %w", r.TransactionID, err)
		}
		rows = append(rows, []interface{}{
			r.TransactionID, r.Date, r.CustomerID, r.CustomerName, r.PhoneNumber,
			r.Gender, r.Age, r.CustomerRegion, r.ProductID, r.ProductCategory,
			r.Quantity, r.TotalAmount, r.DiscountPercentage, r.PaymentMethod,
			tags, r.EmployeeName,
		})
	}
	n, err := p.pool.CopyFrom(ctx, pgx.Identifier{"sales"}, copyColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return n, wrapErr("copy sales", err)
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// SQL building
// ---------------------------------------------------------------------------

func whereClause(q models.Query) (string, []interface{}, int) {
	where := []string{"1=1"}
	args := []interface{}{}
	ai := 1

	if q.NameContains != "" {
		where = append(where, "customer_name ILIKE $"+itoa(ai))
		args = append(args, "%"+escapeLike(q.NameContains)+"%")
		ai++
	}
	for _, field := range inOrder {
		values := q.In[field]
		if len(values) == 0 {
			continue
		}
		where = append(where, columns[field]+" = ANY($"+itoa(ai)+")")
		args = append(args, values)
		ai++
	}
	if q.AgeMin != nil {
		where = append(where, "age >= $"+itoa(ai))
		args = append(args, *q.AgeMin)
		ai++
	}
	if q.AgeMax != nil {
		where = append(where, "age <= $"+itoa(ai))
		args = append(args, *q.AgeMax)
		ai++
	}
	if q.DateFrom != nil {
		where = append(where, "date >= $"+itoa(ai))
		args = append(args, *q.DateFrom)
		ai++
	}
	if q.DateTo != nil {
		where = append(where, "date <= $"+itoa(ai))
		args = append(args, *q.DateTo)
		ai++
	}
	return strings.Join(where, " AND "), args, ai
}

// orderClause treats NULL as the smallest value and breaks ties by insertion order.
func orderClause(s *models.Sort) string {
	if s == nil {
		return "id ASC"
	}
	col, ok := columns[s.Field]
	if !ok {
		return "id ASC"
	}
	if s.Desc {
		return col + " DESC NULLS LAST, id ASC"
	}
	return col + " ASC NULLS FIRST, id ASC"
}

func findSQL(q models.Query) (string, []interface{}) {
	where, args, ai := whereClause(q)
	sql := `SELECT ` + selectColumns + `
FROM sales
WHERE ` + where + `
ORDER BY ` + orderClause(q.Sort) + ` OFFSET $` + itoa(ai)
	args = append(args, q.Skip)
	if q.Limit > 0 {
		sql += " LIMIT $" + itoa(ai+1)
		args = append(args, q.Limit)
	}
	return sql, args
}

func totalsSQL(q models.Query) (string, []interface{}) {
	where, args, _ := whereClause(q)
	return `SELECT COUNT(*),
  COALESCE(SUM(quantity),0)::int8,
  COALESCE(SUM(total_amount),0)::text,
  COALESCE(SUM(total_amount*discount_percentage/100),0)::text
FROM sales
WHERE ` + where, args
}

// escapeLike makes s match literally inside an ILIKE pattern (default escape '\').
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func decodeTags(raw []byte) models.Tags {
	var tags models.Tags
	if len(raw) == 0 {
		return models.Tags{}
	}
	if err := json.Unmarshal(raw, &tags); err != nil {
		return models.Tags{}
	}
	return tags
}

// wrapErr marks transport failures as ErrStoreUnavailable and passes
// server-side errors through.
func wrapErr(op string, err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%s: %w: %v", op, services.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func itoa(i int) string { return strconv.Itoa(i) }
