package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/shopspring/decimal"

	"retail-sales/models"
	"retail-sales/services"
)

// maxResultWindow bounds from+size on the sales index. It has to cover both the
// candidate fetch cap and deep store-side pages.
const maxResultWindow = 1000000

// distinctBucketLimit caps terms aggregation buckets per facet.
const distinctBucketLimit = 10000

var esFields = map[models.Field]string{
	models.FieldDate:            "date",
	models.FieldQuantity:        "quantity",
	models.FieldCustomerName:    "customer_name",
	models.FieldCustomerRegion:  "customer_region",
	models.FieldGender:          "gender",
	models.FieldProductCategory: "product_category",
	models.FieldPaymentMethod:   "payment_method",
}

// totalsScripts sum money as BigDecimal parsed from each value's shortest
// decimal form, so totals match summing the same records with shopspring/decimal.
// Discount is reported as sum(amount * percentage) and divided by 100 by the caller.
var totalsScripts = map[string]interface{}{
	"init_script": "state.units = 0L; state.amount = BigDecimal.ZERO; state.discount = BigDecimal.ZERO;",
	"map_script": `if (doc['quantity'].size() > 0) { state.units += doc['quantity'].value; }
if (doc['total_amount'].size() > 0) {
  BigDecimal a = new BigDecimal(Double.toString(doc['total_amount'].value));
  state.amount = state.amount.add(a);
  if (doc['discount_percentage'].size() > 0) {
    BigDecimal p = new BigDecimal(Double.toString(doc['discount_percentage'].value));
    state.discount = state.discount.add(a.multiply(p));
  }
}`,
	"combine_script": "return ['units': state.units, 'amount': state.amount.toPlainString(), 'discount': state.discount.toPlainString()];",
	"reduce_script": `long u = 0L; BigDecimal a = BigDecimal.ZERO; BigDecimal d = BigDecimal.ZERO;
for (s in states) {
  if (s != null) { u += s.units; a = a.add(new BigDecimal(s.amount)); d = d.add(new BigDecimal(s.discount)); }
}
return ['units': u, 'amount': a.toPlainString(), 'discount': d.toPlainString()];`,
}

// Elastic is the document record store. Documents carry a "seq" field holding
// insertion order, used as the sort tiebreaker.
type Elastic struct {
	client *elasticsearch.Client
	index  string
}

func NewElastic(client *elasticsearch.Client, index string) *Elastic {
	return &Elastic{client: client, index: index}
}

func (e *Elastic) Ping(ctx context.Context) error {
	res, err := esapi.PingRequest{}.Do(ctx, e.client)
	if err != nil {
		return fmt.Errorf("%w: %v", services.ErrStoreUnavailable, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("%w: ping status %s", services.ErrStoreUnavailable, res.Status())
	}
	return nil
}

// EnsureIndex creates the sales index with explicit mappings if it is missing.
func (e *Elastic) EnsureIndex(ctx context.Context) error {
	res, err := esapi.IndicesExistsRequest{Index: []string{e.index}}.Do(ctx, e.client)
	if err != nil {
		return fmt.Errorf("%w: %v", services.ErrStoreUnavailable, err)
	}
	res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	body := map[string]interface{}{
		"settings": map[string]interface{}{
			"index": map[string]interface{}{"max_result_window": maxResultWindow},
		},
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"seq":                 map[string]string{"type": "long"},
				"transaction_id":      map[string]string{"type": "keyword"},
				"date":                map[string]string{"type": "date"},
				"customer_id":         map[string]string{"type": "keyword"},
				"customer_name":       map[string]string{"type": "keyword"},
				"phone_number":        map[string]string{"type": "keyword"},
				"gender":              map[string]string{"type": "keyword"},
				"age":                 map[string]string{"type": "integer"},
				"customer_region":     map[string]string{"type": "keyword"},
				"product_id":          map[string]string{"type": "keyword"},
				"product_category":    map[string]string{"type": "keyword"},
				"quantity":            map[string]string{"type": "integer"},
				"total_amount":        map[string]string{"type": "double"},
				"discount_percentage": map[string]string{"type": "double"},
				"payment_method":      map[string]string{"type": "keyword"},
				"tags":                map[string]string{"type": "keyword"},
				"employee_name":       map[string]string{"type": "keyword"},
			},
		},
	}
	return e.do(ctx, "create index", esapi.IndicesCreateRequest{Index: e.index, Body: jsonBody(body)}, nil)
}

func (e *Elastic) Find(ctx context.Context, q models.Query) ([]models.SalesRecord, error) {
	size := q.Limit
	if size <= 0 {
		size = maxResultWindow - q.Skip
	}
	body := map[string]interface{}{
		"query":            esQuery(q),
		"sort":             esSort(q.Sort),
		"from":             q.Skip,
		"size":             size,
		"track_total_hits": false,
	}

	var resp searchResponse
	if err := e.do(ctx, "find sales", esapi.SearchRequest{Index: []string{e.index}, Body: jsonBody(body)}, &resp); err != nil {
		return nil, err
	}

	out := make([]models.SalesRecord, 0, len(resp.Hits.Hits))
	for _, h := range resp.Hits.Hits {
		out = append(out, h.Source.record())
	}
	return out, nil
}

func (e *Elastic) Totals(ctx context.Context, q models.Query) (models.Totals, error) {
	body := map[string]interface{}{
		"query":            esQuery(q),
		"size":             0,
		"track_total_hits": true,
		"aggs": map[string]interface{}{
			"totals": map[string]interface{}{"scripted_metric": totalsScripts},
		},
	}

	var resp searchResponse
	if err := e.do(ctx, "aggregate sales", esapi.SearchRequest{Index: []string{e.index}, Body: jsonBody(body)}, &resp); err != nil {
		return models.Totals{}, err
	}

	var agg totalsAgg
	if err := resp.agg("totals", &agg); err != nil {
		return models.Totals{}, err
	}
	amount, err := decimal.NewFromString(agg.Value.Amount)
	if err != nil {
		return models.Totals{}, fmt.Errorf("parse amount sum %q: %w", agg.Value.Amount, err)
	}
	discount, err := decimal.NewFromString(agg.Value.Discount)
	if err != nil {
		return models.Totals{}, fmt.Errorf("parse discount sum %q: %w", agg.Value.Discount, err)
	}
	return models.Totals{
		Count:    resp.Hits.Total.Value,
		Units:    agg.Value.Units,
		Amount:   amount,
		Discount: discount.Shift(-2),
	}, nil
}

func (e *Elastic) Distinct(ctx context.Context, field models.Field) ([]string, error) {
	name, ok := esFields[field]
	if !ok {
		return nil, fmt.Errorf("distinct: unsupported field %q", field)
	}
	body := map[string]interface{}{
		"size": 0,
		"aggs": map[string]interface{}{
			"values": map[string]interface{}{
				"terms": map[string]interface{}{
					"field": name,
					"size":  distinctBucketLimit,
					"order": map[string]string{"_key": "asc"},
				},
			},
		},
	}

	var resp searchResponse
	if err := e.do(ctx, "distinct "+name, esapi.SearchRequest{Index: []string{e.index}, Body: jsonBody(body)}, &resp); err != nil {
		return nil, err
	}
	var terms termsAgg
	if err := resp.agg("values", &terms); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(terms.Buckets))
	for _, b := range terms.Buckets {
		if b.Key != "" {
			out = append(out, b.Key)
		}
	}
	return out, nil
}

func (e *Elastic) SampleTags(ctx context.Context, limit int) ([]models.Tags, error) {
	body := map[string]interface{}{
		"query":   map[string]interface{}{"exists": map[string]string{"field": "tags"}},
		"_source": []string{"tags"},
		"sort":    []interface{}{map[string]string{"seq": "asc"}},
		"size":    limit,
	}

	var resp searchResponse
	if err := e.do(ctx, "sample tags", esapi.SearchRequest{Index: []string{e.index}, Body: jsonBody(body)}, &resp); err != nil {
		return nil, err
	}
	var out []models.Tags
	for _, h := range resp.Hits.Hits {
		if len(h.Source.Tags) > 0 {
			out = append(out, h.Source.Tags)
		}
	}
	return out, nil
}

// Count returns the number of documents in the index, zero if it does not exist.
func (e *Elastic) Count(ctx context.Context) (int64, error) {
	res, err := esapi.CountRequest{Index: []string{e.index}}.Do(ctx, e.client)
	if err != nil {
		return 0, fmt.Errorf("count sales: %w: %v", services.ErrStoreUnavailable, err)
	}
	defer res.Body.Close()
	if res.StatusCode == 404 {
		return 0, nil
	}
	if res.IsError() {
		return 0, fmt.Errorf("count sales: %s", res.String())
	}
	var body struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode count: %w", err)
	}
	return body.Count, nil
}

// InsertBatch indexes records through the bulk API. Record IDs become seq values.
func (e *Elastic) InsertBatch(ctx context.Context, records []models.SalesRecord) (int64, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range records {
		if err := enc.Encode(map[string]interface{}{"index": map[string]interface{}{}}); err != nil {
			return 0, err
		}
		if err := enc.Encode(docFromRecord(r)); err != nil {
			return 0, fmt.Errorf("encode %s: %w", r.TransactionID, err)
		}
	}

	var resp bulkResponse
	req := esapi.BulkRequest{Index: e.index, Body: &buf, Refresh: "wait_for"}
	if err := e.do(ctx, "bulk index", req, &resp); err != nil {
		return 0, err
	}
	if resp.Errors {
		for _, item := range resp.Items {
			if r := item["index"]; r.Error != nil {
				return 0, fmt.Errorf("bulk index: %s: %s", r.Error.Type, r.Error.Reason)
			}
		}
		return 0, fmt.Errorf("bulk index: unknown item failure")
	}
	return int64(len(resp.Items)), nil
}

func (e *Elastic) do(ctx context.Context, op string, req esapi.Request, out interface{}) error {
	res, err := req.Do(ctx, e.client)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", op, services.ErrStoreUnavailable, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		raw, _ := io.ReadAll(res.Body)
		return fmt.Errorf("%s: status %d: %s", op, res.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// query building
// ---------------------------------------------------------------------------

func esQuery(q models.Query) map[string]interface{} {
	filter := []interface{}{}

	if q.NameContains != "" {
		filter = append(filter, map[string]interface{}{
			"wildcard": map[string]interface{}{
				"customer_name": map[string]interface{}{
					"value":            "*" + escapeWildcard(q.NameContains) + "*",
					"case_insensitive": true,
				},
			},
		})
	}
	for _, field := range inOrder {
		if values := q.In[field]; len(values) > 0 {
			filter = append(filter, map[string]interface{}{
				"terms": map[string]interface{}{esFields[field]: values},
			})
		}
	}
	if q.AgeMin != nil || q.AgeMax != nil {
		r := map[string]interface{}{}
		if q.AgeMin != nil {
			r["gte"] = *q.AgeMin
		}
		if q.AgeMax != nil {
			r["lte"] = *q.AgeMax
		}
		filter = append(filter, map[string]interface{}{"range": map[string]interface{}{"age": r}})
	}
	if q.DateFrom != nil || q.DateTo != nil {
		r := map[string]interface{}{}
		if q.DateFrom != nil {
			r["gte"] = q.DateFrom.UTC().Format(time.RFC3339Nano)
		}
		if q.DateTo != nil {
			r["lte"] = q.DateTo.UTC().Format(time.RFC3339Nano)
		}
		filter = append(filter, map[string]interface{}{"range": map[string]interface{}{"date": r}})
	}

	if len(filter) == 0 {
		return map[string]interface{}{"match_all": map[string]interface{}{}}
	}
	return map[string]interface{}{"bool": map[string]interface{}{"filter": filter}}
}

func esSort(s *models.Sort) []interface{} {
	tiebreak := map[string]string{"seq": "asc"}
	if s == nil {
		return []interface{}{tiebreak}
	}
	name, ok := esFields[s.Field]
	if !ok {
		return []interface{}{tiebreak}
	}
	order, missing := "asc", "_first"
	if s.Desc {
		order, missing = "desc", "_last"
	}
	return []interface{}{
		map[string]interface{}{name: map[string]string{"order": order, "missing": missing}},
		tiebreak,
	}
}

// escapeWildcard makes s literal inside a wildcard pattern.
func escapeWildcard(s string) string {
	return strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`).Replace(s)
}

func jsonBody(v interface{}) io.Reader {
	b, err := json.Marshal(v)
	if err != nil {
		// bodies are built from maps of plain values
		panic(err)
	}
	return bytes.NewReader(b)
}

// ---------------------------------------------------------------------------
// responses and documents
// ---------------------------------------------------------------------------

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source esDoc `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
	Aggregations map[string]json.RawMessage `json:"aggregations"`
}

func (r searchResponse) agg(name string, out interface{}) error {
	raw, ok := r.Aggregations[name]
	if !ok {
		return fmt.Errorf("aggregation %q missing from response", name)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode aggregation %q: %w", name, err)
	}
	return nil
}

type totalsAgg struct {
	Value struct {
		Units    int64  `json:"units"`
		Amount   string `json:"amount"`
		Discount string `json:"discount"`
	} `json:"value"`
}

type termsAgg struct {
	Buckets []struct {
		Key string `json:"key"`
	} `json:"buckets"`
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		Status int `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	} `json:"items"`
}

// esDoc decodes loosely typed _source documents. Values of the wrong type
// decode as missing rather than failing the whole response.
type esDoc struct {
	Seq                int64       `json:"seq"`
	TransactionID      flexString  `json:"transaction_id"`
	Date               flexTime    `json:"date"`
	CustomerID         flexString  `json:"customer_id"`
	CustomerName       flexString  `json:"customer_name"`
	PhoneNumber        flexString  `json:"phone_number"`
	Gender             flexString  `json:"gender"`
	Age                flexNumber  `json:"age"`
	CustomerRegion     flexString  `json:"customer_region"`
	ProductID          flexString  `json:"product_id"`
	ProductCategory    flexString  `json:"product_category"`
	Quantity           flexNumber  `json:"quantity"`
	TotalAmount        flexNumber  `json:"total_amount"`
	DiscountPercentage flexNumber  `json:"discount_percentage"`
	PaymentMethod      flexString  `json:"payment_method"`
	Tags               models.Tags `json:"tags"`
	EmployeeName       flexString  `json:"employee_name"`
}

func (d esDoc) record() models.SalesRecord {
	tags := d.Tags
	if tags == nil {
		tags = models.Tags{}
	}
	return models.SalesRecord{
		ID:                 d.Seq,
		TransactionID:      string(d.TransactionID),
		Date:               d.Date.ptr(),
		CustomerID:         string(d.CustomerID),
		CustomerName:       string(d.CustomerName),
		PhoneNumber:        string(d.PhoneNumber),
		Gender:             string(d.Gender),
		Age:                d.Age.intPtr(),
		CustomerRegion:     string(d.CustomerRegion),
		ProductID:          string(d.ProductID),
		ProductCategory:    string(d.ProductCategory),
		Quantity:           d.Quantity.intPtr(),
		TotalAmount:        d.TotalAmount.floatPtr(),
		DiscountPercentage: d.DiscountPercentage.floatPtr(),
		PaymentMethod:      string(d.PaymentMethod),
		Tags:               tags,
		EmployeeName:       string(d.EmployeeName),
	}
}

func docFromRecord(r models.SalesRecord) map[string]interface{} {
	doc := map[string]interface{}{
		"seq":                 r.ID,
		"transaction_id":      r.TransactionID,
		"customer_id":         r.CustomerID,
		"customer_name":       r.CustomerName,
		"phone_number":        r.PhoneNumber,
		"gender":              r.Gender,
		"customer_region":     r.CustomerRegion,
		"product_id":          r.ProductID,
		"product_category":    r.ProductCategory,
		"payment_method":      r.PaymentMethod,
		"tags":                r.Tags,
		"employee_name":       r.EmployeeName,
		"age":                 r.Age,
		"quantity":            r.Quantity,
		"total_amount":        r.TotalAmount,
		"discount_percentage": r.DiscountPercentage,
	}
	if r.Date != nil {
		doc["date"] = r.Date.UTC().Format(time.RFC3339Nano)
	}
	return doc
}

type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0, bytes.Equal(b, []byte("null")):
		*s = ""
	case b[0] == '"':
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
	default:
		// numbers and booleans keep their literal text
		*s = flexString(b)
	}
	return nil
}

type flexNumber struct {
	val   float64
	valid bool
}

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*n = flexNumber{}
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	raw := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return nil
		}
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	*n = flexNumber{val: f, valid: true}
	return nil
}

func (n flexNumber) floatPtr() *float64 {
	if !n.valid {
		return nil
	}
	v := n.val
	return &v
}

func (n flexNumber) intPtr() *int {
	if !n.valid {
		return nil
	}
	v := int(n.val)
	return &v
}

type flexTime struct {
	t     time.Time
	valid bool
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

func (ft *flexTime) UnmarshalJSON(b []byte) error {
	*ft = flexTime{}
	var s string
	if err := json.Unmarshal(b, &s); err != nil || s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*ft = flexTime{t: t, valid: true}
			return nil
		}
	}
	return nil
}

func (ft flexTime) ptr() *time.Time {
	if !ft.valid {
		return nil
	}
	t := ft.t
	return &t
}
