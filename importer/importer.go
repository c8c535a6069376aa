// Package importer bulk loads the sales CSV export into a record store.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"retail-sales/logger"
	"retail-sales/models"
)

var ErrNoCSV = errors.New("no csv file found")

// Sink is the write side of a record store.
type Sink interface {
	Count(ctx context.Context) (int64, error)
	InsertBatch(ctx context.Context, records []models.SalesRecord) (int64, error)
}

type Result struct {
	Skipped  bool
	Existing int64
	Rows     int
	Inserted int64
}

type Importer struct {
	sink      Sink
	batchSize int
	log       logger.Logger
}

func New(sink Sink, batchSize int, log logger.Logger) *Importer {
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &Importer{sink: sink, batchSize: batchSize, log: log}
}

// FindCSV returns the first .csv file in dir by name.
func FindCSV(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read data dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("%w in %s", ErrNoCSV, dir)
	}
	sort.Strings(names)
	return filepath.Join(dir, names[0]), nil
}

func (im *Importer) ImportFile(ctx context.Context, path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	im.log.Info("starting import", map[string]interface{}{"file": path})
	return im.Import(ctx, f)
}

// Import loads every row of r unless the store already holds records.
func (im *Importer) Import(ctx context.Context, r io.Reader) (Result, error) {
	existing, err := im.sink.Count(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("count existing records: %w", err)
	}
	if existing > 0 {
		im.log.Info("store already populated, skipping import", map[string]interface{}{"records": existing})
		return Result{Skipped: true, Existing: existing}, nil
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return Result{}, fmt.Errorf("read header: %w", err)
	}
	cols := indexHeader(header)

	var res Result
	batch := make([]models.SalesRecord, 0, im.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := im.sink.InsertBatch(ctx, batch)
		res.Inserted += n
		if err != nil {
			return fmt.Errorf("insert batch ending at row %d: %w", res.Rows, err)
		}
		im.log.Debug("batch inserted", map[string]interface{}{"rows": res.Rows, "inserted": res.Inserted})
		batch = batch[:0]
		return nil
	}

	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("parse csv: %w", err)
		}
		if blank(row) {
			continue
		}
		res.Rows++
		batch = append(batch, cols.record(row, int64(res.Rows)))
		if len(batch) >= im.batchSize {
			if err := flush(); err != nil {
				return res, err
			}
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
	}
	if err := flush(); err != nil {
		return res, err
	}

	im.log.Info("import finished", map[string]interface{}{"rows": res.Rows, "inserted": res.Inserted})
	return res, nil
}

type columns map[string]int

func indexHeader(header []string) columns {
	cols := columns{}
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		cols[h] = i
	}
	return cols
}

func (c columns) get(row []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (c columns) record(row []string, seq int64) models.SalesRecord {
	return models.SalesRecord{
		ID:                 seq,
		TransactionID:      c.get(row, "Transaction ID"),
		Date:               models.ParseDate(c.get(row, "Date")),
		CustomerID:         c.get(row, "Customer ID"),
		CustomerName:       c.get(row, "Customer Name"),
		PhoneNumber:        c.get(row, "Phone Number"),
		Gender:             c.get(row, "Gender"),
		Age:                parseInt(c.get(row, "Age")),
		CustomerRegion:     c.get(row, "Customer Region"),
		ProductID:          c.get(row, "Product ID"),
		ProductCategory:    c.get(row, "Product Category"),
		Quantity:           parseInt(c.get(row, "Quantity")),
		TotalAmount:        parseFloat(c.get(row, "Total Amount")),
		DiscountPercentage: parseFloat(c.get(row, "Discount Percentage")),
		PaymentMethod:      c.get(row, "Payment Method"),
		Tags:               models.ParseTags(c.get(row, "Tags")),
		EmployeeName:       c.get(row, "Employee Name"),
	}
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func parseFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func parseInt(s string) *int {
	f := parseFloat(s)
	if f == nil {
		return nil
	}
	n := int(math.Round(*f))
	return &n
}
