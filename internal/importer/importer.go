package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"lean-commerce/internal/domain"
	"lean-commerce/internal/logging"
)

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
	SetCategories(ctx context.Context, productID int64, slugs []string) error
}

type CategoryWriter interface {
	Ensure(ctx context.Context, slugs []string) ([]domain.Category, error)
}

// CSVImporter reads product CSV files and inserts/updates products.
//
// Columns: type, sku, parent_sku, name, description, price, currency,
// categories (";" separated), attributes ("key=value|key=value"), status.
// Variation rows name their parent by parent_sku; the parent must come first.
type CSVImporter struct {
	reader     *csv.Reader
	products   ProductWriter
	categories CategoryWriter
	currency   string
	logger     *zap.Logger
}

func NewCSVImporter(r io.Reader, products ProductWriter, categories CategoryWriter, currency string, logger *zap.Logger) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	csvr.TrimLeadingSpace = true
	return &CSVImporter{
		reader:     csvr,
		products:   products,
		categories: categories,
		currency:   strings.ToUpper(currency),
		logger:     logging.OrNop(logger).Named("importer"),
	}
}

type csvRow struct {
	line       int
	Type       string
	SKU        string
	ParentSKU  string
	Name       string
	Desc       string
	Cents      int64
	Currency   string
	Categories []string
	Attributes map[string]string
	Status     string
}

// Run parses CSV rows and upserts one product per row.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	if _, ok := index["sku"]; !ok {
		return 0, errors.New("read headers: sku column is required")
	}

	ids := make(map[string]int64)
	imported := 0
	line := 1
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return imported, fmt.Errorf("read row %d: %w", line, err)
		}

		row, err := parseRow(record, index)
		if err != nil {
			return imported, fmt.Errorf("row %d: %w", line, err)
		}
		if row == nil {
			continue
		}
		row.line = line

		id, err := i.save(ctx, row, ids)
		if err != nil {
			return imported, err
		}
		ids[row.SKU] = id
		imported++
	}

	i.logger.Info("import finished", zap.Int("products", imported))
	return imported, nil
}

func (i *CSVImporter) save(ctx context.Context, row *csvRow, ids map[string]int64) (int64, error) {
	if row.Name == "" {
		return 0, fmt.Errorf("row %d: name is required for sku %q", row.line, row.SKU)
	}

	p := domain.Product{
		Type:        row.Type,
		SKU:         row.SKU,
		Name:        row.Name,
		Description: row.Desc,
		PriceCents:  row.Cents,
		Currency:    row.Currency,
		Attributes:  row.Attributes,
		Status:      row.Status,
	}
	if p.Currency == "" {
		p.Currency = i.currency
	}

	switch p.Type {
	case domain.ProductVariation:
		parentID, ok := ids[row.ParentSKU]
		if !ok {
			return 0, fmt.Errorf("row %d: parent sku %q not imported before variation %q", row.line, row.ParentSKU, row.SKU)
		}
		p.ParentID = parentID
	case domain.ProductSimple, domain.ProductVariable:
	default:
		return 0, fmt.Errorf("row %d: unknown product type %q", row.line, row.Type)
	}
	if p.Type != domain.ProductVariable && p.PriceCents <= 0 {
		return 0, fmt.Errorf("row %d: price is required for sku %q", row.line, row.SKU)
	}

	saved, err := i.products.Upsert(ctx, p)
	if err != nil {
		return 0, fmt.Errorf("upsert product %q: %w", row.SKU, err)
	}

	if len(row.Categories) > 0 && i.categories != nil {
		cats, err := i.categories.Ensure(ctx, row.Categories)
		if err != nil {
			return 0, fmt.Errorf("ensure categories for %q: %w", row.SKU, err)
		}
		slugs := make([]string, 0, len(cats))
		for _, c := range cats {
			slugs = append(slugs, c.Slug)
		}
		if err := i.products.SetCategories(ctx, saved.ID, slugs); err != nil {
			return 0, fmt.Errorf("set categories for %q: %w", row.SKU, err)
		}
	}
	return saved.ID, nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

// parseRow returns nil for blank rows.
func parseRow(record []string, index map[string]int) (*csvRow, error) {
	sku := pick(record, index, "sku")
	if sku == "" {
		return nil, nil
	}

	row := &csvRow{
		Type:       strings.ToLower(pick(record, index, "type")),
		SKU:        sku,
		ParentSKU:  pick(record, index, "parent_sku"),
		Name:       pick(record, index, "name"),
		Desc:       pick(record, index, "description"),
		Currency:   strings.ToUpper(pick(record, index, "currency")),
		Categories: splitList(pick(record, index, "categories"), ";"),
		Attributes: parseAttributes(pick(record, index, "attributes")),
		Status:     strings.ToLower(pick(record, index, "status")),
	}
	if row.Type == "" {
		row.Type = domain.ProductSimple
		if row.ParentSKU != "" {
			row.Type = domain.ProductVariation
		}
	}

	if price := pick(record, index, "price"); price != "" {
		d, err := decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("invalid price %q for sku %q", price, sku)
		}
		row.Cents = d.Shift(2).Round(0).IntPart()
	}
	return row, nil
}

func parseAttributes(raw string) map[string]string {
	pairs := splitList(raw, "|")
	if len(pairs) == 0 {
		return nil
	}
	attrs := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		if k = strings.TrimSpace(k); k != "" {
			attrs[k] = strings.TrimSpace(v)
		}
	}
	return attrs
}

func splitList(raw, sep string) []string {
	var out []string
	for _, part := range strings.Split(raw, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
