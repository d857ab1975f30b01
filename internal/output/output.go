// internal/output/output.go

// Package output persists extracted records to local files or databases. All
// sinks share one fixed column schema derived from the record type; there is
// no dynamic column inference.
package output

import (
	"context"
	"fmt"
	"time"

	"github.com/pricescout/pricescout/internal/config"
	"github.com/pricescout/pricescout/internal/extract"
)

// Writer persists batches of extracted records.
type Writer interface {
	Write(ctx context.Context, records []*extract.Record) error
	Close() error
}

// columns is the shared sink schema, in output order.
var columns = []string{
	"url", "merchant_id", "merchant_name",
	"product_name", "price", "sale_price", "currency",
	"sku", "upc", "model", "brand", "category", "description",
	"image_url", "in_stock", "rating", "review_count",
	"sale_start_date", "sale_end_date", "unit_price", "unit_type",
	"extracted_at",
}

// New builds the writer selected by cfg.Format.
func New(cfg config.OutputConfig) (Writer, error) {
	switch cfg.Format {
	case "json":
		return newJSONWriter(cfg.File)
	case "csv":
		return newCSVWriter(cfg.File)
	case "excel":
		return newExcelWriter(cfg.File)
	case "sqlite":
		return newSQLiteWriter(cfg.File, cfg.Database.Table)
	case "postgres":
		return newPostgresWriter(cfg.Database.DSN, cfg.Database.Table)
	case "mysql":
		return newMySQLWriter(cfg.Database.DSN, cfg.Database.Table)
	case "mongodb":
		return newMongoWriter(cfg.Database.DSN, cfg.Database.Collection)
	default:
		return nil, fmt.Errorf("unknown output format %q", cfg.Format)
	}
}

// rowValues renders one record as the shared schema, nil for absent fields.
// The order matches columns.
func rowValues(rec *extract.Record, at time.Time) []any {
	return []any{
		rec.URL, rec.MerchantID, rec.MerchantName,
		strPtr(rec.ProductName), floatPtr(rec.Price), floatPtr(rec.SalePrice), strPtr(rec.Currency),
		strPtr(rec.SKU), strPtr(rec.UPC), strPtr(rec.Model), strPtr(rec.Brand),
		strPtr(rec.Category), strPtr(rec.Description),
		strPtr(rec.ImageURL), boolPtr(rec.InStock), floatPtr(rec.Rating), intPtr(rec.ReviewCount),
		strPtr(rec.SaleStartDate), strPtr(rec.SaleEndDate), floatPtr(rec.UnitPrice), strPtr(rec.UnitType),
		at.UTC().Format(time.RFC3339),
	}
}

func strPtr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func floatPtr(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func intPtr(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func boolPtr(p *bool) any {
	if p == nil {
		return nil
	}
	return *p
}
