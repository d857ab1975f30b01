// internal/extract/record.go

package extract

import "net/url"

// Record is the typed output of one extraction pass. Optional fields are
// pointers: a nil field means "unknown", never "confirmed empty". The JSON
// shape is what the submission API accepts.
type Record struct {
	URL          string `json:"url"`
	MerchantID   string `json:"merchantId"`
	MerchantName string `json:"merchantName"`

	ProductName   *string  `json:"productName,omitempty"`
	Price         *float64 `json:"price,omitempty"`
	SalePrice     *float64 `json:"salePrice,omitempty"`
	Currency      *string  `json:"currency,omitempty"`
	SKU           *string  `json:"sku,omitempty"`
	UPC           *string  `json:"upc,omitempty"`
	Model         *string  `json:"model,omitempty"`
	Brand         *string  `json:"brand,omitempty"`
	Category      *string  `json:"category,omitempty"`
	Description   *string  `json:"description,omitempty"`
	ImageURL      *string  `json:"imageUrl,omitempty"`
	InStock       *bool    `json:"inStock,omitempty"`
	Rating        *float64 `json:"rating,omitempty"`
	ReviewCount   *int     `json:"reviewCount,omitempty"`
	SaleStartDate *string  `json:"saleStartDate,omitempty"`
	SaleEndDate   *string  `json:"saleEndDate,omitempty"`
	UnitPrice     *float64 `json:"unitPrice,omitempty"`
	UnitType      *string  `json:"unitType,omitempty"`

	base *url.URL
}

// NewRecord seeds a record with the page URL and merchant identity. base may
// be nil; image URLs then stay as extracted.
func NewRecord(pageURL, merchantID, merchantName string, base *url.URL) *Record {
	return &Record{
		URL:          pageURL,
		MerchantID:   merchantID,
		MerchantName: merchantName,
		base:         base,
	}
}

// FieldCount reports how many optional fields are present.
func (r *Record) FieldCount() int {
	// url + merchant identity are always present.
	return len(r.Map()) - 3
}

// Map flattens the record for sinks and logging: always url and merchant
// identity, plus only the fields that are present.
func (r *Record) Map() map[string]any {
	m := map[string]any{
		"url":          r.URL,
		"merchantId":   r.MerchantID,
		"merchantName": r.MerchantName,
	}
	putStr := func(k string, v *string) {
		if v != nil {
			m[k] = *v
		}
	}
	putFloat := func(k string, v *float64) {
		if v != nil {
			m[k] = *v
		}
	}
	putStr("productName", r.ProductName)
	putFloat("price", r.Price)
	putFloat("salePrice", r.SalePrice)
	putStr("currency", r.Currency)
	putStr("sku", r.SKU)
	putStr("upc", r.UPC)
	putStr("model", r.Model)
	putStr("brand", r.Brand)
	putStr("category", r.Category)
	putStr("description", r.Description)
	putStr("imageUrl", r.ImageURL)
	if r.InStock != nil {
		m["inStock"] = *r.InStock
	}
	putFloat("rating", r.Rating)
	if r.ReviewCount != nil {
		m["reviewCount"] = *r.ReviewCount
	}
	putStr("saleStartDate", r.SaleStartDate)
	putStr("saleEndDate", r.SaleEndDate)
	putFloat("unitPrice", r.UnitPrice)
	putStr("unitType", r.UnitType)
	return m
}
