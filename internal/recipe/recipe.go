// internal/recipe/recipe.go

// Package recipe defines the server-authored extraction recipes: declarative
// mappings from semantic product fields to page locators for one merchant and
// page type. Recipes are immutable from the client's point of view during an
// extraction pass.
package recipe

import "sort"

// FieldName identifies the semantic product field a selector populates.
type FieldName string

const (
	FieldProductName   FieldName = "PRODUCT_NAME"
	FieldPrice         FieldName = "PRICE"
	FieldSalePrice     FieldName = "SALE_PRICE"
	FieldCurrency      FieldName = "CURRENCY"
	FieldSKU           FieldName = "SKU"
	FieldUPC           FieldName = "UPC"
	FieldModel         FieldName = "MODEL"
	FieldBrand         FieldName = "BRAND"
	FieldCategory      FieldName = "CATEGORY"
	FieldDescription   FieldName = "DESCRIPTION"
	FieldImageURL      FieldName = "IMAGE_URL"
	FieldInStock       FieldName = "IN_STOCK"
	FieldRating        FieldName = "RATING"
	FieldReviewCount   FieldName = "REVIEW_COUNT"
	FieldSaleStartDate FieldName = "SALE_START_DATE"
	FieldSaleEndDate   FieldName = "SALE_END_DATE"
	FieldUnitPrice     FieldName = "UNIT_PRICE"
	FieldUnitType      FieldName = "UNIT_TYPE"
)

// ExtractionMethod selects the strategy used to locate a field on a page.
type ExtractionMethod string

const (
	MethodStructuredData ExtractionMethod = "STRUCTURED_DATA"
	MethodText           ExtractionMethod = "TEXT"
	MethodAttribute      ExtractionMethod = "ATTRIBUTE"
	MethodXPath          ExtractionMethod = "XPATH"
	MethodRegex          ExtractionMethod = "REGEX"
	MethodInnerHTML      ExtractionMethod = "INNER_HTML"
	MethodJSPath         ExtractionMethod = "JS_PATH"
)

// Selector maps one semantic field to a page locator.
//
// New-style recipes populate ExtractionMethod plus Selector; legacy recipes
// carry CSSSelector/XPath/StructuredDataPath/Attribute/Regex instead. Both
// shapes decode into this one struct and the extractor prefers the new fields,
// falling back to the legacy ones when the primary dispatch finds nothing.
type Selector struct {
	FieldName        FieldName        `json:"fieldName" yaml:"field_name"`
	ExtractionMethod ExtractionMethod `json:"extractionMethod,omitempty" yaml:"extraction_method,omitempty"`
	Selector         string           `json:"selector,omitempty" yaml:"selector,omitempty"`
	AttributeName    string           `json:"attributeName,omitempty" yaml:"attribute_name,omitempty"`
	RegexPattern     string           `json:"regexPattern,omitempty" yaml:"regex_pattern,omitempty"`
	IsRequired       bool             `json:"isRequired,omitempty" yaml:"is_required,omitempty"`
	Order            int              `json:"order,omitempty" yaml:"order,omitempty"`

	// Legacy selector shape.
	CSSSelector        string `json:"cssSelector,omitempty" yaml:"css_selector,omitempty"`
	XPath              string `json:"xpath,omitempty" yaml:"xpath,omitempty"`
	StructuredDataPath string `json:"structuredDataPath,omitempty" yaml:"structured_data_path,omitempty"`
	Attribute          string `json:"attribute,omitempty" yaml:"attribute,omitempty"`
	Regex              string `json:"regex,omitempty" yaml:"regex,omitempty"`
}

// Pattern returns the post-filter regex, preferring the new-style field.
func (s Selector) Pattern() string {
	if s.RegexPattern != "" {
		return s.RegexPattern
	}
	return s.Regex
}

// AttrName returns the attribute to read, preferring the new-style field.
func (s Selector) AttrName() string {
	if s.AttributeName != "" {
		return s.AttributeName
	}
	return s.Attribute
}

// Merchant identifies the store a recipe belongs to.
type Merchant struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Website string `json:"website,omitempty" yaml:"website,omitempty"`
}

// ParsedRecipeData is the nested selector container some API payloads use.
type ParsedRecipeData struct {
	Selectors []Selector `json:"selectors" yaml:"selectors"`
}

// Recipe is one server-authored extraction recipe.
type Recipe struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Version     int      `json:"version,omitempty" yaml:"version,omitempty"`
	IsActive    bool     `json:"isActive" yaml:"is_active"`
	URLPattern  string   `json:"urlPattern" yaml:"url_pattern"`
	Merchant    Merchant `json:"merchant" yaml:"merchant"`

	Selectors []Selector        `json:"selectors,omitempty" yaml:"selectors,omitempty"`
	Parsed    *ParsedRecipeData `json:"parsedRecipeData,omitempty" yaml:"parsed_recipe_data,omitempty"`
}

// SelectorList returns the recipe's selectors in order, regardless of which
// payload shape carried them.
func (r *Recipe) SelectorList() []Selector {
	sels := r.Selectors
	if len(sels) == 0 && r.Parsed != nil {
		sels = r.Parsed.Selectors
	}
	out := make([]Selector, len(sels))
	copy(out, sels)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}
