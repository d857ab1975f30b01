// internal/recipe/recipe_test.go

package recipe

import (
	"encoding/json"
	"testing"
)

func TestDecodeNewSelectorShape(t *testing.T) {
	payload := `{
		"id": "r-1",
		"name": "Shop Test product page",
		"isActive": true,
		"urlPattern": "/product/[^/]+$",
		"merchant": {"id": "m-1", "name": "Shop Test"},
		"selectors": [
			{"fieldName": "PRODUCT_NAME", "extractionMethod": "TEXT", "selector": "h1.title", "isRequired": true},
			{"fieldName": "PRICE", "extractionMethod": "ATTRIBUTE", "selector": "#price", "attributeName": "data-amount"},
			{"fieldName": "SKU", "extractionMethod": "REGEX", "selector": ".sku", "regexPattern": "SKU: (\\w+)"}
		]
	}`

	var r Recipe
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		t.Fatal(err)
	}

	sels := r.SelectorList()
	if len(sels) != 3 {
		t.Fatalf("selectors = %d", len(sels))
	}
	if sels[0].FieldName != FieldProductName || sels[0].ExtractionMethod != MethodText || !sels[0].IsRequired {
		t.Errorf("selector[0] = %+v", sels[0])
	}
	if sels[1].AttrName() != "data-amount" {
		t.Errorf("attrName = %q", sels[1].AttrName())
	}
	if sels[2].Pattern() != `SKU: (\w+)` {
		t.Errorf("pattern = %q", sels[2].Pattern())
	}
}

func TestDecodeLegacySelectorShape(t *testing.T) {
	payload := `{
		"id": "r-2",
		"name": "legacy recipe",
		"isActive": true,
		"urlPattern": "shop\\.test",
		"merchant": {"id": "m-1", "name": "Shop Test"},
		"selectors": [
			{"fieldName": "PRODUCT_NAME", "cssSelector": "h1"},
			{"fieldName": "PRICE", "cssSelector": ".price", "attribute": "content", "regex": "([\\d.]+)"},
			{"fieldName": "BRAND", "structuredDataPath": "jsonLd[0].brand.name"},
			{"fieldName": "SKU", "xpath": "//span[@itemprop='sku']"}
		]
	}`

	var r Recipe
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		t.Fatal(err)
	}

	sels := r.SelectorList()
	if sels[0].CSSSelector != "h1" || sels[0].ExtractionMethod != "" {
		t.Errorf("selector[0] = %+v", sels[0])
	}
	if sels[1].AttrName() != "content" || sels[1].Pattern() != `([\d.]+)` {
		t.Errorf("selector[1] legacy accessors = %q / %q", sels[1].AttrName(), sels[1].Pattern())
	}
	if sels[2].StructuredDataPath != "jsonLd[0].brand.name" {
		t.Errorf("selector[2] = %+v", sels[2])
	}
	if sels[3].XPath == "" {
		t.Errorf("selector[3] = %+v", sels[3])
	}
}

func TestDecodeParsedRecipeData(t *testing.T) {
	payload := `{
		"id": "r-3",
		"name": "builder recipe",
		"isActive": true,
		"urlPattern": "/p/",
		"merchant": {"id": "m-2", "name": "Other Shop"},
		"parsedRecipeData": {
			"selectors": [
				{"fieldName": "PRICE", "extractionMethod": "STRUCTURED_DATA", "selector": "jsonLd[0].offers.price", "order": 2},
				{"fieldName": "PRODUCT_NAME", "extractionMethod": "STRUCTURED_DATA", "selector": "jsonLd[0].name", "order": 1}
			]
		}
	}`

	var r Recipe
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		t.Fatal(err)
	}

	sels := r.SelectorList()
	if len(sels) != 2 {
		t.Fatalf("selectors = %d", len(sels))
	}
	// SelectorList orders by the order field.
	if sels[0].FieldName != FieldProductName || sels[1].FieldName != FieldPrice {
		t.Errorf("selector order = %v, %v", sels[0].FieldName, sels[1].FieldName)
	}
}
