// internal/recipe/store_test.go

package recipe

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(filepath.Join(t.TempDir(), "recipes.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreRoundTrip(t *testing.T) {
	s := openTestStore(t)

	if !s.NeedsRefresh(time.Hour) {
		t.Error("empty store must need refresh")
	}

	in := []Recipe{
		{
			ID: "r-1", Name: "one", IsActive: true, URLPattern: "/product/",
			Merchant:  Merchant{ID: "m-1", Name: "Shop Test"},
			Selectors: []Selector{{FieldName: FieldPrice, ExtractionMethod: MethodText, Selector: ".price"}},
		},
		{ID: "r-2", Name: "two", IsActive: false, URLPattern: "/p/"},
	}
	if err := s.ReplaceAll(in); err != nil {
		t.Fatal(err)
	}

	out, err := s.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("recipes = %d", len(out))
	}
	if out[0].ID != "r-1" || out[0].Merchant.Name != "Shop Test" {
		t.Errorf("recipe[0] = %+v", out[0])
	}
	if len(out[0].Selectors) != 1 || out[0].Selectors[0].FieldName != FieldPrice {
		t.Errorf("selectors did not survive the round trip: %+v", out[0].Selectors)
	}

	if _, ok := s.LastRefresh(); !ok {
		t.Error("refresh time must be stamped")
	}
	if s.NeedsRefresh(time.Hour) {
		t.Error("fresh store must not need refresh")
	}
	if !s.NeedsRefresh(0) {
		t.Error("zero interval must always need refresh")
	}
}

func TestStoreReplaceAllSwaps(t *testing.T) {
	s := openTestStore(t)

	if err := s.ReplaceAll([]Recipe{{ID: "old", IsActive: true}}); err != nil {
		t.Fatal(err)
	}
	if err := s.ReplaceAll([]Recipe{{ID: "new-1", IsActive: true}, {ID: "new-2", IsActive: true}}); err != nil {
		t.Fatal(err)
	}

	out, err := s.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || out[0].ID != "new-1" {
		t.Errorf("store after swap = %+v", out)
	}
}
