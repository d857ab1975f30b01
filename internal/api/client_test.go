// internal/api/client_test.go

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pricescout/pricescout/internal/auth"
	"github.com/pricescout/pricescout/internal/extract"
)

func loggedInStore(t *testing.T) auth.TokenStore {
	t.Helper()
	store := auth.NewMemoryStore()
	if err := store.Save("test-token"); err != nil {
		t.Fatal(err)
	}
	return store
}

func TestLoginSavesToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/auth/login" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "a@b.test" {
			t.Errorf("email = %q", body["email"])
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"token": "issued-token", "user": map[string]string{"email": "a@b.test"}},
		})
	}))
	defer srv.Close()

	store := auth.NewMemoryStore()
	client := NewClient(srv.URL, store, nil)

	user, err := client.Login(context.Background(), "a@b.test", "secret")
	if err != nil {
		t.Fatal(err)
	}
	if user == nil || user.Email != "a@b.test" {
		t.Errorf("user = %+v", user)
	}
	token, err := store.Token()
	if err != nil || token != "issued-token" {
		t.Errorf("stored token = %q, %v", token, err)
	}
}

func TestListRecipesWrappedEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("authorization = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": []map[string]any{
				{"id": "r-1", "name": "one", "isActive": true, "urlPattern": "/p/"},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, loggedInStore(t), nil)
	recipes, err := client.ListRecipes(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(recipes) != 1 || recipes[0].ID != "r-1" {
		t.Errorf("recipes = %+v", recipes)
	}
}

func TestListRecipesBareArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": "r-1", "isActive": true},
			{"id": "r-2", "isActive": false},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, loggedInStore(t), nil)
	recipes, err := client.ListRecipes(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(recipes) != 2 {
		t.Errorf("recipes = %+v", recipes)
	}
}

func TestEnvelopeFailureIsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "recipe set unavailable"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, loggedInStore(t), nil)
	_, err := client.ListRecipes(context.Background())

	var serverErr *ServerError
	if !errors.As(err, &serverErr) {
		t.Fatalf("err = %v, want ServerError", err)
	}
	if serverErr.Message != "recipe set unavailable" {
		t.Errorf("message = %q", serverErr.Message)
	}
}

func TestUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, loggedInStore(t), nil)
	if _, err := client.CurrentUser(context.Background()); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}

	// No stored token short-circuits before any request.
	client = NewClient(srv.URL, auth.NewMemoryStore(), nil)
	if _, err := client.CurrentUser(context.Background()); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("err without token = %v, want ErrUnauthorized", err)
	}
}

func TestNetworkErrorDistinct(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", loggedInStore(t), nil)
	_, err := client.ListRecipes(context.Background())

	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("err = %v, want NetworkError", err)
	}
	var serverErr *ServerError
	if errors.As(err, &serverErr) {
		t.Error("network failure must not read as a server rejection")
	}
}

func TestSubmitRecordsBody(t *testing.T) {
	var got struct {
		Items []map[string]any `json:"items"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/products/submit" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	defer srv.Close()

	price := 19.99
	rec := extract.NewRecord("https://shop.test/product/a", "m-1", "Shop Test", nil)
	rec.Price = &price

	client := NewClient(srv.URL, loggedInStore(t), nil)
	if err := client.SubmitRecords(context.Background(), []*extract.Record{rec}); err != nil {
		t.Fatal(err)
	}

	if len(got.Items) != 1 {
		t.Fatalf("items = %d", len(got.Items))
	}
	item := got.Items[0]
	if item["url"] != "https://shop.test/product/a" || item["price"] != 19.99 {
		t.Errorf("item = %+v", item)
	}
	if _, present := item["inStock"]; present {
		t.Error("absent fields must be omitted from the submission body")
	}
}

func TestFindRecipesByURLSortsByConfidence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("url"); got != "https://shop.test/product/a" {
			t.Errorf("url param = %q", got)
		}
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": "low", "confidence": 0.2},
			{"id": "high", "confidence": 0.9},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, loggedInStore(t), nil)
	matches, err := client.FindRecipesByURL(context.Background(), "https://shop.test/product/a")
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 || matches[0].ID != "high" {
		t.Errorf("matches = %+v", matches)
	}
}
