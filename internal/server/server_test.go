// internal/server/server_test.go

package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

const testHTML = `<!DOCTYPE html><html><head>
<meta property="og:title" content="Widget">
<script type="application/ld+json">{"name":"Widget","offers":{"price":"19.99"}}</script>
</head><body><h1 class="title">Widget Deluxe</h1></body></html>`

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var env map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return env
}

func TestExtractTestEndpoint(t *testing.T) {
	srv := New("127.0.0.1:0")

	body := map[string]any{
		"recipe": map[string]any{
			"id": "r-1", "isActive": true, "urlPattern": "/product/",
			"merchant": map[string]string{"id": "m-1", "name": "Shop Test"},
			"selectors": []map[string]any{
				{"fieldName": "PRODUCT_NAME", "extractionMethod": "TEXT", "selector": "h1.title"},
				{"fieldName": "PRICE", "extractionMethod": "STRUCTURED_DATA", "selector": "jsonLd[0].offers.price"},
			},
		},
		"page": map[string]any{"url": "https://shop.test/product/a", "html": testHTML},
	}

	rr := postJSON(t, srv.Handler(), "/api/v1/extract/test", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	env := decodeEnvelope(t, rr)
	if env["success"] != true {
		t.Fatalf("envelope = %v", env)
	}
	data := env["data"].(map[string]any)
	record := data["record"].(map[string]any)
	if record["productName"] != "Widget Deluxe" || record["price"] != 19.99 {
		t.Errorf("record = %v", record)
	}
	outcomes := data["outcomes"].([]any)
	if len(outcomes) != 2 {
		t.Errorf("outcomes = %v", outcomes)
	}
}

func TestContextEndpoint(t *testing.T) {
	srv := New("127.0.0.1:0")

	body := map[string]any{"url": "https://shop.test/product/a", "html": testHTML}
	rr := postJSON(t, srv.Handler(), "/api/v1/context", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	env := decodeEnvelope(t, rr)
	data := env["data"].(map[string]any)
	ctx := data["context"].(map[string]any)
	meta := ctx["metaTags"].(map[string]any)
	if meta["og:title"] != "Widget" {
		t.Errorf("metaTags = %v", meta)
	}
	if _, ok := data["flattened"]; !ok {
		t.Error("flattened dump missing")
	}
}

func TestBadBodyRejected(t *testing.T) {
	srv := New("127.0.0.1:0")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/context", bytes.NewReader([]byte("{not json")))
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rr.Code)
	}
	env := decodeEnvelope(t, rr)
	if env["success"] != false {
		t.Errorf("envelope = %v", env)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	srv := New("127.0.0.1:0")

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("healthz status = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("metrics status = %d", rr.Code)
	}
}
