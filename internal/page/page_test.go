// internal/page/page_test.go

package page

import "testing"

const scriptedHTML = `<!DOCTYPE html>
<html><head>
<script>
window.dataLayer = window.dataLayer || [];
dataLayer.push({event: "productView", productId: "W-100"});
</script>
<script src="https://cdn.test/external.js"></script>
<script type="application/ld+json">{"name":"not a script"}</script>
<script>var utag_data = {page_type: "product", product_price: "19.99"};</script>
<script>this.does.not.exist();</script>
<script>var after_failure = "still ran";</script>
</head><body><h1 id="title">Widget</h1></body></html>`

func TestNewWithScriptsPopulatesGlobals(t *testing.T) {
	pg, err := NewWithScripts(scriptedHTML, "https://shop.test/product/w100")
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := pg.Global("dataLayer"); !ok {
		t.Error("dataLayer global missing")
	}
	if _, ok := pg.Global("utag_data"); !ok {
		t.Error("utag_data global missing")
	}
	if _, ok := pg.Global("digitalData"); ok {
		t.Error("undeclared global must be absent")
	}
	// A throwing script must not stop later scripts.
	if v, ok := pg.Global("after_failure"); !ok || v != "still ran" {
		t.Errorf("after_failure = %v, %v", v, ok)
	}
}

func TestEvalExpr(t *testing.T) {
	pg, err := NewWithScripts(scriptedHTML, "https://shop.test/product/w100")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		expr  string
		want  string
		found bool
	}{
		{"string global member", "utag_data.product_price", "19.99", true},
		{"array access", "dataLayer[0].productId", "W-100", true},
		{"location from page scope", "location.hostname", "shop.test", true},
		{"number result", "1 + 1", "2", true},
		{"undefined", "window.nonexistent", "", false},
		{"throwing expression", "no.such.thing", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := pg.EvalExpr(tt.expr)
			if found != tt.found || got != tt.want {
				t.Errorf("EvalExpr(%q) = (%q, %v), want (%q, %v)", tt.expr, got, found, tt.want, tt.found)
			}
		})
	}
}

func TestEvalExprRecoversAfterBudgetExceeded(t *testing.T) {
	pg, err := NewWithScripts("<html><body></body></html>", "https://shop.test/")
	if err != nil {
		t.Fatal(err)
	}

	// A runaway expression is interrupted by the script budget; the
	// interrupt must not bleed into later evaluations on the same page.
	if _, ok := pg.EvalExpr("for(;;){}"); ok {
		t.Fatal("runaway expression must not produce a value")
	}
	if v, ok := pg.EvalExpr("1 + 1"); !ok || v != "2" {
		t.Errorf("evaluation after interrupt = (%q, %v), want (\"2\", true)", v, ok)
	}
}

func TestPlainPageHasNoScriptEnvironment(t *testing.T) {
	pg, err := New(scriptedHTML, "https://shop.test/product/w100")
	if err != nil {
		t.Fatal(err)
	}
	if pg.ScriptsEnabled() {
		t.Error("plain page must not carry a script environment")
	}
	if _, ok := pg.Global("dataLayer"); ok {
		t.Error("plain page must not see script globals")
	}
	if _, ok := pg.EvalExpr("1 + 1"); ok {
		t.Error("plain page must refuse expression evaluation")
	}
}

func TestNewFromBrowserSeedsGlobals(t *testing.T) {
	globals := map[string]any{
		"dataLayer": []any{map[string]any{"event": "pageview"}},
	}
	pg, err := NewFromBrowser("<html><body></body></html>", "https://shop.test/", globals)
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := pg.Global("dataLayer"); !ok {
		t.Error("seeded global missing")
	}
	if v, ok := pg.EvalExpr("dataLayer[0].event"); !ok || v != "pageview" {
		t.Errorf("seeded global via expression = %q, %v", v, ok)
	}
}

func TestResolveURL(t *testing.T) {
	pg, err := New("<html></html>", "https://shop.test/product/w100")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct{ in, want string }{
		{"/images/a.jpg", "https://shop.test/images/a.jpg"},
		{"b.jpg", "https://shop.test/product/b.jpg"},
		{"//cdn.test/c.jpg", "https://cdn.test/c.jpg"},
		{"https://other.test/d.jpg", "https://other.test/d.jpg"},
	}
	for _, tt := range tests {
		if got := pg.ResolveURL(tt.in); got != tt.want {
			t.Errorf("ResolveURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFindAndText(t *testing.T) {
	pg, err := New(scriptedHTML, "https://shop.test/product/w100")
	if err != nil {
		t.Fatal(err)
	}
	if got := pg.Find("#title").Text(); got != "Widget" {
		t.Errorf("Find(#title).Text() = %q", got)
	}
	if pg.Root() == nil {
		t.Error("root node missing")
	}
}
