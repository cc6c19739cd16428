package catalog_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"ProductCatalog/internal/catalog"
)

type testServer struct {
	*httptest.Server
	catalog *catalog.Manager
}

func newCatalogTS(t *testing.T, minProducts int, configure ...func(*catalog.Server, *catalog.HTTPDeps)) testServer {
	t.Helper()

	store := catalog.NewFileStore(filepath.Join(t.TempDir(), "products.json"))
	m := catalog.NewManager(t.Context(), store, catalog.WithLogger(zap.NewNop()))

	s := &catalog.Server{Catalog: m, Log: zap.NewNop(), MinProducts: minProducts}
	deps := catalog.HTTPDeps{
		Log:     zap.NewNop(),
		Service: "catalog",
	}
	for _, fn := range configure {
		fn(s, &deps)
	}

	ts := httptest.NewServer(catalog.NewHandler(s, deps))
	t.Cleanup(ts.Close)
	return testServer{Server: ts, catalog: m}
}

func doJSON(t *testing.T, c *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()

	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, raw
}

func productBody(i int, price string) map[string]any {
	return map[string]any{
		"title":       fmt.Sprintf("Product %d", i),
		"description": fmt.Sprintf("item number %d", i),
		"price":       json.Number(price),
		"thumbnail":   fmt.Sprintf("https://cdn.example.com/%d.jpg", i),
		"code":        fmt.Sprintf("SKU-%03d", i),
		"stock":       i,
	}
}

func createProduct(t *testing.T, c *http.Client, baseURL string, body map[string]any) catalog.Product {
	t.Helper()

	resp, raw := doJSON(t, c, http.MethodPost, baseURL+"/products", body, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", resp.StatusCode, string(raw))
	}

	var p catalog.Product
	if err := json.Unmarshal(raw, &p); err != nil {
		t.Fatalf("decode product: %v body=%s", err, string(raw))
	}
	if !strings.HasPrefix(p.ID, "p_") {
		t.Fatalf("id=%q", p.ID)
	}
	return p
}

func seed(t *testing.T, c *http.Client, baseURL string, n int) []catalog.Product {
	t.Helper()

	out := make([]catalog.Product, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, createProduct(t, c, baseURL, productBody(i, fmt.Sprintf("%d.50", 100-i))))
	}
	return out
}

func decodeProducts(t *testing.T, raw []byte) []catalog.Product {
	t.Helper()

	var ps []catalog.Product
	if err := json.Unmarshal(raw, &ps); err != nil {
		t.Fatalf("decode products: %v body=%s", err, string(raw))
	}
	return ps
}

func decodeError(t *testing.T, raw []byte) string {
	t.Helper()

	var e struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &e); err != nil {
		t.Fatalf("decode error: %v body=%s", err, string(raw))
	}
	return e.Error
}

func TestCatalogAPI_ReadsGatedUntilMinimum(t *testing.T) {
	ts := newCatalogTS(t, 10)
	c := ts.Client()

	seed(t, c, ts.URL, 9)

	for _, path := range []string{"/products", "/readyz"} {
		resp, raw := doJSON(t, c, http.MethodGet, ts.URL+path, nil, nil)
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Fatalf("%s status=%d body=%s", path, resp.StatusCode, string(raw))
		}
	}
	{
		resp, raw := doJSON(t, c, http.MethodGet, ts.URL+"/products", nil, nil)
		if got := decodeError(t, raw); got != "not enough products" {
			t.Fatalf("status=%d error=%q", resp.StatusCode, got)
		}
	}

	seed10 := createProduct(t, c, ts.URL, productBody(10, "5"))

	for _, path := range []string{"/products", "/products/" + seed10.ID, "/readyz"} {
		resp, raw := doJSON(t, c, http.MethodGet, ts.URL+path, nil, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s status=%d body=%s", path, resp.StatusCode, string(raw))
		}
	}

	{
		resp, _ := doJSON(t, c, http.MethodGet, ts.URL+"/healthz", nil, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("healthz status=%d", resp.StatusCode)
		}
	}
}

func TestCatalogAPI_ListLimit(t *testing.T) {
	ts := newCatalogTS(t, 0)
	c := ts.Client()
	seeded := seed(t, c, ts.URL, 12)

	cases := []struct {
		query  string
		status int
		count  int
	}{
		{"", http.StatusOK, 12},
		{"?limit=3", http.StatusOK, 3},
		{"?limit=0", http.StatusOK, 12},
		{"?limit=50", http.StatusOK, 12},
		{"?limit=abc", http.StatusBadRequest, 0},
		{"?limit=-1", http.StatusBadRequest, 0},
	}
	for _, tc := range cases {
		resp, raw := doJSON(t, c, http.MethodGet, ts.URL+"/products"+tc.query, nil, nil)
		if resp.StatusCode != tc.status {
			t.Fatalf("%q status=%d body=%s", tc.query, resp.StatusCode, string(raw))
		}
		if tc.status != http.StatusOK {
			continue
		}
		ps := decodeProducts(t, raw)
		if len(ps) != tc.count {
			t.Fatalf("%q len=%d want=%d", tc.query, len(ps), tc.count)
		}
		for i := range ps {
			if ps[i].ID != seeded[i].ID {
				t.Fatalf("%q [%d] id=%s want=%s", tc.query, i, ps[i].ID, seeded[i].ID)
			}
		}
	}
}

func TestCatalogAPI_GetByID(t *testing.T) {
	ts := newCatalogTS(t, 0)
	c := ts.Client()
	created := createProduct(t, c, ts.URL, productBody(1, "19.99"))

	{
		resp, raw := doJSON(t, c, http.MethodGet, ts.URL+"/products/"+created.ID, nil, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status=%d body=%s", resp.StatusCode, string(raw))
		}
		var got catalog.Product
		if err := json.Unmarshal(raw, &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.ID != created.ID || got.Code != "SKU-001" || got.Price.String() != "19.99" {
			t.Fatalf("got=%+v", got)
		}
	}
	{
		resp, raw := doJSON(t, c, http.MethodGet, ts.URL+"/products/p_missing", nil, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("status=%d body=%s", resp.StatusCode, string(raw))
		}
		if got := decodeError(t, raw); got != "not found" {
			t.Fatalf("error=%q", got)
		}
	}
}

func TestCatalogAPI_CreateValidation(t *testing.T) {
	ts := newCatalogTS(t, 0)
	c := ts.Client()
	createProduct(t, c, ts.URL, productBody(1, "10"))

	cases := []struct {
		name   string
		body   any
		status int
		error  string
	}{
		{"duplicate code", productBody(1, "12"), http.StatusConflict, "code already in use"},
		{"missing price", map[string]any{"title": "x", "code": "A", "stock": 1}, http.StatusBadRequest, "invalid product"},
		{"negative stock", map[string]any{"title": "x", "code": "A", "price": 1, "stock": -1}, http.StatusBadRequest, "invalid product"},
		{"blank title", map[string]any{"title": " ", "code": "A", "price": 1, "stock": 1}, http.StatusBadRequest, "invalid product"},
		{"unknown field", map[string]any{"title": "x", "code": "A", "price": 1, "stock": 1, "colour": "red"}, http.StatusBadRequest, "bad json"},
		{"malformed", `{"title":`, http.StatusBadRequest, "bad json"},
		{"trailing data", `{"title":"x","code":"A","price":1,"stock":1} {}`, http.StatusBadRequest, "bad json"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, raw := doJSON(t, c, http.MethodPost, ts.URL+"/products", tc.body, nil)
			if resp.StatusCode != tc.status {
				t.Fatalf("status=%d body=%s", resp.StatusCode, string(raw))
			}
			if got := decodeError(t, raw); got != tc.error {
				t.Fatalf("error=%q want=%q", got, tc.error)
			}
		})
	}

	if n := ts.catalog.Count(); n != 1 {
		t.Fatalf("count=%d after rejected creates", n)
	}
}

func TestCatalogAPI_UpdateKeepsID(t *testing.T) {
	ts := newCatalogTS(t, 0)
	c := ts.Client()
	a := createProduct(t, c, ts.URL, productBody(1, "10"))
	b := createProduct(t, c, ts.URL, productBody(2, "20"))

	for _, method := range []string{http.MethodPatch, http.MethodPut} {
		resp, raw := doJSON(t, c, method, ts.URL+"/products/"+a.ID, map[string]any{
			"id":    "hijacked",
			"stock": 99,
		}, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s status=%d body=%s", method, resp.StatusCode, string(raw))
		}

		var got catalog.Product
		if err := json.Unmarshal(raw, &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.ID != a.ID || got.Stock != 99 || got.Title != a.Title {
			t.Fatalf("%s got=%+v", method, got)
		}
	}

	{
		resp, raw := doJSON(t, c, http.MethodPatch, ts.URL+"/products/"+a.ID, map[string]any{"code": b.Code}, nil)
		if resp.StatusCode != http.StatusConflict {
			t.Fatalf("status=%d body=%s", resp.StatusCode, string(raw))
		}
	}
	{
		resp, raw := doJSON(t, c, http.MethodPatch, ts.URL+"/products/p_missing", map[string]any{"stock": 1}, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("status=%d body=%s", resp.StatusCode, string(raw))
		}
	}
	{
		resp, raw := doJSON(t, c, http.MethodPatch, ts.URL+"/products/"+a.ID, map[string]any{}, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status=%d body=%s", resp.StatusCode, string(raw))
		}
	}
}

func TestCatalogAPI_Delete(t *testing.T) {
	ts := newCatalogTS(t, 0)
	c := ts.Client()
	p := createProduct(t, c, ts.URL, productBody(1, "10"))

	resp, raw := doJSON(t, c, http.MethodDelete, ts.URL+"/products/"+p.ID, nil, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status=%d body=%s", resp.StatusCode, string(raw))
	}

	resp, raw = doJSON(t, c, http.MethodDelete, ts.URL+"/products/"+p.ID, nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second delete status=%d body=%s", resp.StatusCode, string(raw))
	}

	resp, _ = doJSON(t, c, http.MethodGet, ts.URL+"/products/"+p.ID, nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete status=%d", resp.StatusCode)
	}
}

func TestCatalogAPI_SearchAndSort(t *testing.T) {
	ts := newCatalogTS(t, 0)
	c := ts.Client()

	shirt := productBody(1, "30")
	shirt["title"] = "Blue Shirt"
	hat := productBody(2, "10")
	hat["title"] = "Red Hat"
	fabric := productBody(3, "20")
	fabric["description"] = "shirt fabric by the metre"

	createProduct(t, c, ts.URL, shirt)
	createProduct(t, c, ts.URL, hat)
	createProduct(t, c, ts.URL, fabric)

	prices := func(ps []catalog.Product) string {
		var parts []string
		for _, p := range ps {
			parts = append(parts, p.Price.String())
		}
		return strings.Join(parts, ",")
	}

	cases := []struct {
		query string
		want  string
	}{
		{"?sort=asc", "10,20,30"},
		{"?sort=descending", "30,20,10"},
		{"?q=SHIRT", "30,20"},
		{"?q=shirt&sort=asc", "20,30"},
		{"?q=nothing", ""},
		{"?sort=desc&limit=1", "30"},
	}
	for _, tc := range cases {
		resp, raw := doJSON(t, c, http.MethodGet, ts.URL+"/products"+tc.query, nil, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%q status=%d body=%s", tc.query, resp.StatusCode, string(raw))
		}
		if got := prices(decodeProducts(t, raw)); got != tc.want {
			t.Fatalf("%q prices=%s want=%s", tc.query, got, tc.want)
		}
	}

	resp, raw := doJSON(t, c, http.MethodGet, ts.URL+"/products?sort=sideways", nil, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad sort status=%d body=%s", resp.StatusCode, string(raw))
	}
}

func TestCatalogAPI_UnknownRoute(t *testing.T) {
	ts := newCatalogTS(t, 0, func(_ *catalog.Server, deps *catalog.HTTPDeps) {
		deps.Registry = prometheus.NewRegistry()
		deps.MetricsEnabled = true
		deps.MetricsToken = "scrape-me"
	})
	c := ts.Client()

	resp, raw := doJSON(t, c, http.MethodGet, ts.URL+"/nope", nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status=%d body=%s", resp.StatusCode, string(raw))
	}
	if got := decodeError(t, raw); got != "route not found" {
		t.Fatalf("error=%q", got)
	}

	_, raw = doJSON(t, c, http.MethodGet, ts.URL+"/metrics", nil, map[string]string{
		"Authorization": "Bearer scrape-me",
	})
	if !strings.Contains(string(raw), `path="unmatched"`) {
		t.Fatalf("unknown route not labelled unmatched:\n%s", string(raw))
	}
	if strings.Contains(string(raw), `path="/*"`) {
		t.Fatalf("wildcard route label leaked:\n%s", string(raw))
	}
}

func TestCatalogAPI_PanicBecomes500(t *testing.T) {
	ts := newCatalogTS(t, 0, func(s *catalog.Server, deps *catalog.HTTPDeps) {
		s.WriteLimit = func(http.Handler) http.Handler {
			return http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })
		}
		deps.Registry = prometheus.NewRegistry()
		deps.MetricsEnabled = true
		deps.MetricsToken = "scrape-me"
	})
	c := ts.Client()

	resp, raw := doJSON(t, c, http.MethodPost, ts.URL+"/products", productBody(1, "1"), nil)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status=%d body=%s", resp.StatusCode, string(raw))
	}
	if got := decodeError(t, raw); got != "server error" {
		t.Fatalf("error=%q", got)
	}

	resp, raw = doJSON(t, c, http.MethodGet, ts.URL+"/metrics", nil, map[string]string{
		"Authorization": "Bearer scrape-me",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status=%d", resp.StatusCode)
	}
	if !strings.Contains(string(raw), `method="POST"`) || !strings.Contains(string(raw), `status="500"`) {
		t.Fatalf("panicking request not counted:\n%s", string(raw))
	}
}

func TestCatalogAPI_MetricsRequireToken(t *testing.T) {
	ts := newCatalogTS(t, 0, func(_ *catalog.Server, deps *catalog.HTTPDeps) {
		deps.Registry = prometheus.NewRegistry()
		deps.MetricsEnabled = true
		deps.MetricsToken = "scrape-me"
	})
	c := ts.Client()
	createProduct(t, c, ts.URL, productBody(1, "1"))

	resp, _ := doJSON(t, c, http.MethodGet, ts.URL+"/metrics", nil, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("no token status=%d", resp.StatusCode)
	}

	resp, raw := doJSON(t, c, http.MethodGet, ts.URL+"/metrics", nil, map[string]string{
		"Authorization": "Bearer scrape-me",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.StatusCode, string(raw))
	}
	if !strings.Contains(string(raw), "http_requests_total") {
		t.Fatalf("request metrics missing:\n%s", string(raw))
	}
}
