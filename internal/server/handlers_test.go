package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"procure/internal"
	"procure/internal/catalog"
	"procure/internal/config"
)

func newTestServer() *Server {
	cfg := config.Config{
		AllowOrigins:   []string{"*"},
		MatchThreshold: 0.5,
	}
	return New(cfg, zerolog.Nop(), catalog.NewSeededStore(), nil, nil)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, into any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), into); err != nil {
		t.Fatalf("decode response: %v\nbody: %s", err, rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	rec := doJSON(t, newTestServer().Router(), http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestExtractEndpoint(t *testing.T) {
	router := newTestServer().Router()

	rec := doJSON(t, router, http.MethodPost, "/extract", map[string]string{"text": "need 10 laptops"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var req internal.Requirement
	decodeBody(t, rec, &req)
	if req.ItemName != "Laptop i7 16GB" || req.Quantity != 10 {
		t.Fatalf("requirement=%+v", req)
	}

	rec = doJSON(t, router, http.MethodPost, "/extract", map[string]string{"text": "zzzz"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unmatched text: status=%d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/extract", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty text: status=%d", rec.Code)
	}
}

func TestRecommendEndpoint(t *testing.T) {
	router := newTestServer().Router()

	rec := doJSON(t, router, http.MethodPost, "/recommend", map[string]any{
		"item_name":  "laptop",
		"quantity":   5,
		"preference": "cost",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Requirement internal.Requirement `json:"requirement"`
		Quotes      []internal.Quote     `json:"quotes"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Quotes) != 2 {
		t.Fatalf("quotes=%d", len(resp.Quotes))
	}
	if resp.Quotes[0].SellerName != "Global Tech" {
		t.Fatalf("top seller=%q", resp.Quotes[0].SellerName)
	}
	if resp.Quotes[0].TotalCost.IntPart() != 5750 {
		t.Fatalf("top total=%s", resp.Quotes[0].TotalCost)
	}
}

func TestRecommendFromText(t *testing.T) {
	router := newTestServer().Router()

	rec := doJSON(t, router, http.MethodPost, "/recommend", map[string]any{
		"text":       "need 10 laptops",
		"preference": "delivery",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Requirement internal.Requirement `json:"requirement"`
		Quotes      []internal.Quote     `json:"quotes"`
	}
	decodeBody(t, rec, &resp)
	if resp.Requirement.Quantity != 10 {
		t.Fatalf("requirement=%+v", resp.Requirement)
	}
	if len(resp.Quotes) != 2 {
		t.Fatalf("quotes=%d", len(resp.Quotes))
	}
	if resp.Quotes[0].DeliveryDays > resp.Quotes[1].DeliveryDays {
		t.Fatal("delivery preference not honored")
	}
}

func TestRecommendMultiVendor(t *testing.T) {
	router := newTestServer().Router()

	rec := doJSON(t, router, http.MethodPost, "/recommend", map[string]any{
		"item_name":    "laptop",
		"quantity":     55,
		"multi_vendor": true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Allocation *internal.Allocation `json:"allocation"`
	}
	decodeBody(t, rec, &resp)
	if resp.Allocation == nil || len(resp.Allocation.Lines) != 2 {
		t.Fatalf("allocation=%+v", resp.Allocation)
	}

	rec = doJSON(t, router, http.MethodPost, "/recommend", map[string]any{
		"item_name":    "laptop",
		"quantity":     1000,
		"multi_vendor": true,
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("oversize allocation: status=%d", rec.Code)
	}
}

func TestRecommendWithCustomSellers(t *testing.T) {
	router := newTestServer().Router()

	rec := doJSON(t, router, http.MethodPost, "/recommend", map[string]any{
		"item_name": "laptop",
		"quantity":  5,
		"custom_sellers": []map[string]any{
			{"name": "Bargain Bros", "item": "Laptop i7 16GB", "price": 999, "stock": 20},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Quotes []internal.Quote `json:"quotes"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Quotes) != 3 || resp.Quotes[0].SellerName != "Bargain Bros" {
		t.Fatalf("quotes=%+v", resp.Quotes)
	}
}

func TestCatalogSellersValidation(t *testing.T) {
	router := newTestServer().Router()

	rec := doJSON(t, router, http.MethodPost, "/catalog/sellers", []map[string]any{
		{"name": "Acme", "item": "Widget"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", rec.Code)
	}
	var errResp struct {
		Error string `json:"error"`
		Field string `json:"field"`
	}
	decodeBody(t, rec, &errResp)
	if errResp.Field != "price" {
		t.Fatalf("field=%q", errResp.Field)
	}

	// Nothing from the rejected list may land in the catalog.
	srv := newTestServer()
	before := srv.catalog.Len()
	doJSON(t, srv.Router(), http.MethodPost, "/catalog/sellers", []map[string]any{
		{"name": "A", "item": "Thing", "price": 10},
		{"name": "B", "item": ""},
	})
	if srv.catalog.Len() != before {
		t.Fatal("partial seller import happened")
	}
}

func TestCatalogSellersAppend(t *testing.T) {
	srv := newTestServer()
	router := srv.Router()

	rec := doJSON(t, router, http.MethodPost, "/catalog/sellers", []map[string]any{
		{"name": "Bargain Bros", "item": "USB Hub", "price": 25, "stock": 40},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Added int `json:"added"`
		Total int `json:"total"`
	}
	decodeBody(t, rec, &resp)
	if resp.Added != 1 || resp.Total != srv.catalog.Len() {
		t.Fatalf("resp=%+v", resp)
	}
}

func TestPurchaseOrderFlow(t *testing.T) {
	srv := newTestServer()
	router := srv.Router()

	quoteBody := map[string]any{
		"quote": map[string]any{
			"seller_name": "Global Tech",
			"item_name":   "Laptop i7 16GB",
			"sku":         "laptop-i7-16gb",
			"unit_price":  "1150",
			"stock":       10,
			// A stale total that must be ignored.
			"total_cost": "1",
		},
		"quantity": 5,
	}

	rec := doJSON(t, router, http.MethodPost, "/pos", quoteBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var po internal.PurchaseOrder
	decodeBody(t, rec, &po)
	if po.TotalCost.IntPart() != 5750 {
		t.Fatalf("total=%s", po.TotalCost)
	}

	rec = doJSON(t, router, http.MethodGet, "/pos", nil)
	var list struct {
		PurchaseOrders []internal.PurchaseOrder `json:"purchase_orders"`
	}
	decodeBody(t, rec, &list)
	if len(list.PurchaseOrders) != 1 {
		t.Fatalf("orders=%d", len(list.PurchaseOrders))
	}
}

func TestFinalizePO(t *testing.T) {
	router := newTestServer().Router()

	base := map[string]any{
		"quote": map[string]any{
			"seller_name": "Global Tech",
			"item_name":   "Laptop i7 16GB",
			"sku":         "laptop-i7-16gb",
			"unit_price":  "1150",
		},
		"quantity": 2,
	}

	rec := doJSON(t, router, http.MethodPost, "/finalize-po", base)
	if rec.Code != http.StatusCreated {
		t.Fatalf("record mode: status=%d body=%s", rec.Code, rec.Body.String())
	}

	withEmail := map[string]any{}
	for k, v := range base {
		withEmail[k] = v
	}
	withEmail["mode"] = "email"
	withEmail["recipient_email"] = "sales@globaltech.example"
	rec = doJSON(t, router, http.MethodPost, "/finalize-po", withEmail)
	if rec.Code != http.StatusCreated {
		t.Fatalf("email mode: status=%d body=%s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Mailto string `json:"mailto"`
	}
	decodeBody(t, rec, &resp)
	if resp.Mailto == "" {
		t.Fatal("email mode returned no mailto link")
	}

	noRecipient := map[string]any{}
	for k, v := range base {
		noRecipient[k] = v
	}
	noRecipient["mode"] = "email"
	rec = doJSON(t, router, http.MethodPost, "/finalize-po", noRecipient)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("email without recipient: status=%d", rec.Code)
	}

	pdfMode := map[string]any{}
	for k, v := range base {
		pdfMode[k] = v
	}
	pdfMode["mode"] = "pdf"
	rec = doJSON(t, router, http.MethodPost, "/finalize-po", pdfMode)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("pdf mode: status=%d", rec.Code)
	}
}
