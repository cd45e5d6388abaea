package catalog

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/aiva/backend/internal/model/catalog"
)

func setupRouter(t *testing.T) *chi.Mux {
	t.Helper()
	store, err := catalog.Seed()
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	r := chi.NewRouter()
	New(store, nil).RegisterRoutes(r)
	return r
}

func get(r http.Handler, target string) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, target, nil))
	return resp
}

func TestSearchWithFilters(t *testing.T) {
	r := setupRouter(t)

	resp := get(r, "/products?category=felpa&color=nero&on_sale=true")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var products []catalog.Product
	if err := json.NewDecoder(resp.Body).Decode(&products); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(products) != 1 || products[0].ID != "550e8400-0007-41d4-a716-446655440007" {
		t.Fatalf("unexpected products: %+v", products)
	}
}

func TestSearchLimit(t *testing.T) {
	r := setupRouter(t)

	var products []catalog.Product
	resp := get(r, "/products?limit=3")
	if err := json.NewDecoder(resp.Body).Decode(&products); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(products) != 3 {
		t.Fatalf("expected 3 products, got %d", len(products))
	}
}

func TestSearchRejectsBadParams(t *testing.T) {
	r := setupRouter(t)
	for _, target := range []string{"/products?limit=0", "/products?max_price=abc", "/products?on_sale=forse"} {
		if resp := get(r, target); resp.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, resp.Code)
		}
	}
}

func TestProductByID(t *testing.T) {
	r := setupRouter(t)

	if resp := get(r, "/products/550e8400-0001-41d4-a716-446655440001"); resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if resp := get(r, "/products/missing"); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestSizeGuide(t *testing.T) {
	r := setupRouter(t)

	resp := get(r, "/size-guide/jeans")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body struct {
		Category string                       `json:"category"`
		Guide    map[string]map[string]string `json:"guide"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Category != "jeans" || len(body.Guide) == 0 {
		t.Fatalf("unexpected guide: %+v", body)
	}
}

func TestAvailability(t *testing.T) {
	r := setupRouter(t)
	felpa := "/products/550e8400-0007-41d4-a716-446655440007/availability"

	resp := get(r, felpa+"?size=M&color=Nero")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body map[string]bool
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body["available"] {
		t.Fatalf("expected M/Nero to be available: %v", body)
	}

	resp = get(r, felpa+"?size=XXL&color=Nero")
	body = nil
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["available"] {
		t.Fatal("XXL/Nero should not be available")
	}

	if resp := get(r, felpa+"?size=M"); resp.Code != http.StatusBadRequest {
		t.Fatalf("missing color: expected 400, got %d", resp.Code)
	}
	if resp := get(r, "/products/missing/availability?size=M&color=Nero"); resp.Code != http.StatusNotFound {
		t.Fatalf("unknown product: expected 404, got %d", resp.Code)
	}
}

func TestRecommendations(t *testing.T) {
	r := setupRouter(t)

	var products []catalog.Product
	resp := get(r, "/recommendations?product_id=550e8400-0001-41d4-a716-446655440001")
	if err := json.NewDecoder(resp.Body).Decode(&products); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(products) != 2 || products[0].Category != catalog.CategoryPantaloni || products[1].Category != catalog.CategoryScarpe {
		t.Fatalf("unexpected recommendations: %+v", products)
	}

	products = nil
	resp = get(r, "/recommendations?limit=1")
	if err := json.NewDecoder(resp.Body).Decode(&products); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(products) != 1 || products[0].Name != "Jeans Slim Fit Stretch" {
		t.Fatalf("unexpected best seller: %+v", products)
	}

	if resp := get(r, "/recommendations?limit=zero"); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestShippingInfo(t *testing.T) {
	r := setupRouter(t)

	resp := get(r, "/shipping-info")
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["free_shipping_threshold"] != 100.0 || body["standard_shipping"] != 9.9 {
		t.Fatalf("unexpected shipping info: %v", body)
	}
	if body["delivery_time_express"] != "1-2 giorni lavorativi" {
		t.Fatalf("unexpected express delivery: %v", body["delivery_time_express"])
	}
}

func TestPromotions(t *testing.T) {
	r := setupRouter(t)

	resp := get(r, "/promotions")
	var body struct {
		Promotions []catalog.Promotion `json:"promotions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Promotions) != 3 || body.Promotions[2].ID != "promo3" {
		t.Fatalf("unexpected promotions: %+v", body.Promotions)
	}
}
