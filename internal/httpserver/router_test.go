package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"raices-verdes/internal/domain"
)

func newRouter(t *testing.T, f *fakes, opts Options) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router, err := buildRouter(discardLogger(), nil, f.deps(), opts)
	if err != nil {
		t.Fatalf("build router: %v", err)
	}
	return router
}

func do(router http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return resp
}

type okPinger struct{ err error }

func (p okPinger) Ping(context.Context) error { return p.err }

func TestBuildRouter_RequiresDeps(t *testing.T) {
	if _, err := buildRouter(discardLogger(), nil, Deps{}, Options{}); err == nil {
		t.Fatalf("expected error for missing deps")
	}
}

func TestHealthAndReady(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newFakes()

	router := newRouter(t, f, Options{})
	if rec := do(router, http.MethodGet, "/healthz", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("healthz: expected 200, got %d", rec.Code)
	}
	if rec := do(router, http.MethodGet, "/readyz", "", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz without db: expected 503, got %d", rec.Code)
	}

	ready, err := buildRouter(discardLogger(), okPinger{}, f.deps(), Options{})
	if err != nil {
		t.Fatalf("build router: %v", err)
	}
	if rec := do(ready, http.MethodGet, "/readyz", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("readyz: expected 200, got %d", rec.Code)
	}
	down, _ := buildRouter(discardLogger(), okPinger{err: errors.New("down")}, f.deps(), Options{})
	if rec := do(down, http.MethodGet, "/readyz", "", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz with failing db: expected 503, got %d", rec.Code)
	}
}

func TestListProducts_Window(t *testing.T) {
	f := newFakes()
	router := newRouter(t, f, Options{})

	rec := do(router, http.MethodGet, "/products", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if f.catalog.lastOffset != 0 || f.catalog.lastLimit != 12 {
		t.Fatalf("expected default window 0..11, got offset %d limit %d", f.catalog.lastOffset, f.catalog.lastLimit)
	}

	rec = do(router, http.MethodGet, "/products?from=12&to=23&community=Wayuu&priceMin=5&priceMax=20.50", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if f.catalog.lastOffset != 12 || f.catalog.lastLimit != 12 {
		t.Fatalf("expected window 12..23, got offset %d limit %d", f.catalog.lastOffset, f.catalog.lastLimit)
	}
	if f.catalog.lastFilter.Community != "Wayuu" || !f.catalog.lastFilter.PriceMax.Equal(decimal.RequireFromString("20.5")) {
		t.Fatalf("unexpected filter %+v", f.catalog.lastFilter)
	}

	rec = do(router, http.MethodGet, "/products?from=0&to=9223372036854775807", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("huge window: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if f.catalog.lastLimit != 48 {
		t.Fatalf("expected huge window capped at 48, got %d", f.catalog.lastLimit)
	}

	for _, q := range []string{"?priceMin=abc", "?from=10&to=2", "?from=x", "?from=-5", "?from=-9223372036854775807&to=9223372036854775807"} {
		rec := do(router, http.MethodGet, "/products"+q, "", "")
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("%s: expected 422, got %d", q, rec.Code)
		}
	}
}

func TestListProducts_MoneyFormat(t *testing.T) {
	f := newFakes()
	f.catalog.products = []domain.Product{{ID: productX, Name: "Mochila", Price: decimal.RequireFromString("10")}}
	router := newRouter(t, f, Options{})

	rec := do(router, http.MethodGet, "/products", "", "")
	var got []productResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].Price != "10.00" {
		t.Fatalf("unexpected products %+v", got)
	}
}

func TestProductRoutes_InvalidIDIsNotFound(t *testing.T) {
	router := newRouter(t, newFakes(), Options{})
	for _, path := range []string{"/products/nope", "/products/nope/producer", "/products/nope/comments"} {
		rec := do(router, http.MethodGet, path, "", "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, rec.Code)
		}
	}
	rec := do(router, http.MethodGet, "/products/"+productX+"/producer", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"producerId":"prod"`) {
		t.Fatalf("unexpected producer response %d %s", rec.Code, rec.Body.String())
	}
}

func TestCart_RequiresSession(t *testing.T) {
	router := newRouter(t, newFakes(), Options{})

	rec := do(router, http.MethodPost, "/me/cart/lines", "", `{"productId":"`+productX+`"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Errors[0].Code != "auth_required" {
		t.Fatalf("unexpected error body %+v", resp)
	}

	rec = do(router, http.MethodGet, "/me/cart", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"total":"0.00"`) {
		t.Fatalf("anonymous cart should be empty, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestCart_UnknownActorIs503(t *testing.T) {
	router := newRouter(t, newFakes(), Options{})
	rec := do(router, http.MethodGet, "/me/cart", "broken", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	// public routes keep working
	if rec := do(router, http.MethodGet, "/communities", "broken", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for public route, got %d", rec.Code)
	}
}

func TestCart_Mutations(t *testing.T) {
	f := newFakes()
	f.cart.lines = []domain.CartLine{
		{ID: lineA, Quantity: 2, Product: domain.ProductSnapshot{Name: "X", Price: decimal.RequireFromString("10")}},
		{ID: "b", Quantity: 1, Product: domain.ProductSnapshot{Name: "Y", Price: decimal.RequireFromString("5")}},
	}
	router := newRouter(t, f, Options{})

	rec := do(router, http.MethodGet, "/me/cart", "ana", "")
	var cart cartResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &cart); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cart.Total != "25.00" || len(cart.Lines) != 2 || cart.Lines[0].Subtotal != "20.00" {
		t.Fatalf("unexpected cart %+v", cart)
	}

	if rec := do(router, http.MethodPost, "/me/cart/lines", "ana", `{"productId":"`+productX+`"}`); rec.Code != http.StatusOK {
		t.Fatalf("add: expected 200, got %d", rec.Code)
	}
	if rec := do(router, http.MethodPost, "/me/cart/lines", "ana", `{"productId":"bad"}`); rec.Code != http.StatusNotFound {
		t.Fatalf("add invalid id: expected 404, got %d", rec.Code)
	}
	if rec := do(router, http.MethodPost, "/me/cart/lines", "ana", `{}`); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("add without product: expected 422, got %d", rec.Code)
	}
	if rec := do(router, http.MethodPatch, "/me/cart/lines/"+lineA, "ana", `{"quantity":0}`); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("quantity 0: expected 422, got %d", rec.Code)
	}
	if rec := do(router, http.MethodPatch, "/me/cart/lines/"+lineA, "ana", `{}`); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("missing quantity: expected 422, got %d", rec.Code)
	}
	if rec := do(router, http.MethodPatch, "/me/cart/lines/"+lineA, "ana", `{"quantity":3}`); rec.Code != http.StatusOK {
		t.Fatalf("quantity 3: expected 200, got %d", rec.Code)
	}
	if rec := do(router, http.MethodDelete, "/me/cart/lines/"+lineA, "ana", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("remove: expected 204, got %d", rec.Code)
	}

	f.cart.addErr = errors.New("pool exhausted")
	rec = do(router, http.MethodPost, "/me/cart/lines", "ana", `{"productId":"`+productX+`"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	resp := decodeError(t, rec)
	if resp.Errors[0].Code != "upstream_failure" || strings.Contains(rec.Body.String(), "pool exhausted") {
		t.Fatalf("upstream error must be opaque, got %s", rec.Body.String())
	}
}

func TestCheckout_Responses(t *testing.T) {
	f := newFakes()
	f.checkout.payment = &domain.Payment{ID: paymentP, ClientID: "ana", Total: decimal.RequireFromString("25"), InvoiceNumber: 42,
		Details: []domain.PaymentDetail{{ProductID: productX, ProductName: "X", Quantity: 2, UnitPrice: decimal.RequireFromString("12.5")}}}
	router := newRouter(t, f, Options{})

	rec := do(router, http.MethodPost, "/checkout", "ana", `{"method":"card"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created checkoutResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.PaymentID != paymentP || created.Total != "25.00" || created.InvoiceNumber != 42 {
		t.Fatalf("unexpected checkout response %+v", created)
	}

	rec = do(router, http.MethodGet, "/invoices/"+paymentP, "ana", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"subtotal":"25.00"`) {
		t.Fatalf("unexpected invoice %d %s", rec.Code, rec.Body.String())
	}

	f.checkout.err = &domain.StockError{Shortages: []domain.StockShortage{{ProductID: productX, Name: "Z", Requested: 5, Available: 3}}}
	rec = do(router, http.MethodPost, "/checkout", "ana", `{"method":"card"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	resp := decodeError(t, rec)
	if len(resp.Errors) != 1 || resp.Errors[0].Code != "insufficient_stock" || !strings.Contains(resp.Errors[0].Message, "Z") {
		t.Fatalf("stock error must name the product, got %+v", resp)
	}

	f.checkout.err = domain.EmptyCartError()
	rec = do(router, http.MethodPost, "/checkout", "ana", `{"method":"card"}`)
	if resp := decodeError(t, rec); rec.Code != http.StatusUnprocessableEntity || resp.Errors[0].Code != "empty_cart" {
		t.Fatalf("expected empty_cart 422, got %d %+v", rec.Code, resp)
	}
}

func TestProducerProfile_UnverifiedIsForbidden(t *testing.T) {
	router := newRouter(t, newFakes(), Options{})

	rec := do(router, http.MethodGet, "/producer/profile", "prod", "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if rec := do(router, http.MethodGet, "/producer/profile", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestMeAndSignOut(t *testing.T) {
	f := newFakes()
	router := newRouter(t, f, Options{})

	rec := do(router, http.MethodGet, "/me", "prod", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"verified":false`) {
		t.Fatalf("unexpected /me %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(router, http.MethodPost, "/me/signout", "ana", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if len(f.sessions.signedOut) != 1 || f.sessions.signedOut[0] != "ana" {
		t.Fatalf("sign out not forwarded: %v", f.sessions.signedOut)
	}
}

func TestRateLimit(t *testing.T) {
	router := newRouter(t, newFakes(), Options{RateLimitRPS: 0.001, RateLimitBurst: 2})
	body := `{"productId":"` + productX + `"}`
	for i := 0; i < 2; i++ {
		if rec := do(router, http.MethodPost, "/me/cart/lines", "ana", body); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}
	if rec := do(router, http.MethodPost, "/me/cart/lines", "ana", body); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec := do(router, http.MethodGet, "/me/cart", "ana", ""); rec.Code != http.StatusOK {
		t.Fatalf("reads are not limited, got %d", rec.Code)
	}
}

func TestLimiterSet_ForgetsIdleCallers(t *testing.T) {
	set := newLimiterSet(1, 1)
	now := time.Now()
	set.now = func() time.Time { return now }

	if !set.allow("a") || set.allow("a") {
		t.Fatalf("expected burst of one")
	}
	now = now.Add(time.Hour)
	set.allow("b")
	if _, ok := set.entries["a"]; ok {
		t.Fatalf("idle limiter should have been evicted")
	}
	if newLimiterSet(0, 5) != nil {
		t.Fatalf("zero rate disables limiting")
	}
}

func TestCORS(t *testing.T) {
	router := newRouter(t, newFakes(), Options{CORSOrigins: []string{"https://raices.example"}})
	req := httptest.NewRequest(http.MethodOptions, "/products", nil)
	req.Header.Set("Origin", "https://raices.example")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://raices.example" {
		t.Fatalf("unexpected allow origin %q", got)
	}
}

func TestProducerPage(t *testing.T) {
	router := newRouter(t, newFakes(), Options{})

	rec := do(router, http.MethodGet, "/producers/"+kaiID, "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var page producerPageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.Rating.Count != 2 || len(page.Products) != 1 || page.Products[0].Price != "120.00" {
		t.Fatalf("unexpected page %+v", page)
	}
	if strings.Contains(rec.Body.String(), "documentVerified") {
		t.Fatalf("public page must not expose verification flags: %s", rec.Body.String())
	}

	for _, path := range []string{"/producers/not-a-uuid", "/producers/" + productX} {
		if rec := do(router, http.MethodGet, path, "", ""); rec.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, rec.Code)
		}
	}
}

func TestProducerProducts(t *testing.T) {
	f := newFakes()
	router := newRouter(t, f, Options{})
	body := `{"name":"Chinchorro","description":"Hamaca","price":"250.00","community":"Wayuu","stock":2}`

	rec := do(router, http.MethodPost, "/producer/products", "kai", body)
	if rec.Code != http.StatusCreated || !strings.Contains(rec.Body.String(), `"price":"250.00"`) {
		t.Fatalf("create: unexpected %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(router, http.MethodPost, "/producer/products", "kai", `{"name":"x"}`); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("create without price: expected 422, got %d", rec.Code)
	}
	if rec := do(router, http.MethodPost, "/producer/products", "prod", body); rec.Code != http.StatusForbidden {
		t.Fatalf("unverified create: expected 403, got %d", rec.Code)
	}
	if rec := do(router, http.MethodPost, "/producer/products", "", body); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous create: expected 401, got %d", rec.Code)
	}

	rec = do(router, http.MethodPut, "/producer/products/"+productX, "kai", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(router, http.MethodPut, "/producer/products/"+lineA, "kai", body); rec.Code != http.StatusNotFound {
		t.Fatalf("update of a foreign product: expected 404, got %d", rec.Code)
	}

	if rec := do(router, http.MethodDelete, "/producer/products/"+productX, "ana", ""); rec.Code != http.StatusForbidden {
		t.Fatalf("client delete: expected 403, got %d", rec.Code)
	}
	if rec := do(router, http.MethodDelete, "/producer/products/"+productX, "kai", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rec.Code)
	}
	if len(f.producers.deleted) != 1 {
		t.Fatalf("expected one deletion, got %v", f.producers.deleted)
	}
}

func TestArticles(t *testing.T) {
	f := newFakes()
	router := newRouter(t, f, Options{})

	rec := do(router, http.MethodGet, "/articles?category=Plantas&q=mat", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"likes":3`) {
		t.Fatalf("list: unexpected %d %s", rec.Code, rec.Body.String())
	}
	if f.articles.lastViewer != "" || f.articles.lastFilter.Category != "Plantas" || f.articles.lastFilter.Title != "mat" {
		t.Fatalf("unexpected list call viewer=%q filter=%+v", f.articles.lastViewer, f.articles.lastFilter)
	}
	// a broken identity store does not hide public content
	if rec := do(router, http.MethodGet, "/articles", "broken", ""); rec.Code != http.StatusOK {
		t.Fatalf("list with broken session: expected 200, got %d", rec.Code)
	}
	if rec := do(router, http.MethodGet, "/articles/categories", "", ""); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Plantas") {
		t.Fatalf("categories: unexpected %d %s", rec.Code, rec.Body.String())
	}

	path := "/articles/" + articleM + "/reactions"
	if rec := do(router, http.MethodPost, path, "", `{"reaction":"like"}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous reaction: expected 401, got %d", rec.Code)
	}
	rec = do(router, http.MethodPost, path, "ana", `{"reaction":"like"}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"reaction":"like"`) {
		t.Fatalf("reaction: unexpected %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(router, http.MethodPost, path, "ana", `{"reaction":"love"}`); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unknown reaction: expected 422, got %d", rec.Code)
	}
	if rec := do(router, http.MethodPost, "/articles/"+paymentP+"/reactions", "ana", `{"reaction":"like"}`); rec.Code != http.StatusNotFound {
		t.Fatalf("missing article: expected 404, got %d", rec.Code)
	}
}
