package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/jafarshop/groceryadmin/internal/api/handlers"
	"github.com/jafarshop/groceryadmin/internal/api/middleware"
	"github.com/jafarshop/groceryadmin/internal/apiclient"
	"github.com/jafarshop/groceryadmin/internal/cache"
	"github.com/jafarshop/groceryadmin/internal/config"
	"github.com/jafarshop/groceryadmin/internal/domain"
	"github.com/jafarshop/groceryadmin/internal/notify"
	"github.com/jafarshop/groceryadmin/internal/screens"
	"github.com/jafarshop/groceryadmin/internal/service"
	"github.com/jafarshop/groceryadmin/internal/session"
)

const consoleKey = "let-me-in"

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeBackend struct {
	mu       sync.Mutex
	requests []string
	patches  []string
	statuses map[int64]domain.OrderStatus
	expired  bool
}

func (b *fakeBackend) record(r *http.Request) string {
	body, _ := io.ReadAll(r.Body)
	b.mu.Lock()
	defer b.mu.Unlock()
	line := r.Method + " " + strings.TrimPrefix(r.URL.Path, "/api")
	if r.URL.RawQuery != "" {
		line += "?" + r.URL.RawQuery
	}
	b.requests = append(b.requests, line)
	if r.Method == http.MethodPatch {
		b.patches = append(b.patches, line+" "+string(body))
	}
	return string(body)
}

func (b *fakeBackend) patched() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.patches...)
}

func respond(w http.ResponseWriter, status int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": status < 300,
		"message": message,
		"data":    data,
	})
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req service.LoginRequest
		json.Unmarshal([]byte(b.record(r)), &req)
		if req.Password != "secret" {
			respond(w, http.StatusBadRequest, "Invalid phone or password", nil)
			return
		}
		respond(w, http.StatusOK, "ok", service.LoginResponse{Token: "tok", Role: "ADMIN"})
	})

	mux.HandleFunc("GET /api/admin/products", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		respond(w, http.StatusOK, "ok", []domain.Product{
			{ID: 1, Name: "Milk", Category: "Dairy", Price: decimal.RequireFromString("3.00"), Stock: 12},
			{ID: 2, Name: "Bread", Category: "Bakery", Price: decimal.RequireFromString("1.50"), Stock: 0},
			{ID: 3, Name: "Cheese", Category: "Dairy", Price: decimal.RequireFromString("7.50"), Stock: 4},
		})
	})

	mux.HandleFunc("PATCH /api/admin/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		respond(w, http.StatusOK, "updated", nil)
	})

	mux.HandleFunc("GET /api/admin/orders/getdetails/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		b.mu.Lock()
		status, ok := b.statuses[parseInt(r.PathValue("id"))]
		b.mu.Unlock()
		if !ok {
			respond(w, http.StatusNotFound, "Order not found", nil)
			return
		}
		respond(w, http.StatusOK, "ok", domain.OrderDetails{Order: domain.Order{ID: parseInt(r.PathValue("id")), Status: status}})
	})

	mux.HandleFunc("PATCH /api/admin/orders/{id}/{action}", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		if r.PathValue("action") == "assign" && r.PathValue("id") == "102" {
			respond(w, http.StatusConflict, "Order already delivered", nil)
			return
		}
		respond(w, http.StatusOK, "ok", nil)
	})

	mux.HandleFunc("GET /api/admin/orders", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		respond(w, http.StatusOK, "ok", apiclient.Page[domain.Order]{
			Content:    []domain.Order{{ID: 101, Status: domain.OrderStatus(r.URL.Query().Get("status"))}},
			TotalPages: 1,
		})
	})

	mux.HandleFunc("GET /api/admin/issues", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		b.mu.Lock()
		expired := b.expired
		b.mu.Unlock()
		if expired {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		respond(w, http.StatusOK, "ok", apiclient.Page[domain.Issue]{})
	})

	mux.HandleFunc("PATCH /api/admin/issues/{id}/{action}", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		respond(w, http.StatusOK, "ok", nil)
	})

	mux.HandleFunc("GET /api/admin/dashboard/summary", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		respond(w, http.StatusOK, "ok", domain.DashboardSummary{TotalOrders: 42, OpenIssues: 3})
	})
	mux.HandleFunc("GET /api/admin/analytics/sales/7-days", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		respond(w, http.StatusOK, "ok", []domain.DailySalesData{{Date: "2026-10-16", OrderCount: 7}})
	})
	mux.HandleFunc("GET /api/admin/analytics/sales/today-vs-yesterday", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		respond(w, http.StatusOK, "ok", domain.SalesComparison{TodayOrders: 5, YesterdayOrders: 4})
	})

	return mux
}

func parseInt(s string) int64 {
	var n int64
	for _, c := range s {
		n = n*10 + int64(c-'0')
	}
	return n
}

type consoleEnv struct {
	router  *gin.Engine
	backend *fakeBackend
	notes   *notify.Recorder
}

func newConsoleEnv(t *testing.T) *consoleEnv {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()

	b := &fakeBackend{statuses: map[int64]domain.OrderStatus{
		5: domain.OrderStatusPacked,
		6: domain.OrderStatusDelivered,
	}}
	srv := httptest.NewServer(b.handler())
	t.Cleanup(srv.Close)

	sessions, err := session.NewManager(ctx, session.NewFileStore(filepath.Join(t.TempDir(), "session.json")), logger)
	require.NoError(t, err)

	client := apiclient.NewClient(config.APIConfig{BaseURL: srv.URL + "/api", Timeout: 2 * time.Second}, sessions, logger,
		apiclient.WithHTTPClient(srv.Client()))

	notes := notify.NewRecorder(0)
	svc := service.New(&service.Deps{
		API:      client,
		Cache:    cache.New(logger),
		Sessions: sessions,
		Notifier: notes,
		Logger:   logger,
	})

	screenCfg, err := screens.LoadConfig("")
	require.NoError(t, err)

	hash, err := bcrypt.GenerateFromPassword([]byte(consoleKey), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := &config.Config{Console: config.ConsoleConfig{KeyHash: string(hash)}}
	console := &handlers.Console{Services: svc, Screens: screenCfg, Notes: notes}

	env := &consoleEnv{router: NewRouter(cfg, console, logger), backend: b, notes: notes}
	rec := env.do(t, http.MethodPost, "/v1/login", `{"phone":"0790000000","password":"secret"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	notes.Drain()
	return env
}

func (e *consoleEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(middleware.ConsoleKeyHeader, consoleKey)

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestRouter_HealthNeedsNoKey(t *testing.T) {
	env := newConsoleEnv(t)

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_ConsoleKeyRequired(t *testing.T) {
	env := newConsoleEnv(t)

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/products", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/products", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/products", nil)
	req.Header.Set("Authorization", "Bearer "+consoleKey)
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProducts_FilteredLocally(t *testing.T) {
	env := newConsoleEnv(t)

	rec := env.do(t, http.MethodGet, "/v1/products?category=Dairy&stock=LOW", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp handlers.InventoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Products, 1)
	assert.Equal(t, "Cheese", resp.Products[0].Name)
	assert.Equal(t, 1, resp.LowStock)
	assert.Equal(t, 1, resp.OutOfStock)
	assert.ElementsMatch(t, []string{"Bakery", "Dairy"}, resp.Categories)

	rec = env.do(t, http.MethodGet, "/v1/products?price=Under%20$5", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.TotalElements)

	rec = env.do(t, http.MethodGet, "/v1/products?price=cheap", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProducts_UpdateSendsOnlyChangedFields(t *testing.T) {
	env := newConsoleEnv(t)

	rec := env.do(t, http.MethodPut, "/v1/products/1",
		`{"name":"Milk","category":"Dairy","price":"4.5","stock":12}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []interface{}{"price"}, decode(t, rec)["changed"])

	patches := env.backend.patched()
	require.Len(t, patches, 1)
	assert.Equal(t, `PATCH /admin/products/1 {"price":"4.5"}`, strings.TrimSpace(patches[0]))

	rec = env.do(t, http.MethodPut, "/v1/products/1",
		`{"name":"Milk","category":"Dairy","price":"3","stock":12}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode(t, rec)["changed"])
	assert.Len(t, env.backend.patched(), 1)

	rec = env.do(t, http.MethodPut, "/v1/products/99", `{"name":"Ghost"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrders_AdvanceUsesCurrentStatus(t *testing.T) {
	env := newConsoleEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/orders/5/advance", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, string(domain.OrderStatusOutForDelivery), decode(t, rec)["status"])
	assert.Contains(t, env.backend.patched()[0], `"status":"OUT_FOR_DELIVERY"`)

	rec = env.do(t, http.MethodPost, "/v1/orders/6/advance", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/orders/6/cancel", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Len(t, env.backend.patched(), 1)

	rec = env.do(t, http.MethodPost, "/v1/orders/abc/advance", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDelivery_DefaultsToPacked(t *testing.T) {
	env := newConsoleEnv(t)

	rec := env.do(t, http.MethodGet, "/v1/delivery", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var page apiclient.Page[domain.Order]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Content, 1)
	assert.Equal(t, domain.OrderStatusPacked, page.Content[0].Status)
}

func TestDelivery_BulkAssignItemizesFailures(t *testing.T) {
	env := newConsoleEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/delivery/assign",
		`{"order_ids":[102,101],"delivery_phone":" 0791111111 "}`)
	require.Equal(t, http.StatusMultiStatus, rec.Code, rec.Body.String())

	var resp struct {
		DeliveryPhone string                          `json:"delivery_phone"`
		Results       []handlers.AssignResultResponse `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "0791111111", resp.DeliveryPhone)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, handlers.AssignResultResponse{OrderID: 101, OK: true}, resp.Results[0])
	assert.Equal(t, int64(102), resp.Results[1].OrderID)
	assert.Equal(t, "Order already delivered", resp.Results[1].Error)

	rec = env.do(t, http.MethodGet, "/v1/notifications", "")
	var notes struct {
		Notifications []notify.Notification `json:"notifications"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &notes))
	require.Len(t, notes.Notifications, 1)
	assert.Equal(t, notify.LevelError, notes.Notifications[0].Level)

	rec = env.do(t, http.MethodPost, "/v1/delivery/assign", `{"order_ids":[101],"delivery_phone":"0791111111"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIssues_TransitionGuardedByStatus(t *testing.T) {
	env := newConsoleEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/issues/9/acknowledge", `{"status":"OPEN"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/issues/9/acknowledge", `{"status":"RESOLVED"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/issues/9/resolve", `{"status":"BOGUS"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Len(t, env.backend.patched(), 1)
}

func TestIssues_ExpiredSessionRedirectsToLogin(t *testing.T) {
	env := newConsoleEnv(t)
	env.backend.mu.Lock()
	env.backend.expired = true
	env.backend.mu.Unlock()

	rec := env.do(t, http.MethodGet, "/v1/issues", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "/login", decode(t, rec)["redirect"])

	rec = env.do(t, http.MethodGet, "/v1/notifications", "")
	assert.Contains(t, rec.Body.String(), `"notifications":[]`)
}

func TestDashboard_LoadsAllTiles(t *testing.T) {
	env := newConsoleEnv(t)

	rec := env.do(t, http.MethodGet, "/v1/dashboard", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp handlers.DashboardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(42), resp.Summary.TotalOrders)
	require.Len(t, resp.Sales, 1)
	assert.Equal(t, int64(5), resp.Comparison.TodayOrders)
}

func TestAudit_DisabledWithoutDatabase(t *testing.T) {
	env := newConsoleEnv(t)

	rec := env.do(t, http.MethodGet, "/v1/audit", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
