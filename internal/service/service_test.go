package service

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jafarshop/groceryadmin/internal/apiclient"
	"github.com/jafarshop/groceryadmin/internal/cache"
	"github.com/jafarshop/groceryadmin/internal/config"
	"github.com/jafarshop/groceryadmin/internal/domain"
	"github.com/jafarshop/groceryadmin/internal/notify"
	"github.com/jafarshop/groceryadmin/internal/session"
	"github.com/jafarshop/groceryadmin/pkg/errors"
)

type fakeAudit struct {
	mu      sync.Mutex
	entries []*domain.AuditEntry
}

func (f *fakeAudit) Record(ctx context.Context, e *domain.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeAudit) last() *domain.AuditEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.entries) == 0 {
		return nil
	}
	return f.entries[len(f.entries)-1]
}

// backend is an in-memory stand-in for the admin REST API.
type backend struct {
	mu          sync.Mutex
	products    []domain.Product
	requests    []string
	bodies      []string
	auth        []string
	failCreate  bool
	failImage   bool
	failAssign  map[int64]bool
	unauthorize bool
}

func (b *backend) log(r *http.Request) string {
	body, _ := io.ReadAll(r.Body)
	b.mu.Lock()
	defer b.mu.Unlock()
	line := r.Method + " " + strings.TrimPrefix(r.URL.Path, "/api")
	if r.URL.RawQuery != "" {
		line += "?" + r.URL.RawQuery
	}
	b.requests = append(b.requests, line)
	b.bodies = append(b.bodies, string(body))
	b.auth = append(b.auth, r.Header.Get("Authorization"))
	return string(body)
}

func (b *backend) calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.requests...)
}

func (b *backend) count(prefix string) int {
	n := 0
	for _, r := range b.calls() {
		if strings.HasPrefix(r, prefix) {
			n++
		}
	}
	return n
}

func reply(w http.ResponseWriter, status int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": status < 300,
		"message": message,
		"data":    data,
	})
}

func (b *backend) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		json.Unmarshal([]byte(b.log(r)), &req)
		if req.Password != "secret" {
			reply(w, http.StatusBadRequest, "Invalid phone or password", nil)
			return
		}
		reply(w, http.StatusOK, "ok", LoginResponse{Token: "tok-" + req.Phone, Role: "ADMIN"})
	})

	mux.HandleFunc("GET /api/admin/products", func(w http.ResponseWriter, r *http.Request) {
		b.log(r)
		b.mu.Lock()
		out := append([]domain.Product(nil), b.products...)
		b.mu.Unlock()
		reply(w, http.StatusOK, "ok", out)
	})

	mux.HandleFunc("POST /api/admin/products", func(w http.ResponseWriter, r *http.Request) {
		body := b.log(r)
		if b.failCreate {
			reply(w, http.StatusBadRequest, "Product name already exists", nil)
			return
		}
		var in ProductInput
		json.Unmarshal([]byte(body), &in)
		b.mu.Lock()
		p := domain.Product{ID: int64(len(b.products) + 1), Name: in.Name, Category: in.Category, Price: in.Price, Stock: in.Stock, Active: true}
		b.products = append(b.products, p)
		b.mu.Unlock()
		reply(w, http.StatusCreated, "created", p)
	})

	mux.HandleFunc("PATCH /api/admin/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		body := b.log(r)
		if b.unauthorize {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		var patch ProductPatch
		json.Unmarshal([]byte(body), &patch)
		b.mu.Lock()
		for i := range b.products {
			if b.products[i].ID == id && patch.Price != nil {
				b.products[i].Price = *patch.Price
			}
		}
		b.mu.Unlock()
		reply(w, http.StatusOK, "updated", nil)
	})

	mux.HandleFunc("POST /api/admin/products/{id}/image", func(w http.ResponseWriter, r *http.Request) {
		b.log(r)
		if b.failImage {
			reply(w, http.StatusInternalServerError, "storage unavailable", nil)
			return
		}
		reply(w, http.StatusOK, "ok", nil)
	})

	mux.HandleFunc("PATCH /api/admin/orders/{id}/{action}", func(w http.ResponseWriter, r *http.Request) {
		b.log(r)
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if r.PathValue("action") == "assign" && b.failAssign[id] {
			reply(w, http.StatusConflict, "Order already delivered", nil)
			return
		}
		reply(w, http.StatusOK, "ok", nil)
	})

	mux.HandleFunc("GET /api/admin/orders", func(w http.ResponseWriter, r *http.Request) {
		b.log(r)
		reply(w, http.StatusOK, "ok", apiclient.Page[domain.Order]{
			Content:       []domain.Order{{ID: 101, Status: domain.OrderStatusPlaced}},
			TotalPages:    1,
			TotalElements: 1,
			Size:          10,
			First:         true,
			Last:          true,
		})
	})

	mux.HandleFunc("PATCH /api/admin/issues/{id}/{action}", func(w http.ResponseWriter, r *http.Request) {
		b.log(r)
		reply(w, http.StatusOK, "ok", nil)
	})

	return mux
}

type testEnv struct {
	svc      *Services
	deps     *Deps
	backend  *backend
	notes    *notify.Recorder
	audit    *fakeAudit
	sessions *session.Manager
	routes   []string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	b := &backend{
		products: []domain.Product{
			{ID: 1, Name: "Milk", Category: "Dairy", Price: decimal.RequireFromString("3.00"), Stock: 12},
		},
		failAssign: map[int64]bool{},
	}
	srv := httptest.NewServer(b.handler())
	t.Cleanup(srv.Close)

	logger := zap.NewNop()
	sessions, err := session.NewManager(ctx, session.NewFileStore(filepath.Join(t.TempDir(), "session.json")), logger)
	require.NoError(t, err)

	env := &testEnv{backend: b, notes: notify.NewRecorder(0), audit: &fakeAudit{}, sessions: sessions}

	client := apiclient.NewClient(config.APIConfig{BaseURL: srv.URL + "/api", Timeout: 2 * time.Second}, sessions, logger,
		apiclient.WithHTTPClient(srv.Client()),
		apiclient.WithNavigator(func(route string) { env.routes = append(env.routes, route) }),
	)

	env.deps = &Deps{
		API:      client,
		Cache:    cache.New(logger, cache.WithRetry(1, 0)),
		Sessions: sessions,
		Notifier: env.notes,
		Audit:    env.audit,
		Logger:   logger,
	}
	env.svc = New(env.deps)

	_, err = env.svc.Auth.Login(ctx, "0790000000", "secret")
	require.NoError(t, err)
	env.notes.Drain()

	return env
}

func TestAuth_LoginAttachesTokenToLaterRequests(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Products.List(context.Background())
	require.NoError(t, err)

	env.backend.mu.Lock()
	defer env.backend.mu.Unlock()
	assert.Equal(t, "", env.backend.auth[0], "login itself is unauthenticated")
	assert.Equal(t, "Bearer tok-0790000000", env.backend.auth[len(env.backend.auth)-1])
	assert.Equal(t, "ADMIN", env.sessions.Role())
}

func TestAuth_LoginValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Auth.Login(ctx, " ", "x")
	var verr *errors.ErrValidation
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "phone", verr.Field)

	_, err = env.svc.Auth.Login(ctx, "0790000000", "wrong")
	assert.Equal(t, "Invalid phone or password", apiclient.MessageOf(err, ""))
}

func TestProducts_PriceUpdateVisibleAfterInvalidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	q := env.svc.Products.ListQuery()
	watched := env.deps.Cache.Watch(ctx, q.Key, q.Fetch, cache.QueryOptions{})
	defer watched.Close()

	products, ok := cache.Data[[]domain.Product](watched.State())
	require.True(t, ok)
	current := products[0]

	patch := DiffProduct(current, ProductInput{
		Name:     current.Name,
		Category: current.Category,
		Price:    decimal.RequireFromString("4.50"),
		Stock:    current.Stock,
	})
	assert.Equal(t, []string{"price"}, patch.Fields())

	require.NoError(t, env.svc.Products.Update(ctx, current.ID, patch))

	products, _ = cache.Data[[]domain.Product](watched.State())
	assert.True(t, decimal.RequireFromString("4.50").Equal(products[0].Price))

	env.backend.mu.Lock()
	body := env.backend.bodies[len(env.backend.bodies)-2]
	env.backend.mu.Unlock()
	assert.JSONEq(t, `{"price":"4.5"}`, body)

	last, _ := env.notes.Last()
	assert.Equal(t, notify.LevelSuccess, last.Level)
	assert.Equal(t, domain.AuditOutcomeSuccess, env.audit.last().Outcome)
	assert.Equal(t, "ADMIN", env.audit.last().Role)
}

func TestProducts_UpdateWithoutChangesSendsNothing(t *testing.T) {
	env := newTestEnv(t)
	before := len(env.backend.calls())

	err := env.svc.Products.Update(context.Background(), 1, ProductPatch{})
	assert.ErrorIs(t, err, ErrNoChanges)
	assert.Len(t, env.backend.calls(), before)
}

func TestProducts_CreateWithImage(t *testing.T) {
	image := func() *apiclient.FormFile {
		return &apiclient.FormFile{Filename: "eggs.png", Content: strings.NewReader("png")}
	}
	input := ProductInput{Name: "Eggs", Category: "Dairy", Price: decimal.NewFromInt(2), Stock: 30}

	t.Run("create fails so no upload", func(t *testing.T) {
		env := newTestEnv(t)
		env.backend.failCreate = true

		_, err := env.svc.Products.CreateWithImage(context.Background(), input, image())
		require.Error(t, err)
		assert.Equal(t, 0, env.backend.count("POST /admin/products/"))

		last, _ := env.notes.Last()
		assert.Equal(t, "Product name already exists", last.Message)
	})

	t.Run("image fails after create", func(t *testing.T) {
		env := newTestEnv(t)
		env.backend.failImage = true

		res, err := env.svc.Products.CreateWithImage(context.Background(), input, image())
		require.NoError(t, err)
		require.NotNil(t, res.Product)
		assert.Error(t, res.ImageErr)
		assert.Equal(t, 1, env.backend.count("POST /admin/products/2/image"))

		last, _ := env.notes.Last()
		assert.Equal(t, notify.LevelError, last.Level)
		assert.Contains(t, last.Message, "Product created")
		assert.Equal(t, domain.AuditOutcomePartial, env.audit.last().Outcome)

		products, err := env.svc.Products.List(context.Background())
		require.NoError(t, err)
		assert.Len(t, products, 2, "product stays created")
	})

	t.Run("both succeed", func(t *testing.T) {
		env := newTestEnv(t)

		res, err := env.svc.Products.CreateWithImage(context.Background(), input, image())
		require.NoError(t, err)
		assert.NoError(t, res.ImageErr)
		last, _ := env.notes.Last()
		assert.Equal(t, notify.LevelSuccess, last.Level)
	})
}

func TestProducts_ValidationAndCSV(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Products.Create(ctx, ProductInput{Name: "x", Category: "y", Price: decimal.NewFromInt(-1)})
	var verr *errors.ErrValidation
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "price", verr.Field)

	_, err = env.svc.Products.UploadCSV(ctx, apiclient.FormFile{Filename: "products.xlsx", Content: strings.NewReader("")})
	require.ErrorAs(t, err, &verr)
}

func TestOrders_AdvanceStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	next, err := env.svc.Orders.AdvanceStatus(ctx, 7, domain.OrderStatusPlaced)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPacked, next)

	env.backend.mu.Lock()
	assert.Equal(t, "PATCH /admin/orders/7/status", env.backend.requests[len(env.backend.requests)-1])
	assert.JSONEq(t, `{"status":"PACKED"}`, env.backend.bodies[len(env.backend.bodies)-1])
	env.backend.mu.Unlock()

	for _, terminal := range []domain.OrderStatus{domain.OrderStatusDelivered, domain.OrderStatusCancelled} {
		before := len(env.backend.calls())
		_, err := env.svc.Orders.AdvanceStatus(ctx, 7, terminal)
		var terr *errors.ErrInvalidStateTransition
		assert.ErrorAs(t, err, &terr)
		assert.ErrorAs(t, env.svc.Orders.Cancel(ctx, 7, terminal), &terr)
		assert.Len(t, env.backend.calls(), before, "no request from %s", terminal)
	}

	err = env.svc.Orders.UpdateStatus(ctx, 7, domain.OrderStatusPlaced, domain.OrderStatusDelivered)
	assert.Error(t, err, "skipping a step is rejected locally")
}

func TestOrders_AssignSendsDeliveryPhone(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.svc.Orders.Assign(context.Background(), 5, " 0791111111 "))
	assert.Equal(t, 1, env.backend.count("PATCH /admin/orders/5/assign?deliveryPhone=0791111111"))
}

func TestOrders_BulkAssignPartialFailure(t *testing.T) {
	env := newTestEnv(t)
	env.backend.failAssign[102] = true

	res, err := env.svc.Orders.BulkAssign(context.Background(), []int64{101, 102, 103}, "0791111111")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, ErrBulkAssignFailed))
	assert.False(t, res.OK())
	assert.Equal(t, []int64{102}, res.Failed())
	assert.Equal(t, []int64{101, 103}, res.Succeeded())

	for _, id := range []int64{101, 102, 103} {
		assert.Equal(t, 1, env.backend.count("PATCH /admin/orders/"+strconv.FormatInt(id, 10)+"/assign"))
	}

	notes := env.notes.Drain()
	require.Len(t, notes, 1, "one aggregate notification")
	assert.Equal(t, notify.LevelError, notes[0].Level)
	assert.Equal(t, domain.AuditOutcomePartial, env.audit.last().Outcome)
	assert.Contains(t, env.audit.last().Message, "102")
}

func TestOrders_BulkAssignAllSucceed(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.svc.Orders.BulkAssign(context.Background(), []int64{1, 2}, "0791111111")
	require.NoError(t, err)
	assert.True(t, res.OK())
	last, _ := env.notes.Last()
	assert.Equal(t, notify.LevelSuccess, last.Level)
}

func TestOrders_ListQueryParams(t *testing.T) {
	env := newTestEnv(t)

	page, err := env.svc.Orders.List(context.Background(), OrderFilter{Page: 2, Size: 10, Status: domain.OrderStatusPacked, Phone: "079"})
	require.NoError(t, err)
	assert.Equal(t, int64(101), page.Content[0].ID)
	assert.Equal(t, 1, env.backend.count("GET /admin/orders?page=2&phone=079&size=10&status=PACKED"))
	assert.Equal(t, cache.K("orders", 2, 0, "PACKED", "079", "", ""), OrdersKey(OrderFilter{Page: 2, Status: domain.OrderStatusPacked, Phone: "079"}))
}

func TestOrders_PageSizeIsPartOfCacheKey(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Orders.List(ctx, OrderFilter{Size: 10})
	require.NoError(t, err)
	_, err = env.svc.Orders.List(ctx, OrderFilter{Size: 50})
	require.NoError(t, err)
	_, err = env.svc.Orders.List(ctx, OrderFilter{Size: 10})
	require.NoError(t, err)

	assert.Equal(t, 1, env.backend.count("GET /admin/orders?page=0&size=10"))
	assert.Equal(t, 1, env.backend.count("GET /admin/orders?page=0&size=50"))
	assert.NotEqual(t, OrdersKey(OrderFilter{Size: 10}), OrdersKey(OrderFilter{Size: 50}))
}

func TestIssues_TransitionsGuarded(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.svc.Issues.Acknowledge(ctx, 3, domain.IssueStatusOpen))
	assert.Equal(t, 1, env.backend.count("PATCH /admin/issues/3/acknowledge"))

	before := len(env.backend.calls())
	assert.Error(t, env.svc.Issues.Acknowledge(ctx, 3, domain.IssueStatusInProgress))
	assert.Error(t, env.svc.Issues.Resolve(ctx, 3, domain.IssueStatusResolved))
	assert.Len(t, env.backend.calls(), before)

	require.NoError(t, env.svc.Issues.Resolve(ctx, 3, domain.IssueStatusInProgress))
}

func TestMutation_UnauthorizedEndsSessionWithoutNotification(t *testing.T) {
	env := newTestEnv(t)
	env.backend.unauthorize = true

	err := env.svc.Products.Update(context.Background(), 1, ProductPatch{Stock: new(int)})
	require.Error(t, err)
	assert.True(t, apiclient.IsUnauthorized(err))

	assert.False(t, env.sessions.SignedIn())
	assert.Equal(t, []string{apiclient.LoginRoute}, env.routes)
	assert.Empty(t, env.notes.Drain())
}

func TestClearOnSignOut(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	env.deps.Cache.SetData(ProductsKey(), []domain.Product{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		ClearOnSignOut(ctx, env.sessions, env.deps.Cache, zap.NewNop())
	}()

	// wait for the subscription before ending the session
	require.Eventually(t, func() bool {
		_ = env.sessions.Expire(context.Background())
		_, ok := env.deps.Cache.Get(ProductsKey())
		return !ok
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
