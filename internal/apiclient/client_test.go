package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jafarshop/groceryadmin/internal/config"
)

type fakeCreds struct {
	mu      sync.Mutex
	token   string
	expired int
}

func (f *fakeCreds) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeCreds) Expire(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = ""
	f.expired++
	return nil
}

func writeEnvelope(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": status < 300,
		"message": "ok",
		"data":    data,
	})
}

func newTestClient(t *testing.T, h http.HandlerFunc, creds *fakeCreds, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts = append([]Option{WithHTTPClient(srv.Client())}, opts...)
	return NewClient(config.APIConfig{BaseURL: srv.URL + "/api", Timeout: 2 * time.Second}, creds, zap.NewNop(), opts...)
}

func TestClient_AttachesBearerToken(t *testing.T) {
	var gotAuth, gotType, gotPath, gotReqID string
	creds := &fakeCreds{token: "tok-123"}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		gotPath = r.URL.Path
		gotReqID = r.Header.Get("X-Request-ID")
		writeEnvelope(w, http.StatusOK, []string{"a"})
	}, creds)

	out, err := Get[[]string](context.Background(), c, "/admin/products", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, out)
	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, "/api/admin/products", gotPath)
	assert.NotEmpty(t, gotReqID)
}

func TestClient_ReadsCurrentTokenPerRequest(t *testing.T) {
	var seen []string
	creds := &fakeCreds{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
		writeEnvelope(w, http.StatusOK, nil)
	}, creds)

	ctx := context.Background()
	require.NoError(t, c.Do(ctx, http.MethodGet, "/x", nil, nil, nil))
	creds.mu.Lock()
	creds.token = "second"
	creds.mu.Unlock()
	require.NoError(t, c.Do(ctx, http.MethodGet, "/x", nil, nil, nil))

	assert.Equal(t, []string{"", "Bearer second"}, seen)
}

func TestClient_UnauthorizedClearsSessionAndNavigates(t *testing.T) {
	creds := &fakeCreds{token: "stale"}
	var routes []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"token expired"}`))
	}, creds, WithNavigator(func(route string) { routes = append(routes, route) }))

	err := c.Do(context.Background(), http.MethodPatch, "/admin/orders/1/status", nil, map[string]string{"status": "PACKED"}, nil)
	require.Error(t, err)

	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, 1, creds.expired)
	assert.Equal(t, "", creds.Token())
	assert.Equal(t, []string{LoginRoute}, routes)
	assert.Equal(t, "token expired", MessageOf(err, "fallback"))
}

func TestClient_ErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		validation  bool
	}{
		{"backend message", http.StatusBadRequest, `{"success":false,"message":"Price must be positive"}`, "Price must be positive", true},
		{"error field", http.StatusConflict, `{"error":"duplicate"}`, "duplicate", true},
		{"server error without body", http.StatusInternalServerError, ``, "Something went wrong", false},
		{"html body", http.StatusBadGateway, `<html>bad gateway</html>`, "Something went wrong", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}, &fakeCreds{token: "t"})

			err := c.Do(context.Background(), http.MethodGet, "/x", nil, nil, nil)
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.validation, apiErr.IsValidation())
			assert.Equal(t, tt.wantMessage, MessageOf(err, "Something went wrong"))
		})
	}
}

func TestClient_EnvelopeFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"message":"Order already delivered","data":null}`))
	}, &fakeCreds{})

	err := c.Do(context.Background(), http.MethodGet, "/x", nil, nil, nil)
	require.Error(t, err)
	assert.Equal(t, "Order already delivered", MessageOf(err, "fallback"))
}

func TestClient_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	c := NewClient(config.APIConfig{BaseURL: base, Timeout: time.Second}, &fakeCreds{}, zap.NewNop())
	err := c.Do(context.Background(), http.MethodGet, "/x", nil, nil, nil)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 0, apiErr.StatusCode)
	assert.Equal(t, "fallback", MessageOf(err, "fallback"))
}

func TestClient_QueryParametersAndPage(t *testing.T) {
	var gotQuery url.Values
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		writeEnvelope(w, http.StatusOK, map[string]interface{}{
			"content":       []int{1, 2},
			"totalPages":    3,
			"totalElements": 6,
			"size":          2,
			"number":        0,
			"first":         true,
			"last":          false,
			"empty":         false,
		})
	}, &fakeCreds{})

	q := url.Values{}
	q.Set("page", "0")
	q.Set("status", "PACKED")
	page, err := Get[Page[int]](context.Background(), c, "/admin/orders", q)
	require.NoError(t, err)

	assert.Equal(t, "0", gotQuery.Get("page"))
	assert.Equal(t, "PACKED", gotQuery.Get("status"))
	assert.Equal(t, []int{1, 2}, page.Content)
	assert.Equal(t, 3, page.TotalPages)
	assert.True(t, page.First)
}

func TestClient_UploadMultipart(t *testing.T) {
	var gotFile, gotField, gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(f)
		gotFile = string(data)
		gotField = r.FormValue("note")
		writeEnvelope(w, http.StatusOK, map[string]int{"created": 2})
	}, &fakeCreds{token: "up"})

	var out map[string]int
	err := c.Upload(context.Background(), "/admin/products/upload-csv",
		FormFile{Field: "file", Filename: "p.csv", Content: strings.NewReader("name,price\nmilk,2")},
		map[string]string{"note": "bulk"}, &out)
	require.NoError(t, err)

	assert.Equal(t, "name,price\nmilk,2", gotFile)
	assert.Equal(t, "bulk", gotField)
	assert.Equal(t, "Bearer up", gotAuth)
	assert.Equal(t, 2, out["created"])
}

func TestClient_Download(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4"))
	}, &fakeCreds{token: "t"})

	data, ctype, err := c.Download(context.Background(), "/admin/orders/7/receipt")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))
	assert.Equal(t, "application/pdf", ctype)
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"transport", &APIError{Err: errors.New("connection refused")}, true},
		{"server", &APIError{StatusCode: 503}, true},
		{"validation", &APIError{StatusCode: 400, Message: "bad"}, false},
		{"unauthorized", &APIError{StatusCode: 401, Err: ErrUnauthorized}, false},
		{"envelope", &APIError{StatusCode: 200, Message: "nope"}, false},
		{"other", errors.New("decode"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Retryable(tt.err))
		})
	}
}

func TestTransient(t *testing.T) {
	assert.True(t, Transient(&APIError{Err: errors.New("connection refused")}))
	assert.True(t, Transient(&APIError{StatusCode: 502}))
	assert.False(t, Transient(&APIError{StatusCode: 404, Message: "Order not found"}))
	assert.False(t, Transient(&APIError{StatusCode: 401, Err: ErrUnauthorized}))
	assert.False(t, Transient(errors.New("decode")))
}
