package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/jafarshop/groceryadmin/internal/config"
)

// LoginRoute is where the navigator is sent after a 401.
const LoginRoute = "/login"

// Credentials is the session the client reads on every request.
// *session.Manager implements it.
type Credentials interface {
	Token() string
	Expire(ctx context.Context) error
}

// Navigator forces the presentation layer to a route.
type Navigator func(route string)

type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      Credentials
	navigate   Navigator
	logger     *zap.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the instrumented default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.httpClient = h
	}
}

// WithNavigator sets the hook invoked with LoginRoute after a 401.
func WithNavigator(n Navigator) Option {
	return func(c *Client) {
		c.navigate = n
	}
}

// NewClient creates the shared backend client
func NewClient(cfg config.APIConfig, creds Credentials, logger *zap.Logger, opts ...Option) *Client {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = config.DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		creds:  creds,
		logger: logger,
		navigate: func(route string) {
			logger.Warn("Session expired, login required", zap.String("route", route))
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Do sends a JSON request and decodes the envelope's data into out (if non-nil).
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := c.newRequest(ctx, method, path, query, reader, "application/json")
	if err != nil {
		return err
	}

	respBody, _, err := c.send(req)
	if err != nil {
		return err
	}

	return decodeEnvelope(respBody, out)
}

// FormFile is one file part of a multipart upload.
type FormFile struct {
	Field    string
	Filename string
	Content  io.Reader
}

// Upload sends a multipart/form-data POST and decodes the envelope into out.
func (c *Client) Upload(ctx context.Context, path string, file FormFile, fields map[string]string, out interface{}) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return fmt.Errorf("failed to write form field: %w", err)
		}
	}

	part, err := w.CreateFormFile(file.Field, file.Filename)
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file.Content); err != nil {
		return fmt.Errorf("failed to copy upload content: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish multipart body: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, nil, &buf, w.FormDataContentType())
	if err != nil {
		return err
	}

	respBody, _, err := c.send(req)
	if err != nil {
		return err
	}

	return decodeEnvelope(respBody, out)
}

// Download fetches a binary resource; the body is returned as-is.
func (c *Client) Download(ctx context.Context, path string) ([]byte, string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, nil, "application/json")
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Accept", "application/pdf, application/octet-stream, */*")

	return c.send(req)
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) (*http.Request, error) {
	u := c.baseURL + "/" + strings.TrimPrefix(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Request-ID", uuid.New().String())
	if token := c.creds.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req, nil
}

// send executes req and applies response interception.
func (c *Client) send(req *http.Request) ([]byte, string, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("Request failed",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Error(err),
		)
		return nil, "", &APIError{Err: fmt.Errorf("failed to execute request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", &APIError{StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	c.logger.Debug("API response",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", req.Header.Get("X-Request-ID")),
	)

	if resp.StatusCode == http.StatusUnauthorized {
		c.handleUnauthorized(req.Context())
		return nil, "", &APIError{
			StatusCode: resp.StatusCode,
			Message:    bodyMessage(body),
			Err:        ErrUnauthorized,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", &APIError{
			StatusCode: resp.StatusCode,
			Message:    bodyMessage(body),
		}
	}

	return body, resp.Header.Get("Content-Type"), nil
}

func (c *Client) handleUnauthorized(ctx context.Context) {
	if err := c.creds.Expire(context.WithoutCancel(ctx)); err != nil {
		c.logger.Error("Failed to clear session after 401", zap.Error(err))
	}
	if c.navigate != nil {
		c.navigate(LoginRoute)
	}
}

func decodeEnvelope(body []byte, out interface{}) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if !env.Success {
		return &APIError{StatusCode: http.StatusOK, Message: env.Message}
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to unmarshal response data: %w", err)
	}
	return nil
}

func bodyMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return ""
	}
	if eb.Message != "" {
		return eb.Message
	}
	return eb.Error
}

// Get issues a GET and returns the envelope data as T.
func Get[T any](ctx context.Context, c *Client, path string, query url.Values) (T, error) {
	var out T
	err := c.Do(ctx, http.MethodGet, path, query, nil, &out)
	return out, err
}
