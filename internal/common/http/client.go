// internal/common/http/client.go
package http

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"deal-analyzer-client/internal/common/errors"
	"deal-analyzer-client/internal/common/logger"
	"deal-analyzer-client/internal/common/metrics"
	"deal-analyzer-client/internal/common/observability"
)

const (
	HeaderRequestID = "X-Request-ID"

	maxErrorBody = 64 << 10
)

// TokenSource yields the current access token. It is consulted on every request so
// that a login or logout takes effect immediately. An empty token means no
// Authorization header.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Upload is a single multipart file part.
type Upload struct {
	Field    string
	FileName string
	Reader   io.Reader
	Form     map[string]string
}

// Request describes one backend call. Path is relative to the base URL.
type Request struct {
	Operation string
	Method    string
	Path      string
	Query     map[string]string
	Body      interface{}
	Upload    *Upload
}

type Client struct {
	rc     *resty.Client
	base   *url.URL
	tokens TokenSource
	log    logger.Logger
	obs    *observability.Observability

	mu             sync.RWMutex
	onUnauthorized []func()
}

func NewClient(cfg Config, tokens TokenSource, log logger.Logger, obs *observability.Observability) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}

	rc := resty.New()
	rc.SetBaseURL(cfg.BaseURL)
	rc.SetTimeout(cfg.Timeout)
	rc.SetHeader("Accept", "application/json")
	if cfg.UserAgent != "" {
		rc.SetHeader("User-Agent", cfg.UserAgent)
	}

	c := &Client{
		rc:     rc,
		base:   base,
		tokens: tokens,
		log:    log.WithFields(map[string]interface{}{"component": "http"}),
		obs:    obs,
	}
	rc.OnBeforeRequest(c.authorize)
	return c, nil
}

// OnUnauthorized registers a callback fired whenever the backend answers 401.
func (c *Client) OnUnauthorized(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = append(c.onUnauthorized, fn)
}

func (c *Client) authorize(_ *resty.Client, r *resty.Request) error {
	if r.Header.Get(HeaderRequestID) == "" {
		r.SetHeader(HeaderRequestID, uuid.NewString())
	}
	if c.tokens == nil {
		return nil
	}
	token, err := c.tokens.AccessToken(r.Context())
	if err != nil {
		return errors.NewTokenStoreError(err)
	}
	if token != "" {
		r.SetAuthToken(token)
	}
	return nil
}

// Do executes req and returns the raw response body of a 2xx answer.
func (c *Client) Do(ctx context.Context, req Request) ([]byte, error) {
	r := c.rc.R().SetContext(ctx)
	if len(req.Query) > 0 {
		r.SetQueryParams(req.Query)
	}
	if req.Body != nil {
		r.SetBody(req.Body)
	}
	if req.Upload != nil {
		r.SetFileReader(req.Upload.Field, req.Upload.FileName, req.Upload.Reader)
		if len(req.Upload.Form) > 0 {
			r.SetFormData(req.Upload.Form)
		}
	}
	return c.execute(ctx, r, req.Operation, req.Method, req.Path)
}

// Download streams a file served by the backend into w without buffering it.
// Relative locations are resolved against the base URL host.
func (c *Client) Download(ctx context.Context, location string, w io.Writer) error {
	ref, err := url.Parse(location)
	if err != nil {
		return errors.NewNetworkError("download", err)
	}
	target := c.base.ResolveReference(ref).String()

	r := c.rc.R().SetContext(ctx).SetDoNotParseResponse(true)
	resp, err := c.send(ctx, r, "download", resty.MethodGet, target, true)
	if err != nil {
		return err
	}
	raw := resp.RawBody()
	defer raw.Close()
	if _, err := io.Copy(w, raw); err != nil {
		return classify("download", err)
	}
	return nil
}

func (c *Client) execute(ctx context.Context, r *resty.Request, operation, method, path string) ([]byte, error) {
	resp, err := c.send(ctx, r, operation, method, path, false)
	if err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

// send runs r and maps transport failures and non-2xx answers to a
// StandardError. With stream set the body is left unread on success and the
// caller owns resp.RawBody().
func (c *Client) send(ctx context.Context, r *resty.Request, operation, method, path string, stream bool) (*resty.Response, error) {
	start := time.Now()
	resp, err := r.Execute(method, strings.TrimPrefix(path, "/"))
	duration := time.Since(start)

	fields := map[string]interface{}{
		"operation":  operation,
		"method":     method,
		"path":       path,
		"requestId":  r.Header.Get(HeaderRequestID),
		"durationMs": duration.Milliseconds(),
	}

	if err != nil {
		stdErr := classify(operation, err)
		fields["error"] = stdErr.Details
		c.log.Warn("Request failed", fields)
		c.record(ctx, operation, 0, duration)
		if resp != nil && stream && resp.RawBody() != nil {
			resp.RawBody().Close()
		}
		return nil, stdErr
	}

	status := resp.StatusCode()
	fields["status"] = status
	c.record(ctx, operation, status, duration)

	if status < 200 || status > 299 {
		c.log.Warn("Request returned error status", fields)
		if status == 401 {
			c.fireUnauthorized()
		}
		return nil, errors.NewAPIError(operation, status, responseText(resp, stream))
	}

	c.log.Debug("Request completed", fields)
	return resp, nil
}

// responseText returns the error body of resp. Streamed responses are drained
// up to maxErrorBody and closed.
func responseText(resp *resty.Response, stream bool) string {
	if !stream {
		return resp.String()
	}
	raw := resp.RawBody()
	if raw == nil {
		return ""
	}
	defer raw.Close()
	body, _ := io.ReadAll(io.LimitReader(raw, maxErrorBody))
	return strings.TrimSpace(string(body))
}

func (c *Client) record(ctx context.Context, operation string, status int, d time.Duration) {
	label := "error"
	if status != 0 {
		label = strconv.Itoa(status)
	}
	metrics.APIRequests.WithLabelValues(operation, label).Inc()
	metrics.APIRequestDuration.WithLabelValues(operation).Observe(d.Seconds())
	c.obs.RecordRequest(ctx, operation, status, d)
}

func (c *Client) fireUnauthorized() {
	c.mu.RLock()
	hooks := append([]func(){}, c.onUnauthorized...)
	c.mu.RUnlock()
	for _, fn := range hooks {
		fn()
	}
}

func classify(operation string, err error) *errors.StandardError {
	var stdErr *errors.StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewTimeoutError(operation, err)
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return errors.NewTimeoutError(operation, err)
	}
	return errors.NewNetworkError(operation, err)
}
