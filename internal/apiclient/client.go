package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/florianilch/shelf/internal/session"
)

const (
	defaultUserAgent = "shelf/0.1"
	maxErrorBody     = 1 << 20
)

// Paths answering 401 for reasons a refresh cannot fix.
var noRefreshPaths = []string{"/auth/login", "/auth/register", "/auth/refresh"}

// Request describes one API call. It is never mutated; a replay is a copy.
type Request struct {
	Method string
	// Path is appended to the base URL and may carry a query string.
	Path   string
	Header http.Header
	Body   []byte
	// NoRetry disables the refresh-and-replay on 401.
	NoRetry bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client. It should carry a cookie jar
// shared with the session manager.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(cl *Client) {
		cl.userAgent = ua
	}
}

// WithDefaultErrorMessage sets the message used when an error body has none.
func WithDefaultErrorMessage(msg string) Option {
	return func(cl *Client) {
		cl.defaultErrorMessage = msg
	}
}

// Client performs authenticated calls against a fixed base URL.
type Client struct {
	baseURL             string
	http                *http.Client
	session             *session.Manager
	userAgent           string
	defaultErrorMessage string
}

// New creates a Client for baseURL that authenticates through sess.
func New(baseURL string, sess *session.Manager, opts ...Option) (*Client, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if sess == nil {
		return nil, fmt.Errorf("missing session manager")
	}

	c := &Client{
		baseURL:             strings.TrimRight(baseURL, "/"),
		http:                http.DefaultClient,
		session:             sess,
		userAgent:           defaultUserAgent,
		defaultErrorMessage: DefaultErrorMessage,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Session returns the session manager the client authenticates through.
func (c *Client) Session() *session.Manager {
	return c.session
}

// Get decodes the JSON response of a GET into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path}, out)
}

// Post sends body as JSON and decodes the response into out. A nil body sends no body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.doJSON(ctx, http.MethodPost, path, body, out)
}

// Put sends body as JSON and decodes the response into out.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.doJSON(ctx, http.MethodPut, path, body, out)
}

// Patch sends body as JSON and decodes the response into out.
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.doJSON(ctx, http.MethodPatch, path, body, out)
}

// Delete issues a DELETE and decodes the response into out.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: path}, out)
}

// PostFormURLEncoded sends fields as application/x-www-form-urlencoded.
func (c *Client) PostFormURLEncoded(ctx context.Context, path string, fields map[string]string, out any) error {
	values := make(url.Values, len(fields))
	for k, v := range fields {
		values.Set(k, v)
	}
	return c.Do(ctx, &Request{
		Method: http.MethodPost,
		Path:   path,
		Header: http.Header{"Content-Type": {"application/x-www-form-urlencoded"}},
		Body:   []byte(values.Encode()),
	}, out)
}

// PostFormData sends a multipart payload. The boundary is generated here,
// callers never set Content-Type for multipart bodies.
func (c *Client) PostFormData(ctx context.Context, path string, form *FormData, out any) error {
	body, contentType, err := form.encode()
	if err != nil {
		return &Error{Kind: KindRequest, Message: "encoding form data", Err: err}
	}
	return c.Do(ctx, &Request{
		Method: http.MethodPost,
		Path:   path,
		Header: http.Header{"Content-Type": {contentType}},
		Body:   body,
	}, out)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	r := &Request{Method: method, Path: path}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindRequest, Message: "encoding request body", Err: err}
		}
		r.Body = data
		r.Header = http.Header{"Content-Type": {"application/json"}}
	}
	return c.Do(ctx, r, out)
}

// Do performs r and decodes a successful JSON response into out (nil discards it).
//
// A 401 on a refreshable path triggers one shared token refresh and a single replay.
// A 204 response succeeds without touching out.
func (c *Client) Do(ctx context.Context, r *Request, out any) error {
	return c.do(ctx, r, out, false)
}

func (c *Client) do(ctx context.Context, r *Request, out any, replay bool) error {
	resp, sentToken, err := c.send(ctx, r)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return decode(resp, out)
	}

	if resp.StatusCode == http.StatusUnauthorized && refreshable(r.Path) {
		switch {
		case replay:
			// The freshly minted token was rejected too.
			if err := c.session.Expire(ctx, "token rejected after refresh"); err != nil {
				slog.ErrorContext(ctx, "failed to clear access token", "error", err)
			}
			return sessionExpired(nil)
		case !r.NoRetry:
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
			if _, err := c.session.Refresh(ctx, sentToken); err != nil {
				if ctx.Err() != nil {
					return &Error{Kind: KindTransport, Message: "request cancelled", Err: err}
				}
				return sessionExpired(err)
			}
			retry := *r
			retry.NoRetry = true
			return c.do(ctx, &retry, out, true)
		}
	}

	return c.httpError(resp)
}

// send issues one attempt and returns the access token it carried.
func (c *Client) send(ctx context.Context, r *Request) (*http.Response, string, error) {
	var body io.Reader = http.NoBody
	if len(r.Body) > 0 {
		body = bytes.NewReader(r.Body)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, c.baseURL+r.Path, body)
	if err != nil {
		return nil, "", &Error{Kind: KindRequest, Message: "building request", Err: err}
	}

	tok, err := c.session.Token(ctx)
	if err != nil {
		return nil, "", &Error{Kind: KindRequest, Message: "reading credentials", Err: err}
	}
	sentToken := ""
	if tok != nil {
		tok.SetAuthHeader(req)
		sentToken = tok.AccessToken
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	// Caller headers win.
	for key, values := range r.Header {
		req.Header[http.CanonicalHeaderKey(key)] = values
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		slog.DebugContext(ctx, "api request failed", "method", r.Method, "path", r.Path, "error", err)
		return nil, "", &Error{Kind: KindTransport, Message: "request failed", Err: err}
	}
	slog.DebugContext(ctx, "api request",
		"method", r.Method,
		"path", r.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)
	return resp, sentToken, nil
}

func (c *Client) httpError(resp *http.Response) error {
	apiErr := &Error{
		Kind:    KindHTTP,
		Status:  resp.StatusCode,
		Message: c.defaultErrorMessage,
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		apiErr.Unparseable = true
		apiErr.Err = err
		return apiErr
	}

	if msg, ok := parseErrorMessage(data); ok {
		apiErr.Message = msg
	} else {
		apiErr.Unparseable = true
	}
	return apiErr
}

func decode(resp *http.Response, out any) error {
	if resp.StatusCode == http.StatusNoContent || out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Kind: KindParse, Status: resp.StatusCode, Message: "invalid response body", Err: err}
	}
	return nil
}

func sessionExpired(cause error) *Error {
	return &Error{
		Kind:    KindSessionExpired,
		Status:  http.StatusUnauthorized,
		Message: SessionExpiredMessage,
		Err:     cause,
	}
}

func refreshable(path string) bool {
	p := path
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	for _, np := range noRefreshPaths {
		if strings.Contains(p, np) {
			return false
		}
	}
	return true
}

// Blob is a raw binary payload.
type Blob struct {
	Data        []byte
	ContentType string
	// Filename comes from Content-Disposition, empty if absent.
	Filename string
}

// GetBlob downloads a raw payload. It sends the bearer token but never refreshes.
func (c *Client) GetBlob(ctx context.Context, path string) (*Blob, error) {
	resp, _, err := c.send(ctx, &Request{Method: http.MethodGet, Path: path, Header: http.Header{"Accept": {"*/*"}}})
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return nil, &Error{Kind: KindHTTP, Status: resp.StatusCode, Message: DownloadFailedMessage}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Status: resp.StatusCode, Message: "reading response body", Err: err}
	}

	blob := &Blob{Data: data, ContentType: resp.Header.Get("Content-Type")}
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			blob.Filename = params["filename"]
		}
	}
	return blob, nil
}
