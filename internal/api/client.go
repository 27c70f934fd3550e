// Package api is the REST client for the task portal backend. It issues
// authenticated calls, unwraps the {statusCode, data, message} envelope on
// success and normalizes failures into domain errors.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"taskportal/internal/platform/logger"
	"taskportal/internal/platform/metrics"
	dErrors "taskportal/pkg/domain-errors"
	"taskportal/pkg/requestcontext"
)

const (
	// GenericFailureMessage replaces the body of every 500-class response.
	GenericFailureMessage = "Something went wrong. Please try again later."

	requestIDHeader = "X-Request-ID"
	maxErrorBody    = 1 << 20
)

// Client talks to the backend. It holds no session state: authenticated calls
// take the bearer token explicitly.
type Client struct {
	base      *url.URL
	http      *http.Client
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	userAgent string
	timeout   *time.Duration
}

type Option func(c *Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout bounds every call. Zero means no timeout. It applies to the
// final HTTP client regardless of option order, and a client passed through
// WithHTTPClient is copied rather than modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = &d
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// New constructs a Client for the given base URL, e.g.
// "http://localhost:5000/api/v1".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api base url must be http or https, got %q", baseURL)
	}
	c := &Client{
		base:      u,
		http:      &http.Client{},
		logger:    logger.Discard(),
		tracer:    otel.Tracer("taskportal/internal/api"),
		userAgent: "taskportal-client",
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout != nil {
		hc := *c.http
		hc.Timeout = *c.timeout
		c.http = &hc
	}
	return c, nil
}

// BaseURL returns the configured REST base.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// request describes one call. Exactly one of body and form may be set.
type request struct {
	op     string
	method string
	route  string
	path   string
	token  string
	body   any
	form   *Multipart
}

type envelope[T any] struct {
	StatusCode int    `json:"statusCode"`
	Data       T      `json:"data"`
	Message    string `json:"message"`
}

// call performs req and decodes the envelope's data into T. The envelope's
// message is returned alongside for operations that surface it.
func call[T any](ctx context.Context, c *Client, req request) (T, string, error) {
	var zero T
	raw, err := c.do(ctx, req)
	if err != nil {
		return zero, "", err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return zero, "", nil
	}
	var env envelope[T]
	if err := json.Unmarshal(raw, &env); err != nil {
		return zero, "", dErrors.Wrap(err, dErrors.CodeInternal, "malformed response from server")
	}
	return env.Data, env.Message, nil
}

func (c *Client) do(ctx context.Context, req request) (_ []byte, err error) {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "api."+req.op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.method),
			attribute.String("http.route", req.route),
		))
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = string(dErrors.CodeOf(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, dErrors.Message(err))
		}
		span.End()
		c.metrics.ObserveAPI(req.op, outcome, time.Since(start).Seconds())
	}()

	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("request.id", httpReq.Header.Get(requestIDHeader)))

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.WarnContext(ctx, "api call failed",
			"operation", req.op,
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not reach the server")
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	// Only failure bodies are capped; they are read for a message, never stored.
	reader := io.Reader(resp.Body)
	if resp.StatusCode >= http.StatusBadRequest {
		reader = io.LimitReader(resp.Body, maxErrorBody)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "connection dropped while reading response")
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := decodeError(resp.StatusCode, body)
		c.logger.DebugContext(ctx, "api call rejected",
			"operation", req.op,
			"status", resp.StatusCode,
			"code", dErrors.CodeOf(apiErr),
		)
		return nil, apiErr
	}
	return body, nil
}

func (c *Client) newRequest(ctx context.Context, req request) (*http.Request, error) {
	var (
		body        io.Reader
		contentType string
	)
	switch {
	case req.form != nil:
		buf, ct, err := req.form.encode()
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "could not encode form")
		}
		body, contentType = buf, ct
	case req.body != nil:
		b, err := json.Marshal(req.body)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "could not encode request")
		}
		body, contentType = bytes.NewReader(b), "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.base.String()+req.path, body)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "could not build request")
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}
	requestID := requestcontext.RequestID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	httpReq.Header.Set(requestIDHeader, requestID)
	return httpReq, nil
}

// fieldError is one entry of a structured validation failure.
type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type errorBody struct {
	StatusCode int          `json:"statusCode"`
	Message    string       `json:"message"`
	Errors     []fieldError `json:"errors"`
	Data       *struct {
		Errors []fieldError `json:"errors"`
	} `json:"data"`
}

func (b errorBody) fields() map[string]string {
	list := b.Errors
	if len(list) == 0 && b.Data != nil {
		list = b.Data.Errors
	}
	fields := make(map[string]string, len(list))
	for _, fe := range list {
		if fe.Field != "" && fe.Message != "" {
			fields[fe.Field] = fe.Message
		}
	}
	return fields
}

// decodeError turns a failed response into a domain error. A 500-class status
// always yields the generic message; otherwise structured field errors win over
// the single message.
func decodeError(status int, raw []byte) error {
	var body errorBody
	// Non-JSON bodies (proxies, HTML error pages) fall through with an empty body.
	_ = json.Unmarshal(raw, &body)

	if status >= http.StatusInternalServerError || body.StatusCode >= http.StatusInternalServerError {
		return dErrors.New(dErrors.CodeInternal, GenericFailureMessage).WithStatus(status)
	}

	msg := body.Message
	if msg == "" {
		msg = http.StatusText(status)
	}
	if fields := body.fields(); len(fields) > 0 {
		return dErrors.Validation(msg, fields).WithStatus(status)
	}

	var code dErrors.Code
	switch status {
	case http.StatusUnauthorized:
		code = dErrors.CodeUnauthorized
	case http.StatusForbidden:
		code = dErrors.CodeForbidden
	case http.StatusNotFound:
		code = dErrors.CodeNotFound
	case http.StatusConflict:
		code = dErrors.CodeConflict
	default:
		code = dErrors.CodeBadRequest
	}
	return dErrors.New(code, msg).WithStatus(status)
}

// IsGenericFailure reports whether err is the mapped 500-class failure.
func IsGenericFailure(err error) bool {
	var de *dErrors.Error
	return errors.As(err, &de) && de.Code == dErrors.CodeInternal && de.Message == GenericFailureMessage
}

func escape(id string) string {
	return url.PathEscape(id)
}
