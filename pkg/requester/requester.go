// Package requester is a small HTTP request wrapper. A Requester is configured
// once with a method, URL, payload and expected response type, then run as
// many times as needed. Calls go through a circuit breaker and GET responses
// can be cached.
package requester

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/register-api/pkg/circuitbreaker"
	"github.com/jwalitptl/register-api/pkg/metrics"
)

const (
	TypeJSON = "json"
	TypeText = "text"

	maxResponseBytes = 1 << 20
)

// StatusError is returned for non-2xx responses
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

type Requester struct {
	method   string
	url      string
	data     interface{}
	dataType string

	client   *http.Client
	breaker  *circuitbreaker.CircuitBreaker
	cache    *cache.Cache
	cacheTTL time.Duration
	metrics  *metrics.Metrics
}

type Option func(*Requester)

func WithMethod(method string) Option {
	return func(r *Requester) {
		r.method = strings.ToUpper(method)
	}
}

func WithURL(u string) Option {
	return func(r *Requester) {
		r.url = u
	}
}

// WithData sets the payload. For GET requests url.Values or map[string]string
// are encoded into the query string; anything else is sent as a JSON body.
func WithData(data interface{}) Option {
	return func(r *Requester) {
		r.data = data
	}
}

// WithType sets the expected response type, TypeJSON or TypeText.
func WithType(t string) Option {
	return func(r *Requester) {
		r.dataType = t
	}
}

// WithCache keeps successful GET responses for ttl. Caching is off by default.
func WithCache(ttl time.Duration) Option {
	return func(r *Requester) {
		r.cacheTTL = ttl
	}
}

func WithClient(c *http.Client) Option {
	return func(r *Requester) {
		r.client = c
	}
}

func WithBreaker(cb *circuitbreaker.CircuitBreaker) Option {
	return func(r *Requester) {
		r.breaker = cb
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Requester) {
		r.metrics = m
	}
}

func New(opts ...Option) *Requester {
	r := &Requester{
		method:   http.MethodGet,
		dataType: TypeJSON,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.client == nil {
		r.client = &http.Client{Timeout: 10 * time.Second}
	}
	if r.breaker == nil {
		r.breaker = circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{Name: r.url})
	}
	if r.cacheTTL > 0 {
		r.cache = cache.New(r.cacheTTL, 2*r.cacheTTL)
	}
	return r
}

// Do executes the request and returns the response body.
func (r *Requester) Do(ctx context.Context) ([]byte, error) {
	if r.url == "" {
		return nil, fmt.Errorf("requester: no url configured")
	}

	req, err := r.newRequest(ctx)
	if err != nil {
		return nil, err
	}

	key := req.Method + " " + req.URL.String()
	if r.cache != nil && req.Method == http.MethodGet {
		if body, ok := r.cache.Get(key); ok {
			return body.([]byte), nil
		}
	}

	var body []byte
	start := time.Now()
	err = r.breaker.ExecuteContext(ctx, func() error {
		var execErr error
		body, execErr = r.execute(req)
		return execErr
	})
	r.observe(req.Method, start, err)
	if err != nil {
		return nil, err
	}

	if r.cache != nil && req.Method == http.MethodGet {
		r.cache.Set(key, body, cache.DefaultExpiration)
	}
	return body, nil
}

// Run executes the request and reports the outcome through callbacks.
// always, when set, runs after either onSuccess or onError.
func (r *Requester) Run(ctx context.Context, onSuccess func([]byte), onError func(error), always func()) {
	if always != nil {
		defer always()
	}

	body, err := r.Do(ctx)
	if err != nil {
		if onError != nil {
			onError(err)
		}
		return
	}
	if onSuccess != nil {
		onSuccess(body)
	}
}

// DecodeJSON executes the request and unmarshals the body into v.
func (r *Requester) DecodeJSON(ctx context.Context, v interface{}) error {
	body, err := r.Do(ctx)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (r *Requester) newRequest(ctx context.Context) (*http.Request, error) {
	target, err := url.Parse(r.url)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", r.url, err)
	}

	var body io.Reader
	if r.data != nil {
		if query, ok := queryValues(r.data); ok && r.method == http.MethodGet {
			q := target.Query()
			for k, vs := range query {
				for _, v := range vs {
					q.Add(k, v)
				}
			}
			target.RawQuery = q.Encode()
		} else {
			payload, err := json.Marshal(r.data)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal request data: %w", err)
			}
			body = bytes.NewReader(payload)
		}
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	switch r.dataType {
	case TypeText:
		req.Header.Set("Accept", "text/plain")
	default:
		req.Header.Set("Accept", "application/json")
	}
	return req, nil
}

func (r *Requester) execute(req *http.Request) ([]byte, error) {
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}

func (r *Requester) observe(method string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		log.Warn().
			Err(err).
			Str("method", method).
			Str("url", r.url).
			Str("breaker", string(r.breaker.State())).
			Msg("outbound request failed")
	}
	if r.metrics == nil {
		return
	}
	r.metrics.RequesterCalls.WithLabelValues(method, status).Inc()
	r.metrics.RequesterLatency.WithLabelValues(method).Observe(time.Since(start).Seconds())
}

func queryValues(data interface{}) (url.Values, bool) {
	switch d := data.(type) {
	case url.Values:
		return d, true
	case map[string]string:
		q := url.Values{}
		for k, v := range d {
			q.Set(k, v)
		}
		return q, true
	case map[string]int:
		q := url.Values{}
		for k, v := range d {
			q.Set(k, strconv.Itoa(v))
		}
		return q, true
	}
	return nil, false
}
