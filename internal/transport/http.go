// Package transport sends rendered documents to a GraphQL endpoint.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/goccy/go-json"

	"github.com/hanpama/selgraph/internal/eventbus"
	"github.com/hanpama/selgraph/internal/events"
	"github.com/hanpama/selgraph/internal/reqid"
)

// Transport executes one GraphQL document.
type Transport interface {
	Do(ctx context.Context, document string) (*Response, error)
}

// Response is a GraphQL response body.
type Response struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors,omitempty"`
	// Meta describes the exchange that produced the body. It is not part of
	// the wire format.
	Meta Metadata `json:"-"`
}

// Metadata describes the HTTP exchange behind a Response.
type Metadata struct {
	RequestID string
	// Attempts counts every post, including the successful one.
	Attempts int
	Status   int
	Header   http.Header
	// Duration spans all attempts and the waits between them.
	Duration time.Duration
}

// GraphQLError is one entry of a response's errors array.
type GraphQLError struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Locations  []Location     `json:"locations,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

func (e GraphQLError) Error() string {
	if len(e.Path) == 0 {
		return e.Message
	}
	var b bytes.Buffer
	for i, p := range e.Path {
		switch p := p.(type) {
		case string:
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteString(p)
		default:
			fmt.Fprintf(&b, "[%v]", p)
		}
	}
	return b.String() + ": " + e.Message
}

type request struct {
	Query string `json:"query"`
}

// HTTP posts documents as {"query": ...} JSON bodies. Network failures,
// 5xx and 429 responses are retried with exponential backoff; any other
// failure is returned at once.
type HTTP struct {
	endpoint string
	opt      *Options
}

var _ Transport = (*HTTP)(nil)

// NewHTTP creates a transport for endpoint.
func NewHTTP(endpoint string, opts ...Option) *HTTP {
	o := defaultOptions()
	for _, f := range opts {
		f(o)
	}
	return &HTTP{endpoint: endpoint, opt: o}
}

// Endpoint returns the URL documents are posted to.
func (t *HTTP) Endpoint() string { return t.endpoint }

// Do posts document and parses the response. A response carrying errors is
// reported as *ErrorResponse and a failed status as *HTTPError.
func (t *HTTP) Do(ctx context.Context, document string) (*Response, error) {
	body, err := json.Marshal(request{Query: document})
	if err != nil {
		return nil, fmt.Errorf("transport: encode request: %w", err)
	}
	ctx, rid := reqid.Ensure(ctx)
	start := time.Now()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = t.opt.RetryInterval
	attempt := 0
	resp, err := backoff.Retry(ctx, func() (*Response, error) {
		attempt++
		return t.post(ctx, rid, attempt, body)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(t.opt.Retries)+1),
		backoff.WithNotify(func(err error, next time.Duration) {
			t.opt.Logger.Info("retrying request", "requestID", rid, "attempt", attempt, "error", err.Error(), "after", next)
		}),
	)
	if err != nil {
		return nil, unwrapRetry(err)
	}
	resp.Meta.RequestID = rid
	resp.Meta.Attempts = attempt
	resp.Meta.Duration = time.Since(start)
	return resp, nil
}

func (t *HTTP) post(ctx context.Context, rid string, attempt int, body []byte) (resp *Response, err error) {
	if t.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.opt.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("transport: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, vs := range t.opt.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set(reqid.Header, rid)

	log := t.opt.Logger.WithValues("requestID", rid, "attempt", attempt)
	log.V(1).Info("posting document", "endpoint", t.endpoint, "bytes", len(body))

	status := 0
	start := time.Now()
	eventbus.Publish(ctx, events.HTTPRequestStart{Request: req, Attempt: attempt})
	defer func() {
		d := time.Since(start)
		eventbus.Publish(ctx, events.HTTPRequestFinish{
			Request:  req,
			Attempt:  attempt,
			Status:   status,
			Err:      unwrapRetry(err),
			Duration: d,
		})
		log.V(1).Info("request finished", "status", status, "duration", d)
	}()

	res, err := t.opt.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transport: %w", err)
	}
	defer res.Body.Close()
	status = res.StatusCode

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("transport: read response: %w", err)
	}

	if res.StatusCode >= 400 {
		herr := &HTTPError{StatusCode: res.StatusCode, Body: data}
		switch {
		case res.StatusCode == http.StatusTooManyRequests:
			if secs, perr := strconv.Atoi(res.Header.Get("Retry-After")); perr == nil && secs >= 0 {
				return nil, errors.Join(herr, backoff.RetryAfter(secs))
			}
			return nil, herr
		case res.StatusCode >= 500:
			return nil, herr
		}
		return nil, backoff.Permanent(herr)
	}

	var out Response
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("transport: decode response: %w", err))
	}
	if len(out.Errors) > 0 {
		return nil, backoff.Permanent(&ErrorResponse{Data: out.Data, Errors: out.Errors})
	}
	out.Meta = Metadata{Status: res.StatusCode, Header: res.Header.Clone()}
	return &out, nil
}

// unwrapRetry strips the retry bookkeeping from an attempt's error.
func unwrapRetry(err error) error {
	if err == nil {
		return nil
	}
	var herr *HTTPError
	if errors.As(err, &herr) {
		return herr
	}
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Err
	}
	return err
}
