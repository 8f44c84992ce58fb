package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-logr/logr/funcr"
	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/selgraph/internal/eventbus"
	"github.com/hanpama/selgraph/internal/events"
	"github.com/hanpama/selgraph/internal/reqid"
)

// sequence answers the n-th request with statuses[n] (the last one repeats)
// and body for successful attempts.
func sequence(t *testing.T, body string, statuses ...int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(calls.Add(1)) - 1
		status := statuses[min(n, len(statuses)-1)]
		if status >= 400 {
			http.Error(w, http.StatusText(status), status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestDoPostsDocument(t *testing.T) {
	var got struct {
		method, contentType, token, rid string
		body                            map[string]any
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.contentType = r.Header.Get("Content-Type")
		got.token = r.Header.Get("Authorization")
		got.rid = r.Header.Get(reqid.Header)
		_ = json.NewDecoder(r.Body).Decode(&got.body)
		_, _ = io.WriteString(w, `{"data": {"viewer": {"login": "octocat"}}}`)
	}))
	defer srv.Close()

	tr := NewHTTP(srv.URL, WithHeader("Authorization", "bearer t0ken"))
	require.Equal(t, srv.URL, tr.Endpoint())

	ctx, rid := reqid.NewContext(context.Background())
	resp, err := tr.Do(ctx, "{ viewer { login } }")
	require.NoError(t, err)

	require.Equal(t, http.MethodPost, got.method)
	require.Equal(t, "application/json", got.contentType)
	require.Equal(t, "bearer t0ken", got.token)
	require.Equal(t, rid, got.rid)
	require.Equal(t, map[string]any{"query": "{ viewer { login } }"}, got.body)
	require.JSONEq(t, `{"viewer": {"login": "octocat"}}`, string(resp.Data))
	require.Empty(t, resp.Errors)
}

func TestDoAssignsRequestID(t *testing.T) {
	var rid string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid = r.Header.Get(reqid.Header)
		_, _ = io.WriteString(w, `{"data": {}}`)
	}))
	defer srv.Close()

	_, err := NewHTTP(srv.URL).Do(context.Background(), "{ a }")
	require.NoError(t, err)
	require.NotEmpty(t, rid)
}

func TestDoRetriesTransientFailures(t *testing.T) {
	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })

	var mu sync.Mutex
	var statuses []int
	var attempts []int
	eventbus.Subscribe(func(_ context.Context, e events.HTTPRequestFinish) {
		mu.Lock()
		defer mu.Unlock()
		statuses = append(statuses, e.Status)
		attempts = append(attempts, e.Attempt)
	})

	var logged []string
	logger := funcr.New(func(prefix, args string) { logged = append(logged, args) }, funcr.Options{})

	srv, calls := sequence(t, `{"data": {"a": 1}}`, 503, 502, 200)
	resp, err := NewHTTP(srv.URL, WithRetryInterval(time.Millisecond), WithLogger(logger)).Do(context.Background(), "{ a }")
	require.NoError(t, err)
	require.JSONEq(t, `{"a": 1}`, string(resp.Data))
	require.EqualValues(t, 3, calls.Load())
	require.Equal(t, []int{503, 502, 200}, statuses)
	require.Equal(t, []int{1, 2, 3}, attempts)
	require.Equal(t, 3, resp.Meta.Attempts)
	require.Equal(t, http.StatusOK, resp.Meta.Status)
	require.NotEmpty(t, resp.Meta.RequestID)
	require.Len(t, logged, 2)
	require.Contains(t, logged[0], `"msg"="retrying request"`)
}

func TestDoRetriesTooManyRequests(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = io.WriteString(w, `{"data": {}}`)
	}))
	defer srv.Close()

	_, err := NewHTTP(srv.URL).Do(context.Background(), "{ a }")
	require.NoError(t, err)
	require.EqualValues(t, 2, calls.Load())
}

func TestDoGivesUpAfterRetries(t *testing.T) {
	srv, calls := sequence(t, "", 502)
	_, err := NewHTTP(srv.URL, WithRetries(1), WithRetryInterval(time.Millisecond)).Do(context.Background(), "{ a }")

	var herr *HTTPError
	require.True(t, errors.As(err, &herr), "got %v", err)
	require.Equal(t, http.StatusBadGateway, herr.StatusCode)
	require.Equal(t, "Bad Gateway\n", string(herr.Body))
	require.Equal(t, "transport: HTTP 502 Bad Gateway: Bad Gateway", err.Error())
	require.EqualValues(t, 2, calls.Load())
}

func TestDoDoesNotRetryPermanentFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"client error", http.StatusBadRequest, "", "transport: HTTP 400 Bad Request: Bad Request"},
		{"unauthorized", http.StatusUnauthorized, "", "transport: HTTP 401 Unauthorized: Unauthorized"},
		{"malformed body", http.StatusOK, `{"data":`, "transport: decode response"},
		{"graphql errors", http.StatusOK, `{"data": null, "errors": [{"message": "boom"}]}`, "transport: graphql: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, calls := sequence(t, tt.body, tt.status)
			_, err := NewHTTP(srv.URL, WithRetryInterval(time.Millisecond)).Do(context.Background(), "{ a }")
			require.ErrorContains(t, err, tt.wantErr)
			require.EqualValues(t, 1, calls.Load())
		})
	}
}

func TestErrorResponse(t *testing.T) {
	srv, _ := sequence(t, `{
		"data": {"viewer": null},
		"errors": [
			{"message": "not authorized", "path": ["viewer", "repositories", 0], "locations": [{"line": 1, "column": 3}]},
			{"message": "rate limited", "extensions": {"code": "RATE_LIMITED"}}
		]
	}`, 200)

	_, err := NewHTTP(srv.URL).Do(context.Background(), "{ viewer { login } }")
	var gerr *ErrorResponse
	require.True(t, errors.As(err, &gerr), "got %v", err)
	require.JSONEq(t, `{"viewer": null}`, string(gerr.Data))

	want := []GraphQLError{
		{Message: "not authorized", Path: []any{"viewer", "repositories", 0.0}, Locations: []Location{{Line: 1, Column: 3}}},
		{Message: "rate limited", Extensions: map[string]any{"code": "RATE_LIMITED"}},
	}
	if diff := cmp.Diff(want, gerr.Errors); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, "transport: 2 graphql errors: viewer.repositories[0]: not authorized; rate limited", err.Error())
}

func TestDoStopsOnCancel(t *testing.T) {
	srv, calls := sequence(t, "", 503)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHTTP(srv.URL, WithRetryInterval(time.Millisecond)).Do(ctx, "{ a }")
	require.ErrorIs(t, err, context.Canceled)
	require.LessOrEqual(t, calls.Load(), int32(1))
}
