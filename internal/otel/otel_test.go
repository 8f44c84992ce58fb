package otel

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/hanpama/selgraph/internal/eventbus"
	"github.com/hanpama/selgraph/internal/events"
	"github.com/hanpama/selgraph/internal/reqid"
)

func TestSetupWithoutEndpoint(t *testing.T) {
	shutdown, err := Setup("", "selgraph")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestSpansFollowEvents(t *testing.T) {
	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	unsubscribe := newSubscriber(tp.Tracer("test")).register()
	defer unsubscribe()

	ctx, _ := reqid.NewContext(context.Background())
	req := httptest.NewRequest("POST", "http://api.example.com/graphql", nil)

	eventbus.Publish(ctx, events.OperationStart{Operation: "query", Root: "Query", Document: "{ viewer { login } }"})
	eventbus.Publish(ctx, events.HTTPRequestStart{Request: req, Attempt: 1})
	eventbus.Publish(ctx, events.HTTPRequestFinish{Request: req, Attempt: 1, Status: 503})
	eventbus.Publish(ctx, events.HTTPRequestStart{Request: req, Attempt: 2})
	eventbus.Publish(ctx, events.HTTPRequestFinish{Request: req, Attempt: 2, Status: 200})
	eventbus.Publish(ctx, events.OperationFinish{Operation: "query", Root: "Query", Err: errors.New("decode failed")})

	spans := recorder.Ended()
	require.Len(t, spans, 3)

	var names []string
	for _, s := range spans {
		names = append(names, s.Name())
	}
	require.Equal(t, []string{"http.request", "http.request", "graphql.query"}, names)

	op := spans[2]
	require.Equal(t, codes.Error, op.Status().Code)
	for _, s := range spans[:2] {
		require.Equal(t, op.SpanContext().SpanID(), s.Parent().SpanID())
	}
	require.Equal(t, codes.Error, spans[0].Status().Code)
	require.Equal(t, codes.Unset, spans[1].Status().Code)
}
