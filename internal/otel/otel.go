package otel

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/hanpama/selgraph/internal/eventbus"
	"github.com/hanpama/selgraph/internal/events"
	"github.com/hanpama/selgraph/internal/reqid"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Setup exports traces over OTLP/gRPC and turns operation and HTTP request
// events into spans. If endpoint is empty, no telemetry is configured.
func Setup(endpoint, service string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(context.Background(),
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)

	unsubscribe := newSubscriber(otel.Tracer("selgraph")).register()

	return func(ctx context.Context) error {
		unsubscribe()
		return tp.Shutdown(ctx)
	}, nil
}

type subscriber struct {
	tracer   trace.Tracer
	opSpans  sync.Map // rid -> trace.Span
	reqSpans sync.Map // rid/attempt -> trace.Span
}

func newSubscriber(tracer trace.Tracer) *subscriber {
	return &subscriber{tracer: tracer}
}

func attemptKey(rid string, attempt int) string {
	return rid + "/" + strconv.Itoa(attempt)
}

func (s *subscriber) register() (unsubscribe func()) {
	offs := []func(){
		eventbus.Subscribe(func(ctx context.Context, e events.OperationStart) {
			rid, _ := reqid.FromContext(ctx)
			_, span := s.tracer.Start(ctx, "graphql."+e.Operation, trace.WithSpanKind(trace.SpanKindClient))
			span.SetAttributes(
				attribute.String("graphql.operation.type", e.Operation),
				attribute.String("graphql.operation.root", e.Root),
				attribute.String("graphql.document", e.Document),
			)
			s.opSpans.Store(rid, span)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.OperationFinish) {
			rid, _ := reqid.FromContext(ctx)
			v, ok := s.opSpans.LoadAndDelete(rid)
			if !ok {
				return
			}
			span := v.(trace.Span)
			endWithError(span, e.Err)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.HTTPRequestStart) {
			rid, _ := reqid.FromContext(ctx)
			parent := ctx
			if v, ok := s.opSpans.Load(rid); ok {
				parent = trace.ContextWithSpan(ctx, v.(trace.Span))
			}
			_, span := s.tracer.Start(parent, "http.request", trace.WithSpanKind(trace.SpanKindClient))
			span.SetAttributes(
				semconv.HTTPMethodKey.String(e.Request.Method),
				semconv.HTTPURLKey.String(e.Request.URL.String()),
				attribute.Int("http.attempt", e.Attempt),
			)
			s.reqSpans.Store(attemptKey(rid, e.Attempt), span)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.HTTPRequestFinish) {
			rid, _ := reqid.FromContext(ctx)
			v, ok := s.reqSpans.LoadAndDelete(attemptKey(rid, e.Attempt))
			if !ok {
				return
			}
			span := v.(trace.Span)
			if e.Status != 0 {
				span.SetAttributes(semconv.HTTPStatusCodeKey.Int(e.Status))
			}
			err := e.Err
			if err == nil && e.Status >= 500 {
				err = errors.New(strconv.Itoa(e.Status))
			}
			endWithError(span, err)
		}),
	}
	return func() {
		for _, off := range offs {
			off()
		}
	}
}

func endWithError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
