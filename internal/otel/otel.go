// Package otel wires OpenTelemetry tracing to the serialization event bus.
package otel

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"

	"github.com/okanra/serigraph/internal/eventbus"
	"github.com/okanra/serigraph/internal/events"
	"github.com/okanra/serigraph/internal/runid"
)

// Setup configures OpenTelemetry and attaches eventbus subscribers.
// If endpoint is empty, no telemetry is configured.
func Setup(endpoint, service string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(context.Background(),
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithInsecure()))
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

	sub := &subscriber{tracer: otel.Tracer("serigraph")}
	sub.register()

	return tp.Shutdown, nil
}

type subscriber struct {
	tracer        trace.Tracer
	serializeSpan sync.Map // run id -> trace.Span
	relSpans      sync.Map // event id -> trace.Span
}

func (s *subscriber) register() {
	eventbus.Subscribe(func(ctx context.Context, e events.SerializeStart) {
		rid, _ := runid.FromContext(ctx)
		_, span := s.tracer.Start(ctx, "serigraph.serialize")
		span.SetAttributes(
			attribute.String("serigraph.schema", e.Schema),
			attribute.Int("serigraph.input_count", e.Count),
		)
		s.serializeSpan.Store(rid, span)
	})

	eventbus.Subscribe(func(ctx context.Context, e events.SerializeFinish) {
		rid, _ := runid.FromContext(ctx)
		v, ok := s.serializeSpan.LoadAndDelete(rid)
		if !ok {
			return
		}
		span := v.(trace.Span)
		if e.Err != nil {
			span.RecordError(e.Err)
			span.SetStatus(codes.Error, e.Err.Error())
		}
		span.End()
	})

	eventbus.Subscribe(func(ctx context.Context, e events.RelationshipStart) {
		rid, _ := runid.FromContext(ctx)
		parent := ctx
		if v, ok := s.serializeSpan.Load(rid); ok {
			parent = trace.ContextWithSpan(ctx, v.(trace.Span))
		}
		_, span := s.tracer.Start(parent, "serigraph.relationship")
		span.SetAttributes(
			attribute.String("serigraph.schema", e.Schema),
			attribute.String("serigraph.relationship", e.Relationship),
			attribute.Int("serigraph.depth", e.Depth),
			attribute.Bool("serigraph.concurrent", e.Concurrent),
		)
		s.relSpans.Store(e.ID, span)
	})

	eventbus.Subscribe(func(_ context.Context, e events.RelationshipFinish) {
		v, ok := s.relSpans.LoadAndDelete(e.ID)
		if !ok {
			return
		}
		span := v.(trace.Span)
		if e.Err != nil {
			span.RecordError(e.Err)
			span.SetStatus(codes.Error, e.Err.Error())
		}
		span.End()
	})

	eventbus.Subscribe(func(_ context.Context, e events.RelationshipDropped) {
		v, ok := s.relSpans.LoadAndDelete(e.ID)
		if !ok {
			return
		}
		span := v.(trace.Span)
		span.SetAttributes(attribute.String("serigraph.dropped", e.Reason))
		if e.Err != nil {
			span.RecordError(e.Err)
		}
		span.SetStatus(codes.Error, e.Reason)
		span.End()
	})
}
