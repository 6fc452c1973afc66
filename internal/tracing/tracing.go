// Package tracing is a thin wrapper around OpenTelemetry so the acceptor can
// open one span per connection without importing the SDK directly. Spans are
// exported with the stdout exporter to a writer or file.
package tracing

import (
	"context"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/vnykmshr/hitpool"

// Provider owns a tracer and, when exporting, the SDK provider behind it.
type Provider struct {
	sdk    *sdktrace.TracerProvider
	tracer trace.Tracer
	closer io.Closer
}

// Noop returns a Provider whose spans are discarded.
func Noop() *Provider {
	return &Provider{tracer: noop.NewTracerProvider().Tracer(instrumentationName)}
}

// New creates a Provider exporting spans as JSON lines to w.
func New(serviceName, serviceVersion string, w io.Writer) (*Provider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, err
	}
	return newWithExporter(serviceName, serviceVersion, exporter)
}

// NewFile creates a Provider exporting to path; an empty path means os.Stdout.
func NewFile(serviceName, serviceVersion, path string) (*Provider, error) {
	if path == "" {
		return New(serviceName, serviceVersion, os.Stdout)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	p, err := New(serviceName, serviceVersion, f)
	if err != nil {
		f.Close()
		return nil, err
	}
	p.closer = f
	return p, nil
}

// NewWithExporter creates a Provider for any SDK exporter (OTLP, Zipkin, ...).
func NewWithExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) (*Provider, error) {
	return newWithExporter(serviceName, serviceVersion, exporter)
}

func newWithExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) (*Provider, error) {
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
		sdktrace.WithResource(res),
	)
	return &Provider{sdk: tp, tracer: tp.Tracer(instrumentationName)}, nil
}

// Install registers the provider as the global OpenTelemetry provider.
func (p *Provider) Install() {
	if p.sdk != nil {
		otel.SetTracerProvider(p.sdk)
	}
}

// Shutdown flushes pending spans and releases the output file, if any.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.sdk == nil {
		return nil
	}
	err := p.sdk.Shutdown(ctx)
	if p.closer != nil {
		if cerr := p.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Span wraps an OpenTelemetry span. A nil *Span is valid and does nothing.
type Span struct {
	span trace.Span
}

// StartSpan starts a server-kind span named name. A nil Provider behaves
// like Noop.
func (p *Provider) StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	tracer := Noop().tracer
	if p != nil {
		tracer = p.tracer
	}
	ctx, span := tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindServer))
	return ctx, &Span{span: span}
}

// WithAttributes attaches all provided attributes to the span.
func (s *Span) WithAttributes(attrs map[string]string) *Span {
	if s == nil || len(attrs) == 0 {
		return s
	}
	kvs := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		kvs = append(kvs, attribute.String(k, v))
	}
	s.span.SetAttributes(kvs...)
	return s
}

// SetInt records an integer attribute.
func (s *Span) SetInt(key string, value int64) {
	if s == nil {
		return
	}
	s.span.SetAttributes(attribute.Int64(key, value))
}

// End records the outcome and ends the span.
func (s *Span) End(err error) {
	if s == nil {
		return
	}
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
	s.span.End()
}
