// Package observability provides tracing for toposplit runs. Spans are
// exported synchronously to a file or to standard output; when tracing is
// disabled every span is a no-op.
package observability

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ajitpratap0/toposplit/pkg/errors"
)

var (
	mu     sync.RWMutex
	tracer trace.Tracer = noop.NewTracerProvider().Tracer("toposplit")
)

// TracingConfig contains tracing configuration
type TracingConfig struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	JobID          string
	Output         string // file path, or "-" / "" for stdout
	PrettyPrint    bool
}

// Provider owns the exporter of an initialised tracer
type Provider struct {
	tp   *sdktrace.TracerProvider
	file *os.File
}

// InitTracing installs the global tracer described by config. The returned
// Provider must be shut down to flush and release the output.
func InitTracing(config TracingConfig) (*Provider, error) {
	if !config.Enabled {
		setTracer(noop.NewTracerProvider().Tracer(serviceName(config)))
		return &Provider{}, nil
	}

	var (
		w    io.Writer = os.Stdout
		file *os.File
	)
	if config.Output != "" && config.Output != "-" {
		f, err := os.Create(config.Output)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create trace file").WithDetail("path", config.Output)
		}
		w, file = f, f
	}

	opts := []stdouttrace.Option{stdouttrace.WithWriter(w)}
	if config.PrettyPrint {
		opts = append(opts, stdouttrace.WithPrettyPrint())
	}
	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		if file != nil {
			file.Close()
		}
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create trace exporter")
	}

	attrs := []attribute.KeyValue{attribute.String("service.name", serviceName(config))}
	if config.ServiceVersion != "" {
		attrs = append(attrs, attribute.String("service.version", config.ServiceVersion))
	}
	if config.JobID != "" {
		attrs = append(attrs, attribute.String("toposplit.job_id", config.JobID))
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(resource.NewSchemaless(attrs...)),
	)
	otel.SetTracerProvider(tp)
	setTracer(tp.Tracer(serviceName(config)))

	return &Provider{tp: tp, file: file}, nil
}

func serviceName(config TracingConfig) string {
	if config.ServiceName == "" {
		return "toposplit"
	}
	return config.ServiceName
}

func setTracer(t trace.Tracer) {
	mu.Lock()
	tracer = t
	mu.Unlock()
}

// GetTracer returns the global tracer
func GetTracer() trace.Tracer {
	mu.RLock()
	defer mu.RUnlock()
	return tracer
}

// Shutdown flushes pending spans and closes the trace output
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.tp == nil {
		return nil
	}
	err := p.tp.Shutdown(ctx)
	setTracer(noop.NewTracerProvider().Tracer("toposplit"))
	if p.file != nil {
		if cerr := p.file.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to shut down tracing")
	}
	return nil
}

// Span wraps a trace span and batches its attributes until End
type Span struct {
	span       trace.Span
	attributes []attribute.KeyValue
}

// NewSpan starts a span on the global tracer
func NewSpan(ctx context.Context, operationName string) (context.Context, *Span) {
	ctx, span := GetTracer().Start(ctx, operationName)
	return ctx, &Span{span: span}
}

// SetAttribute adds an attribute to the span
func (s *Span) SetAttribute(key string, value interface{}) {
	var attr attribute.KeyValue

	switch v := value.(type) {
	case string:
		attr = attribute.String(key, v)
	case int:
		attr = attribute.Int(key, v)
	case int64:
		attr = attribute.Int64(key, v)
	case float64:
		attr = attribute.Float64(key, v)
	case bool:
		attr = attribute.Bool(key, v)
	default:
		attr = attribute.String(key, fmt.Sprintf("%v", v))
	}

	s.attributes = append(s.attributes, attr)
}

// AddEvent adds an event to the span
func (s *Span) AddEvent(name string, attrs ...attribute.KeyValue) {
	s.span.AddEvent(name, trace.WithAttributes(attrs...))
}

// End records err, if any, and ends the span
func (s *Span) End(err error) {
	if len(s.attributes) > 0 {
		s.span.SetAttributes(s.attributes...)
	}
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
	s.span.End()
}
