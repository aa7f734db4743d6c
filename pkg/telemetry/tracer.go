package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/openlpar/hmcctl/pkg/hmc"
)

// Tracer wraps the OpenTelemetry tracer with hmcctl span helpers.
type Tracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
	config   TracingConfig
}

// NewTracer creates a new tracer with the given configuration.
func NewTracer(cfg TracingConfig, serviceName, serviceVersion, environment string) (*Tracer, error) {
	if !cfg.Enabled {
		return &Tracer{
			provider: sdktrace.NewTracerProvider(),
			tracer:   otel.Tracer(serviceName),
			config:   cfg,
		}, nil
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(serviceVersion),
			attribute.String("environment", environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace resource: %w", err)
	}

	var exporter sdktrace.SpanExporter
	switch cfg.Exporter {
	case "otlp":
		exporter, err = createOTLPExporter(cfg)
	case "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	case "none":
		// Traces are generated but not exported.
		exporter = nil
	default:
		return nil, fmt.Errorf("unsupported trace exporter: %s", cfg.Exporter)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	sampler := sdktrace.ParentBased(
		sdktrace.TraceIDRatioBased(cfg.SamplingRate),
	)
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	}
	if exporter != nil {
		opts = append(opts, sdktrace.WithBatcher(
			exporter,
			sdktrace.WithMaxExportBatchSize(cfg.MaxExportBatchSize),
			sdktrace.WithExportTimeout(cfg.ExportTimeout),
		))
	}

	provider := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	)

	return &Tracer{
		provider: provider,
		tracer:   provider.Tracer(serviceName),
		config:   cfg,
	}, nil
}

func createOTLPExporter(cfg TracingConfig) (sdktrace.SpanExporter, error) {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithTLSCredentials(insecure.NewCredentials()))
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(cfg.Headers))
	}
	return otlptracegrpc.New(context.Background(), opts...)
}

// Start begins a new span with the given name.
func (t *Tracer) Start(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, spanName, opts...)
}

// StartInvocationSpan starts a span covering one lifecycle action run.
func (t *Tracer) StartInvocationSpan(ctx context.Context, runID, action, target string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "invocation.run", trace.WithAttributes(
		AttrRunID.String(runID),
		AttrAction.String(action),
		AttrTarget.String(target),
	))
}

// StartConsoleSpan starts a span for one console command execution.
func (t *Tracer) StartConsoleSpan(ctx context.Context, command string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "console.command", trace.WithAttributes(
		AttrConsoleCommand.String(command),
	))
}

// StartInvocation starts an invocation span and returns a finish function
// that records the outcome and ends the span. The finish-function shape lets
// the engine consume the tracer without importing this package.
func (t *Tracer) StartInvocation(ctx context.Context, runID, action, target string) (context.Context, func(changed bool, err error)) {
	ctx, span := t.StartInvocationSpan(ctx, runID, action, target)
	return ctx, func(changed bool, err error) {
		span.SetAttributes(AttrChanged.Bool(changed))
		if err != nil {
			if code := hmc.ExtractCode(err.Error()); code != "" {
				span.SetAttributes(AttrErrorCode.String(code))
			}
			RecordError(span, err)
		} else {
			RecordSuccess(span)
		}
		span.End()
	}
}

// StartConsoleCommand starts a console-command span and returns a finish
// function that records the outcome and ends the span.
func (t *Tracer) StartConsoleCommand(ctx context.Context, command string) (context.Context, func(err error)) {
	ctx, span := t.StartConsoleSpan(ctx, command)
	return ctx, func(err error) {
		if err != nil {
			RecordError(span, err)
		} else {
			RecordSuccess(span)
		}
		span.End()
	}
}

// RecordError records an error on the span.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// RecordSuccess marks the span as successful.
func RecordSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// Shutdown gracefully shuts down the tracer, flushing any pending spans.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}

// TraceID returns the trace ID of the current span in the context.
func TraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return ""
	}
	return span.SpanContext().TraceID().String()
}

// Common attribute keys for hmcctl tracing.
var (
	AttrRunID          = attribute.Key("run.id")
	AttrAction         = attribute.Key("action")
	AttrTarget         = attribute.Key("target")
	AttrChanged        = attribute.Key("result.changed")
	AttrConsoleCommand = attribute.Key("console.command")
	AttrErrorCode      = attribute.Key("error.code")
)
