// Package observability provides OpenTelemetry tracing setup and span helpers.
package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys recorded by kinship's services and request middleware.
const (
	UserIDKey       = attribute.Key("kinship.user.id")
	ActorIDKey      = attribute.Key("kinship.follow.actor_id")
	TargetIDKey     = attribute.Key("kinship.follow.target_id")
	PostIDKey       = attribute.Key("kinship.post.id")
	FeedScopeKey    = attribute.Key("kinship.feed.scope")
	FeedSizeKey     = attribute.Key("kinship.feed.size")
	AuthOutcomeKey  = attribute.Key("kinship.auth.outcome")
	RequestIDKey    = attribute.Key("kinship.request.id")
	ExporterStdout  = "stdout"
	ExporterOTLP    = "otlp"
	defaultService  = "kinship"
	feedScopeAll    = "all"
	feedScopeFollow = "following"
)

func UserID(id uint) attribute.KeyValue { return UserIDKey.Int64(int64(id)) }
func ActorID(id uint) attribute.KeyValue { return ActorIDKey.Int64(int64(id)) }
func TargetID(id uint) attribute.KeyValue { return TargetIDKey.Int64(int64(id)) }
func PostID(id uint) attribute.KeyValue { return PostIDKey.Int64(int64(id)) }
func FeedSize(n int) attribute.KeyValue { return FeedSizeKey.Int(n) }

// AuthOutcome labels a sign-up or login span with the same outcome the
// auth_attempts counter uses.
func AuthOutcome(outcome string) attribute.KeyValue { return AuthOutcomeKey.String(outcome) }

// FeedScope tags a feed span with whether it was narrowed to followed users.
func FeedScope(followingOnly bool) attribute.KeyValue {
	if followingOnly {
		return FeedScopeKey.String(feedScopeFollow)
	}
	return FeedScopeKey.String(feedScopeAll)
}

// Tracer is replaced by InitTracing.
var Tracer trace.Tracer = otel.Tracer(defaultService)

// TracingConfig is built from config.Config by cmd/server.
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Enabled        bool
	Exporter       string
	OTLPEndpoint   string
	SamplerRatio   float64
}

// InitTracing installs a tracer provider and the W3C propagators. When tracing
// is disabled the global no-op provider stays in place and the returned
// shutdown does nothing.
func InitTracing(cfg TracingConfig) (func(context.Context) error, error) {
	name := cfg.ServiceName
	if name == "" {
		name = defaultService
	}
	if !cfg.Enabled {
		Tracer = otel.Tracer(name)
		return func(context.Context) error { return nil }, nil
	}

	ctx := context.Background()
	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			semconv.ServiceName(name),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("tracing resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(cfg.SamplerRatio)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	Tracer = tp.Tracer(name)

	return tp.Shutdown, nil
}

func newExporter(ctx context.Context, cfg TracingConfig) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case "", ExporterStdout:
		return stdouttrace.New()
	case ExporterOTLP:
		opts := []otlptracehttp.Option{otlptracehttp.WithInsecure()}
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(cfg.OTLPEndpoint))
		}
		exp, err := otlptracehttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("otlp exporter: %w", err)
		}
		return exp, nil
	default:
		return nil, fmt.Errorf("unknown tracing exporter %q", cfg.Exporter)
	}
}

// sampler honours an upstream sampling decision and samples new roots at ratio.
func sampler(ratio float64) sdktrace.Sampler {
	root := sdktrace.TraceIDRatioBased(ratio)
	if ratio >= 1 {
		root = sdktrace.AlwaysSample()
	}
	return sdktrace.ParentBased(root)
}

// Span is a nil-safe handle over a service-level span.
type Span struct {
	span trace.Span
}

// NewSpan starts an internal span under ctx.
func NewSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (*Span, context.Context) {
	ctx, span := Tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
	return &Span{span: span}, ctx
}

// SetError marks the span failed. A nil err is ignored.
func (s *Span) SetError(err error) {
	if s.span == nil || err == nil {
		return
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

func (s *Span) SetAttributes(attrs ...attribute.KeyValue) {
	if s.span != nil {
		s.span.SetAttributes(attrs...)
	}
}

func (s *Span) End() {
	if s.span != nil {
		s.span.End()
	}
}
