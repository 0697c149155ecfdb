package telemetry

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"task-api/internal/infrastructure/config"
)

// Telemetry bundles the tracer, meter and instruments shared by every layer.
// Provider fields are nil for the noop variant.
type Telemetry struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	LoggerProvider *sdklog.LoggerProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	// EntityCounter counts service operations by entity, operation and status
	EntityCounter metric.Int64Counter
	// EventCounter counts entity events produced and consumed
	EventCounter metric.Int64Counter
	LogVerbosity int
}

// NewNoop returns telemetry that records nothing. Used in tests and when
// OTEL_ENABLED is false.
func NewNoop() *Telemetry {
	meter := metricnoop.NewMeterProvider().Meter("noop")
	t, _ := newInstruments(meter)
	t.Tracer = tracenoop.NewTracerProvider().Tracer("noop")
	return t
}

// newInstruments creates the task-api counters on meter
func newInstruments(meter metric.Meter) (*Telemetry, error) {
	entityCounter, err := meter.Int64Counter("entity_operations_total",
		metric.WithDescription("Counts user and task service operations"),
		metric.WithUnit("{operation}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create entity counter: %w", err)
	}
	eventCounter, err := meter.Int64Counter("entity_events_total",
		metric.WithDescription("Counts entity events produced and consumed"),
		metric.WithUnit("{event}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create event counter: %w", err)
	}
	return &Telemetry{Meter: meter, EntityCounter: entityCounter, EventCounter: eventCounter}, nil
}

// exporters holds one OTLP exporter per signal
type exporters struct {
	span   sdktrace.SpanExporter
	metric sdkmetric.Exporter
	log    sdklog.Exporter
}

// Setup installs the global tracer, meter and logger providers and the
// default slog logger. The returned shutdown flushes and closes everything
// Setup created, in reverse order.
func Setup(ctx context.Context, cfg config.OtelConfig) (*Telemetry, func(context.Context) error, error) {
	var shutdowns []func(context.Context) error
	shutdown := func(ctx context.Context) error {
		var err error
		for i := len(shutdowns) - 1; i >= 0; i-- {
			err = errors.Join(err, shutdowns[i](ctx))
		}
		return err
	}
	fail := func(e error) (*Telemetry, func(context.Context) error, error) {
		return nil, shutdown, e
	}

	SetLogVerbosity(cfg.LogVerbosity)

	if !cfg.Enabled {
		setupSlog(cfg, nil)
		slog.Info("OpenTelemetry export disabled")
		tel := NewNoop()
		tel.LogVerbosity = cfg.LogVerbosity
		return tel, shutdown, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.ServiceVersion),
			semconv.ServiceNamespaceKey.String(cfg.ServiceNamespace),
		),
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithHost(),
		resource.WithProcessRuntimeName(),
	)
	if err != nil {
		return fail(fmt.Errorf("failed to create resource: %w", err))
	}

	var exp *exporters
	switch strings.ToLower(cfg.Protocol) {
	case "grpc":
		var closeConn func(context.Context) error
		exp, closeConn, err = newGRPCExporters(ctx, cfg)
		if closeConn != nil {
			shutdowns = append(shutdowns, closeConn)
		}
	case "", "http":
		exp, err = newHTTPExporters(ctx, cfg)
	default:
		err = fmt.Errorf("unsupported OTLP protocol %q", cfg.Protocol)
	}
	if err != nil {
		return fail(err)
	}
	slog.Info("OTLP exporters ready", "protocol", cfg.Protocol, "endpoint", cfg.Endpoint)

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp.span,
			sdktrace.WithMaxQueueSize(cfg.MaxQueueSize),
			sdktrace.WithBatchTimeout(time.Duration(cfg.BatchTimeoutSecs)*time.Second),
			sdktrace.WithExportTimeout(time.Duration(cfg.ExportTimeoutSecs)*time.Second)),
		sdktrace.WithResource(res),
	)
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp.metric,
			sdkmetric.WithInterval(time.Duration(cfg.ExportIntervalSecs)*time.Second))),
		sdkmetric.WithResource(res),
	)
	loggerProvider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exp.log,
			sdklog.WithMaxQueueSize(cfg.MaxQueueSize),
			sdklog.WithExportInterval(time.Duration(cfg.ExportIntervalSecs)*time.Second),
			sdklog.WithExportTimeout(time.Duration(cfg.ExportTimeoutSecs)*time.Second),
		)),
		sdklog.WithResource(res),
	)
	shutdowns = append(shutdowns, tracerProvider.Shutdown, meterProvider.Shutdown, loggerProvider.Shutdown)

	otel.SetTracerProvider(tracerProvider)
	otel.SetMeterProvider(meterProvider)
	global.SetLoggerProvider(loggerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	setupSlog(cfg, loggerProvider)

	tel, err := newInstruments(meterProvider.Meter(cfg.MeterName))
	if err != nil {
		return fail(err)
	}

	if err := runtime.Start(runtime.WithMeterProvider(meterProvider)); err != nil {
		return fail(fmt.Errorf("failed to start runtime metrics: %w", err))
	}

	tel.TracerProvider = tracerProvider
	tel.MeterProvider = meterProvider
	tel.LoggerProvider = loggerProvider
	tel.Tracer = tracerProvider.Tracer(cfg.TracerName)
	tel.LogVerbosity = cfg.LogVerbosity
	return tel, shutdown, nil
}

// basicAuthHeaders returns the Authorization header for the collector, or
// nil when no credentials are configured
func basicAuthHeaders(cfg config.OtelConfig) map[string]string {
	if cfg.Username == "" || cfg.Password == "" {
		return nil
	}
	auth := cfg.Username + ":" + cfg.Password
	return map[string]string{
		"Authorization": "Basic " + base64.StdEncoding.EncodeToString([]byte(auth)),
	}
}

// newGRPCExporters shares one client connection between the three signals.
// The returned close func is non-nil once the connection exists.
func newGRPCExporters(ctx context.Context, cfg config.OtelConfig) (*exporters, func(context.Context) error, error) {
	creds := credentials.NewTLS(nil)
	if cfg.Insecure {
		creds = insecure.NewCredentials()
	}
	conn, err := grpc.NewClient(cfg.Endpoint, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, nil, fmt.Errorf("OTLP gRPC connection to %s: %w", cfg.Endpoint, err)
	}
	closeConn := func(context.Context) error { return conn.Close() }
	headers := basicAuthHeaders(cfg)

	span, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn), otlptracegrpc.WithHeaders(headers))
	if err != nil {
		return nil, closeConn, fmt.Errorf("trace exporter gRPC: %w", err)
	}
	metricExp, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithGRPCConn(conn), otlpmetricgrpc.WithHeaders(headers))
	if err != nil {
		return nil, closeConn, fmt.Errorf("metric exporter gRPC: %w", err)
	}
	logExp, err := otlploggrpc.New(ctx, otlploggrpc.WithGRPCConn(conn), otlploggrpc.WithHeaders(headers))
	if err != nil {
		return nil, closeConn, fmt.Errorf("log exporter gRPC: %w", err)
	}
	return &exporters{span: span, metric: metricExp, log: logExp}, closeConn, nil
}

func newHTTPExporters(ctx context.Context, cfg config.OtelConfig) (*exporters, error) {
	traceOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	metricOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	logOpts := []otlploghttp.Option{otlploghttp.WithEndpoint(cfg.Endpoint)}

	if headers := basicAuthHeaders(cfg); headers != nil {
		traceOpts = append(traceOpts, otlptracehttp.WithHeaders(headers))
		metricOpts = append(metricOpts, otlpmetrichttp.WithHeaders(headers))
		logOpts = append(logOpts, otlploghttp.WithHeaders(headers))
	}
	if cfg.Insecure {
		traceOpts = append(traceOpts, otlptracehttp.WithInsecure())
		metricOpts = append(metricOpts, otlpmetrichttp.WithInsecure())
		logOpts = append(logOpts, otlploghttp.WithInsecure())
		slog.Warn("Using insecure HTTP connection", "endpoint", cfg.Endpoint)
	}

	span, err := otlptracehttp.New(ctx, traceOpts...)
	if err != nil {
		return nil, fmt.Errorf("trace exporter HTTP: %w", err)
	}
	metricExp, err := otlpmetrichttp.New(ctx, metricOpts...)
	if err != nil {
		return nil, fmt.Errorf("metric exporter HTTP: %w", err)
	}
	logExp, err := otlploghttp.New(ctx, logOpts...)
	if err != nil {
		return nil, fmt.Errorf("log exporter HTTP: %w", err)
	}
	return &exporters{span: span, metric: metricExp, log: logExp}, nil
}

// setupSlog installs the default logger: a console handler unless output is
// "otel", plus the OTel bridge when a logger provider exists. Verbosity 2
// opens the console handler to debug records.
func setupSlog(cfg config.OtelConfig, loggerProvider *sdklog.LoggerProvider) {
	var handlers []slog.Handler

	if cfg.LogOutput != "otel" || loggerProvider == nil {
		output := os.Stdout
		if strings.ToLower(cfg.LogOutput) == "stderr" {
			output = os.Stderr
		}

		opts := &slog.HandlerOptions{Level: slog.LevelInfo}
		if cfg.LogVerbosity >= 2 {
			opts.Level = slog.LevelDebug
		}
		if strings.ToLower(cfg.LogFormat) == "json" {
			handlers = append(handlers, slog.NewJSONHandler(output, opts))
		} else {
			handlers = append(handlers, slog.NewTextHandler(output, opts))
		}
	}

	if loggerProvider != nil {
		handlers = append(handlers, otelslog.NewHandler(cfg.ServiceName, otelslog.WithLoggerProvider(loggerProvider)))
	}

	if len(handlers) == 1 {
		slog.SetDefault(slog.New(handlers[0]))
		return
	}
	slog.SetDefault(slog.New(fanoutHandler(handlers)))
}

// fanoutHandler passes every record to each handler that accepts its level
type fanoutHandler []slog.Handler

func (f fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs error
	for _, h := range f {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		errs = errors.Join(errs, h.Handle(ctx, record.Clone()))
	}
	return errs
}

func (f fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanoutHandler, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanoutHandler) WithGroup(name string) slog.Handler {
	out := make(fanoutHandler, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
