// Пакет telemetry — трейсинг OpenTelemetry шлюза.
// Экспорт OTLP/HTTP включается, если задан GW_OTEL_ENDPOINT; иначе spans
// создаются локально и никуда не отправляются.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ServiceName — имя сервиса в трейсах.
const ServiceName = "cc-gateway"

// exportTimeout — таймаут отправки пачки spans.
const exportTimeout = 5 * time.Second

// Options — параметры трейсинга.
type Options struct {
	// Endpoint — OTLP/HTTP endpoint: host:port или URL. Пусто — без экспорта.
	Endpoint string
	// Insecure — отправка без TLS
	Insecure bool
	// Version — версия сервиса
	Version string
}

// Init настраивает глобальный TracerProvider и propagator.
// Возвращает функцию остановки, которую нужно вызвать при завершении.
func Init(ctx context.Context, opts Options, logger *slog.Logger) (func(context.Context) error, error) {
	res := resource.NewSchemaless(
		attribute.String("service.name", ServiceName),
		attribute.String("service.version", opts.Version),
	)

	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	}

	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint != "" {
		exporter, err := otlptracehttp.New(ctx, exporterOptions(endpoint, opts.Insecure)...)
		if err != nil {
			return nil, fmt.Errorf("создание OTLP exporter: %w", err)
		}
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exporter))
		logger.Info("Трейсинг OpenTelemetry включён", slog.String("endpoint", endpoint))
	} else {
		logger.Debug("OTLP endpoint не задан, трейсы не экспортируются")
	}

	tp := sdktrace.NewTracerProvider(tpOpts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp.Shutdown, nil
}

// exporterOptions собирает опции exporter: URL со схемой или host:port.
func exporterOptions(endpoint string, insecure bool) []otlptracehttp.Option {
	opts := []otlptracehttp.Option{otlptracehttp.WithTimeout(exportTimeout)}
	if strings.Contains(endpoint, "://") {
		opts = append(opts, otlptracehttp.WithEndpointURL(endpoint))
	} else {
		opts = append(opts, otlptracehttp.WithEndpoint(endpoint))
	}
	if insecure || strings.HasPrefix(endpoint, "http://") {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return opts
}

// Middleware инструментирует входящие HTTP-запросы.
func Middleware() func(http.Handler) http.Handler {
	return otelhttp.NewMiddleware(ServiceName)
}

// InstrumentClient оборачивает транспорт клиента в otelhttp.
// nil-клиент заменяется новым с указанным таймаутом.
func InstrumentClient(client *http.Client, timeout time.Duration) *http.Client {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	base := client.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	client.Transport = otelhttp.NewTransport(base)
	return client
}
