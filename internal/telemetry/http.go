package telemetry

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	syncotel "github.com/stacklok/toolhive-assetsync/internal/otel"
	"github.com/stacklok/toolhive-assetsync/internal/syncerr"
)

const (
	// HTTPInstrumentationName names the tracer and meter of the asset API
	HTTPInstrumentationName = "github.com/stacklok/toolhive-assetsync/http"

	unknownRoute = "unknown_route"

	// Route parameters naming the resource a request reads
	localeParam = "locale"
	typeParam   = "type"
)

// served describes a finished request in terms of the asset API
type served struct {
	route     string
	status    int
	locale    string
	typ       string
	errorCode string
}

func describe(r *http.Request, ww middleware.WrapResponseWriter) served {
	s := served{
		route:     unknownRoute,
		status:    ww.Status(),
		errorCode: ww.Header().Get(syncerr.HTTPHeader),
	}
	if s.status == 0 {
		s.status = http.StatusOK
	}
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			s.route = pattern
		}
		s.locale = rctx.URLParam(localeParam)
		s.typ = rctx.URLParam(typeParam)
	}
	return s
}

// resource returns "locale/type" when the route names a resource
func (s served) resource() string {
	if s.locale == "" || s.typ == "" {
		return ""
	}
	return s.locale + "/" + s.typ
}

// metricAttributes keeps cardinality bounded: the resource label is only set for
// requests that found it, so arbitrary path segments never become series
func (s served) metricAttributes(method string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("method", method),
		attribute.String("route", s.route),
		attribute.String("status_code", strconv.Itoa(s.status)),
	}
	if res := s.resource(); res != "" && s.status < http.StatusBadRequest {
		attrs = append(attrs, attribute.String("resource", res))
	}
	if s.errorCode != "" {
		attrs = append(attrs, attribute.String("error_code", s.errorCode))
	}
	return attrs
}

func (s served) spanAttributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		semconv.HTTPRouteKey.String(s.route),
		semconv.HTTPResponseStatusCode(s.status),
	}
	if res := s.resource(); res != "" {
		attrs = append(attrs,
			syncotel.AttrResource.String(res),
			syncotel.AttrLocale.String(s.locale),
			syncotel.AttrType.String(s.typ),
		)
	}
	if s.errorCode != "" {
		attrs = append(attrs, syncotel.AttrErrorCode.String(s.errorCode))
	}
	return attrs
}

// TracingMiddleware starts a server span per request, named after the chi route and
// labelled with the resource and error code of the response.
// If provider is nil, it returns a pass-through middleware.
func TracingMiddleware(provider trace.TracerProvider) func(http.Handler) http.Handler {
	if provider == nil {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	tracer := provider.Tracer(HTTPInstrumentationName)
	propagator := otel.GetTextMapPropagator()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			// Renamed to the route pattern once chi has routed the request
			ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.URLPath(r.URL.Path),
					semconv.UserAgentOriginal(r.UserAgent()),
				),
			)
			defer span.End()

			next.ServeHTTP(ww, r.WithContext(ctx))

			s := describe(r, ww)
			span.SetName(fmt.Sprintf("%s %s", r.Method, s.route))
			span.SetAttributes(s.spanAttributes()...)
			switch {
			case s.status < http.StatusBadRequest:
				span.SetStatus(codes.Ok, "")
			case s.errorCode != "":
				span.SetStatus(codes.Error, s.errorCode)
			default:
				span.SetStatus(codes.Error, http.StatusText(s.status))
			}
		})
	}
}

// HTTPMetrics holds the OpenTelemetry instruments for the asset API
type HTTPMetrics struct {
	requestDuration metric.Float64Histogram
	requestsTotal   metric.Int64Counter
	activeRequests  metric.Int64UpDownCounter
	servedBytes     metric.Int64Counter
}

// NewHTTPMetrics creates the API instruments. If provider is nil, it returns nil (no-op metrics).
func NewHTTPMetrics(provider metric.MeterProvider) (*HTTPMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(HTTPInstrumentationName)

	requestDuration, err := meter.Float64Histogram(
		"thv_assetsync_http_request_duration_seconds",
		metric.WithDescription("Duration of asset API requests in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, err
	}

	requestsTotal, err := meter.Int64Counter(
		"thv_assetsync_http_requests_total",
		metric.WithDescription("Total number of asset API requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	activeRequests, err := meter.Int64UpDownCounter(
		"thv_assetsync_http_active_requests",
		metric.WithDescription("Number of in-flight asset API requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	servedBytes, err := meter.Int64Counter(
		"thv_assetsync_http_served_bytes_total",
		metric.WithDescription("Bytes of resource files and listings written to clients"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	return &HTTPMetrics{
		requestDuration: requestDuration,
		requestsTotal:   requestsTotal,
		activeRequests:  activeRequests,
		servedBytes:     servedBytes,
	}, nil
}

// Middleware records duration, count, concurrency and response size of each request.
// A nil HTTPMetrics passes requests through untouched.
func (m *HTTPMetrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		m.activeRequests.Add(ctx, 1)
		next.ServeHTTP(ww, r)
		m.activeRequests.Add(ctx, -1)

		attrs := metric.WithAttributes(describe(r, ww).metricAttributes(r.Method)...)
		m.requestDuration.Record(ctx, time.Since(start).Seconds(), attrs)
		m.requestsTotal.Add(ctx, 1, attrs)
		m.servedBytes.Add(ctx, int64(ww.BytesWritten()), attrs)
	})
}

// MetricsMiddleware combines NewHTTPMetrics and Middleware
func MetricsMiddleware(provider metric.MeterProvider) (func(http.Handler) http.Handler, error) {
	metrics, err := NewHTTPMetrics(provider)
	if err != nil {
		return nil, err
	}
	return metrics.Middleware, nil
}
