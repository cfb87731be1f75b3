package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	syncotel "github.com/stacklok/toolhive-assetsync/internal/otel"
	"github.com/stacklok/toolhive-assetsync/internal/syncerr"
)

// newTestTracerProvider creates a tracer provider exporting to memory, shut down with the test
func newTestTracerProvider(t *testing.T) (*tracetest.InMemoryExporter, *sdktrace.TracerProvider) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return exporter, tp
}

// assetRouter serves a resource route that finds en/cards only, and a broken route
func assetRouter(middlewares ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middlewares...)
	r.Get("/api/v1/resources/{locale}/{type}", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "locale") != "en" {
			w.Header().Set(syncerr.HTTPHeader, syncerr.CodeNotFound.String())
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"locale":"en","type":"cards"}`))
	})
	r.Get("/api/v1/broken", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	return r
}

func attributeValue(attrs []attribute.KeyValue, key attribute.Key) (string, bool) {
	for _, attr := range attrs {
		if attr.Key == key {
			return attr.Value.Emit(), true
		}
	}
	return "", false
}

func TestTracingMiddleware_NilProvider(t *testing.T) {
	t.Parallel()

	called := false
	wrapped := TracingMiddleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusCreated)
	}))

	rr := httptest.NewRecorder()
	wrapped.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/x", nil))
	assert.True(t, called)
	assert.Equal(t, http.StatusCreated, rr.Code)
}

func TestTracingMiddleware_LabelsResourceSpans(t *testing.T) {
	t.Parallel()

	exporter, tp := newTestTracerProvider(t)
	r := assetRouter(TracingMiddleware(tp))

	for _, path := range []string{"/api/v1/resources/en/cards", "/api/v1/resources/fr/sounds", "/api/v1/broken"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	spans := exporter.GetSpans()
	require.Len(t, spans, 3)

	found := spans[0]
	assert.Equal(t, "GET /api/v1/resources/{locale}/{type}", found.Name)
	assert.Equal(t, codes.Ok, found.Status.Code)
	route, _ := attributeValue(found.Attributes, semconv.HTTPRouteKey)
	assert.Equal(t, "/api/v1/resources/{locale}/{type}", route)
	resource, _ := attributeValue(found.Attributes, syncotel.AttrResource)
	assert.Equal(t, "en/cards", resource)
	locale, _ := attributeValue(found.Attributes, syncotel.AttrLocale)
	assert.Equal(t, "en", locale)
	_, hasCode := attributeValue(found.Attributes, syncotel.AttrErrorCode)
	assert.False(t, hasCode)

	missing := spans[1]
	assert.Equal(t, codes.Error, missing.Status.Code)
	assert.Equal(t, "not-found", missing.Status.Description)
	code, _ := attributeValue(missing.Attributes, syncotel.AttrErrorCode)
	assert.Equal(t, "not-found", code)
	resource, _ = attributeValue(missing.Attributes, syncotel.AttrResource)
	assert.Equal(t, "fr/sounds", resource)

	broken := spans[2]
	assert.Equal(t, "GET /api/v1/broken", broken.Name)
	assert.Equal(t, codes.Error, broken.Status.Code)
	assert.Equal(t, http.StatusText(http.StatusInternalServerError), broken.Status.Description)
	_, hasResource := attributeValue(broken.Attributes, syncotel.AttrResource)
	assert.False(t, hasResource)
}

func TestHTTPMetrics_NilPassesThrough(t *testing.T) {
	t.Parallel()

	var metrics *HTTPMetrics
	wrapped := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	wrapped.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusTeapot, rr.Code)

	m, err := MetricsMiddleware(nil)
	require.NoError(t, err)
	require.NotNil(t, m)
}

func TestHTTPMetrics_LabelsFoundResourcesOnly(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	mw, err := MetricsMiddleware(mp)
	require.NoError(t, err)
	r := assetRouter(mw)

	paths := []string{
		"/api/v1/resources/en/cards",
		"/api/v1/resources/en/cards",
		"/api/v1/resources/fr/sounds",
		"/api/v1/resources/de/basic",
	}
	for _, path := range paths {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var requests, servedBytes metricdata.Sum[int64]
	for _, scope := range rm.ScopeMetrics {
		if scope.Scope.Name != HTTPInstrumentationName {
			continue
		}
		for _, m := range scope.Metrics {
			switch m.Name {
			case "thv_assetsync_http_requests_total":
				requests = m.Data.(metricdata.Sum[int64])
			case "thv_assetsync_http_served_bytes_total":
				servedBytes = m.Data.(metricdata.Sum[int64])
			}
		}
	}

	// Misses share one series without a resource label
	require.Len(t, requests.DataPoints, 2)
	for _, dp := range requests.DataPoints {
		route, ok := dp.Attributes.Value("route")
		require.True(t, ok)
		assert.Equal(t, "/api/v1/resources/{locale}/{type}", route.AsString())

		resource, hasResource := dp.Attributes.Value("resource")
		code, hasCode := dp.Attributes.Value("error_code")
		assert.Equal(t, int64(2), dp.Value)
		if hasResource {
			assert.Equal(t, "en/cards", resource.AsString())
			assert.False(t, hasCode)
		} else {
			require.True(t, hasCode)
			assert.Equal(t, "not-found", code.AsString())
		}
	}

	var total int64
	for _, dp := range servedBytes.DataPoints {
		total += dp.Value
	}
	assert.Equal(t, int64(2*len(`{"locale":"en","type":"cards"}`)), total)
}
