package middleware

import (
	"net/http/httptest"
	"testing"

	"quill/internal/observability"
	"quill/internal/session"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := observability.Tracer
	observability.Tracer = tp.Tracer("test")
	t.Cleanup(func() { observability.Tracer = prev })
	return rec
}

func spanAttr(s sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range s.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracingMiddleware_NamesSpanAfterRoute(t *testing.T) {
	rec := recordSpans(t)

	app := fiber.New()
	app.Use(TracingMiddleware())
	app.Get("/api/posts/:slug", func(c *fiber.Ctx) error {
		c.Locals(session.LocalsKey, uint(42))
		return c.SendString(c.Locals(TraceIDLocalsKey).(string))
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/posts/hello-world", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Trace-ID"))

	spans := rec.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "GET /api/posts/:slug", span.Name())
	assert.Equal(t, resp.Header.Get("X-Trace-ID"), span.SpanContext().TraceID().String())

	route, ok := spanAttr(span, "http.route")
	require.True(t, ok)
	assert.Equal(t, "/api/posts/:slug", route.AsString())
	uid, ok := spanAttr(span, "user.id")
	require.True(t, ok)
	assert.EqualValues(t, 42, uid.AsInt64())
	assert.Equal(t, codes.Unset, span.Status().Code)
}

func TestTracingMiddleware_MarksServerErrors(t *testing.T) {
	rec := recordSpans(t)

	app := fiber.New()
	app.Use(TracingMiddleware())
	app.Get("/boom", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusServiceUnavailable)
	})
	app.Get("/missing", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNotFound)
	})

	for _, path := range []string{"/boom", "/missing"} {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
		resp.Body.Close()
	}

	spans := rec.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, codes.Unset, spans[1].Status().Code)
}
