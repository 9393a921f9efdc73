package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"ivar-client/models"
)

func newTracedClient(t *testing.T, status int, body string) (*Client, *tracetest.SpanRecorder) {
	t.Helper()
	fb := &fakeBackend{status: status, body: body}
	srv := httptest.NewServer(http.HandlerFunc(fb.serve))
	t.Cleanup(srv.Close)

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	return New(srv.URL, WithTimeout(2*time.Second), WithTracerProvider(tp)), recorder
}

func spanAttr(span sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestRequestsAreTraced(t *testing.T) {
	c, recorder := newTracedClient(t, http.StatusOK, `{"data":[{"id":"u2","username":"bob"}]}`)

	_, err := c.ListFriends(context.Background(), "u1")
	require.NoError(t, err)
	_, err = c.ListChats(context.Background(), "u1")
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "gateway.list_friends", spans[0].Name())
	assert.Equal(t, "gateway.list_chats", spans[1].Name())

	span := spans[0]
	assert.Equal(t, trace.SpanKindClient, span.SpanKind())
	assert.Equal(t, codes.Unset, span.Status().Code)
	status, ok := spanAttr(span, "http.status_code")
	require.True(t, ok)
	assert.Equal(t, int64(http.StatusOK), status.AsInt64())
	route, ok := spanAttr(span, "http.route")
	require.True(t, ok)
	assert.Equal(t, "/api/v1/friends/{userId}", route.AsString())
}

func TestFailedRequestSpanHasErrorStatus(t *testing.T) {
	c, recorder := newTracedClient(t, http.StatusNotFound, `{"error":"no such user"}`)

	err := c.CreateUser(context.Background(), models.CreateUserRequest{ID: "u1", Username: "alice"})
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, codes.Error, span.Status().Code)
	assert.Equal(t, KindNotFound.String(), span.Status().Description)
	status, ok := spanAttr(span, "http.status_code")
	require.True(t, ok)
	assert.Equal(t, int64(http.StatusNotFound), status.AsInt64())

	require.NotEmpty(t, span.Events())
	assert.Equal(t, "exception", span.Events()[0].Name)
}

func TestValidationFailureIsNotTraced(t *testing.T) {
	c, recorder := newTracedClient(t, http.StatusOK, "")

	err := c.CreateUser(context.Background(), models.CreateUserRequest{ID: "u1"})
	require.Error(t, err)
	assert.Empty(t, recorder.Ended())
}
