package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// useRecorder 安装记录Span的全局Provider，测试结束后恢复
func useRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp, err := NewProvider(context.Background(), "test-service", sdktrace.WithSpanProcessor(recorder))
	require.NoError(t, err)

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func TestStartSpan_ParentChild(t *testing.T) {
	recorder := useRecorder(t)

	ctx, root := StartSpan(context.Background(), "test-service", "UserService.UpdateUser")
	_, child := StartSpan(ctx, "test-service", "UserRepository.Save")
	child.End()
	root.End()

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "UserRepository.Save", spans[0].Name())
	assert.Equal(t, "UserService.UpdateUser", spans[1].Name())
	assert.Equal(t, spans[1].SpanContext().TraceID(), spans[0].SpanContext().TraceID(), "子Span应继承TraceID")
	assert.Equal(t, spans[1].SpanContext().SpanID(), spans[0].Parent().SpanID())
}

func TestExtractIDs(t *testing.T) {
	useRecorder(t)

	t.Run("有效Context", func(t *testing.T) {
		ctx, span := StartSpan(context.Background(), "test-service", "Extract")
		defer span.End()

		assert.Len(t, ExtractTraceID(ctx), 32)
		assert.Len(t, ExtractSpanID(ctx), 16)
	})

	t.Run("没有Span的Context", func(t *testing.T) {
		assert.Empty(t, ExtractTraceID(context.Background()))
		assert.Empty(t, ExtractSpanID(context.Background()))
	})
}

func TestInitTracer(t *testing.T) {
	shutdown, err := InitTracer("test-service", "localhost:4317")
	require.NoError(t, err)

	// 没有产生Span时shutdown不需要联系Collector
	assert.NoError(t, shutdown(context.Background()))
}
