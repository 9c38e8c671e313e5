package tracing

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stepClock struct{ t time.Time }

func (c *stepClock) now() time.Time {
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

func TestSpanTreeAndPhases(t *testing.T) {
	clock := &stepClock{t: time.Unix(0, 0)}
	ctx, root := StartSpan(context.Background(), "build", "trace-1")
	root.now = clock.now
	root.StartTime = clock.now()

	for _, name := range []string{"manifest", "documents", "documents"} {
		_, child := StartChildSpan(ctx, name)
		child.End()
	}
	root.End()

	require.Len(t, root.Children, 3)
	assert.Equal(t, "trace-1", root.Children[0].TraceID)
	phases := root.Phases()
	assert.Equal(t, time.Millisecond, phases["manifest"])
	assert.Equal(t, 2*time.Millisecond, phases["documents"])
	assert.Same(t, root, SpanFromContext(ctx))
}

func TestStartChildSpanWithoutParent(t *testing.T) {
	ctx, span := StartChildSpan(context.Background(), "orphan")
	assert.Same(t, span, SpanFromContext(ctx))
	assert.Empty(t, span.TraceID)
	assert.Nil(t, SpanFromContext(context.Background()))
}

func TestLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx, root := StartSpan(context.Background(), "build", "t")
	_, child := StartChildSpan(ctx, "freeze")
	child.SetAttr("keywords", 12)
	child.End()
	root.End()
	root.Log(logger)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "span=build")
	assert.Contains(t, lines[1], "span=freeze")
	assert.Contains(t, lines[1], "depth=1")
	assert.Contains(t, lines[1], "keywords=12")
}
