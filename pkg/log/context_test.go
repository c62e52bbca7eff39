package log

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestCtxFallsBackToGlobal(t *testing.T) {
	assert.Same(t, L(), Ctx(context.Background()))
}

func TestWithLoggerRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	l := zerolog.New(&buf)

	ctx := WithLogger(context.Background(), &l)
	Ctx(ctx).Info().Msg("hello")

	assert.Contains(t, buf.String(), "hello")
}

func TestWithStreamAddsStreamField(t *testing.T) {
	var buf bytes.Buffer
	l := zerolog.New(&buf)

	ctx := WithStream(WithLogger(context.Background(), &l), "stream-9")
	Ctx(ctx).Warn().Msg("dropped")

	out := buf.String()
	assert.Contains(t, out, `"`+FieldStreamID+`":"stream-9"`)
	assert.Contains(t, out, "dropped")
}
