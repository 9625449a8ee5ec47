package queue

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestZerologAdapter_WritesStructuredFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	adapter := NewZerologAdapter(zerolog.New(&buf))
	adapter.Error().Err(errors.New("boom")).Str("queue", "pdf").Int("attempts", 2).Msg("message handler failed")

	out := buf.String()
	assert.Contains(t, out, `"level":"error"`)
	assert.Contains(t, out, `"error":"boom"`)
	assert.Contains(t, out, `"queue":"pdf"`)
	assert.Contains(t, out, `"attempts":2`)
	assert.Contains(t, out, `"message":"message handler failed"`)
}

func TestZerologAdapter_Levels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		emit  func(a *ZerologAdapter) LogEvent
		level string
	}{
		{name: "info", emit: (*ZerologAdapter).Info, level: "info"},
		{name: "warn", emit: (*ZerologAdapter).Warn, level: "warn"},
		{name: "debug", emit: (*ZerologAdapter).Debug, level: "debug"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer

			adapter := NewZerologAdapter(zerolog.New(&buf).Level(zerolog.DebugLevel))
			tt.emit(adapter).Msg("hello")

			assert.Contains(t, buf.String(), `"level":"`+tt.level+`"`)
		})
	}
}

func TestZerologAdapter_DisabledLevelIsSilent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	adapter := NewZerologAdapter(zerolog.New(&buf).Level(zerolog.ErrorLevel))

	assert.NotPanics(t, func() {
		adapter.Debug().Err(errors.New("ignored")).Str("k", "v").Int("n", 1).Msg("ignored")
	})
	assert.Empty(t, buf.String())
}
