package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/studydeck/internal/logger"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logger.DEBUG, logger.ParseLevel("debug"))
	assert.Equal(t, logger.WARN, logger.ParseLevel("WARNING"))
	assert.Equal(t, logger.ERROR, logger.ParseLevel("ERROR"))
	assert.Equal(t, logger.INFO, logger.ParseLevel("nonsense"))
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.WithOutput(&buf), logger.WithLevel(logger.WARN))

	log.Info("hidden %d", 1)
	assert.Empty(t, buf.String())

	log.Warn("shown %d", 2)
	assert.Contains(t, buf.String(), "shown 2")
	assert.Contains(t, buf.String(), "level=WARN")
}

func TestLogger_PrefixAndFields(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.WithOutput(&buf), logger.WithLevel(logger.DEBUG)).
		WithPrefix("study_service").
		WithField("session_id", "s1").
		WithFields(map[string]any{"card_id": "c1"})

	log.Debug("review recorded")

	out := buf.String()
	assert.Contains(t, out, "component=study_service")
	assert.Contains(t, out, "session_id=s1")
	assert.Contains(t, out, "card_id=c1")
	assert.Contains(t, out, "logger_test.go")
}

func TestLogger_WithFieldDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := logger.New(logger.WithOutput(&buf))
	_ = parent.WithField("k", "v")

	parent.Info("plain")
	assert.NotContains(t, buf.String(), "k=v")
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.WithOutput(&buf), logger.WithJSON(true))
	ctx := logger.NewContext(context.Background(), log)

	assert.Same(t, log, logger.FromContext(ctx))
	assert.Same(t, logger.Default(), logger.FromContext(context.Background()))

	logger.FromContext(ctx).Info("json line")
	assert.Contains(t, buf.String(), `"msg":"json line"`)
}

func TestLogger_SourceIsCaller(t *testing.T) {
	var buf bytes.Buffer
	prev := logger.Default()
	t.Cleanup(func() { logger.SetDefault(prev) })
	logger.SetDefault(logger.New(logger.WithOutput(&buf), logger.WithJSON(true)))

	logger.Info("from package function")
	logger.Default().Info("from method")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		var entry struct {
			Source struct {
				File string `json:"file"`
			} `json:"source"`
		}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		assert.Equal(t, "logger_test.go", filepath.Base(entry.Source.File), line)
	}
}
