package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unifiedui/chat-bridge/internal/pkg/logging"
)

func TestSetupWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.SetupWithWriter("debug", "json", &buf)

	logger.Info().Str("threadId", "t-1").Msg("hello")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["message"])
	assert.Equal(t, "t-1", entry["threadId"])
	assert.Equal(t, "chat-bridge", entry["service"])
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}

func TestSetupWithWriter_InvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logging.SetupWithWriter("shouting", "json", &buf)

	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
