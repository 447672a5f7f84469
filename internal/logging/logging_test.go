package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/bikepark/parkclient/internal/logging"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, zerolog.DebugLevel, logging.ParseLevel("DEBUG"))
	require.Equal(t, zerolog.WarnLevel, logging.ParseLevel("warning"))
	require.Equal(t, zerolog.ErrorLevel, logging.ParseLevel("error"))
	require.Equal(t, zerolog.InfoLevel, logging.ParseLevel(""))
	require.Equal(t, zerolog.InfoLevel, logging.ParseLevel("verbose"))
}

func TestInitWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.InitWriter(&buf, "warn", "json")

	logger.Info().Msg("dropped")
	logger.Warn().Str("bicycle_id", "c1").Msg("kept")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	require.Equal(t, "kept", entry["message"])
	require.Equal(t, "c1", entry["bicycle_id"])
	require.Equal(t, "warn", entry["level"])
}
