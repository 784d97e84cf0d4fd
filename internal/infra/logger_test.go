package infra

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerProductionEmitsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "production", "api")
	logger.Debug().Msg("hidden")
	logger.Info().Str("job_id", "job-1").Msg("settled")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "api", entry["service"])
	assert.Equal(t, "job-1", entry["job_id"])
	assert.Equal(t, "settled", entry["message"])
}
