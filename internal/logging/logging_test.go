package logging_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shpitdev/lead-contract/internal/logging"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(&buf, "warn", "json")
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("extraction attempt failed", zap.Int("attempt", 1), zap.String("failure_kind", "TIMEOUT"))
	require.NoError(t, logger.Sync())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "warn", rec["level"])
	assert.Equal(t, "extraction attempt failed", rec["msg"])
	assert.Equal(t, "TIMEOUT", rec["failure_kind"])
	assert.Contains(t, rec, "ts")
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(&buf, "", "console")
	require.NoError(t, err)

	logger.Debug("dropped")
	logger.Info("retrying extraction")
	assert.Contains(t, buf.String(), "INFO")
	assert.Contains(t, buf.String(), "retrying extraction")
	assert.NotContains(t, buf.String(), "dropped")
}

func TestNew_BadLevel(t *testing.T) {
	_, err := logging.New(&bytes.Buffer{}, "loud", "json")
	require.Error(t, err)
}
