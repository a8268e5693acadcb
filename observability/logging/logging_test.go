package logging

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupWritesStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupWithOptions(Options{Service: "marketd", Env: "test", Output: &buf})
	logger.Info("escrow committed", "escrowId", 3, "token", "s3cret")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "escrow committed", line["message"])
	require.Equal(t, "INFO", line["severity"])
	require.Equal(t, "marketd", line["service"])
	require.Equal(t, "test", line["env"])
	require.Equal(t, RedactedValue, line["token"])
	require.Contains(t, line, "timestamp")
}

func TestSetupWithFileSink(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "marketd.log")
	logger := SetupWithOptions(Options{Service: "marketd", File: path, MaxSizeMB: 1, Output: &buf})
	logger.Warn("rotating")
	require.FileExists(t, path)
	require.Contains(t, buf.String(), "rotating")
}

func TestMaskField(t *testing.T) {
	require.Equal(t, RedactedValue, MaskField("Authorization", "Bearer x").Value.String())
	require.Equal(t, "0xabc", MaskField("buyer", "0xabc").Value.String())
	require.Equal(t, "", MaskField("secret", "").Value.String())
	require.Contains(t, SensitiveKeys(), "jwt_secret")
}
