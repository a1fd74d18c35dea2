package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOpenLogFileEmptyPathDisablesFileLogging(t *testing.T) {
	file, err := OpenLogFile("")
	require.NoError(t, err)
	require.Nil(t, file)

	base := zap.NewNop()
	require.Same(t, base, AttachFileLogger(base, nil, false))
}

func TestAttachFileLoggerWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "steelpos.log")
	file, err := OpenLogFile(path)
	require.NoError(t, err)
	defer file.Close()

	logger := AttachFileLogger(zap.NewNop(), file, false)
	logger.Debug("hidden")
	logger.Info("visible", zap.String("route", "/dashboard"))
	require.NoError(t, logger.Sync())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(raw)
	require.False(t, strings.Contains(content, "hidden"))
	require.Contains(t, content, `"msg":"visible"`)
	require.Contains(t, content, `"route":"/dashboard"`)
	require.Contains(t, content, `"app":"steelpos"`)
}
