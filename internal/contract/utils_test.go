package contract

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/huangsam/kpiroll/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestGetOpenLabel(t *testing.T) {
	assert.Equal(t, OpenMarker, GetOpenLabel(false))
	assert.Contains(t, GetOpenLabel(true), OpenMarker)
}

func TestGetChangeLabel(t *testing.T) {
	tests := []struct {
		name     string
		input    *float64
		expected string
	}{
		{"missing", nil, MissingValue},
		{"growth", schema.Float(4.24), "+4.2%"},
		{"decline", schema.Float(-1.5), "-1.5%"},
		{"flat", schema.Float(0), "+0.0%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetChangeLabel(tt.input, false))
			assert.Contains(t, GetChangeLabel(tt.input, true), tt.expected)
		})
	}
}

func TestSelectOutputFile(t *testing.T) {
	t.Run("empty path returns stdout", func(t *testing.T) {
		file, err := SelectOutputFile("")
		require.NoError(t, err)
		assert.Equal(t, os.Stdout, file)
	})

	t.Run("valid path creates file", func(t *testing.T) {
		tempFile := filepath.Join(t.TempDir(), "test_output.txt")

		file, err := SelectOutputFile(tempFile)
		require.NoError(t, err)
		assert.NotNil(t, file)
		_ = file.Close()

		_, err = os.Stat(tempFile)
		assert.NoError(t, err)
	})
}

func TestGetStoreDBFilePath(t *testing.T) {
	path := GetStoreDBFilePath()
	assert.NotEmpty(t, path)
	assert.Contains(t, path, ".kpiroll.db")

	homeDir, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, homeDir), "path %s should start with home dir %s", path, homeDir)
}

func TestTruncateLabel(t *testing.T) {
	assert.Equal(t, "Jun'24", TruncateLabel("Jun'24", 10))
	assert.Equal(t, "live_m...", TruncateLabel("live_mrr_target", 9))
	assert.Equal(t, "abcdef", TruncateLabel("abcdef", 3))
}

func TestParseBoolString(t *testing.T) {
	for _, s := range []string{"yes", "TRUE", "1"} {
		v, err := ParseBoolString(s)
		require.NoError(t, err)
		assert.True(t, v, s)
	}
	for _, s := range []string{"no", "False", "0"} {
		v, err := ParseBoolString(s)
		require.NoError(t, err)
		assert.False(t, v, s)
	}
	_, err := ParseBoolString("maybe")
	assert.Error(t, err)
}

func TestLogHelpers(t *testing.T) {
	var buf bytes.Buffer
	prevLogger := Logger()
	prevExit := exitFunc
	exitCode := -1
	exitFunc = func(code int) { exitCode = code }
	logSugar = newLogger(zapcore.AddSync(&buf))
	defer func() {
		exitFunc = prevExit
		logSugar = prevLogger
	}()

	LogWarn("loading store", errors.New("connection refused"))
	assert.Contains(t, buf.String(), "WARN loading store: connection refused")

	LogFatal("running trends", errors.New("boom"))
	assert.Contains(t, buf.String(), "ERROR Fatal running trends: boom")
	assert.Equal(t, 1, exitCode)

	SetVerbose(true)
	defer SetVerbose(false)
	Logger().Debugw("bucketed records", "buckets", 4)
	assert.Contains(t, buf.String(), "DEBUG bucketed records")
}
