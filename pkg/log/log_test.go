package log

import (
	"bytes"
	"strings"
	"testing"

	"github.com/keboola/go-utils/pkg/wildcards"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"":        zapcore.InfoLevel,
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		" error ": zapcore.ErrorLevel,
	}
	for in, expected := range cases {
		lvl, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, expected, lvl, in)
	}

	_, err := ParseLevel("verbose")
	assert.EqualError(t, err, `unknown log level "verbose"`)
}

func TestNewWithWriter(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	logger, err := NewWithWriter("info", &out)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("visible")
	require.NoError(t, logger.Sync())

	wildcards.Assert(t, `{"level":"info","ts":"%s","caller":"%s","msg":"visible"}`, strings.TrimSpace(out.String()))
}

func TestNop(t *testing.T) {
	t.Parallel()
	Nop().Info("nothing")
}
