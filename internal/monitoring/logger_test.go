package monitoring

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetLogger(t *testing.T) {
	original := Logger()
	defer SetLogger(original)

	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	Logger().Info("test message", "key", "value")
	assert.Contains(t, buf.String(), "test message")
	assert.Contains(t, buf.String(), "key=value")

	// nil mutes the logger
	buf.Reset()
	SetLogger(nil)
	Logger().Error("should not appear")
	assert.Empty(t, buf.String())
}

func TestLogger_Default(t *testing.T) {
	assert.NotNil(t, Logger())
}
