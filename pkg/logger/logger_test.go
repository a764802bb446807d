package logger

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerWritesThroughZap(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewWithZap("anchor", zap.New(core))

	l.Info("connected to %s", "db1")
	l.WithFields(map[string]string{"connection_id": "abc"}).Warn("slow ping")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "connected to db1", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "abc", entries[1].ContextMap()["connection_id"])
}

func TestLoggerLiteralPercentWithoutArgs(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewWithZap("anchor", zap.New(core))

	l.Error("LIKE 'a%'")
	assert.Equal(t, "LIKE 'a%'", logs.All()[0].Message)
}

func TestLoggerSetLevel(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewWithZap("anchor", zap.New(core))

	require.NoError(t, l.SetLevel("warn"))
	l.Info("dropped")
	l.Warn("kept")
	require.Len(t, logs.All(), 1)
	assert.Equal(t, "kept", logs.All()[0].Message)

	assert.Error(t, l.SetLevel("loud"))
}

func TestLoggerSubscribe(t *testing.T) {
	l := NewNop()
	ch := l.Subscribe()

	l.Debug("hello %d", 1)

	entry := <-ch
	assert.Equal(t, "DEBUG", entry.Level)
	assert.Equal(t, "hello 1", entry.Message)
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() { l.Info("nothing") })
}

func TestSanitizeConnectionString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"postgres://app:s3cret@db:5432/app", "postgres://app:[REDACTED]@db:5432/app"},
		{"mongodb://admin:p%40ss@m1:27017,m2:27017/x", "mongodb://admin:[REDACTED]@m1:27017,m2:27017/x"},
		{"host=db user=app password=hunter2 dbname=app", "host=db user=app password=[REDACTED] dbname=app"},
		{"root:pw@tcp(db:3306)/shop", "root:[REDACTED]@tcp(db:3306)/shop"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeConnectionString(tt.in), tt.in)
	}
}

func TestSanitizeError(t *testing.T) {
	assert.Equal(t, "", SanitizeError(nil))
	got := SanitizeError(errors.New(`dial redis://:topsecret@cache:6379: refused`))
	assert.NotContains(t, got, "topsecret")
}

func TestSanitizeQuery(t *testing.T) {
	assert.Equal(t, "AUTH [REDACTED]", SanitizeQuery("AUTH hunter2"))
	long := strings.Repeat("x", MaxQueryLogLength+10)
	assert.Len(t, SanitizeQuery(long), MaxQueryLogLength+3)
}
