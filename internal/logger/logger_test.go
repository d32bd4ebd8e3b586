package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(buf *bytes.Buffer) *Logger {
	return New(&Config{Level: "debug", Format: "json", Output: buf, ServiceName: "test"})
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	return line
}

func TestContextFieldsReachOutput(t *testing.T) {
	var buf bytes.Buffer
	ctx := newBufferLogger(&buf).WithContext(context.Background())
	ctx = SetJobID(ctx, "job-1")
	ctx = SetPlatform(ctx, "booking")
	ctx = SetHotelKey(ctx, "salinas")

	FromContext(ctx).Infof("sweeping %d hotels", 3)

	line := decodeLine(t, &buf)
	assert.Equal(t, "sweeping 3 hotels", line["message"])
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "test", line["service"])
	assert.Equal(t, "job-1", line[FieldJobID])
	assert.Equal(t, "booking", line[FieldPlatform])
	assert.Equal(t, "salinas", line[FieldHotelKey])
	assert.Contains(t, line, "timestamp")
	assert.Equal(t, "job-1", GetFieldString(ctx, FieldJobID))
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	assert.Same(t, GetDefault(), FromContext(context.Background()))
	assert.Empty(t, GetRequestID(context.Background()))
}

func TestEntryMergesMetricFields(t *testing.T) {
	base := With(Fields{FieldPlatform: "google", FieldStatus: "first"})
	derived := base.WithCount(4).WithStatus("done").WithDuration(12)

	assert.Equal(t, Fields{FieldPlatform: "google", FieldStatus: "first"}, base.Fields())
	assert.Equal(t, Fields{
		FieldPlatform:   "google",
		FieldStatus:     "done",
		FieldCount:      4,
		FieldDurationMs: int64(12),
	}, derived.Fields())

	var buf bytes.Buffer
	ctx := newBufferLogger(&buf).WithContext(context.Background())
	derived.Warn(ctx, "partial")

	line := decodeLine(t, &buf)
	assert.Equal(t, "warning", line["level"])
	assert.Equal(t, "done", line[FieldStatus])
	assert.EqualValues(t, 4, line[FieldCount])
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	log := New(&Config{Level: "info", Output: &buf})
	ctx := log.WithContext(context.Background())

	CtxDebug(ctx, "hidden")
	assert.Zero(t, buf.Len())

	log.WithField("k", "v").Info("shown")
	line := decodeLine(t, &buf)
	assert.Equal(t, "hotelrank", line["service"])
	assert.Equal(t, "v", line["k"])
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_MAX_SIZE", "not-a-number")
	t.Setenv("APP_ENV", "local")

	cfg := LoadFromEnv()
	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, 100, cfg.MaxSizeMB)
	assert.Empty(t, cfg.File)

	t.Setenv("APP_ENV", "prod")
	t.Setenv("LOG_FILE", "/tmp/hotelrank.log")
	assert.Equal(t, "/tmp/hotelrank.log", LoadFromEnv().File)
}
