package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.EnsureBucket(ctx))

	body := []byte(`{"ok":true}`)
	require.NoError(t, s.Put(ctx, "reports/booking/20260101T000000Z.json", body, "application/json"))
	require.NoError(t, s.Put(ctx, "reports/booking/20260102T000000Z.json", body, "application/json"))
	require.NoError(t, s.Put(ctx, "reports/google/20260101T000000Z.json", body, "application/json"))

	keys, err := s.List(ctx, "reports/booking/")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"reports/booking/20260101T000000Z.json",
		"reports/booking/20260102T000000Z.json",
	}, keys)

	got, err := s.Get(ctx, "reports/google/20260101T000000Z.json")
	require.NoError(t, err)
	assert.Equal(t, body, got)

	require.NoError(t, s.Put(ctx, "reports/google/20260101T000000Z.json", []byte("{}"), "application/json"))
	got, err = s.Get(ctx, "reports/google/20260101T000000Z.json")
	require.NoError(t, err)
	assert.Equal(t, "{}", string(got))

	_, err = s.Get(ctx, "reports/decolar/missing.json")
	assert.ErrorIs(t, err, ErrObjectNotFound)
	assert.True(t, strings.HasPrefix(s.URL("reports/x.json"), "file://"))
}

func TestLocalStorageListEmptyRoot(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir() + "/missing")
	require.NoError(t, err)

	keys, err := s.List(context.Background(), "reports/")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestLocalStorageRejectsEscapingKeys(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	err = s.Put(context.Background(), "../outside.json", []byte("x"), "text/plain")
	assert.Error(t, err)
}

func TestDetectStorageType(t *testing.T) {
	tests := []struct {
		endpoint string
		want     StorageType
	}{
		{"", StorageTypeLocal},
		{"https://abc.r2.cloudflarestorage.com", StorageTypeR2},
		{"s3.us-east-1.amazonaws.com", StorageTypeS3},
		{"localhost:9000", StorageTypeS3Compatible},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, detectStorageType(tt.endpoint), tt.endpoint)
	}
}

func TestObjectURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com/reports/a.json",
		objectURL("https://cdn.example.com/", "minio:9000", false, "hotelrank", "reports/a.json"))
	assert.Equal(t, "http://minio:9000/hotelrank/reports/a.json",
		objectURL("", hostOnly("http://minio:9000/console"), false, "hotelrank", "reports/a.json"))
	assert.Equal(t, "https://s3.amazonaws.com/hotelrank/a.json",
		objectURL("", "s3.amazonaws.com", true, "hotelrank", "a.json"))
}
