package storage

import (
	"context"
	"testing"

	"github.com/sellerpnl/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func validConfig() *config.StorageConfig {
	return &config.StorageConfig{
		Bucket:       "uploads",
		AccessKey:    "key",
		SecretKey:    "secret",
		UsePathStyle: true,
	}
}

func TestNewS3Archive_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *config.StorageConfig)
		wantErr string
	}{
		{name: "missing bucket", mutate: func(c *config.StorageConfig) { c.Bucket = "" }, wantErr: "bucket is required"},
		{name: "missing access key", mutate: func(c *config.StorageConfig) { c.AccessKey = "" }, wantErr: "access key is required"},
		{name: "missing secret key", mutate: func(c *config.StorageConfig) { c.SecretKey = "" }, wantErr: "secret key is required"},
		{name: "valid", mutate: func(c *config.StorageConfig) {}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			archive, err := NewS3Archive(cfg, WithLogger(zaptest.NewLogger(t)))
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "uploads", archive.Bucket())
		})
	}

	_, err := NewS3Archive(nil)
	assert.ErrorContains(t, err, "configuration is required")
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		useSSL   bool
		want     string
	}{
		{endpoint: "", want: "http://localhost:9000"},
		{endpoint: "minio:9000", want: "http://minio:9000"},
		{endpoint: "s3.example.com", useSSL: true, want: "https://s3.example.com"},
		{endpoint: "https://s3.example.com", want: "https://s3.example.com"},
	}
	for _, tt := range tests {
		got, err := normalizeEndpoint(tt.endpoint, tt.useSSL)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestS3Archive_EmptyKey(t *testing.T) {
	archive, err := NewS3Archive(validConfig())
	require.NoError(t, err)
	ctx := context.Background()

	assert.ErrorIs(t, archive.Put(ctx, "", []byte("x"), "text/csv"), ErrEmptyKey)
	_, err = archive.Exists(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyKey)
}

func TestMemoryArchive(t *testing.T) {
	ctx := context.Background()
	archive := NewMemoryArchive()

	data := []byte("kind,amount\n")
	require.NoError(t, archive.Put(ctx, "a.csv", data, "text/csv"))
	data[0] = 'X'

	ok, err := archive.Exists(ctx, "a.csv")
	require.NoError(t, err)
	assert.True(t, ok)

	got, _ := archive.Get("a.csv")
	assert.Equal(t, "kind,amount\n", string(got))

	ok, err = archive.Exists(ctx, "b.csv")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, archive.Put(ctx, "", nil, ""), ErrEmptyKey)
}
