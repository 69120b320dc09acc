package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, time.Duration(0), cfg.TTL.Expiry)
	assert.Equal(t, uint64(0), cfg.TTL.ScanCap)
	assert.Equal(t, 1.0, cfg.TTL.GCRatio)
	assert.Equal(t, time.Duration(0), cfg.TTL.MandatoryCompaction)
	assert.Empty(t, cfg.TTL.ColumnFamilies)
	assert.Equal(t, 1024, cfg.Picker.CacheSize)
	assert.Equal(t, 8, cfg.Inspect.Concurrency)
	assert.Equal(t, "sstables", cfg.Catalog.Bucket)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Catalog.MongoURL)
	assert.Empty(t, cfg.Catalog.Endpoint)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.False(t, cfg.Log.FileLoggingEnabled)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
ttl:
  expiry: 24h
  columnFamilies: [0, 2]
  scanCap: 1000
  gcRatio: 0.5
  mandatoryCompaction: 720h
picker:
  cacheSize: 16
catalog:
  endpoint: http://localhost:9000
  region: us-east-1
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 24*time.Hour, cfg.TTL.Expiry)
	assert.Equal(t, []uint32{0, 2}, cfg.TTL.ColumnFamilies)
	assert.Equal(t, uint64(1000), cfg.TTL.ScanCap)
	assert.Equal(t, 0.5, cfg.TTL.GCRatio)
	assert.Equal(t, 720*time.Hour, cfg.TTL.MandatoryCompaction)
	assert.Equal(t, 16, cfg.Picker.CacheSize)
	assert.Equal(t, "http://localhost:9000", cfg.Catalog.Endpoint)
	assert.Equal(t, "us-east-1", cfg.Catalog.Region)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	// untouched sections keep their defaults.
	assert.Equal(t, 8, cfg.Inspect.Concurrency)
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("SSTPROPS_TTL_GCRATIO", "0.25")
	t.Setenv("SSTPROPS_TTL_EXPIRY", "90m")
	t.Setenv("SSTPROPS_CATALOG_MONGOURL", "mongodb://db:27017")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 0.25, cfg.TTL.GCRatio)
	assert.Equal(t, 90*time.Minute, cfg.TTL.Expiry)
	assert.Equal(t, "mongodb://db:27017", cfg.Catalog.MongoURL)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.ErrorIs(t, err, ErrConfigFileMissing)
}

func TestLoadBadFile(t *testing.T) {
	path := writeConfig(t, "ttl: [\n")
	_, err := Load(path)
	require.ErrorIs(t, err, ErrReadingConfigFile)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"gc ratio too big", "ttl: {gcRatio: 1.5}", ErrInvalidGCRatio},
		{"gc ratio negative", "ttl: {gcRatio: -0.1}", ErrInvalidGCRatio},
		{"negative mandatory", "ttl: {mandatoryCompaction: -1h}", ErrNegativeMandatory},
		{"negative expiry", "ttl: {expiry: -1s}", ErrNegativeExpiry},
		{"zero cache", "picker: {cacheSize: 0}", ErrInvalidPickerCacheSize},
		{"zero concurrency", "inspect: {concurrency: 0}", ErrInvalidConcurrency},
		{"empty bucket", "catalog: {bucket: \"\"}", ErrMissingBucket},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.ErrorIs(t, err, tt.want)
		})
	}
}
