package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultTTLExpiry           = 0
	defaultTTLScanCap          = 0
	defaultTTLGCRatio          = 1.0
	defaultMandatoryCompaction = 0
	defaultPickerCacheSize     = 1024
	defaultInspectConcurrency  = 8
	defaultCatalogBucket       = "sstables"
	defaultCatalogMongoURL     = "mongodb://localhost:27017"
	defaultLogLevel            = "info"
	defaultLogFormat           = "console"
	defaultLogFileEnabled      = false
	defaultLogDirectory        = "log"
	defaultLogFilename         = "sstprops.log"
	defaultLogMaxSizeMB        = 100
	defaultLogMaxBackups       = 3
	defaultLogMaxAgeDays       = 7
	defaultLogCompress         = false

	// Environment variable prefix
	envPrefix = "SSTPROPS"
)

type Config struct {
	TTL     TTLConfig     `mapstructure:"ttl"`
	Picker  PickerConfig  `mapstructure:"picker"`
	Inspect InspectConfig `mapstructure:"inspect"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Log     LogConfig     `mapstructure:"log"`
}

type TTLConfig struct {
	// Expiry is how long values live after the write time in their suffix.
	// Zero means values never expire.
	Expiry time.Duration `mapstructure:"expiry"`

	// ColumnFamilies restricts expiry to these column family IDs. Empty means
	// every column family.
	ColumnFamilies []uint32 `mapstructure:"columnFamilies"`

	ScanCap             uint64        `mapstructure:"scanCap"`
	GCRatio             float64       `mapstructure:"gcRatio"`
	MandatoryCompaction time.Duration `mapstructure:"mandatoryCompaction"`
}

type PickerConfig struct {
	CacheSize int `mapstructure:"cacheSize"`
}

type InspectConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// CatalogConfig locates the remote catalog. Credentials, and the endpoint and
// region when they're empty here, come from the default AWS config.
type CatalogConfig struct {
	Bucket   string `mapstructure:"bucket"`
	Endpoint string `mapstructure:"endpoint"`
	Region   string `mapstructure:"region"`
	MongoURL string `mapstructure:"mongoURL"`
}

type LogConfig struct {
	Level              string `mapstructure:"level"`
	Format             string `mapstructure:"format"`
	FileLoggingEnabled bool   `mapstructure:"fileLoggingEnabled"`
	Directory          string `mapstructure:"directory"`
	Filename           string `mapstructure:"filename"`
	MaxSize            int    `mapstructure:"maxSize"`    // Max size in MB
	MaxBackups         int    `mapstructure:"maxBackups"` // Max backup files
	MaxAge             int    `mapstructure:"maxAge"`     // Max days to retain
	Compress           bool   `mapstructure:"compress"`
}

// Load reads the config file at configPath (if not empty) on top of the
// defaults, then applies environment variables, unmarshals, and validates.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	configureViper(v, configPath)

	setDefaults(v)

	if configPath != "" {
		if err := readConfigFile(v); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnmarshallingConfig, err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func configureViper(v *viper.Viper, configPath string) {
	if configPath != "" {
		v.SetConfigFile(configPath)
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ttl.expiry", defaultTTLExpiry)
	v.SetDefault("ttl.columnFamilies", []uint32{})
	v.SetDefault("ttl.scanCap", defaultTTLScanCap)
	v.SetDefault("ttl.gcRatio", defaultTTLGCRatio)
	v.SetDefault("ttl.mandatoryCompaction", defaultMandatoryCompaction)
	v.SetDefault("picker.cacheSize", defaultPickerCacheSize)
	v.SetDefault("inspect.concurrency", defaultInspectConcurrency)
	v.SetDefault("catalog.bucket", defaultCatalogBucket)
	v.SetDefault("catalog.endpoint", "")
	v.SetDefault("catalog.region", "")
	v.SetDefault("catalog.mongoURL", defaultCatalogMongoURL)
	v.SetDefault("log.level", defaultLogLevel)
	v.SetDefault("log.format", defaultLogFormat)
	v.SetDefault("log.fileLoggingEnabled", defaultLogFileEnabled)
	v.SetDefault("log.directory", defaultLogDirectory)
	v.SetDefault("log.filename", defaultLogFilename)
	v.SetDefault("log.maxSize", defaultLogMaxSizeMB)
	v.SetDefault("log.maxBackups", defaultLogMaxBackups)
	v.SetDefault("log.maxAge", defaultLogMaxAgeDays)
	v.SetDefault("log.compress", defaultLogCompress)
}

func readConfigFile(v *viper.Viper) error {
	err := v.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) || errors.Is(err, fs.ErrNotExist) {
			return ErrConfigFileMissing
		}
		return fmt.Errorf("%w: %w", ErrReadingConfigFile, err)
	}
	return nil
}

func validateConfig(cfg *Config) error {
	if cfg.TTL.GCRatio < 0 || cfg.TTL.GCRatio > 1 {
		return ErrInvalidGCRatio
	}
	if cfg.TTL.MandatoryCompaction < 0 {
		return ErrNegativeMandatory
	}
	if cfg.TTL.Expiry < 0 {
		return ErrNegativeExpiry
	}
	if cfg.Picker.CacheSize <= 0 {
		return ErrInvalidPickerCacheSize
	}
	if cfg.Inspect.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if cfg.Catalog.Bucket == "" {
		return ErrMissingBucket
	}
	return nil
}
