package config

import "errors"

var (
	ErrReadingConfigFile      = errors.New("failed to read config file")
	ErrUnmarshallingConfig    = errors.New("failed to unmarshal config")
	ErrConfigFileMissing      = errors.New("config file not found")
	ErrInvalidGCRatio         = errors.New("ttl gcRatio must be in [0, 1]")
	ErrNegativeMandatory      = errors.New("ttl mandatoryCompaction must not be negative")
	ErrNegativeExpiry         = errors.New("ttl expiry must not be negative")
	ErrInvalidPickerCacheSize = errors.New("picker cacheSize must be positive")
	ErrInvalidConcurrency     = errors.New("inspect concurrency must be positive")
	ErrMissingBucket          = errors.New("catalog bucket must not be empty")
)
