package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/bookshelf/internal/flagx"
	"github.com/dmitrijs2005/bookshelf/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "30s" and integer nanoseconds are accepted.
// Pointer fields distinguish "absent" from "zero" so a partial file only
// overrides what it names.
type JsonConfig struct {
	EndpointAddrHTTP    *string         `json:"endpoint_addr_http"`
	EndpointAddrHealth  *string         `json:"endpoint_addr_health"`
	DatabaseDSN         *string         `json:"database_dsn"`
	SecretKey           *string         `json:"secret_key"`
	LogLevel            *string         `json:"log_level"`
	BlobBackend         *string         `json:"blob_backend"`
	BlobDir             *string         `json:"blob_dir"`
	S3AccessKey         *string         `json:"s3_access_key"`
	S3SecretKey         *string         `json:"s3_secret_key"`
	S3Bucket            *string         `json:"s3_bucket"`
	S3Region            *string         `json:"s3_region"`
	S3BaseEndpoint      *string         `json:"s3_base_endpoint"`
	S3UseSSL            *bool           `json:"s3_use_ssl"`
	ReadTimeout         *timex.Duration `json:"read_timeout"`
	WriteTimeout        *timex.Duration `json:"write_timeout"`
	MaxCoverSize        *int64          `json:"max_cover_size"`
	UploadPartSize      *int64          `json:"upload_part_size"`
	HealthCheckInterval *timex.Duration `json:"health_check_interval"`
}

// parseJson overlays values from the JSON file named by -c/-config (or
// BOOKSHELF_CONFIG) onto config. Nothing happens when no file is named.
// An unreadable file or invalid JSON panics: the server must not start on a
// half-applied configuration.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigFilePath()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrHealth, c.EndpointAddrHealth)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.BlobBackend, c.BlobBackend)
	setString(&config.BlobDir, c.BlobDir)
	setString(&config.S3AccessKey, c.S3AccessKey)
	setString(&config.S3SecretKey, c.S3SecretKey)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)

	if c.S3UseSSL != nil {
		config.S3UseSSL = *c.S3UseSSL
	}
	if c.ReadTimeout != nil {
		config.ReadTimeout = c.ReadTimeout.Duration
	}
	if c.WriteTimeout != nil {
		config.WriteTimeout = c.WriteTimeout.Duration
	}
	if c.MaxCoverSize != nil {
		config.MaxCoverSize = *c.MaxCoverSize
	}
	if c.UploadPartSize != nil {
		config.UploadPartSize = *c.UploadPartSize
	}
	if c.HealthCheckInterval != nil {
		config.HealthCheckInterval = c.HealthCheckInterval.Duration
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
