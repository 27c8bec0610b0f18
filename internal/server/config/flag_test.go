package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "all flags", args: []string{"cmd",
			"-a", "127.0.0.1:8081", "-m", "127.0.0.1:9091", "-d", "db", "-s", "secret", "-l", "debug", "-k", "minio", "-f", "/var/books",
			"-u", "user", "-p", "password", "-b", "bucket", "-r", "us-west-1", "-e", "http://endpoint",
			"-t", "30", "-w", "60", "-x", "1024", "-z", "8388608",
		}, expectPanic: false,
			expected: &Config{
				EndpointAddrHTTP:   "127.0.0.1:8081",
				EndpointAddrHealth: "127.0.0.1:9091",
				DatabaseDSN:        "db",
				SecretKey:          "secret",
				LogLevel:           "debug",
				BlobBackend:        "minio",
				BlobDir:            "/var/books",
				S3AccessKey:        "user",
				S3SecretKey:        "password",
				S3Bucket:           "bucket",
				S3Region:           "us-west-1",
				S3BaseEndpoint:     "http://endpoint",
				ReadTimeout:        30 * time.Second,
				WriteTimeout:       60 * time.Second,
				MaxCoverSize:       1024,
				UploadPartSize:     8 << 20,
			}},
		{name: "bad int", args: []string{"cmd", "-t", "soon"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args

			config := &Config{}

			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(config, tt.expected))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}

func TestParseFlags_IgnoresForeignFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"cmd", "-c", "conf.json", "-test.v", "-a", ":9000"}

	config := &Config{}
	config.LoadDefaults()
	require.NotPanics(t, func() { parseFlags(config) })

	assert.Equal(t, ":9000", config.EndpointAddrHTTP)
	assert.Equal(t, 5*time.Minute, config.ReadTimeout)
}
