package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/bookshelf/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-m string   gRPC health bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-l string   log level
//	-k string   blob backend: s3, minio, disk or memory
//	-f string   disk backend root directory
//	-u string   S3 access key
//	-p string   S3 secret key
//	-b string   S3 bucket name
//	-r string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-t int      HTTP read timeout, seconds
//	-w int      HTTP write timeout, seconds
//	-x int      max cover size, bytes
//	-z int      S3/MinIO upload part size, bytes
//
// Timeouts are accepted as whole seconds and converted to time.Duration.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-m", "-d", "-s", "-l", "-k", "-f", "-u", "-p", "-b", "-r", "-e", "-t", "-w", "-x", "-z"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run the HTTP API")
	fs.StringVar(&config.EndpointAddrHealth, "m", config.EndpointAddrHealth, "address and port to run the gRPC health endpoint")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.BlobBackend, "k", config.BlobBackend, "blob backend (s3, minio, disk, memory)")
	fs.StringVar(&config.BlobDir, "f", config.BlobDir, "disk backend directory")

	fs.StringVar(&config.S3AccessKey, "u", config.S3AccessKey, "S3 access key")
	fs.StringVar(&config.S3SecretKey, "p", config.S3SecretKey, "S3 secret key")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "r", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	readTimeout := fs.Int("t", int(config.ReadTimeout.Seconds()), "HTTP read timeout (in seconds)")
	writeTimeout := fs.Int("w", int(config.WriteTimeout.Seconds()), "HTTP write timeout (in seconds)")
	fs.Int64Var(&config.MaxCoverSize, "x", config.MaxCoverSize, "max cover size (in bytes)")
	fs.Int64Var(&config.UploadPartSize, "z", config.UploadPartSize, "upload part size (in bytes)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.ReadTimeout = time.Duration(*readTimeout) * time.Second
	config.WriteTimeout = time.Duration(*writeTimeout) * time.Second
}
