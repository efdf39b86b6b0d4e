package filestore

import "time"

// Provider identifies the file storage backend.
type Provider string

const (
	ProviderMinIO  Provider = "minio"
	ProviderMemory Provider = "memory" // process-local, for development and tests
)

// Config holds all settings needed to connect to a file storage backend.
type Config struct {
	// Provider is the storage backend (e.g. ProviderMinIO).
	Provider Provider `yaml:"provider"`

	// Endpoint is the host:port of the storage server.
	// Example: "localhost:9000" for local MinIO.
	Endpoint string `yaml:"endpoint"`

	// AccessKey is the access key ID (MinIO / S3 style).
	AccessKey string `yaml:"access_key"`

	// SecretKey is the secret access key.
	SecretKey string `yaml:"secret_key"`

	// UseSSL controls whether TLS is used for the connection.
	UseSSL bool `yaml:"use_ssl"`

	// Region is used by region-aware backends. Leave empty for MinIO.
	Region string `yaml:"region"`

	// Bucket is the single bucket holding every uploaded blob.
	Bucket string `yaml:"bucket"`

	// RequestTimeout bounds each individual call to the backend.
	// Streaming reads are bounded by the caller's context instead.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// DefaultConfig returns a sensible local-dev config for MinIO.
func DefaultConfig(endpoint, accessKey, secretKey string) *Config {
	return &Config{
		Provider:       ProviderMinIO,
		Endpoint:       endpoint,
		AccessKey:      accessKey,
		SecretKey:      secretKey,
		Bucket:         "cours",
		RequestTimeout: 30 * time.Second,
	}
}
