package storage

import (
	"context"
	"errors"
	"time"
)

// ErrObjectNotFound is returned when a key does not exist in the store
var ErrObjectNotFound = errors.New("object not found")

// Backend names
const (
	BackendS3         = "s3"
	BackendFilesystem = "filesystem"
	BackendMemory     = "memory"
)

// Object is a stored value with its last write time
type Object struct {
	Key          string
	Body         []byte
	ContentType  string
	LastModified time.Time
}

// ObjectReader reads objects by key
type ObjectReader interface {
	// Get returns the object stored under key or ErrObjectNotFound.
	Get(ctx context.Context, key string) (*Object, error)

	// LastModified returns the last write time of key or ErrObjectNotFound.
	LastModified(ctx context.Context, key string) (time.Time, error)
}

// ObjectWriter writes objects by key
type ObjectWriter interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
}

// HealthChecker reports backend availability
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ObjectStore is a flat key/value object store. Writes replace the whole object; last
// writer wins.
type ObjectStore interface {
	ObjectReader
	ObjectWriter
	HealthChecker
}

// Config for the object store backend
type Config struct {
	Type string `yaml:"type"` // "s3", "filesystem", "memory"

	// Filesystem config
	FilesystemRoot string `yaml:"filesystem_root"`

	// S3 config (AWS S3, Cloudflare R2, MinIO)
	S3Endpoint     string `yaml:"s3_endpoint"`
	S3Region       string `yaml:"s3_region"`
	S3Bucket       string `yaml:"s3_bucket"`
	S3AccessKey    string `yaml:"s3_access_key"`
	S3SecretKey    string `yaml:"s3_secret_key"`
	S3UsePathStyle bool   `yaml:"s3_use_path_style"`
	S3CreateBucket bool   `yaml:"s3_create_bucket"`
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		Type:           BackendFilesystem,
		FilesystemRoot: "/tmp/stackpulse",
		S3Region:       "auto",
	}
}
