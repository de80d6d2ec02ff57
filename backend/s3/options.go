package s3

import (
	"os"
	"strings"
)

// Config holds configuration for the S3 backend.
type Config struct {
	// Bucket is the S3 bucket name (required).
	Bucket string

	// Region is the AWS region (e.g., "us-east-1").
	// If empty, uses AWS_REGION or AWS_DEFAULT_REGION environment variable.
	Region string

	// Endpoint is a custom endpoint URL for S3-compatible services.
	// Examples:
	//   - MinIO: "http://localhost:9000"
	//   - Cloudflare R2: "https://<account_id>.r2.cloudflarestorage.com"
	// Leave empty for AWS S3.
	Endpoint string

	// Prefix is an optional prefix for all keys.
	Prefix string

	// AccessKeyID is the AWS access key ID.
	// If empty, uses AWS_ACCESS_KEY_ID environment variable or IAM role.
	AccessKeyID string

	// SecretAccessKey is the AWS secret access key.
	// If empty, uses AWS_SECRET_ACCESS_KEY environment variable or IAM role.
	SecretAccessKey string

	// SessionToken is an optional session token for temporary credentials.
	SessionToken string

	// UsePathStyle forces path-style addressing instead of virtual-hosted-style.
	// Required for MinIO.
	UsePathStyle bool

	// DisableSSL uses http:// for an Endpoint given without a scheme.
	// Only use for local development (e.g., local MinIO).
	DisableSSL bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{}
}

// ConfigFromEnv creates a Config from environment variables.
// Environment variables:
//   - SAFEIO_S3_BUCKET or AWS_S3_BUCKET: bucket name
//   - SAFEIO_S3_REGION or AWS_REGION or AWS_DEFAULT_REGION: region
//   - SAFEIO_S3_ENDPOINT: custom endpoint
//   - SAFEIO_S3_PREFIX: key prefix
//   - AWS_ACCESS_KEY_ID: access key
//   - AWS_SECRET_ACCESS_KEY: secret key
//   - AWS_SESSION_TOKEN: session token
//   - SAFEIO_S3_USE_PATH_STYLE: "true" for path-style addressing
//   - SAFEIO_S3_DISABLE_SSL: "true" to disable SSL
func ConfigFromEnv() Config {
	config := DefaultConfig()

	if v := os.Getenv("SAFEIO_S3_BUCKET"); v != "" {
		config.Bucket = v
	} else if v := os.Getenv("AWS_S3_BUCKET"); v != "" {
		config.Bucket = v
	}

	if v := os.Getenv("SAFEIO_S3_REGION"); v != "" {
		config.Region = v
	} else if v := os.Getenv("AWS_REGION"); v != "" {
		config.Region = v
	} else if v := os.Getenv("AWS_DEFAULT_REGION"); v != "" {
		config.Region = v
	}

	config.Endpoint = os.Getenv("SAFEIO_S3_ENDPOINT")
	config.Prefix = os.Getenv("SAFEIO_S3_PREFIX")

	// The AWS SDK also picks these up on its own.
	config.AccessKeyID = os.Getenv("AWS_ACCESS_KEY_ID")
	config.SecretAccessKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
	config.SessionToken = os.Getenv("AWS_SESSION_TOKEN")

	config.UsePathStyle = isTrue(os.Getenv("SAFEIO_S3_USE_PATH_STYLE"))
	config.DisableSSL = isTrue(os.Getenv("SAFEIO_S3_DISABLE_SSL"))

	return config
}

// ConfigFromMap creates a Config from a string map.
// Supported keys:
//   - bucket: bucket name (required)
//   - region: AWS region
//   - endpoint: custom endpoint URL
//   - prefix: key prefix
//   - access_key_id: AWS access key
//   - secret_access_key: AWS secret key
//   - session_token: session token
//   - use_path_style: "true" for path-style addressing
//   - disable_ssl: "true" to disable SSL
func ConfigFromMap(m map[string]string) Config {
	config := DefaultConfig()

	if v, ok := m["bucket"]; ok {
		config.Bucket = v
	}
	if v, ok := m["region"]; ok {
		config.Region = v
	}
	if v, ok := m["endpoint"]; ok {
		config.Endpoint = v
	}
	if v, ok := m["prefix"]; ok {
		config.Prefix = v
	}
	if v, ok := m["access_key_id"]; ok {
		config.AccessKeyID = v
	}
	if v, ok := m["secret_access_key"]; ok {
		config.SecretAccessKey = v
	}
	if v, ok := m["session_token"]; ok {
		config.SessionToken = v
	}
	config.UsePathStyle = isTrue(m["use_path_style"])
	config.DisableSSL = isTrue(m["disable_ssl"])

	return config
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if c.Bucket == "" {
		return ErrBucketRequired
	}
	return nil
}

// endpointURL returns Endpoint with a scheme, or "" for AWS S3.
func (c Config) endpointURL() string {
	if c.Endpoint == "" || strings.Contains(c.Endpoint, "://") {
		return c.Endpoint
	}
	if c.DisableSSL {
		return "http://" + c.Endpoint
	}
	return "https://" + c.Endpoint
}

func isTrue(v string) bool {
	return v == "true" || v == "1"
}
