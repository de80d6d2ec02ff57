// Package s3 provides an S3-compatible backend for safeio.
//
// This backend works with:
//   - AWS S3
//   - Cloudflare R2
//   - MinIO
//   - Any S3-compatible object storage
//
// Basic usage:
//
//	backend, err := s3.New(s3.Config{
//	    Bucket: "my-bucket",
//	    Region: "us-east-1",
//	})
//
// For S3-compatible services:
//
//	backend, err := s3.New(s3.Config{
//	    Bucket:       "my-bucket",
//	    Endpoint:     "https://play.min.io",
//	    UsePathStyle: true,
//	})
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/grokify/safeio"
)

func init() {
	safeio.Register("s3", NewFromConfig)
}

// Errors specific to the S3 backend.
var (
	ErrBucketRequired = errors.New("s3: bucket is required")
)

// objectAPI is the subset of the S3 client the backend uses.
type objectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Backend implements safeio.Backend for S3-compatible storage.
type Backend struct {
	client objectAPI
	config Config
	closed bool
	mu     sync.RWMutex
}

// New creates a new S3 backend with the given configuration.
func New(cfg Config) (*Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var optFns []func(*config.LoadOptions) error

	if cfg.Region != "" {
		optFns = append(optFns, config.WithRegion(cfg.Region))
	}

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		creds := credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			cfg.SessionToken,
		)
		optFns = append(optFns, config.WithCredentialsProvider(creds))
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(), optFns...)
	if err != nil {
		return nil, fmt.Errorf("s3: loading AWS config: %w", err)
	}

	var s3OptFns []func(*s3.Options)

	if endpoint := cfg.endpointURL(); endpoint != "" {
		s3OptFns = append(s3OptFns, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}

	if cfg.UsePathStyle {
		s3OptFns = append(s3OptFns, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return newWithClient(s3.NewFromConfig(awsCfg, s3OptFns...), cfg), nil
}

func newWithClient(client objectAPI, cfg Config) *Backend {
	return &Backend{
		client: client,
		config: cfg,
	}
}

// NewFromConfig creates a new S3 backend from a config map.
// This is used by the safeio registry.
func NewFromConfig(configMap map[string]string) (safeio.Backend, error) {
	return New(ConfigFromMap(configMap))
}

// NewWriter creates a writer for the given path. The object is uploaded
// when the writer is closed.
func (b *Backend) NewWriter(ctx context.Context, p string) (io.WriteCloser, error) {
	if err := b.check(ctx, p); err != nil {
		return nil, err
	}

	return &s3Writer{
		backend: b,
		ctx:     ctx,
		path:    p,
		key:     b.fullKey(p),
		buffer:  &bytes.Buffer{},
	}, nil
}

// NewReader creates a reader for the given path.
func (b *Backend) NewReader(ctx context.Context, p string) (io.ReadCloser, error) {
	if err := b.check(ctx, p); err != nil {
		return nil, err
	}

	result, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.config.Bucket),
		Key:    aws.String(b.fullKey(p)),
	})
	if err != nil {
		return nil, b.translateError(err, p)
	}

	return result.Body, nil
}

// Exists checks if an object exists at path.
func (b *Backend) Exists(ctx context.Context, p string) (bool, error) {
	_, err := b.Stat(ctx, p)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, safeio.ErrNotFound) {
		return false, nil
	}
	return false, err
}

// Stat returns metadata about an object.
func (b *Backend) Stat(ctx context.Context, p string) (safeio.ObjectInfo, error) {
	if err := b.check(ctx, p); err != nil {
		return safeio.ObjectInfo{}, err
	}

	result, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.config.Bucket),
		Key:    aws.String(b.fullKey(p)),
	})
	if err != nil {
		return safeio.ObjectInfo{}, b.translateError(err, p)
	}

	var size int64
	if result.ContentLength != nil {
		size = *result.ContentLength
	}

	var modTime time.Time
	if result.LastModified != nil {
		modTime = *result.LastModified
	}

	return safeio.ObjectInfo{
		Path:    p,
		Size:    size,
		ModTime: modTime,
	}, nil
}

// Close marks the backend closed. The S3 client holds no resources that
// need releasing.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// fullKey returns the full S3 key for a path.
func (b *Backend) fullKey(p string) string {
	p = strings.TrimPrefix(p, "/")
	if b.config.Prefix == "" {
		return p
	}
	return path.Join(b.config.Prefix, p)
}

func (b *Backend) check(ctx context.Context, p string) error {
	if err := b.checkClosed(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := safeio.ValidatePath(p); err != nil {
		return err
	}
	if strings.HasSuffix(p, "/") {
		return fmt.Errorf("%w: %s is a directory", safeio.ErrNotAFile, p)
	}
	return nil
}

// checkClosed returns an error if the backend is closed.
func (b *Backend) checkClosed() error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return safeio.ErrBackendClosed
	}
	return nil
}

// translateError converts S3 errors to safeio errors.
func (b *Backend) translateError(err error, p string) error {
	if err == nil {
		return nil
	}

	var nf *types.NotFound
	if errors.As(err, &nf) {
		return fmt.Errorf("%w: %s", safeio.ErrNotFound, p)
	}

	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return fmt.Errorf("%w: %s", safeio.ErrNotFound, p)
	}

	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return fmt.Errorf("s3: bucket not found: %s: %w", b.config.Bucket, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return fmt.Errorf("%w: %s", safeio.ErrNotFound, p)
		case "AccessDenied", "Forbidden", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return fmt.Errorf("%w: %s: %w", safeio.ErrPermissionDenied, p, err)
		}
	}

	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.HTTPStatusCode() {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", safeio.ErrNotFound, p)
		case http.StatusForbidden:
			return fmt.Errorf("%w: %s: %w", safeio.ErrPermissionDenied, p, err)
		}
	}

	return fmt.Errorf("s3: %w", err)
}

// s3Writer buffers data and uploads it as one object on Close.
type s3Writer struct {
	backend *Backend
	ctx     context.Context
	path    string
	key     string
	buffer  *bytes.Buffer
	closed  bool
	mu      sync.Mutex
}

func (w *s3Writer) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, safeio.ErrWriterClosed
	}

	return w.buffer.Write(p)
}

func (w *s3Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	_, err := w.backend.client.PutObject(w.ctx, &s3.PutObjectInput{
		Bucket:        aws.String(w.backend.config.Bucket),
		Key:           aws.String(w.key),
		Body:          bytes.NewReader(w.buffer.Bytes()),
		ContentLength: aws.Int64(int64(w.buffer.Len())),
	})
	if err != nil {
		return fmt.Errorf("s3: uploading object: %w", w.backend.translateError(err, w.path))
	}

	return nil
}

var _ safeio.Backend = (*Backend)(nil)
