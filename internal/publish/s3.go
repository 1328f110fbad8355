// Package publish uploads a built bundle to S3-compatible object storage.
package publish

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/fluxbase-eu/jsbundle/cli/config"
)

// ContentType is sent with every uploaded bundle
const ContentType = "application/javascript; charset=utf-8"

// ObjectPutter is the part of *minio.Client used for uploads
type ObjectPutter interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	PutObject(ctx context.Context, bucket, key string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Upload describes a completed upload
type Upload struct {
	Bucket string `json:"bucket" yaml:"bucket"`
	Key    string `json:"key" yaml:"key"`
	Size   int64  `json:"size" yaml:"size"`
	ETag   string `json:"etag" yaml:"etag"`
	URL    string `json:"url" yaml:"url"`
}

// Publisher uploads bundles to one bucket
type Publisher struct {
	client ObjectPutter
	cfg    config.PublishConfig
	fs     afero.Fs
	logger zerolog.Logger
}

// Option configures a Publisher
type Option func(*Publisher)

// WithFs sets the filesystem the bundle is read from
func WithFs(fs afero.Fs) Option {
	return func(p *Publisher) {
		p.fs = fs
	}
}

// WithLogger sets the publisher logger
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewClient creates an S3-compatible client for cfg. Works with AWS S3,
// MinIO and other S3-compatible services.
func NewClient(cfg *config.PublishConfig) (*minio.Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	return client, nil
}

// New validates cfg and creates a publisher backed by a real S3 client
func New(cfg *config.PublishConfig, opts ...Option) (*Publisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}

	return NewWithClient(client, cfg, opts...), nil
}

// NewWithClient creates a publisher using client
func NewWithClient(client ObjectPutter, cfg *config.PublishConfig, opts ...Option) *Publisher {
	p := &Publisher{
		client: client,
		cfg:    *cfg,
		fs:     afero.NewOsFs(),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ObjectKey returns the key the bundle at bundlePath is stored under. The
// configured key wins, otherwise the file name is used.
func (p *Publisher) ObjectKey(bundlePath string) string {
	if p.cfg.Key != "" {
		return p.cfg.Key
	}
	return filepath.Base(bundlePath)
}

// URL returns the object URL for key
func (p *Publisher) URL(key string) string {
	scheme := "http"
	if p.cfg.UseSSL {
		scheme = "https"
	}
	return scheme + "://" + path.Join(p.cfg.Endpoint, p.cfg.Bucket, key)
}

// Publish uploads the bundle at bundlePath
func (p *Publisher) Publish(ctx context.Context, bundlePath string) (*Upload, error) {
	data, err := afero.ReadFile(p.fs, bundlePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle: %w", err)
	}

	exists, err := p.client.BucketExists(ctx, p.cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s does not exist", p.cfg.Bucket)
	}

	key := p.ObjectKey(bundlePath)
	putOpts := minio.PutObjectOptions{
		ContentType:  ContentType,
		CacheControl: p.cfg.CacheControl,
	}

	info, err := p.client.PutObject(ctx, p.cfg.Bucket, key, bytes.NewReader(data), int64(len(data)), putOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	p.logger.Info().
		Str("bucket", p.cfg.Bucket).
		Str("key", key).
		Int64("size", info.Size).
		Msg("Bundle published")

	return &Upload{
		Bucket: p.cfg.Bucket,
		Key:    key,
		Size:   info.Size,
		ETag:   info.ETag,
		URL:    p.URL(key),
	}, nil
}
