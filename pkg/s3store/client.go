// Package s3store moves corpus files between local disk and S3.
package s3store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// TransferConfig configures the S3 upload and download managers.
type TransferConfig struct {
	// Concurrency is the number of parts transferred in parallel.
	// Default: NumCPU clamped to [4, 16].
	Concurrency int

	// PartSize is the size of each multipart part in bytes.
	// Default: 16MB.
	PartSize int64
}

// DefaultTransferConfig returns sensible defaults based on the current machine.
func DefaultTransferConfig() TransferConfig {
	concurrency := runtime.NumCPU()
	if concurrency < 4 {
		concurrency = 4
	}
	if concurrency > 16 {
		concurrency = 16
	}
	return TransferConfig{
		Concurrency: concurrency,
		PartSize:    16 * 1024 * 1024,
	}
}

func (c TransferConfig) withDefaults() TransferConfig {
	def := DefaultTransferConfig()
	if c.Concurrency <= 0 {
		c.Concurrency = def.Concurrency
	}
	if c.PartSize <= 0 {
		c.PartSize = def.PartSize
	}
	return c
}

// Client uploads and downloads corpus objects.
type Client struct {
	cfg        TransferConfig
	uploader   *manager.Uploader
	downloader *manager.Downloader
}

// NewClient creates a new client using default AWS configuration.
func NewClient(ctx context.Context, cfg TransferConfig) (*Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return NewClientWithConfig(awsCfg, cfg), nil
}

// NewClientWithConfig creates a new client with a custom AWS config.
func NewClientWithConfig(awsCfg aws.Config, cfg TransferConfig) *Client {
	cfg = cfg.withDefaults()
	s3Client := s3.NewFromConfig(awsCfg)

	return &Client{
		cfg: cfg,
		uploader: manager.NewUploader(s3Client, func(u *manager.Uploader) {
			u.Concurrency = cfg.Concurrency
			u.PartSize = cfg.PartSize
		}),
		downloader: manager.NewDownloader(s3Client, func(d *manager.Downloader) {
			d.Concurrency = cfg.Concurrency
			d.PartSize = cfg.PartSize
		}),
	}
}

// TransferResult contains information about a completed transfer.
type TransferResult struct {
	Bytes    int64
	Duration time.Duration
}

// Upload streams the local file at localPath to s3://bucket/key.
func (c *Client) Upload(ctx context.Context, localPath, bucket, key string) (*TransferResult, error) {
	start := time.Now()

	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", localPath, err)
	}

	_, err = c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType(key)),
	})
	if err != nil {
		return nil, fmt.Errorf("upload s3://%s/%s: %w", bucket, key, err)
	}

	return &TransferResult{
		Bytes:    info.Size(),
		Duration: time.Since(start),
	}, nil
}

// Download fetches s3://bucket/key into destPath.
// A failed download removes destPath.
func (c *Client) Download(ctx context.Context, bucket, key, destPath string) (*TransferResult, error) {
	start := time.Now()

	file, err := os.Create(destPath)
	if err != nil {
		return nil, fmt.Errorf("create destination file: %w", err)
	}

	n, err := c.downloader.Download(ctx, file, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(destPath)
		return nil, fmt.Errorf("download s3://%s/%s: %w", bucket, key, err)
	}

	return &TransferResult{
		Bytes:    n,
		Duration: time.Since(start),
	}, nil
}

// Config returns the transfer configuration.
func (c *Client) Config() TransferConfig {
	return c.cfg
}

func contentType(key string) string {
	if strings.HasSuffix(strings.ToLower(key), ".parquet") {
		return "application/vnd.apache.parquet"
	}
	return "text/plain; charset=utf-8"
}

// IsS3URI reports whether s names an S3 object.
func IsS3URI(s string) bool {
	return strings.HasPrefix(s, "s3://")
}

// ParseS3URI parses an S3 URI (s3://bucket/key) into bucket and key components.
// Corpus objects need a key, so a bucket-only URI is rejected.
func ParseS3URI(uri string) (bucket, key string, err error) {
	if !IsS3URI(uri) {
		return "", "", errors.New("invalid S3 URI: must start with s3://")
	}

	path := strings.TrimPrefix(uri, "s3://")
	parts := strings.SplitN(path, "/", 2)
	if parts[0] == "" {
		return "", "", errors.New("invalid S3 URI: missing bucket name")
	}
	if len(parts) < 2 || parts[1] == "" {
		return "", "", fmt.Errorf("invalid S3 URI %q: missing object key", uri)
	}

	return parts[0], parts[1], nil
}
