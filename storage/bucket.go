package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"vinpipe/metrics"
	"vinpipe/utils"
)

// BucketConfig locates an S3-compatible bucket.
type BucketConfig struct {
	Endpoint  string
	Region    string
	Bucket    string
	Prefix    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// Bucket pulls raw exports from, and publishes rendered tables to, an
// S3-compatible bucket. Every call is a single attempt.
type Bucket struct {
	client *s3.Client
	bucket string
	prefix string
	logger *utils.Logger
}

// NewBucket builds a client with static credentials. A non-empty Endpoint
// switches to path-style addressing for MinIO and similar servers.
func NewBucket(ctx context.Context, cfg BucketConfig, logger *utils.Logger) (*Bucket, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket: no bucket name configured")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey, cfg.SecretKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("bucket: load aws config: %w", err)
	}

	endpoint := endpointURL(cfg.Endpoint, cfg.UseSSL)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &Bucket{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix, logger: logger}, nil
}

func endpointURL(endpoint string, useSSL bool) string {
	if endpoint == "" {
		return ""
	}
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	if useSSL {
		return "https://" + endpoint
	}
	return "http://" + endpoint
}

func (b *Bucket) key(name string) string {
	if b.prefix == "" {
		return name
	}
	return path.Join(b.prefix, name)
}

// Pull downloads key into dst, replacing it only once the whole object has
// been received.
func (b *Bucket) Pull(ctx context.Context, key, dst string) (err error) {
	defer func() { metrics.RecordDownload("bucket", key, err) }()

	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(key)),
	})
	if err != nil {
		return fmt.Errorf("bucket: get %s: %w", key, err)
	}
	defer out.Body.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("bucket: create dir for %s: %w", dst, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".pull-*")
	if err != nil {
		return fmt.Errorf("bucket: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, out.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("bucket: read %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("bucket: move %s into place: %w", dst, err)
	}

	b.logger.Info("[bucket] Pulled %s (%d bytes) to %s", key, n, dst)
	return nil
}

// Publish overwrites key with blob.
func (b *Bucket) Publish(ctx context.Context, key string, blob []byte) error {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(b.key(key)),
		Body:        bytes.NewReader(blob),
		ContentType: aws.String(contentType(key)),
	})
	if err != nil {
		b.logger.Error("[bucket] publish %s failed: %v", key, err)
		return fmt.Errorf("bucket: put %s: %w", key, err)
	}
	b.logger.Info("[bucket] Published %s (%d bytes)", key, len(blob))
	return nil
}

// List returns the keys under the configured prefix, relative to it.
func (b *Bucket) List(ctx context.Context) ([]string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(b.prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("bucket: list: %w", err)
		}
		for _, obj := range page.Contents {
			k := strings.TrimPrefix(aws.ToString(obj.Key), b.prefix)
			keys = append(keys, strings.TrimPrefix(k, "/"))
		}
	}
	return keys, nil
}

func contentType(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".html", ".htm":
		return "text/html; charset=utf-8"
	case ".csv":
		return "text/csv"
	case ".xls":
		return "application/vnd.ms-excel"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/octet-stream"
}
