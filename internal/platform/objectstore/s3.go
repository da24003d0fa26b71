// Package objectstore copies backup files to S3-compatible storage.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Config selects the bucket and optional endpoint override (MinIO and
// similar need path-style addressing).
type Config struct {
	Bucket   string
	Prefix   string
	Endpoint string
}

// putObjectAPI is the part of *s3.Client the uploader needs.
type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader satisfies db.Uploader.
type S3Uploader struct {
	client putObjectAPI
	bucket string
	prefix string
	logger zerolog.Logger
	now    func() time.Time
}

// NewS3Uploader builds a client from the default AWS credential chain.
func NewS3Uploader(ctx context.Context, cfg Config, logger zerolog.Logger) (*S3Uploader, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("objectstore: bucket is required")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("objectstore: load aws config: %w", err)
	}

	endpoint := awsCfg.BaseEndpoint
	if cfg.Endpoint != "" {
		endpoint = aws.String(cfg.Endpoint)
	}
	client := s3.New(s3.Options{
		Region:       awsCfg.Region,
		Credentials:  awsCfg.Credentials,
		HTTPClient:   awsCfg.HTTPClient,
		BaseEndpoint: endpoint,
		UsePathStyle: endpoint != nil,
	})
	return newUploader(client, cfg, logger), nil
}

func newUploader(client putObjectAPI, cfg Config, logger zerolog.Logger) *S3Uploader {
	return &S3Uploader{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		logger: logger,
		now:    time.Now,
	}
}

// Key returns the object key for a backup file name. Keys are grouped by
// day and carry a random suffix so retried uploads never overwrite.
func (u *S3Uploader) Key(name string) string {
	day := u.now().UTC().Format("2006/01/02")
	return path.Join(u.prefix, day, uuid.NewString()[:8]+"-"+path.Base(name))
}

// Upload streams r to the bucket under Key(name).
func (u *S3Uploader) Upload(ctx context.Context, name string, r io.Reader) error {
	key := u.Key(name)
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String("application/vnd.sqlite3"),
		ACL:         types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return fmt.Errorf("objectstore: put %s: %w", key, err)
	}
	u.logger.Info().Str("bucket", u.bucket).Str("key", key).Msg("backup uploaded")
	return nil
}
