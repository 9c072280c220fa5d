// Package uploads stores customer review images in S3-compatible object
// storage.
package uploads

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/teamace/ballshop/pkg/config"
)

// ObjectStore is the interface handlers depend on, so tests can stub the
// bucket.
type ObjectStore interface {
	// StoreReviewImage uploads the image and returns its object key.
	StoreReviewImage(ctx context.Context, nickname string, reviewID int64, filename string, body io.Reader, contentType string) (string, error)

	// Delete removes an object by key.
	Delete(ctx context.Context, key string) error
}

// S3Store implements ObjectStore against S3 or MinIO.
type S3Store struct {
	client *s3.Client
	bucket string
}

// NewS3Store builds the client. Static credentials are used when configured,
// otherwise the default AWS credential chain applies.
func NewS3Store(ctx context.Context, cfg config.S3Config) (*S3Store, error) {
	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.Region))
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if cfg.UsePathStyle {
			o.UsePathStyle = true
		}
	})

	return &S3Store{client: client, bucket: cfg.Bucket}, nil
}

// StoreReviewImage uploads a review image under a per-user prefix. A UUID in
// the key keeps repeat uploads of the same filename from colliding.
func (s *S3Store) StoreReviewImage(ctx context.Context, nickname string, reviewID int64, filename string, body io.Reader, contentType string) (string, error) {
	key := ReviewImageKey(nickname, reviewID, filename)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload review image: %w", err)
	}
	return key, nil
}

// Delete removes an object by key.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// ReviewImageKey builds the object key for a review image:
// {nickname}/reviews/{id}/{uuid}_{filename}. The filename is sanitized to
// its base name so path traversal in an upload never escapes the prefix.
func ReviewImageKey(nickname string, reviewID int64, filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "image"
	}
	return fmt.Sprintf("%s/reviews/%d/%s_%s", nickname, reviewID, uuid.NewString(), base)
}
