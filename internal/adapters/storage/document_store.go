package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/architeacher/svc-visa-processing/internal/config"
	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
)

type (
	s3API interface {
		PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	}

	// S3DocumentStore keeps generated documents in the S3 compatible Supabase storage.
	S3DocumentStore struct {
		client s3API
		config config.DocumentStorageConfig
		logger infrastructure.Logger
	}
)

func NewS3DocumentStore(client s3API, cfg config.DocumentStorageConfig, logger infrastructure.Logger) *S3DocumentStore {
	return &S3DocumentStore{
		client: client,
		config: cfg,
		logger: logger.Component("document-store"),
	}
}

// Upload stores body under key and returns its public URL.
func (s *S3DocumentStore) Upload(ctx context.Context, key, contentType string, body []byte) (string, error) {
	key = strings.TrimPrefix(key, "/")
	if key == "" {
		return "", domain.PermanentJobError("INVALID_DOCUMENT_KEY", "document key must not be empty", nil)
	}

	if s.config.UploadTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, s.config.UploadTimeout)
		defer cancel()
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.config.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", domain.RetryableJobError("DOCUMENT_UPLOAD_FAILED", fmt.Sprintf("failed to upload %s", key), err)
	}

	location, err := s.PublicURL(key)
	if err != nil {
		return "", err
	}

	s.logger.Info().Str("bucket", s.config.Bucket).Str("key", key).Int("bytes", len(body)).Msg("document uploaded")

	return location, nil
}

// PublicURL is <public base>/<bucket>/<key> with every key segment escaped.
func (s *S3DocumentStore) PublicURL(key string) (string, error) {
	segments := strings.Split(strings.TrimPrefix(key, "/"), "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}

	location, err := url.JoinPath(s.config.PublicBaseURL, append([]string{s.config.Bucket}, segments...)...)
	if err != nil {
		return "", fmt.Errorf("invalid public base url %q: %w", s.config.PublicBaseURL, err)
	}

	return location, nil
}
