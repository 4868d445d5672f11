package media

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/url"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	apperrors "chatlink/pkg/errors"
)

// Config holds the object storage settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// URLTTL bounds presigned download links. Zero means one week, the
	// longest MinIO allows.
	URLTTL time.Duration
}

// Service stores conversation attachments in an S3-compatible bucket and
// hands back download URLs to embed in messages. Object keys follow
// {chatRoomId}/{kind}s/{fileName}, so a conversation's media is one prefix.
type Service struct {
	client  *minio.Client
	bucket  string
	urlTTL  time.Duration
	breaker *breaker
}

// NewService connects to the object store and ensures the bucket exists.
func NewService(ctx context.Context, cfg Config) (*Service, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %q: %w", cfg.Bucket, err)
		}
	}

	ttl := cfg.URLTTL
	if ttl <= 0 || ttl > 7*24*time.Hour {
		ttl = 7 * 24 * time.Hour
	}
	return &Service{
		client:  client,
		bucket:  cfg.Bucket,
		urlTTL:  ttl,
		breaker: newBreaker(),
	}, nil
}

// Upload stores the blob and returns a download URL for it. Implements the
// uploader the chat service expects.
func (s *Service) Upload(ctx context.Context, objectKey string, r io.Reader, size int64) (string, error) {
	if err := s.breaker.allow(); err != nil {
		return "", apperrors.StorageError(err)
	}

	opts := minio.PutObjectOptions{ContentType: contentTypeFor(objectKey)}
	_, err := s.client.PutObject(ctx, s.bucket, objectKey, r, size, opts)
	s.breaker.record(err)
	if err != nil {
		return "", apperrors.StorageError(fmt.Errorf("upload of %q failed: %w", objectKey, err))
	}

	return s.DownloadURL(ctx, objectKey)
}

// DownloadURL returns a presigned GET link for an already stored object.
func (s *Service) DownloadURL(ctx context.Context, objectKey string) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectKey, s.urlTTL, url.Values{})
	if err != nil {
		return "", apperrors.StorageError(fmt.Errorf("failed to sign url for %q: %w", objectKey, err))
	}
	return u.String(), nil
}

// Remove deletes a stored object.
func (s *Service) Remove(ctx context.Context, objectKey string) error {
	if err := s.breaker.allow(); err != nil {
		return apperrors.StorageError(err)
	}
	err := s.client.RemoveObject(ctx, s.bucket, objectKey, minio.RemoveObjectOptions{})
	s.breaker.record(err)
	if err != nil {
		return apperrors.StorageError(fmt.Errorf("failed to remove %q: %w", objectKey, err))
	}
	return nil
}

func contentTypeFor(objectKey string) string {
	if ct := mime.TypeByExtension(path.Ext(objectKey)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
