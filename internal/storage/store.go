// Package storage uploads course assets to an S3-compatible object store
// and builds their public URLs.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/iliyamo/learntrack/internal/config"
)

// ErrUnknownKind is returned for an asset kind with no bucket.
var ErrUnknownKind = errors.New("storage: unknown file type")

// ErrTooLarge is returned when an upload exceeds the configured limit.
var ErrTooLarge = errors.New("storage: file too large")

// ObjectStore is what handlers need from the object store.
type ObjectStore interface {
	Bucket(kind string) (string, error)
	Upload(ctx context.Context, bucket, key string, body io.Reader, contentType string) (string, error)
	PublicURL(bucket, key string) string
}

// S3Store implements ObjectStore with aws-sdk-go-v2.
type S3Store struct {
	client     *s3.Client
	publicBase string
	buckets    map[string]string
	maxSize    int64
}

// NewS3Store builds a path-style client for the configured endpoint.
// maxSize of 0 disables the size check.
func NewS3Store(cfg config.StorageConfig, maxSize int64) *S3Store {
	creds := aws.Credentials{AccessKeyID: cfg.AccessKey, SecretAccessKey: cfg.SecretKey, Source: "learntrack"}
	client := s3.New(s3.Options{
		Region:       cfg.Region,
		BaseEndpoint: aws.String(cfg.Endpoint),
		UsePathStyle: true,
		Credentials: aws.NewCredentialsCache(aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return creds, nil
		})),
	})
	return &S3Store{client: client, publicBase: cfg.PublicBaseURL, buckets: cfg.Buckets, maxSize: maxSize}
}

// Bucket maps an asset kind (video, document, thumbnail) to its bucket.
func (s *S3Store) Bucket(kind string) (string, error) {
	b, ok := s.buckets[kind]
	if !ok || b == "" {
		return "", ErrUnknownKind
	}
	return b, nil
}

// Upload stores body under bucket/key and returns the key.  The body is
// buffered so the SDK can compute its checksum on a seekable reader.
func (s *S3Store) Upload(ctx context.Context, bucket, key string, body io.Reader, contentType string) (string, error) {
	var buf bytes.Buffer
	r := body
	if s.maxSize > 0 {
		r = io.LimitReader(body, s.maxSize+1)
	}
	n, err := io.Copy(&buf, r)
	if err != nil {
		return "", err
	}
	if s.maxSize > 0 && n > s.maxSize {
		return "", ErrTooLarge
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload failed: %w", err)
	}
	return key, nil
}

// PublicURL returns the public address of bucket/key.
func (s *S3Store) PublicURL(bucket, key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return s.publicBase + "/" + url.PathEscape(bucket) + "/" + strings.Join(parts, "/")
}

// ObjectKey names an upload for courseID: `<courseID>/<uuid>-<name>`.
// Directory components of name are dropped.
func ObjectKey(courseID, name string) string {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	if base == "." || base == "/" {
		base = "file"
	}
	return courseID + "/" + uuid.NewString() + "-" + base
}
