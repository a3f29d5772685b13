// Package s3store is an AWS S3-backed implementation of storage.Store,
// grounded on mudsahni-satvo-backend's internal/storage/s3 client:
// aws-sdk-go-v2 config loading, a manager.Uploader for Put, and the
// plain s3.Client for Get/Exists (HeadObject).
package s3store

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/ledgerpipe/ledgerpipe/internal/storage"
)

// Store is an S3-backed object store.
type Store struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
}

// New builds a Store for bucket in region using the default AWS
// credential chain.
func New(ctx context.Context, bucket, region string) (*Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("s3store: load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg)
	return &Store{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
	}, nil
}

var _ storage.Store = (*Store)(nil)

// Put uploads the local file at localPath to logicalPath (used as the
// S3 object key) and returns the resulting S3 URI.
func (s *Store) Put(ctx context.Context, localPath, logicalPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("s3store: open %s: %w", localPath, err)
	}
	defer f.Close()

	result, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(logicalPath),
		Body:   f,
	})
	if err != nil {
		return "", fmt.Errorf("s3store: upload %s: %w", logicalPath, err)
	}
	return result.Location, nil
}

// Get downloads logicalPath to a local temp file and returns its path.
func (s *Store) Get(ctx context.Context, logicalPath string) (string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(logicalPath),
	})
	if err != nil {
		return "", fmt.Errorf("s3store: get %s: %w", logicalPath, err)
	}
	defer out.Body.Close()

	tmp, err := os.CreateTemp("", "ledgerpipe-*")
	if err != nil {
		return "", fmt.Errorf("s3store: create temp file: %w", err)
	}
	defer tmp.Close()

	if _, err := tmp.ReadFrom(out.Body); err != nil {
		return "", fmt.Errorf("s3store: write temp file for %s: %w", logicalPath, err)
	}
	return tmp.Name(), nil
}

// Exists reports whether logicalPath has been written, via HeadObject.
func (s *Store) Exists(ctx context.Context, logicalPath string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(logicalPath),
	})
	if err == nil {
		return true, nil
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return false, nil
	}
	return false, fmt.Errorf("s3store: head %s: %w", logicalPath, err)
}
