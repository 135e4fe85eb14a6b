// Package s3 stores uploaded documents in an S3 compatible bucket.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/custodia-labs/clever-documents/internal/core/domain"
	"github.com/custodia-labs/clever-documents/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.BlobStore = (*Store)(nil)

// Scheme prefixes every location this store hands out.
const Scheme = "s3://"

// Config holds bucket and credential settings.
type Config struct {
	Bucket string
	Prefix string
	Region string

	// Endpoint targets S3 compatible servers such as MinIO.
	Endpoint string

	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// objectAPI is the subset of *s3.Client the store uses.
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Store is a BlobStore over one bucket.
type Store struct {
	client objectAPI
	bucket string
	prefix string
}

// New builds an S3 client from cfg.
func New(cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: s3 bucket is required", domain.ErrInvalidInput)
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	opts := s3.Options{
		Region:                     cfg.Region,
		RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
		opts.UsePathStyle = true
	}
	if cfg.AccessKeyID != "" {
		creds := aws.Credentials{
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
			SessionToken:    cfg.SessionToken,
			Source:          "clever config",
		}
		opts.Credentials = aws.NewCredentialsCache(aws.CredentialsProviderFunc(
			func(context.Context) (aws.Credentials, error) { return creds, nil }))
	}

	return newStore(s3.New(opts), cfg.Bucket, cfg.Prefix), nil
}

func newStore(client objectAPI, bucket, prefix string) *Store {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Store{client: client, bucket: bucket, prefix: prefix}
}

// Put uploads data under <prefix><documentID>, replacing any previous object.
func (s *Store) Put(ctx context.Context, documentID string, data []byte) (string, error) {
	if documentID == "" {
		return "", fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}
	key := s.prefix + documentID

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("%w: put s3://%s/%s: %w", domain.ErrStorageUnavailable, s.bucket, key, err)
	}
	return Scheme + s.bucket + "/" + key, nil
}

// Get downloads the object a location refers to.
func (s *Store) Get(ctx context.Context, location string) ([]byte, error) {
	bucket, key, err := ParseLocation(location)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, location)
		}
		return nil, fmt.Errorf("%w: get %s: %w", domain.ErrStorageUnavailable, location, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrStorageUnavailable, location, err)
	}
	return data, nil
}

// ParseLocation splits "s3://bucket/key" into its parts.
func ParseLocation(location string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(location, Scheme)
	if !ok {
		return "", "", fmt.Errorf("%w: not an s3 location: %s", domain.ErrInvalidInput, location)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: malformed s3 location: %s", domain.ErrInvalidInput, location)
	}
	return bucket, key, nil
}
