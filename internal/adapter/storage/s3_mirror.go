package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/rl1809/anemia-history/internal/core/domain"
)

type S3Mirror struct {
	client *s3.Client
	bucket string
	key    string
}

func NewS3Mirror(client *s3.Client, bucket, key string) *S3Mirror {
	return &S3Mirror{client: client, bucket: bucket, key: key}
}

// NewS3Client builds a path-style client from the default AWS config chain.
// endpoint overrides the service endpoint, e.g. for LocalStack.
func NewS3Client(ctx context.Context, endpoint string) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  cfg.Credentials,
		HTTPClient:   cfg.HTTPClient,
		BaseEndpoint: cfg.BaseEndpoint,
		UsePathStyle: true,
	}
	if endpoint != "" {
		opts.BaseEndpoint = aws.String(endpoint)
	}
	return s3.New(opts), nil
}

func (m *S3Mirror) Load(ctx context.Context) ([]domain.Record, bool, error) {
	out, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(m.key),
	})
	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get s3://%s/%s: %w", m.bucket, m.key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, false, fmt.Errorf("read s3://%s/%s: %w", m.bucket, m.key, err)
	}

	records, err := decodeHistory(data)
	if err != nil {
		return nil, true, fmt.Errorf("s3://%s/%s: %w", m.bucket, m.key, err)
	}
	return records, true, nil
}

func (m *S3Mirror) Save(ctx context.Context, records []domain.Record) error {
	data, err := encodeHistory(records)
	if err != nil {
		return err
	}

	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.bucket),
		Key:         aws.String(m.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		ACL:         types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", m.bucket, m.key, err)
	}
	return nil
}
