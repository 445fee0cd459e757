// Package s3blob keeps complaint item payloads in an S3 bucket instead of the
// local database.
package s3blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/de-tools/site-report/pkg/models/store"
	"github.com/de-tools/site-report/pkg/store/blob"
)

// API is the part of the S3 client the store needs.
type API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type Config struct {
	Bucket string
	Prefix string
}

type s3Store struct {
	client API
	config Config
}

func NewStore(client API, config Config) (blob.Store, error) {
	if client == nil {
		return nil, fmt.Errorf("s3 client is nil")
	}
	if config.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	return &s3Store{client: client, config: config}, nil
}

func NewFromConfig(cfg aws.Config, config Config) (blob.Store, error) {
	return NewStore(s3.NewFromConfig(cfg), config)
}

func (s *s3Store) key(id string) string {
	return path.Join(s.config.Prefix, "blobs", id)
}

func (s *s3Store) Get(ctx context.Context, id string) (*store.Blob, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, nil
		}
		return nil, fmt.Errorf("get object %s: %w", id, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", id, err)
	}

	return &store.Blob{
		ID:          id,
		ContentType: aws.ToString(out.ContentType),
		Data:        data,
	}, nil
}

func (s *s3Store) Put(ctx context.Context, b *store.Blob) error {
	if b == nil || b.ID == "" {
		return fmt.Errorf("blob id is required")
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.config.Bucket),
		Key:           aws.String(s.key(b.ID)),
		Body:          bytes.NewReader(b.Data),
		ContentLength: aws.Int64(int64(len(b.Data))),
	}
	if b.ContentType != "" {
		input.ContentType = aws.String(b.ContentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("put object %s: %w", b.ID, err)
	}
	return nil
}

func (s *s3Store) Delete(ctx context.Context, id string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", id, err)
	}
	return nil
}
