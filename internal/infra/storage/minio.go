package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Store archives uploaded documents in a MinIO/S3 bucket.
type Store struct {
	client     *minio.Client
	bucketName string
	region     string
	publicBase string
}

// Options koneksi MinIO
type Options struct {
	Endpoint   string
	Region     string
	Bucket     string
	AccessKey  string
	SecretKey  string
	UseSSL     bool
	PublicBase string // optional URL prefix used instead of the endpoint
}

// New buat koneksi MinIO
func New(ctx context.Context, opts Options) (*Store, error) {
	cli, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, err
	}

	// pastikan bucket ada
	exists, err := cli.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := cli.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{Region: opts.Region}); err != nil {
			return nil, err
		}
	}

	base := opts.PublicBase
	if base == "" {
		base = cli.EndpointURL().String()
	}
	return &Store{client: cli, bucketName: opts.Bucket, region: opts.Region, publicBase: base}, nil
}

// Put implementasi analysis.DocumentStore
func (s *Store) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, s.bucketName, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	// URL publik (jika bucket public), kalau private harus generate presigned URL
	return ObjectURL(s.publicBase, s.bucketName, key), nil
}

// ObjectURL joins base, bucket and key into a path-style object URL.
func ObjectURL(base, bucket, key string) string {
	for len(base) > 0 && base[len(base)-1] == '/' {
		base = base[:len(base)-1]
	}
	return fmt.Sprintf("%s/%s/%s", base, bucket, key)
}

// Ping checks the bucket is still reachable.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucketName)
	return err
}
