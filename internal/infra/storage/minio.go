package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/jingelab/pathreview/internal/domain/review"
)

// MinioStore implements review.ArtifactStore over an S3-compatible bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinio connects to the object store. The bucket must already exist:
// documents and their artifacts are provisioned out-of-band.
func NewMinio(ctx context.Context, endpoint, region, bucket, accessKey, secretKey string, useSSL bool) (*MinioStore, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, err
	}

	exists, err := cli.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("bucket %q does not exist", bucket)
	}

	return &MinioStore{client: cli, bucket: bucket}, nil
}

func (s *MinioStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

// Stage downloads the blob into dir under a uuid-suffixed name, so two
// in-flight requests for the same filename never share a scratch file.
func (s *MinioStore) Stage(ctx context.Context, key, dir string) (review.Staged, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return review.Staged{}, err
	}
	dst := filepath.Join(dir, uuid.NewString()+"-"+filepath.Base(key))
	if err := s.client.FGetObject(ctx, s.bucket, key, dst, minio.GetObjectOptions{}); err != nil {
		return review.Staged{}, mapMinioErr(err, key)
	}
	return review.Staged{Path: dst, Transient: true}, nil
}

func (s *MinioStore) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapMinioErr(err, key)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, mapMinioErr(err, key)
	}
	return data, nil
}

// Put issues one PutObject for the whole payload, so readers observe either
// the previous blob or the new one, never a torn write.
func (s *MinioStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	return err
}

// Check reports whether the bucket is reachable.
func (s *MinioStore) Check(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("bucket %q does not exist", s.bucket)
	}
	return nil
}

func mapMinioErr(err error, key string) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", review.ErrNotFound, key)
	}
	return err
}
