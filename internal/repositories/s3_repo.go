package repositories

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/prudhvinik1/equiptrack/internal/models"
)

const DefaultObjectKey = "equipment_data.json"

// S3EquipmentRepository keeps the payload as one object in an S3 compatible bucket.
type S3EquipmentRepository struct {
	client *minio.Client
	bucket string
	key    string
}

func NewS3EquipmentRepository(client *minio.Client, bucket, key string) *S3EquipmentRepository {
	if key == "" {
		key = DefaultObjectKey
	}
	return &S3EquipmentRepository{client: client, bucket: bucket, key: key}
}

// EnsureBucket creates the bucket if it is missing.
func (r *S3EquipmentRepository) EnsureBucket(ctx context.Context) error {
	exists, err := r.client.BucketExists(ctx, r.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := r.client.MakeBucket(ctx, r.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

func (r *S3EquipmentRepository) Save(ctx context.Context, payload []byte) error {
	_, err := r.client.PutObject(ctx, r.bucket, r.key, bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("failed to put equipment object: %w", err)
	}
	return nil
}

func (r *S3EquipmentRepository) Load(ctx context.Context) (*models.EquipmentSnapshot, error) {
	obj, err := r.client.GetObject(ctx, r.bucket, r.key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapS3Error(err)
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		return nil, mapS3Error(err)
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, mapS3Error(err)
	}

	return &models.EquipmentSnapshot{
		Payload:   data,
		UpdatedAt: info.LastModified,
	}, nil
}

func mapS3Error(err error) error {
	if isNoSuchKey(err) {
		return ErrNotFound
	}
	return fmt.Errorf("failed to get equipment object: %w", err)
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
