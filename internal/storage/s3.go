package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/qrewards/qrewards/internal/config"
	"github.com/qrewards/qrewards/internal/constants"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API S3 存储用到的接口子集
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Store S3 对象存储
type S3Store struct {
	client        S3API
	bucket        string
	prefix        string
	publicBaseURL string
	acl           string
}

// NewS3Store 创建 S3 存储
func NewS3Store(client S3API, cfg config.S3StorageConfig, region string) *S3Store {
	bucket := strings.TrimSpace(cfg.Bucket)
	base := strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/")
	if base == "" {
		region = strings.TrimSpace(region)
		if region == "" {
			region = "us-east-1"
		}
		base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}
	return &S3Store{
		client:        client,
		bucket:        bucket,
		prefix:        strings.Trim(strings.TrimSpace(cfg.Prefix), "/"),
		publicBaseURL: base,
		acl:           strings.TrimSpace(cfg.ACL),
	}
}

// Driver 驱动名称
func (s *S3Store) Driver() string {
	return constants.StorageDriverS3
}

func (s *S3Store) objectKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return path.Join(s.prefix, key)
}

// Put 上传对象
func (s *S3Store) Put(ctx context.Context, key string, body io.ReadSeeker, size int64, contentType string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	objectKey := s.objectKey(key)
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(objectKey),
		Body:          body,
		ContentType:   aws.String(contentType),
		CacheControl:  aws.String("public, max-age=31536000, immutable"),
		ContentLength: aws.Int64(size),
	}
	if s.acl != "" {
		input.ACL = types.ObjectCannedACL(s.acl)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("put s3 object %s: %w", objectKey, err)
	}
	return s.publicBaseURL + "/" + objectKey, nil
}

// Delete 删除对象
func (s *S3Store) Delete(ctx context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	return err
}

// Check 检查 bucket 可访问
func (s *S3Store) Check(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	return err
}
