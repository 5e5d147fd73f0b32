// Package storage 保存卡片 Logo 等上传文件，支持本地磁盘与 S3。
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/qrewards/qrewards/internal/config"
	"github.com/qrewards/qrewards/internal/constants"
)

// Store 对象存储
type Store interface {
	Driver() string
	// Put 写入对象并返回可公开访问的 URL（本地驱动返回相对路径）
	Put(ctx context.Context, key string, body io.ReadSeeker, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	// Check 检查存储可用性
	Check(ctx context.Context) error
}

// New 按配置创建存储，s3 驱动需要传入客户端
func New(cfg config.StorageConfig, region string, s3Client S3API) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", constants.StorageDriverLocal:
		return NewLocalStore(cfg.Local.Dir, cfg.Local.URLPrefix), nil
	case constants.StorageDriverS3:
		if s3Client == nil {
			return nil, fmt.Errorf("s3 storage requires an s3 client")
		}
		if strings.TrimSpace(cfg.S3.Bucket) == "" {
			return nil, fmt.Errorf("storage.s3.bucket is required")
		}
		return NewS3Store(s3Client, cfg.S3, region), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}

func cleanKey(key string) (string, error) {
	key = strings.TrimLeft(strings.ReplaceAll(strings.TrimSpace(key), "\\", "/"), "/")
	if key == "" {
		return "", fmt.Errorf("empty object key")
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return "", fmt.Errorf("invalid object key: %s", key)
		}
	}
	return key, nil
}
