package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/qrewards/qrewards/internal/constants"
)

// LocalStore 本地磁盘存储，文件由 HTTP 静态路由对外提供
type LocalStore struct {
	dir       string
	urlPrefix string
}

// NewLocalStore 创建本地存储
func NewLocalStore(dir, urlPrefix string) *LocalStore {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = "uploads"
	}
	urlPrefix = "/" + strings.Trim(strings.TrimSpace(urlPrefix), "/")
	if urlPrefix == "/" {
		urlPrefix = "/uploads"
	}
	return &LocalStore{dir: dir, urlPrefix: urlPrefix}
}

// Driver 驱动名称
func (s *LocalStore) Driver() string {
	return constants.StorageDriverLocal
}

// Dir 本地根目录
func (s *LocalStore) Dir() string {
	return s.dir
}

// URLPrefix 静态访问前缀
func (s *LocalStore) URLPrefix() string {
	return s.urlPrefix
}

// Put 写入文件
func (s *LocalStore) Put(ctx context.Context, key string, body io.ReadSeeker, size int64, contentType string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	savePath := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(savePath), 0o755); err != nil {
		return "", err
	}
	dst, err := os.Create(savePath)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, body); err != nil {
		_ = dst.Close()
		return "", err
	}
	if err := dst.Close(); err != nil {
		return "", err
	}
	return path.Join(s.urlPrefix, key), nil
}

// Delete 删除文件，不存在时忽略
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.dir, filepath.FromSlash(key)))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Check 确认目录可写
func (s *LocalStore) Check(ctx context.Context) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	probe, err := os.CreateTemp(s.dir, ".probe-*")
	if err != nil {
		return fmt.Errorf("storage dir not writable: %w", err)
	}
	name := probe.Name()
	_ = probe.Close()
	return os.Remove(name)
}
