package service

import (
	"context"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/qrewards/qrewards/internal/config"
	"github.com/qrewards/qrewards/internal/storage"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/google/uuid"
	_ "golang.org/x/image/webp"
)

// sniffLen http.DetectContentType 最多只看前 512 字节
const sniffLen = 512

// UploadService 卡片 logo 上传，文件落到 storage.Store（本地目录或 S3）
type UploadService struct {
	cfg   *config.UploadConfig
	store storage.Store
}

func NewUploadService(cfg *config.UploadConfig, store storage.Store) *UploadService {
	return &UploadService{cfg: cfg, store: store}
}

// SaveLogo 依次校验大小、扩展名、内容类型与图片尺寸，通过后写入存储并返回访问 URL
// 对象键为 logo/<年>/<月>/<uuid><ext>
func (s *UploadService) SaveLogo(ctx context.Context, file *multipart.FileHeader) (string, error) {
	if s.cfg.MaxSize > 0 && file.Size > s.cfg.MaxSize {
		return "", fmt.Errorf("%w（最大 %d MB）", ErrUploadTooLarge, s.cfg.MaxSize>>20)
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !s.extensionAllowed(ext) {
		return "", fmt.Errorf("%w: %q", ErrUploadTypeNotAllowed, ext)
	}

	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	contentType, err := s.inspect(src)
	if err != nil {
		return "", err
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	now := time.Now().UTC()
	key := path.Join("logo", now.Format("2006"), now.Format("01"), uuid.NewString()+ext)
	return s.store.Put(ctx, key, src, file.Size, contentType)
}

func (s *UploadService) extensionAllowed(ext string) bool {
	if len(s.cfg.AllowedExtensions) == 0 {
		return true
	}
	if ext == "" {
		return false
	}
	return slices.ContainsFunc(s.cfg.AllowedExtensions, func(allowed string) bool {
		allowed = strings.TrimSpace(allowed)
		return allowed != "" && strings.EqualFold("."+strings.TrimPrefix(allowed, "."), ext)
	})
}

// inspect 嗅探 MIME 类型，图片再解码头部检查宽高
func (s *UploadService) inspect(src io.ReadSeeker) (string, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(src, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", err
	}
	contentType := http.DetectContentType(head[:n])
	if len(s.cfg.AllowedTypes) > 0 && !slices.ContainsFunc(s.cfg.AllowedTypes, func(t string) bool {
		return strings.EqualFold(strings.TrimSpace(t), contentType)
	}) {
		return "", fmt.Errorf("%w: %s", ErrUploadTypeNotAllowed, contentType)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return contentType, nil
	}

	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	// webp 由 golang.org/x/image/webp 注册解码器
	dim, _, err := image.DecodeConfig(src)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadImageUnreadable, err)
	}
	if s.cfg.MaxWidth > 0 && dim.Width > s.cfg.MaxWidth {
		return "", fmt.Errorf("%w（宽度最大 %d）", ErrUploadImageOversize, s.cfg.MaxWidth)
	}
	if s.cfg.MaxHeight > 0 && dim.Height > s.cfg.MaxHeight {
		return "", fmt.Errorf("%w（高度最大 %d）", ErrUploadImageOversize, s.cfg.MaxHeight)
	}
	return contentType, nil
}
