package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/qrewards/qrewards/internal/config"
	"github.com/qrewards/qrewards/internal/storage"
)

func buildUploadFileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file failed: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write form file failed: %v", err)
	}
	_ = writer.Close()

	req := httptest.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if err := req.ParseMultipartForm(1 << 20); err != nil {
		t.Fatalf("parse multipart failed: %v", err)
	}
	return req.MultipartForm.File["file"][0]
}

func encodeTestPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	buf := &bytes.Buffer{}
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("encode png failed: %v", err)
	}
	return buf.Bytes()
}

func newUploadServiceForTest(t *testing.T) (*UploadService, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.UploadConfig{
		MaxSize:           1 << 20,
		AllowedTypes:      []string{"image/png", "image/jpeg"},
		AllowedExtensions: []string{".png", "jpg"},
		MaxWidth:          64,
		MaxHeight:         64,
	}
	return NewUploadService(cfg, storage.NewLocalStore(dir, "/uploads")), dir
}

func TestUploadServiceSaveLogo(t *testing.T) {
	svc, dir := newUploadServiceForTest(t)

	url, err := svc.SaveLogo(context.Background(), buildUploadFileHeader(t, "logo.PNG", encodeTestPNG(t, 32, 32)))
	if err != nil {
		t.Fatalf("save logo failed: %v", err)
	}
	if !strings.HasPrefix(url, "/uploads/logo/") || !strings.HasSuffix(url, ".png") {
		t.Fatalf("unexpected url: %s", url)
	}
	saved := filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(url, "/uploads/")))
	if info, err := os.Stat(saved); err != nil || info.Size() == 0 {
		t.Fatalf("saved file missing: %v", err)
	}
}

func TestUploadServiceRejects(t *testing.T) {
	svc, _ := newUploadServiceForTest(t)
	cases := []struct {
		name     string
		filename string
		content  []byte
		want     error
	}{
		{name: "extension", filename: "logo.gif", content: encodeTestPNG(t, 8, 8), want: ErrUploadTypeNotAllowed},
		{name: "no_extension", filename: "logo", content: encodeTestPNG(t, 8, 8), want: ErrUploadTypeNotAllowed},
		{name: "content_type", filename: "logo.png", content: []byte("plain text pretending to be png"), want: ErrUploadTypeNotAllowed},
		{name: "oversize", filename: "logo.png", content: encodeTestPNG(t, 65, 10), want: ErrUploadImageOversize},
		{name: "too_large", filename: "logo.png", content: bytes.Repeat([]byte{0}, (1<<20)+1), want: ErrUploadTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.SaveLogo(context.Background(), buildUploadFileHeader(t, tc.filename, tc.content))
			if !errors.Is(err, tc.want) {
				t.Fatalf("want %v got %v", tc.want, err)
			}
		})
	}
}

func TestUploadServiceExtensionWithoutDot(t *testing.T) {
	svc, _ := newUploadServiceForTest(t)
	// 配置里写的是 "jpg"，内容实际是 png，类型白名单同样允许
	url, err := svc.SaveLogo(context.Background(), buildUploadFileHeader(t, "logo.JPG", encodeTestPNG(t, 16, 16)))
	if err != nil {
		t.Fatalf("save logo failed: %v", err)
	}
	if !strings.HasSuffix(url, ".jpg") {
		t.Fatalf("extension should be lower-cased, got %s", url)
	}
}
