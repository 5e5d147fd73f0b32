package service

import (
	"context"

	"github.com/skip2/go-qrcode"
)

const (
	qrcodeMinSize     = 128
	qrcodeMaxSize     = 2048
	qrcodeDefaultSize = 512
)

// QRCodeService 生成卡片领取二维码
type QRCodeService struct {
	cards *CardService
	size  int
}

// NewQRCodeService 创建二维码服务
func NewQRCodeService(cards *CardService, size int) *QRCodeService {
	return &QRCodeService{cards: cards, size: clampQRCodeSize(size)}
}

// CardPNG 返回卡片领取地址的 PNG 二维码，size<=0 时使用配置值
func (s *QRCodeService) CardPNG(ctx context.Context, cardID uint, size int) ([]byte, string, error) {
	detail, err := s.cards.Get(ctx, cardID)
	if err != nil {
		return nil, "", err
	}
	if size <= 0 {
		size = s.size
	}
	png, err := qrcode.Encode(detail.ClaimURL, qrcode.Medium, clampQRCodeSize(size))
	if err != nil {
		return nil, "", err
	}
	return png, detail.Code, nil
}

func clampQRCodeSize(size int) int {
	switch {
	case size <= 0:
		return qrcodeDefaultSize
	case size < qrcodeMinSize:
		return qrcodeMinSize
	case size > qrcodeMaxSize:
		return qrcodeMaxSize
	default:
		return size
	}
}
