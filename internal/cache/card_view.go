package cache

import (
	"context"
	"strings"
	"time"

	"github.com/qrewards/qrewards/internal/models"
)

func cardViewKey(code string) string {
	return "card:view:" + strings.TrimSpace(code)
}

// GetCardView 读取卡片描述信息缓存
// 缓存中的 quantity 不可用于领取判定，也不用于展示
func GetCardView(ctx context.Context, code string) (*models.Card, bool, error) {
	if strings.TrimSpace(code) == "" {
		return nil, false, nil
	}
	var card models.Card
	hit, err := GetJSON(ctx, cardViewKey(code), &card)
	if err != nil || !hit {
		return nil, hit, err
	}
	return &card, true, nil
}

// SetCardView 写入卡片描述信息缓存
func SetCardView(ctx context.Context, card *models.Card, ttl time.Duration) error {
	if card == nil || card.Code == "" || ttl <= 0 {
		return nil
	}
	snapshot := *card
	snapshot.Quantity = 0
	return SetJSON(ctx, cardViewKey(card.Code), &snapshot, ttl)
}

// DelCardView 删除卡片描述信息缓存
func DelCardView(ctx context.Context, code string) error {
	if strings.TrimSpace(code) == "" {
		return nil
	}
	return Del(ctx, cardViewKey(code))
}
