package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// 同一联系方式对同一卡片的短时重复提交保护，不参与库存判定
func claimCooldownKey(cardID uint, contact string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(contact))))
	return fmt.Sprintf("claim:cooldown:%d:%s", cardID, hex.EncodeToString(sum[:8]))
}

// AcquireClaimCooldown 抢占领取冷却位，返回 false 表示冷却中
// Redis 未启用或 ttl<=0 时直接放行
func AcquireClaimCooldown(ctx context.Context, cardID uint, contact string, ttl time.Duration) (bool, error) {
	if !Enabled() || ttl <= 0 {
		return true, nil
	}
	return client.SetNX(ctx, Key(claimCooldownKey(cardID, contact)), time.Now().Unix(), ttl).Result()
}

// ReleaseClaimCooldown 释放冷却位（守卫未成功时调用）
func ReleaseClaimCooldown(ctx context.Context, cardID uint, contact string) error {
	return Del(ctx, claimCooldownKey(cardID, contact))
}
