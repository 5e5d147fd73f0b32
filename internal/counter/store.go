// Package counter 提供领取守卫依赖的原子条件递减原语。
//
// 所有后端都必须以单次条件写完成“数量大于 0 才减一”，不允许先读后写；
// 失败后的诊断读取只用于区分原因，不影响成败判定。
package counter

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound 计数不存在（卡片不存在或已删除）
	ErrNotFound = errors.New("counter not found")
	// ErrExhausted 数量已为 0
	ErrExhausted = errors.New("counter exhausted")
	// ErrExpired 卡片已过期
	ErrExpired = errors.New("counter expired")
)

// Store 库存计数存储
type Store interface {
	// Backend 后端名称，见 constants.CounterBackend*
	Backend() string
	// Init 创建卡片时写入初始计数，计数已存在时不覆盖
	Init(ctx context.Context, cardID uint, quantity int, expiresAt *time.Time) error
	// TryDecrement 原子地在 quantity > 0（且未过期）时减一，返回剩余数量
	TryDecrement(ctx context.Context, cardID uint, now time.Time) (int, error)
	// Remaining 读取剩余数量，仅用于展示
	Remaining(ctx context.Context, cardID uint) (int, error)
	// SetExpiry 同步过期时间
	SetExpiry(ctx context.Context, cardID uint, expiresAt *time.Time) error
	// Remove 删除计数
	Remove(ctx context.Context, cardID uint) error
}

// Options 后端公共选项
type Options struct {
	// CheckExpiry 为 true 时过期条件并入原子谓词
	CheckExpiry bool
}

// IsOutcome 判断错误是否为正常的业务结果（而非存储故障）
func IsOutcome(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrExhausted) || errors.Is(err, ErrExpired)
}

func expiryMillis(expiresAt *time.Time) int64 {
	if expiresAt == nil || expiresAt.IsZero() {
		return 0
	}
	return expiresAt.UTC().UnixMilli()
}
