package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/qrewards/qrewards/internal/cache"
	"github.com/qrewards/qrewards/internal/config"
	"github.com/qrewards/qrewards/internal/constants"
	"github.com/qrewards/qrewards/internal/counter"
	"github.com/qrewards/qrewards/internal/i18n"
	"github.com/qrewards/qrewards/internal/logger"
	"github.com/qrewards/qrewards/internal/models"
	"github.com/qrewards/qrewards/internal/repository"

	"github.com/google/uuid"
)

// ClaimNotifier 领取成功后的通知投递
// 只在领取记录写入成功后调用，失败不影响领取结果
type ClaimNotifier interface {
	Dispatch(ctx context.Context, record *models.ClaimRecord, card *models.Card) string
}

// ClaimService 领取服务：守卫 -> 记录 -> 通知
type ClaimService struct {
	cfg       *config.Config
	cards     *CardService
	cardRepo  repository.CardRepository
	claimRepo repository.ClaimRecordRepository
	counter   counter.Store
	captcha   *CaptchaService
	notifier  ClaimNotifier
	now       func() time.Time
}

// NewClaimService 创建领取服务
func NewClaimService(
	cfg *config.Config,
	cards *CardService,
	cardRepo repository.CardRepository,
	claimRepo repository.ClaimRecordRepository,
	store counter.Store,
	captcha *CaptchaService,
	notifier ClaimNotifier,
) *ClaimService {
	return &ClaimService{
		cfg:       cfg,
		cards:     cards,
		cardRepo:  cardRepo,
		claimRepo: claimRepo,
		counter:   store,
		captcha:   captcha,
		notifier:  notifier,
		now:       time.Now,
	}
}

// ClaimInput 领取请求
type ClaimInput struct {
	Code     string
	Contact  string
	Channel  string
	Locale   string
	ClientIP string
	Captcha  CaptchaVerifyPayload
}

// ClaimResult 领取结果
type ClaimResult struct {
	ClaimNo            string          `json:"claim_no"`
	ClaimedAt          time.Time       `json:"claimed_at"`
	Channel            string          `json:"channel"`
	NotificationStatus string          `json:"notification_status"`
	Card               *PublicCardView `json:"card"`
}

// AttemptClaim 领取守卫：一次原子条件递减，不重试
// 成功返回剩余数量；Exhausted/NotFound/Expired 为正常结果，不记错误日志
func (s *ClaimService) AttemptClaim(ctx context.Context, cardID uint) (int, error) {
	guardCtx, cancel := context.WithTimeout(ctx, s.cfg.Claim.Timeout())
	defer cancel()

	remaining, err := s.counter.TryDecrement(guardCtx, cardID, s.now().UTC())
	switch {
	case err == nil:
		return remaining, nil
	case errors.Is(err, counter.ErrExhausted):
		return 0, ErrCardExhausted
	case errors.Is(err, counter.ErrNotFound):
		return 0, ErrCardNotFound
	case errors.Is(err, counter.ErrExpired):
		return 0, ErrCardExpired
	default:
		logger.Ctx(ctx).Errorw("claim_guard_store_unavailable",
			"card_id", cardID,
			"backend", s.counter.Backend(),
			"error", err,
		)
		return 0, fmt.Errorf("%w: %w", ErrClaimStoreUnavailable, err)
	}
}

// RecordClaim 追加领取记录；非幂等，每次调用都会生成新记录
func (s *ClaimService) RecordClaim(ctx context.Context, cardID uint, channel, contact, locale, clientIP string, claimedAt time.Time) (*models.ClaimRecord, error) {
	record := &models.ClaimRecord{
		ClaimNo:   newClaimNo(claimedAt),
		CardID:    cardID,
		Channel:   channel,
		Contact:   contact,
		Locale:    locale,
		ClientIP:  clientIP,
		ClaimedAt: claimedAt.UTC(),
	}
	if err := s.claimRepo.Create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// Claim 公开领取入口
func (s *ClaimService) Claim(ctx context.Context, input ClaimInput) (*ClaimResult, error) {
	channel, contact, err := normalizeClaimContact(input.Channel, input.Contact)
	if err != nil {
		return nil, err
	}
	locale := i18n.Normalize(input.Locale)

	if err := s.captcha.Verify(ctx, constants.CaptchaSceneClaim, input.Captcha, input.ClientIP); err != nil {
		return nil, err
	}

	card, err := s.cards.ResolveByCode(ctx, input.Code)
	if err != nil {
		return nil, err
	}
	if !card.IsActive() {
		return nil, ErrCardDisabled
	}
	now := s.now().UTC()
	if !s.cfg.Claim.AtomicExpiryCheck && card.IsExpired(now) {
		return nil, ErrCardExpired
	}

	cooldownHeld, err := s.acquireCooldown(ctx, card.ID, contact)
	if err != nil {
		return nil, err
	}

	remaining, err := s.AttemptClaim(ctx, card.ID)
	if err != nil {
		if cooldownHeld {
			_ = cache.ReleaseClaimCooldown(ctx, card.ID, contact)
		}
		return nil, err
	}
	if s.counter.Backend() != constants.CounterBackendSQL {
		if err := s.cardRepo.SyncQuantityMirror(ctx, card.ID, remaining); err != nil {
			logger.Ctx(ctx).Warnw("card_quantity_mirror_sync_failed", "card_id", card.ID, "remaining", remaining, "error", err)
		}
	}

	record, err := s.RecordClaim(ctx, card.ID, channel, contact, locale, input.ClientIP, now)
	if err != nil {
		// 库存已扣减但记录未写入，不回滚
		logger.Ctx(ctx).Warnw("claim_record_failed_inventory_consumed",
			"card_id", card.ID,
			"remaining", remaining,
			"channel", channel,
			"error", err,
		)
		return nil, fmt.Errorf("%w: %w", ErrClaimRecordFailed, err)
	}
	logger.Ctx(ctx).Infow("claim_succeeded", "card_id", card.ID, "claim_no", record.ClaimNo, "remaining", remaining)

	status := constants.ClaimNotificationStatusSkipped
	if s.notifier != nil {
		status = s.notifier.Dispatch(ctx, record, card)
	}

	return &ClaimResult{
		ClaimNo:            record.ClaimNo,
		ClaimedAt:          record.ClaimedAt,
		Channel:            channel,
		NotificationStatus: status,
		Card:               BuildPublicCardView(card, remaining, now),
	}, nil
}

// List 管理端领取记录
func (s *ClaimService) List(ctx context.Context, filter repository.ClaimRecordListFilter) ([]models.ClaimRecord, int64, error) {
	return s.claimRepo.List(ctx, filter)
}

// Export 分批遍历领取记录
func (s *ClaimService) Export(ctx context.Context, filter repository.ClaimRecordListFilter, fn func(records []models.ClaimRecord) error) error {
	return s.claimRepo.Each(ctx, filter, 500, fn)
}

// acquireCooldown 同一联系方式对同一卡片的冷却；Redis 不可用时放行
func (s *ClaimService) acquireCooldown(ctx context.Context, cardID uint, contact string) (bool, error) {
	if s.cfg.Claim.CooldownSeconds <= 0 {
		return false, nil
	}
	ttl := time.Duration(s.cfg.Claim.CooldownSeconds) * time.Second
	acquired, err := cache.AcquireClaimCooldown(ctx, cardID, contact, ttl)
	if err != nil {
		logger.Ctx(ctx).Warnw("claim_cooldown_unavailable", "card_id", cardID, "error", err)
		return false, nil
	}
	if !acquired {
		return false, ErrClaimCooldown
	}
	return cache.Enabled(), nil
}

// normalizeClaimContact 校验渠道与联系方式
func normalizeClaimContact(channel, contact string) (string, string, error) {
	channel = strings.ToLower(strings.TrimSpace(channel))
	contact = strings.TrimSpace(contact)
	switch channel {
	case constants.ClaimChannelEmail:
		addr, err := mail.ParseAddress(contact)
		if err != nil || addr.Address != contact {
			return "", "", ErrClaimContactInvalid
		}
		return channel, strings.ToLower(addr.Address), nil
	case constants.ClaimChannelSMS:
		phone := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(contact)
		if !e164Pattern.MatchString(phone) {
			return "", "", ErrClaimContactInvalid
		}
		return channel, phone, nil
	default:
		return "", "", ErrClaimChannelInvalid
	}
}

func newClaimNo(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return "QR" + at.UTC().Format("20060102150405") + suffix
}
