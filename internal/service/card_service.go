package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/qrewards/qrewards/internal/cache"
	"github.com/qrewards/qrewards/internal/config"
	"github.com/qrewards/qrewards/internal/constants"
	"github.com/qrewards/qrewards/internal/counter"
	"github.com/qrewards/qrewards/internal/logger"
	"github.com/qrewards/qrewards/internal/models"
	"github.com/qrewards/qrewards/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	cardMaxQuantity = 1000000
	cardTargetType  = "card"
)

// CardService 卡片管理服务
type CardService struct {
	cfg       *config.Config
	repo      repository.CardRepository
	claimRepo repository.ClaimRecordRepository
	counter   counter.Store
	audit     *AuditService
	now       func() time.Time
}

// NewCardService 创建卡片服务
func NewCardService(cfg *config.Config, repo repository.CardRepository, claimRepo repository.ClaimRecordRepository, store counter.Store, audit *AuditService) *CardService {
	return &CardService{
		cfg:       cfg,
		repo:      repo,
		claimRepo: claimRepo,
		counter:   store,
		audit:     audit,
		now:       time.Now,
	}
}

// CreateCardInput 创建卡片输入
type CreateCardInput struct {
	BusinessName string
	Header       string
	Subheader    string
	Address      string
	LogoURL      string
	Quantity     int
	ExpiresAt    *time.Time
}

// UpdateCardInput 更新卡片输入，不包含数量
type UpdateCardInput struct {
	BusinessName string
	Header       string
	Subheader    string
	Address      string
	LogoURL      string
	ExpiresAt    *time.Time
	Status       string
}

// CardDetail 管理端卡片视图
type CardDetail struct {
	models.Card
	RemainingQuantity int    `json:"remaining_quantity"`
	ClaimedCount      int    `json:"claimed_count"`
	ClaimURL          string `json:"claim_url"`
}

// PublicCardView 公开卡片视图
type PublicCardView struct {
	Code              string     `json:"code"`
	BusinessName      string     `json:"business_name"`
	Header            string     `json:"header"`
	Subheader         string     `json:"subheader"`
	Address           string     `json:"address"`
	LogoURL           string     `json:"logo_url"`
	ExpiresAt         *time.Time `json:"expires_at"`
	RemainingSeconds  *int64     `json:"remaining_seconds"`
	IsExpired         bool       `json:"is_expired"`
	IsSoldOut         bool       `json:"is_sold_out"`
	IsActive          bool       `json:"is_active"`
	RemainingQuantity int        `json:"remaining_quantity"`
}

// Create 创建卡片并初始化计数
func (s *CardService) Create(ctx context.Context, op Operator, input CreateCardInput) (*models.Card, error) {
	header := strings.TrimSpace(input.Header)
	if header == "" || input.Quantity < 0 || input.Quantity > cardMaxQuantity {
		return nil, ErrCardInvalid
	}

	card := &models.Card{
		Code:            newCardCode(),
		BusinessName:    strings.TrimSpace(input.BusinessName),
		Header:          header,
		Subheader:       strings.TrimSpace(input.Subheader),
		Address:         strings.TrimSpace(input.Address),
		LogoURL:         strings.TrimSpace(input.LogoURL),
		Quantity:        input.Quantity,
		InitialQuantity: input.Quantity,
		ExpiresAt:       normalizeExpiry(input.ExpiresAt),
		Status:          constants.CardStatusActive,
		CreatedBy:       op.AdminID,
	}

	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, card); err != nil {
			return err
		}
		// 计数初始化失败时回滚卡片
		return s.counter.Init(ctx, card.ID, card.Quantity, card.ExpiresAt)
	})
	if err != nil {
		return nil, err
	}

	s.audit.RecordFor(ctx, op, models.AuditActionCardCreate, cardTargetType, card.ID, models.JSON{
		"code":     card.Code,
		"quantity": card.Quantity,
	})
	logger.Ctx(ctx).Infow("card_created", "card_id", card.ID, "code", card.Code, "quantity", card.Quantity, "backend", s.counter.Backend())
	return card, nil
}

// Update 更新描述字段、状态与过期时间
func (s *CardService) Update(ctx context.Context, op Operator, id uint, input UpdateCardInput) (*models.Card, error) {
	card, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, ErrCardNotFound
	}

	header := strings.TrimSpace(input.Header)
	if header == "" {
		return nil, ErrCardInvalid
	}
	status := strings.TrimSpace(input.Status)
	if status == "" {
		status = card.Status
	}
	if status != constants.CardStatusActive && status != constants.CardStatusDisabled {
		return nil, ErrCardInvalid
	}

	expiryChanged := !sameExpiry(card.ExpiresAt, normalizeExpiry(input.ExpiresAt))
	card.BusinessName = strings.TrimSpace(input.BusinessName)
	card.Header = header
	card.Subheader = strings.TrimSpace(input.Subheader)
	card.Address = strings.TrimSpace(input.Address)
	card.LogoURL = strings.TrimSpace(input.LogoURL)
	card.ExpiresAt = normalizeExpiry(input.ExpiresAt)
	card.Status = status

	if err := s.repo.UpdateDetails(ctx, card); err != nil {
		return nil, err
	}
	if expiryChanged {
		if err := s.counter.SetExpiry(ctx, card.ID, card.ExpiresAt); err != nil {
			logger.Ctx(ctx).Errorw("card_counter_expiry_sync_failed", "card_id", card.ID, "backend", s.counter.Backend(), "error", err)
			return nil, fmt.Errorf("%w: %w", ErrClaimStoreUnavailable, err)
		}
	}
	_ = cache.DelCardView(ctx, card.Code)

	s.audit.RecordFor(ctx, op, models.AuditActionCardUpdate, cardTargetType, card.ID, models.JSON{
		"status":         card.Status,
		"expiry_changed": expiryChanged,
	})
	return card, nil
}

// Delete 删除卡片；已有领取记录时改为停用，保留记录的引用
// 返回 true 表示已删除，false 表示已停用
func (s *CardService) Delete(ctx context.Context, op Operator, id uint) (bool, error) {
	card, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if card == nil {
		return false, ErrCardNotFound
	}

	claimed, err := s.claimRepo.CountByCard(ctx, id)
	if err != nil {
		return false, err
	}
	_ = cache.DelCardView(ctx, card.Code)

	if claimed > 0 {
		card.Status = constants.CardStatusDisabled
		if err := s.repo.UpdateDetails(ctx, card); err != nil {
			return false, err
		}
		s.audit.RecordFor(ctx, op, models.AuditActionCardDelete, cardTargetType, id, models.JSON{"disabled_only": true, "claims": claimed})
		return false, nil
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return false, err
	}
	if err := s.counter.Remove(ctx, id); err != nil {
		// 卡片已软删除，残留计数不会被再次访问
		logger.Ctx(ctx).Warnw("card_counter_remove_failed", "card_id", id, "backend", s.counter.Backend(), "error", err)
	}
	s.audit.RecordFor(ctx, op, models.AuditActionCardDelete, cardTargetType, id, nil)
	return true, nil
}

// Get 管理端卡片详情
func (s *CardService) Get(ctx context.Context, id uint) (*CardDetail, error) {
	card, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, ErrCardNotFound
	}
	detail := s.toDetail(ctx, *card)
	return &detail, nil
}

// List 管理端卡片列表
func (s *CardService) List(ctx context.Context, filter repository.CardListFilter) ([]CardDetail, int64, error) {
	if filter.Now.IsZero() {
		filter.Now = s.now()
	}
	cards, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	items := make([]CardDetail, 0, len(cards))
	for _, card := range cards {
		items = append(items, s.toDetail(ctx, card))
	}
	return items, total, nil
}

// ResolveByCode 根据公开编码获取卡片描述，优先读缓存
// 返回的 Quantity 不可用于判断能否领取
func (s *CardService) ResolveByCode(ctx context.Context, code string) (*models.Card, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrCardNotFound
	}
	if cached, hit, err := cache.GetCardView(ctx, code); err == nil && hit {
		return cached, nil
	}
	card, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, ErrCardNotFound
	}
	_ = cache.SetCardView(ctx, card, s.cardCacheTTL())
	return card, nil
}

// GetPublicView 公开卡片视图，剩余数量实时读取计数后端
func (s *CardService) GetPublicView(ctx context.Context, code string) (*PublicCardView, error) {
	card, err := s.ResolveByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	remaining, err := s.counter.Remaining(ctx, card.ID)
	if err != nil {
		if errors.Is(err, counter.ErrNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrClaimStoreUnavailable, err)
	}
	return BuildPublicCardView(card, remaining, s.now()), nil
}

// BuildPublicCardView 组装公开视图
func BuildPublicCardView(card *models.Card, remaining int, now time.Time) *PublicCardView {
	if remaining < 0 {
		remaining = 0
	}
	view := &PublicCardView{
		Code:              card.Code,
		BusinessName:      card.BusinessName,
		Header:            card.Header,
		Subheader:         card.Subheader,
		Address:           card.Address,
		LogoURL:           card.LogoURL,
		ExpiresAt:         card.ExpiresAt,
		IsExpired:         card.IsExpired(now),
		IsSoldOut:         remaining == 0,
		IsActive:          card.IsActive(),
		RemainingQuantity: remaining,
	}
	if card.ExpiresAt != nil {
		seconds := int64(card.ExpiresAt.Sub(now) / time.Second)
		if seconds < 0 {
			seconds = 0
		}
		view.RemainingSeconds = &seconds
	}
	return view
}

// ClaimURL 卡片二维码指向的领取地址
func (s *CardService) ClaimURL(code string) string {
	base := "http://localhost:5173"
	if s.cfg != nil && strings.TrimSpace(s.cfg.Claim.PublicBaseURL) != "" {
		base = strings.TrimSpace(s.cfg.Claim.PublicBaseURL)
	}
	return strings.TrimRight(base, "/") + "/claim/" + code
}

func (s *CardService) toDetail(ctx context.Context, card models.Card) CardDetail {
	remaining := card.Quantity
	if s.counter.Backend() != constants.CounterBackendSQL {
		if value, err := s.counter.Remaining(ctx, card.ID); err == nil {
			remaining = value
		} else {
			logger.Ctx(ctx).Warnw("card_remaining_read_failed", "card_id", card.ID, "backend", s.counter.Backend(), "error", err)
		}
	}
	claimed := card.InitialQuantity - remaining
	if claimed < 0 {
		claimed = 0
	}
	return CardDetail{
		Card:              card,
		RemainingQuantity: remaining,
		ClaimedCount:      claimed,
		ClaimURL:          s.ClaimURL(card.Code),
	}
}

func (s *CardService) cardCacheTTL() time.Duration {
	if s.cfg == nil || s.cfg.Claim.CardCacheSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(s.cfg.Claim.CardCacheSeconds) * time.Second
}

func newCardCode() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// normalizeExpiry 统一为 UTC 并截断到秒，保证 SQL 字符串比较与原子谓词一致
func normalizeExpiry(expiresAt *time.Time) *time.Time {
	if expiresAt == nil || expiresAt.IsZero() {
		return nil
	}
	normalized := expiresAt.UTC().Truncate(time.Second)
	return &normalized
}

func sameExpiry(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
