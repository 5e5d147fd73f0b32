package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/qrewards/qrewards/internal/config"
	"github.com/qrewards/qrewards/internal/constants"
	"github.com/qrewards/qrewards/internal/counter"
	"github.com/qrewards/qrewards/internal/models"
	"github.com/qrewards/qrewards/internal/repository"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func openServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:svc_%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := models.Open("sqlite", dsn, models.DBPoolConfig{MaxOpenConns: 1, MaxIdleConns: 1}, gormlogger.Silent)
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newServiceTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Claim.TimeoutMS = 2000
	cfg.Claim.AtomicExpiryCheck = true
	cfg.Claim.PublicBaseURL = "https://qr.example.com/"
	cfg.Notify.MaxAttempts = 3
	cfg.Notify.RequeueAfterSeconds = 60
	return cfg
}

type claimFixture struct {
	db        *gorm.DB
	cfg       *config.Config
	cardRepo  *repository.GormCardRepository
	claimRepo repository.ClaimRecordRepository
	store     counter.Store
	cards     *CardService
	claims    *ClaimService
	notifier  *spyNotifier
}

// newClaimFixture 以 SQL 计数后端组装领取服务；store/claimRepo 可由调用方包装
func newClaimFixture(t *testing.T, cfg *config.Config, wrap func(f *claimFixture)) *claimFixture {
	t.Helper()
	db := openServiceTestDB(t)
	f := &claimFixture{
		db:        db,
		cfg:       cfg,
		cardRepo:  repository.NewCardRepository(db),
		claimRepo: repository.NewClaimRecordRepository(db),
		store:     counter.NewSQLStore(db, counter.Options{CheckExpiry: cfg.Claim.AtomicExpiryCheck}),
		notifier:  &spyNotifier{status: constants.ClaimNotificationStatusPending},
	}
	if wrap != nil {
		wrap(f)
	}
	f.cards = NewCardService(cfg, f.cardRepo, f.claimRepo, f.store, nil)
	f.claims = NewClaimService(cfg, f.cards, f.cardRepo, f.claimRepo, f.store, nil, f.notifier)
	return f
}

func (f *claimFixture) createCard(t *testing.T, quantity int, expiresAt *time.Time) *models.Card {
	t.Helper()
	card, err := f.cards.Create(context.Background(), Operator{AdminID: 1, Username: "admin"}, CreateCardInput{
		BusinessName: "Corner Cafe",
		Header:       "Free espresso",
		Address:      "1 Main St",
		Quantity:     quantity,
		ExpiresAt:    expiresAt,
	})
	if err != nil {
		t.Fatalf("create card failed: %v", err)
	}
	return card
}

func (f *claimFixture) quantity(t *testing.T, cardID uint) int {
	t.Helper()
	var quantity int
	if err := f.db.Unscoped().Model(&models.Card{}).Select("quantity").Where("id = ?", cardID).Scan(&quantity).Error; err != nil {
		t.Fatalf("read quantity failed: %v", err)
	}
	return quantity
}

func (f *claimFixture) recordCount(t *testing.T, cardID uint) int64 {
	t.Helper()
	var count int64
	if err := f.db.Model(&models.ClaimRecord{}).Where("card_id = ?", cardID).Count(&count).Error; err != nil {
		t.Fatalf("count records failed: %v", err)
	}
	return count
}

type spyNotifier struct {
	mu      sync.Mutex
	status  string
	records []string
}

func (s *spyNotifier) Dispatch(_ context.Context, record *models.ClaimRecord, _ *models.Card) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record.ClaimNo)
	return s.status
}

// spyClaimRepo 统计记录写入次数，可注入写入失败
type spyClaimRepo struct {
	repository.ClaimRecordRepository
	creates atomic.Int32
	failErr error
}

func (s *spyClaimRepo) Create(ctx context.Context, record *models.ClaimRecord) error {
	s.creates.Add(1)
	if s.failErr != nil {
		return s.failErr
	}
	return s.ClaimRecordRepository.Create(ctx, record)
}

// spyStore 统计守卫调用次数，可替换递减行为
type spyStore struct {
	counter.Store
	decrements atomic.Int32
	decrement  func(ctx context.Context, cardID uint, now time.Time) (int, error)
}

func (s *spyStore) TryDecrement(ctx context.Context, cardID uint, now time.Time) (int, error) {
	s.decrements.Add(1)
	if s.decrement != nil {
		return s.decrement(ctx, cardID, now)
	}
	return s.Store.TryDecrement(ctx, cardID, now)
}

type fakeNotifyQueue struct {
	mu      sync.Mutex
	enabled bool
	err     error
	ids     []uint
}

func (q *fakeNotifyQueue) Enabled() bool {
	return q.enabled
}

func (q *fakeNotifyQueue) EnqueueClaimNotify(_ context.Context, id uint) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.ids = append(q.ids, id)
	return nil
}

func (q *fakeNotifyQueue) enqueued() []uint {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]uint(nil), q.ids...)
}
