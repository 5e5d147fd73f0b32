//go:build integration
// +build integration

package repository

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/qrewards/qrewards/internal/constants"
	"github.com/qrewards/qrewards/internal/counter"
	"github.com/qrewards/qrewards/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupPostgresIntegrationDB 初始化 PostgreSQL 集成测试数据库。
func setupPostgresIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("skip postgres integration test: TEST_POSTGRES_DSN is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open postgres failed: %v", err)
	}

	cleanupModels := models.AllModels()
	_ = db.Migrator().DropTable(cleanupModels...)
	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrate postgres models failed: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Migrator().DropTable(cleanupModels...)
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}

func TestPostgresConcurrentClaimsNeverOverRedeem(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	store := counter.NewSQLStore(db, counter.Options{CheckExpiry: true})

	cases := []struct {
		name      string
		quantity  int
		attempts  int
		successes int64
	}{
		{name: "single_unit_two_claims", quantity: 1, attempts: 2, successes: 1},
		{name: "three_units_five_claims", quantity: 3, attempts: 5, successes: 3},
		{name: "ten_units_hundred_claims", quantity: 10, attempts: 100, successes: 10},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			card := &models.Card{
				Code:            "pg" + strings.ReplaceAll(tc.name, "_", ""),
				Header:          tc.name,
				Quantity:        tc.quantity,
				InitialQuantity: tc.quantity,
				Status:          constants.CardStatusActive,
			}
			if err := db.Create(card).Error; err != nil {
				t.Fatalf("create card failed: %v", err)
			}

			var ok, exhausted, other atomic.Int64
			start := make(chan struct{})
			var wg sync.WaitGroup
			for i := 0; i < tc.attempts; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					_, err := store.TryDecrement(context.Background(), card.ID, time.Now())
					switch {
					case err == nil:
						ok.Add(1)
					case errors.Is(err, counter.ErrExhausted):
						exhausted.Add(1)
					default:
						other.Add(1)
					}
				}()
			}
			close(start)
			wg.Wait()

			if ok.Load() != tc.successes || exhausted.Load() != int64(tc.attempts)-tc.successes || other.Load() != 0 {
				t.Fatalf("ok=%d exhausted=%d other=%d", ok.Load(), exhausted.Load(), other.Load())
			}
			remaining, err := store.Remaining(context.Background(), card.ID)
			if err != nil || remaining != 0 {
				t.Fatalf("remaining want 0 got %d err=%v", remaining, err)
			}
		})
	}
}

func TestPostgresRepositoriesSearchAndTrends(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	ctx := context.Background()

	cardRepo := NewCardRepository(db)
	card := &models.Card{
		Code:            "pgsearch",
		BusinessName:    "Rocket Coffee",
		Header:          "火箭咖啡买一送一",
		Quantity:        5,
		InitialQuantity: 5,
		Status:          constants.CardStatusActive,
	}
	if err := cardRepo.Create(ctx, card); err != nil {
		t.Fatalf("create card failed: %v", err)
	}

	for _, keyword := range []string{"火箭", "rocket"} {
		rows, total, err := cardRepo.List(ctx, CardListFilter{Page: 1, PageSize: 10, Keyword: keyword})
		if err != nil {
			t.Fatalf("card search %q failed: %v", keyword, err)
		}
		if total != 1 || len(rows) != 1 {
			t.Fatalf("card search %q want 1 got total=%d len=%d", keyword, total, len(rows))
		}
	}

	claimedAt := time.Date(2026, 6, 1, 23, 30, 0, 0, time.UTC)
	record := &models.ClaimRecord{
		ClaimNo:   "QR-PG-1",
		CardID:    card.ID,
		Channel:   constants.ClaimChannelEmail,
		Contact:   "pg@example.com",
		ClaimedAt: claimedAt,
	}
	if err := NewClaimRecordRepository(db).Create(ctx, record); err != nil {
		t.Fatalf("create claim failed: %v", err)
	}

	trends, err := NewDashboardRepository(db).GetClaimTrends(ctx, claimedAt.Add(-24*time.Hour), claimedAt.Add(time.Hour))
	if err != nil {
		t.Fatalf("claim trends failed: %v", err)
	}
	if len(trends) != 1 || trends[0].Day != "2026-06-01" || trends[0].Claims != 1 {
		t.Fatalf("unexpected trends: %+v", trends)
	}
}
