package repository

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/qrewards/qrewards/internal/constants"
	"github.com/qrewards/qrewards/internal/models"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func openRepositoryTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
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

func createTestCard(t *testing.T, db *gorm.DB, code string, quantity int, expiresAt *time.Time) *models.Card {
	t.Helper()
	card := &models.Card{
		Code:            code,
		BusinessName:    "Corner Cafe",
		Header:          "Free espresso " + code,
		Quantity:        quantity,
		InitialQuantity: quantity,
		ExpiresAt:       expiresAt,
		Status:          constants.CardStatusActive,
	}
	if err := db.Create(card).Error; err != nil {
		t.Fatalf("create card failed: %v", err)
	}
	return card
}

func createTestClaim(t *testing.T, db *gorm.DB, cardID uint, claimNo, channel, contact string, claimedAt time.Time) *models.ClaimRecord {
	t.Helper()
	record := &models.ClaimRecord{
		ClaimNo:   claimNo,
		CardID:    cardID,
		Channel:   channel,
		Contact:   contact,
		ClaimedAt: claimedAt.UTC(),
	}
	if err := NewClaimRecordRepository(db).Create(t.Context(), record); err != nil {
		t.Fatalf("create claim record failed: %v", err)
	}
	return record
}
