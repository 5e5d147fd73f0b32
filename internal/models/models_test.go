package models

import (
	"fmt"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:models_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := Open("sqlite", dsn, DBPoolConfig{MaxOpenConns: 1, MaxIdleConns: 1}, gormlogger.Silent)
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	return db
}

func TestCardIsExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	card := &Card{}
	if card.IsExpired(now) {
		t.Fatalf("card without expiry should never expire")
	}
	exp := now
	card.ExpiresAt = &exp
	if card.IsExpired(now) {
		t.Fatalf("card should still be claimable at the exact expiry instant")
	}
	if !card.IsExpired(now.Add(time.Second)) {
		t.Fatalf("card should be expired after expiry instant")
	}
}

func TestQuantityCheckConstraint(t *testing.T) {
	db := openTestDB(t)
	card := &Card{Code: "chk", Header: "h", Quantity: 1, InitialQuantity: 1, Status: "active"}
	if err := db.Create(card).Error; err != nil {
		t.Fatalf("create card failed: %v", err)
	}
	err := db.Model(&Card{}).Where("id = ?", card.ID).UpdateColumn("quantity", -1).Error
	if err == nil {
		t.Fatalf("negative quantity should be rejected by check constraint")
	}
}

func TestEnsureDefaultAdmin(t *testing.T) {
	db := openTestDB(t)
	if err := EnsureDefaultAdmin(db, "owner", "S3cure-pass"); err != nil {
		t.Fatalf("ensure admin failed: %v", err)
	}
	var admin Admin
	if err := db.Where("username = ?", "owner").First(&admin).Error; err != nil {
		t.Fatalf("admin not created: %v", err)
	}
	if !admin.IsSuper {
		t.Fatalf("bootstrap admin should be super")
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("S3cure-pass")) != nil {
		t.Fatalf("password hash mismatch")
	}

	// 二次调用不应重复创建
	if err := EnsureDefaultAdmin(db, "owner", "other"); err != nil {
		t.Fatalf("second ensure failed: %v", err)
	}
	var count int64
	db.Model(&Admin{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected single admin, got %d", count)
	}
}

func TestJSONScan(t *testing.T) {
	var j JSON
	if err := j.Scan(`{"a":1}`); err != nil {
		t.Fatalf("scan string failed: %v", err)
	}
	if j["a"].(float64) != 1 {
		t.Fatalf("unexpected value: %+v", j)
	}
	if err := j.Scan(nil); err != nil || len(j) != 0 {
		t.Fatalf("scan nil should reset map")
	}
}
