package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/qrewards/qrewards/internal/constants"
	"github.com/qrewards/qrewards/internal/models"
	"github.com/qrewards/qrewards/internal/repository"
)

func TestResolveDashboardWindow(t *testing.T) {
	now := time.Date(2026, 4, 10, 15, 30, 0, 0, time.UTC)

	window, err := resolveDashboardWindow(DashboardQueryInput{}, now)
	if err != nil {
		t.Fatalf("default window failed: %v", err)
	}
	if window.rangeKey != "7d" || !window.startAt.Equal(time.Date(2026, 4, 4, 0, 0, 0, 0, time.UTC)) || !window.endAt.Equal(time.Date(2026, 4, 11, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected default window: %+v", window)
	}

	window, err = resolveDashboardWindow(DashboardQueryInput{Range: "today", Timezone: "Asia/Shanghai"}, now)
	if err != nil {
		t.Fatalf("today window failed: %v", err)
	}
	if window.timezone != "Asia/Shanghai" || !window.startAt.Equal(time.Date(2026, 4, 9, 16, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected local today window: %+v", window)
	}

	window, _ = resolveDashboardWindow(DashboardQueryInput{Range: "30d", Timezone: "Mars/Olympus"}, now)
	if window.timezone != "UTC" {
		t.Fatalf("invalid timezone should fall back to utc, got %s", window.timezone)
	}

	from := now.AddDate(0, 0, -100)
	invalid := []DashboardQueryInput{
		{Range: "year"},
		{Range: "custom"},
		{Range: "custom", From: &now, To: &from},
		{Range: "custom", From: &from, To: &now},
	}
	for _, input := range invalid {
		if _, err := resolveDashboardWindow(input, now); !errors.Is(err, ErrDashboardRangeInvalid) {
			t.Fatalf("input %+v should be invalid, got %v", input, err)
		}
	}
}

func TestDashboardOverviewAndTrends(t *testing.T) {
	db := openServiceTestDB(t)
	now := time.Now().UTC()
	cards := []*models.Card{
		{Code: "a", Header: "A", Quantity: 2, InitialQuantity: 4, Status: constants.CardStatusActive},
		{Code: "b", Header: "B", Quantity: 0, InitialQuantity: 4, Status: constants.CardStatusActive},
	}
	for _, card := range cards {
		if err := db.Create(card).Error; err != nil {
			t.Fatalf("create card failed: %v", err)
		}
	}
	claimRepo := repository.NewClaimRecordRepository(db)
	for i, channel := range []string{"email", "email", "sms"} {
		record := &models.ClaimRecord{
			ClaimNo:   "QRDASH" + string(rune('A'+i)),
			CardID:    cards[1].ID,
			Channel:   channel,
			Contact:   "x",
			ClaimedAt: now.Add(-time.Duration(i) * time.Minute),
		}
		if err := claimRepo.Create(context.Background(), record); err != nil {
			t.Fatalf("create claim failed: %v", err)
		}
	}

	svc := NewDashboardService(repository.NewDashboardRepository(db))
	overview, err := svc.GetOverview(context.Background(), DashboardQueryInput{Range: "7d"})
	if err != nil {
		t.Fatalf("overview failed: %v", err)
	}
	if overview.Cards.Total != 2 || overview.Cards.Claimable != 1 || overview.Cards.Exhausted != 1 {
		t.Fatalf("unexpected card kpi: %+v", overview.Cards)
	}
	if overview.Cards.RedemptionRate != "75.00" {
		t.Fatalf("unexpected redemption rate: %s", overview.Cards.RedemptionRate)
	}
	if overview.Claims.InRange != 3 {
		t.Fatalf("unexpected claims kpi: %+v", overview.Claims)
	}
	if len(overview.Channels) != 2 || overview.Channels[0].Channel != "email" || overview.Channels[0].Claims != 2 {
		t.Fatalf("unexpected channels: %+v", overview.Channels)
	}
	if len(overview.TopCards) != 1 || overview.TopCards[0].CardID != cards[1].ID {
		t.Fatalf("unexpected top cards: %+v", overview.TopCards)
	}
	if len(overview.Alerts) == 0 || overview.Alerts[0].Type != "exhausted_cards" {
		t.Fatalf("exhausted alert expected: %+v", overview.Alerts)
	}

	trends, err := svc.GetTrends(context.Background(), DashboardQueryInput{Range: "7d"})
	if err != nil {
		t.Fatalf("trends failed: %v", err)
	}
	var total int64
	for _, point := range trends.Points {
		total += point.Claims
	}
	if len(trends.Points) != 7 || total != 3 {
		t.Fatalf("unexpected trend points: %+v", trends.Points)
	}
}
