package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/qrewards/qrewards/internal/cache"
	"github.com/qrewards/qrewards/internal/repository"
)

const (
	dashboardCacheTTL      = 45 * time.Second
	dashboardCustomMaxDays = 90
	dashboardTopCardsLimit = 5
)

// DashboardService 仪表盘服务
// 说明：聚合后台首页卡片与领取数据。
type DashboardService struct {
	repo repository.DashboardRepository
}

// NewDashboardService 创建仪表盘服务
func NewDashboardService(repo repository.DashboardRepository) *DashboardService {
	return &DashboardService{repo: repo}
}

// DashboardQueryInput 仪表盘查询输入
type DashboardQueryInput struct {
	Range        string
	From         *time.Time
	To           *time.Time
	Timezone     string
	ForceRefresh bool
}

// DashboardOverviewResponse 仪表盘总览响应
type DashboardOverviewResponse struct {
	Range         string                      `json:"range"`
	From          string                      `json:"from"`
	To            string                      `json:"to"`
	Timezone      string                      `json:"timezone"`
	Cards         DashboardCardKPI            `json:"cards"`
	Claims        DashboardClaimKPI           `json:"claims"`
	Notifications map[string]int64            `json:"notifications"`
	Channels      []DashboardChannelBreakdown `json:"channels"`
	TopCards      []DashboardCardRanking      `json:"top_cards"`
	Alerts        []DashboardAlertItem        `json:"alerts"`
}

// DashboardCardKPI 卡片指标
type DashboardCardKPI struct {
	Total          int64  `json:"total"`
	Claimable      int64  `json:"claimable"`
	Exhausted      int64  `json:"exhausted"`
	Expired        int64  `json:"expired"`
	Disabled       int64  `json:"disabled"`
	RemainingUnits int64  `json:"remaining_units"`
	RedemptionRate string `json:"redemption_rate"`
}

// DashboardClaimKPI 领取指标
type DashboardClaimKPI struct {
	InRange int64 `json:"in_range"`
	Today   int64 `json:"today"`
}

// DashboardChannelBreakdown 渠道分布
type DashboardChannelBreakdown struct {
	Channel string `json:"channel"`
	Claims  int64  `json:"claims"`
}

// DashboardCardRanking 卡片排行项
type DashboardCardRanking struct {
	CardID       uint   `json:"card_id"`
	Header       string `json:"header"`
	BusinessName string `json:"business_name"`
	Claims       int64  `json:"claims"`
}

// DashboardAlertItem 仪表盘告警项
type DashboardAlertItem struct {
	Type  string `json:"type"`
	Level string `json:"level"`
	Value int64  `json:"value"`
}

// DashboardTrendResponse 仪表盘趋势响应
type DashboardTrendResponse struct {
	Range    string                `json:"range"`
	From     string                `json:"from"`
	To       string                `json:"to"`
	Timezone string                `json:"timezone"`
	Points   []DashboardTrendPoint `json:"points"`
}

// DashboardTrendPoint 趋势点
type DashboardTrendPoint struct {
	Date   string `json:"date"`
	Claims int64  `json:"claims"`
}

type dashboardWindow struct {
	rangeKey string
	startAt  time.Time
	endAt    time.Time
	timezone string
}

// GetOverview 获取仪表盘总览
func (s *DashboardService) GetOverview(ctx context.Context, input DashboardQueryInput) (*DashboardOverviewResponse, error) {
	if s == nil || s.repo == nil {
		return &DashboardOverviewResponse{}, nil
	}

	now := time.Now()
	window, err := resolveDashboardWindow(input, now)
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("dashboard:overview:%s:%d:%d:%s", window.rangeKey, window.startAt.Unix(), window.endAt.Unix(), window.timezone)
	if !input.ForceRefresh {
		var cached DashboardOverviewResponse
		if hit, cacheErr := cache.GetJSON(ctx, cacheKey, &cached); cacheErr == nil && hit {
			return &cached, nil
		}
	}

	cardStats, err := s.repo.GetCardStats(ctx, now)
	if err != nil {
		return nil, err
	}
	inRange, err := s.repo.CountClaims(ctx, window.startAt, window.endAt)
	if err != nil {
		return nil, err
	}
	localNow := now.In(window.startAt.Location())
	todayStart := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), 0, 0, 0, 0, localNow.Location())
	today, err := s.repo.CountClaims(ctx, todayStart, todayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	channelRows, err := s.repo.GetClaimsByChannel(ctx, window.startAt, window.endAt)
	if err != nil {
		return nil, err
	}
	topRows, err := s.repo.GetTopCards(ctx, window.startAt, window.endAt, dashboardTopCardsLimit)
	if err != nil {
		return nil, err
	}
	notifyRows, err := s.repo.GetNotificationStats(ctx, window.startAt, window.endAt)
	if err != nil {
		return nil, err
	}

	redemption := 0.0
	if cardStats.InitialUnits > 0 {
		redemption = float64(cardStats.InitialUnits-cardStats.RemainingUnits) / float64(cardStats.InitialUnits) * 100
	}

	channels := make([]DashboardChannelBreakdown, 0, len(channelRows))
	for _, row := range channelRows {
		channels = append(channels, DashboardChannelBreakdown{Channel: row.Channel, Claims: row.Claims})
	}
	topCards := make([]DashboardCardRanking, 0, len(topRows))
	for _, row := range topRows {
		header := strings.TrimSpace(row.Header)
		if header == "" {
			header = "-"
		}
		topCards = append(topCards, DashboardCardRanking{
			CardID:       row.CardID,
			Header:       header,
			BusinessName: row.BusinessName,
			Claims:       row.Claims,
		})
	}
	notifications := make(map[string]int64, len(notifyRows))
	for _, row := range notifyRows {
		notifications[row.Status] = row.Total
	}

	response := &DashboardOverviewResponse{
		Range:    window.rangeKey,
		From:     window.startAt.Format(time.RFC3339),
		To:       window.endAt.Add(-time.Second).Format(time.RFC3339),
		Timezone: window.timezone,
		Cards: DashboardCardKPI{
			Total:          cardStats.Total,
			Claimable:      cardStats.Claimable,
			Exhausted:      cardStats.Exhausted,
			Expired:        cardStats.Expired,
			Disabled:       cardStats.Disabled,
			RemainingUnits: cardStats.RemainingUnits,
			RedemptionRate: formatPercentValue(redemption),
		},
		Claims:        DashboardClaimKPI{InRange: inRange, Today: today},
		Notifications: notifications,
		Channels:      channels,
		TopCards:      topCards,
		Alerts:        buildDashboardAlerts(cardStats, notifications),
	}

	_ = cache.SetJSON(ctx, cacheKey, response, dashboardCacheTTL)
	return response, nil
}

// GetTrends 获取领取趋势
func (s *DashboardService) GetTrends(ctx context.Context, input DashboardQueryInput) (*DashboardTrendResponse, error) {
	if s == nil || s.repo == nil {
		return &DashboardTrendResponse{}, nil
	}

	window, err := resolveDashboardWindow(input, time.Now())
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("dashboard:trends:%s:%d:%d:%s", window.rangeKey, window.startAt.Unix(), window.endAt.Unix(), window.timezone)
	if !input.ForceRefresh {
		var cached DashboardTrendResponse
		if hit, cacheErr := cache.GetJSON(ctx, cacheKey, &cached); cacheErr == nil && hit {
			return &cached, nil
		}
	}

	rows, err := s.repo.GetClaimTrends(ctx, window.startAt, window.endAt)
	if err != nil {
		return nil, err
	}
	byDay := make(map[string]int64, len(rows))
	for _, row := range rows {
		byDay[row.Day] = row.Claims
	}

	// 按 UTC 日聚合
	points := make([]DashboardTrendPoint, 0)
	startUTC := window.startAt.UTC()
	for cursor := time.Date(startUTC.Year(), startUTC.Month(), startUTC.Day(), 0, 0, 0, 0, time.UTC); cursor.Before(window.endAt); cursor = cursor.AddDate(0, 0, 1) {
		day := cursor.Format("2006-01-02")
		points = append(points, DashboardTrendPoint{Date: day, Claims: byDay[day]})
	}

	response := &DashboardTrendResponse{
		Range:    window.rangeKey,
		From:     window.startAt.Format(time.RFC3339),
		To:       window.endAt.Add(-time.Second).Format(time.RFC3339),
		Timezone: window.timezone,
		Points:   points,
	}
	_ = cache.SetJSON(ctx, cacheKey, response, dashboardCacheTTL)
	return response, nil
}

func resolveDashboardWindow(input DashboardQueryInput, now time.Time) (dashboardWindow, error) {
	rangeKey := strings.ToLower(strings.TrimSpace(input.Range))
	if rangeKey == "" {
		rangeKey = "7d"
	}

	timezone := strings.TrimSpace(input.Timezone)
	location := time.UTC
	if timezone != "" {
		if parsed, err := time.LoadLocation(timezone); err == nil {
			location = parsed
		} else {
			timezone = ""
		}
	}
	if timezone == "" {
		timezone = location.String()
	}

	localNow := now.In(location)
	todayStart := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), 0, 0, 0, 0, location)
	window := dashboardWindow{rangeKey: rangeKey, timezone: timezone}

	switch rangeKey {
	case "today":
		window.startAt = todayStart
		window.endAt = todayStart.AddDate(0, 0, 1)
	case "7d":
		window.startAt = todayStart.AddDate(0, 0, -6)
		window.endAt = todayStart.AddDate(0, 0, 1)
	case "30d":
		window.startAt = todayStart.AddDate(0, 0, -29)
		window.endAt = todayStart.AddDate(0, 0, 1)
	case "custom":
		if input.From == nil || input.To == nil {
			return dashboardWindow{}, ErrDashboardRangeInvalid
		}
		startAt := input.From.In(location)
		endAt := input.To.In(location)
		if endAt.Before(startAt) {
			return dashboardWindow{}, ErrDashboardRangeInvalid
		}
		if endAt.Sub(startAt) > time.Hour*24*dashboardCustomMaxDays {
			return dashboardWindow{}, ErrDashboardRangeInvalid
		}
		window.startAt = startAt
		window.endAt = endAt.Add(time.Second)
	default:
		return dashboardWindow{}, ErrDashboardRangeInvalid
	}

	if !window.endAt.After(window.startAt) {
		return dashboardWindow{}, ErrDashboardRangeInvalid
	}
	return window, nil
}

func formatPercentValue(value float64) string {
	return fmt.Sprintf("%.2f", value)
}

func buildDashboardAlerts(cards repository.DashboardCardStatsRow, notifications map[string]int64) []DashboardAlertItem {
	alerts := make([]DashboardAlertItem, 0, 3)
	if cards.Exhausted > 0 {
		alerts = append(alerts, DashboardAlertItem{Type: "exhausted_cards", Level: "warning", Value: cards.Exhausted})
	}
	if failed := notifications["failed"]; failed > 0 {
		alerts = append(alerts, DashboardAlertItem{Type: "notifications_failed", Level: "error", Value: failed})
	}
	if pending := notifications["pending"]; pending > 0 {
		alerts = append(alerts, DashboardAlertItem{Type: "notifications_pending", Level: "info", Value: pending})
	}
	return alerts
}
