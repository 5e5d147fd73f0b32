package admin

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	handlershared "github.com/qrewards/qrewards/internal/http/handlers/shared"
	"github.com/qrewards/qrewards/internal/http/response"
	"github.com/qrewards/qrewards/internal/models"
	"github.com/qrewards/qrewards/internal/repository"

	"github.com/gin-gonic/gin"
)

var claimExportHeader = []string{
	"id",
	"claim_no",
	"card_id",
	"card_code",
	"card_header",
	"channel",
	"contact",
	"locale",
	"client_ip",
	"claimed_at",
	"notify_status",
	"notify_attempts",
	"notify_sent_at",
}

// ListClaims 领取记录列表，附带通知状态
func (h *Handler) ListClaims(c *gin.Context) {
	page, pageSize := parsePage(c)
	filter, err := buildClaimFilter(c, page, pageSize)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	records, total, err := h.ClaimService.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, response.CodeInternal, "error.claim_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, records, buildPagination(page, pageSize, total))
}

// ExportClaims 按过滤条件导出 CSV
func (h *Handler) ExportClaims(c *gin.Context) {
	filter, err := buildClaimFilter(c, 0, 0)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	filename := fmt.Sprintf("claims_%s.csv", time.Now().Format("20060102_150405"))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))

	writer := csv.NewWriter(c.Writer)
	if err := writer.Write(claimExportHeader); err != nil {
		requestLog(c).Errorw("admin_claim_export_header_write_failed", "error", err)
		return
	}

	rows := 0
	err = h.ClaimService.Export(c.Request.Context(), filter, func(records []models.ClaimRecord) error {
		if err := writeClaimCSVRows(writer, records); err != nil {
			return err
		}
		writer.Flush()
		rows += len(records)
		return writer.Error()
	})
	if err != nil {
		// 响应头已写出，只能记录
		requestLog(c).Errorw("admin_claim_export_failed", "rows", rows, "error", err)
		return
	}
	writer.Flush()
	requestLog(c).Infow("admin_claim_export_done", "rows", rows, "card_id", filter.CardID)
}

// RenotifyClaim 重新投递领取通知
func (h *Handler) RenotifyClaim(c *gin.Context) {
	op, ok := currentOperator(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id", "error.claim_not_found")
	if !ok {
		return
	}
	notification, err := h.NotificationService.Renotify(c.Request.Context(), op, id)
	if err != nil {
		respondMappedError(c, err, handlershared.NotifyErrorRules, response.CodeInternal, "error.notify_failed")
		return
	}
	response.Success(c, notification)
}

func buildClaimFilter(c *gin.Context, page, pageSize int) (repository.ClaimRecordListFilter, error) {
	filter := repository.ClaimRecordListFilter{
		Page:     page,
		PageSize: pageSize,
		Contact:  strings.TrimSpace(c.Query("contact")),
		Channel:  strings.TrimSpace(c.Query("channel")),
		ClaimNo:  strings.TrimSpace(c.Query("claim_no")),
	}
	if raw := strings.TrimSpace(c.Query("card_id")); raw != "" {
		cardID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return filter, err
		}
		filter.CardID = uint(cardID)
	}
	from, err := parseTimeNullable(c.Query("created_from"))
	if err != nil {
		return filter, err
	}
	to, err := parseTimeNullable(c.Query("created_to"))
	if err != nil {
		return filter, err
	}
	filter.CreatedFrom = from
	filter.CreatedTo = to
	return filter, nil
}

func writeClaimCSVRows(writer *csv.Writer, records []models.ClaimRecord) error {
	for _, record := range records {
		cardCode, cardHeader := "", ""
		if record.Card != nil {
			cardCode = record.Card.Code
			cardHeader = record.Card.Header
		}
		notifyStatus, notifyAttempts, notifySentAt := "", "", ""
		if record.Notification != nil {
			notifyStatus = record.Notification.Status
			notifyAttempts = strconv.Itoa(record.Notification.Attempts)
			notifySentAt = formatTimeNullable(record.Notification.SentAt)
		}
		if err := writer.Write([]string{
			strconv.FormatUint(uint64(record.ID), 10),
			record.ClaimNo,
			strconv.FormatUint(uint64(record.CardID), 10),
			cardCode,
			cardHeader,
			record.Channel,
			record.Contact,
			record.Locale,
			record.ClientIP,
			record.ClaimedAt.UTC().Format(time.RFC3339),
			notifyStatus,
			notifyAttempts,
			notifySentAt,
		}); err != nil {
			return err
		}
	}
	return nil
}

func formatTimeNullable(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
