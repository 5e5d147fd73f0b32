package admin

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	handlershared "github.com/qrewards/qrewards/internal/http/handlers/shared"
	"github.com/qrewards/qrewards/internal/http/response"
	"github.com/qrewards/qrewards/internal/repository"
	"github.com/qrewards/qrewards/internal/service"

	"github.com/gin-gonic/gin"
)

// CardRequest 创建/更新卡片请求
type CardRequest struct {
	BusinessName string `json:"business_name"`
	Header       string `json:"header" binding:"required"`
	Subheader    string `json:"subheader"`
	Address      string `json:"address"`
	LogoURL      string `json:"logo_url"`
	Quantity     int    `json:"quantity"`
	ExpiresAt    string `json:"expires_at"`
	Status       string `json:"status"`
}

// ListCards 卡片列表
func (h *Handler) ListCards(c *gin.Context) {
	page, pageSize := parsePage(c)
	filter := repository.CardListFilter{
		Page:     page,
		PageSize: pageSize,
		Keyword:  strings.TrimSpace(c.Query("keyword")),
		Status:   strings.TrimSpace(c.Query("status")),
	}
	if raw := strings.TrimSpace(c.Query("expired")); raw != "" {
		expired, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(c, response.CodeBadRequest, "error.bad_request", err)
			return
		}
		filter.Expired = &expired
	}
	if raw := strings.TrimSpace(c.Query("sold_out")); raw != "" {
		soldOut, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(c, response.CodeBadRequest, "error.bad_request", err)
			return
		}
		filter.SoldOut = soldOut
	}

	cards, total, err := h.CardService.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, response.CodeInternal, "error.card_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, cards, buildPagination(page, pageSize, total))
}

// GetCard 卡片详情
func (h *Handler) GetCard(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "error.card_not_found")
	if !ok {
		return
	}
	detail, err := h.CardService.Get(c.Request.Context(), id)
	if err != nil {
		respondMappedError(c, err, handlershared.CardErrorRules, response.CodeInternal, "error.card_fetch_failed")
		return
	}
	response.Success(c, detail)
}

// CreateCard 创建卡片
func (h *Handler) CreateCard(c *gin.Context) {
	op, ok := currentOperator(c)
	if !ok {
		return
	}
	var req CardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	expiresAt, err := parseTimeNullable(req.ExpiresAt)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.card_invalid", err)
		return
	}

	card, err := h.CardService.Create(c.Request.Context(), op, service.CreateCardInput{
		BusinessName: req.BusinessName,
		Header:       req.Header,
		Subheader:    req.Subheader,
		Address:      req.Address,
		LogoURL:      req.LogoURL,
		Quantity:     req.Quantity,
		ExpiresAt:    expiresAt,
	})
	if err != nil {
		respondMappedError(c, err, handlershared.CardErrorRules, response.CodeInternal, "error.card_create_failed")
		return
	}
	detail, err := h.CardService.Get(c.Request.Context(), card.ID)
	if err != nil {
		// 卡片已创建，详情读取失败时退回原始行
		requestLog(c).Warnw("admin_card_detail_after_create_failed", "card_id", card.ID, "error", err)
		response.Success(c, card)
		return
	}
	response.Success(c, detail)
}

// UpdateCard 更新卡片；数量不可修改
func (h *Handler) UpdateCard(c *gin.Context) {
	op, ok := currentOperator(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id", "error.card_not_found")
	if !ok {
		return
	}
	var req CardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	expiresAt, err := parseTimeNullable(req.ExpiresAt)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.card_invalid", err)
		return
	}

	card, err := h.CardService.Update(c.Request.Context(), op, id, service.UpdateCardInput{
		BusinessName: req.BusinessName,
		Header:       req.Header,
		Subheader:    req.Subheader,
		Address:      req.Address,
		LogoURL:      req.LogoURL,
		ExpiresAt:    expiresAt,
		Status:       req.Status,
	})
	if err != nil {
		respondMappedError(c, err, handlershared.CardErrorRules, response.CodeInternal, "error.card_update_failed")
		return
	}
	response.Success(c, card)
}

// DeleteCard 删除卡片，已有领取记录时仅停用
func (h *Handler) DeleteCard(c *gin.Context) {
	op, ok := currentOperator(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id", "error.card_not_found")
	if !ok {
		return
	}
	deleted, err := h.CardService.Delete(c.Request.Context(), op, id)
	if err != nil {
		respondMappedError(c, err, handlershared.CardErrorRules, response.CodeInternal, "error.card_delete_failed")
		return
	}
	response.Success(c, gin.H{"deleted": deleted})
}

// GetCardQRCode 卡片领取地址二维码 PNG
func (h *Handler) GetCardQRCode(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "error.card_not_found")
	if !ok {
		return
	}
	size, _ := strconv.Atoi(strings.TrimSpace(c.Query("size")))

	png, code, err := h.QRCodeService.CardPNG(c.Request.Context(), id, size)
	if err != nil {
		respondMappedError(c, err, handlershared.CardErrorRules, response.CodeInternal, "error.qrcode_generate_failed")
		return
	}
	if c.Query("download") != "" {
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="card-%s.png"`, code))
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}
