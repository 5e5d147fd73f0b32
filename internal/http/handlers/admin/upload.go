package admin

import (
	handlershared "github.com/qrewards/qrewards/internal/http/handlers/shared"
	"github.com/qrewards/qrewards/internal/http/response"

	"github.com/gin-gonic/gin"
)

// UploadFile 上传卡片 logo，返回可直接写入 logo_url 的地址
func (h *Handler) UploadFile(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.upload_file_missing", nil)
		return
	}

	url, err := h.UploadService.SaveLogo(c.Request.Context(), file)
	if err != nil {
		respondMappedError(c, err, handlershared.UploadErrorRules, response.CodeInternal, "error.upload_failed")
		return
	}

	response.Success(c, gin.H{
		"url":      url,
		"filename": file.Filename,
		"size":     file.Size,
	})
}
