package shared

import (
	"strconv"
	"strings"
	"time"

	"github.com/qrewards/qrewards/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// CaptchaPayload 登录与领取请求中的验证码字段
type CaptchaPayload struct {
	CaptchaID      string `json:"captcha_id"`
	CaptchaCode    string `json:"captcha_code"`
	TurnstileToken string `json:"turnstile_token"`
}

func (p CaptchaPayload) Service() service.CaptchaVerifyPayload {
	return service.CaptchaVerifyPayload{
		CaptchaID:      strings.TrimSpace(p.CaptchaID),
		CaptchaCode:    strings.TrimSpace(p.CaptchaCode),
		TurnstileToken: strings.TrimSpace(p.TurnstileToken),
	}
}

// PageQuery 读取 page/page_size，非法值回落到默认
func PageQuery(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.Query("page"))
	size, _ := strconv.Atoi(c.Query("page_size"))
	if page < 1 {
		page = 1
	}
	switch {
	case size <= 0:
		size = defaultPageSize
	case size > maxPageSize:
		size = maxPageSize
	}
	return page, size
}

// ContextUint 读取中间件写入的 uint 值
func ContextUint(c *gin.Context, key string) (uint, bool) {
	value, ok := c.Get(key)
	if !ok {
		return 0, false
	}
	switch v := value.(type) {
	case uint:
		return v, v > 0
	case int:
		return uint(v), v > 0
	case float64:
		return uint(v), v > 0
	}
	return 0, false
}

// ParseOptionalTime 空串返回 nil，否则按 RFC3339 解析
func ParseOptionalTime(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
