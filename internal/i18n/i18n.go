package i18n

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
)

// 支持的语言
const (
	LocaleZH = "zh-CN"
	LocaleTW = "zh-TW"
	LocaleEN = "en-US"
)

const (
	localeQueryKey  = "lang"
	localeHeaderKey = "X-Locale"
)

// T 获取翻译文本，找不到时依次回退到简体中文与 key 本身
func T(locale, key string) string {
	if table, ok := catalog[Normalize(locale)]; ok {
		if msg, ok := table[key]; ok {
			return msg
		}
	}
	if msg, ok := catalog[LocaleZH][key]; ok {
		return msg
	}
	return key
}

// Sprintf 获取翻译模板并格式化
func Sprintf(locale, key string, args ...interface{}) string {
	tpl := T(locale, key)
	if len(args) == 0 {
		return tpl
	}
	return fmt.Sprintf(tpl, args...)
}

// Normalize 归一化语言标识
func Normalize(locale string) string {
	l := strings.ToLower(strings.TrimSpace(locale))
	switch {
	case l == "":
		return LocaleZH
	case strings.HasPrefix(l, "zh-tw"), strings.HasPrefix(l, "zh-hk"), strings.HasPrefix(l, "zh-mo"), strings.HasPrefix(l, "zh-hant"):
		return LocaleTW
	case strings.HasPrefix(l, "zh"):
		return LocaleZH
	case strings.HasPrefix(l, "en"):
		return LocaleEN
	default:
		return LocaleEN
	}
}

// ResolveLocale 从请求中解析语言：query > X-Locale > Accept-Language
func ResolveLocale(c *gin.Context) string {
	if c == nil || c.Request == nil {
		return LocaleZH
	}
	if v := strings.TrimSpace(c.Query(localeQueryKey)); v != "" {
		return Normalize(v)
	}
	if v := strings.TrimSpace(c.GetHeader(localeHeaderKey)); v != "" {
		return Normalize(v)
	}
	accept := strings.TrimSpace(c.GetHeader("Accept-Language"))
	if accept == "" {
		return LocaleZH
	}
	// 仅取权重最高的第一项
	first := strings.SplitN(accept, ",", 2)[0]
	first = strings.SplitN(first, ";", 2)[0]
	return Normalize(first)
}
