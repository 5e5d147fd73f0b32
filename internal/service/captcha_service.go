package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/qrewards/qrewards/internal/config"
	"github.com/qrewards/qrewards/internal/constants"
	"github.com/qrewards/qrewards/internal/models"

	"github.com/mojocn/base64Captcha"
)

const defaultTurnstileVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

// CaptchaVerifyPayload 验证码校验请求载荷
type CaptchaVerifyPayload struct {
	CaptchaID      string `json:"captcha_id"`
	CaptchaCode    string `json:"captcha_code"`
	TurnstileToken string `json:"turnstile_token"`
}

// CaptchaImageChallenge 图片验证码挑战
type CaptchaImageChallenge struct {
	CaptchaID   string `json:"captcha_id"`
	ImageBase64 string `json:"image_base64"`
}

type turnstileVerifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// CaptchaService 验证码服务
// 场景开关决定是否需要验证码；图片验证码与 Turnstile 共用 Verify 入口
type CaptchaService struct {
	cfg        config.CaptchaConfig
	httpClient *http.Client

	mu         sync.Mutex
	imageStore base64Captcha.Store
}

// NewCaptchaService 创建验证码服务
func NewCaptchaService(cfg config.CaptchaConfig) *CaptchaService {
	cfg = normalizeCaptchaConfig(cfg)
	return &CaptchaService{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.Turnstile.TimeoutMS) * time.Millisecond},
	}
}

// IsSceneEnabled 场景是否需要验证码
func (s *CaptchaService) IsSceneEnabled(scene string) bool {
	if s == nil || s.cfg.Provider == constants.CaptchaProviderNone {
		return false
	}
	switch scene {
	case constants.CaptchaSceneLogin:
		return s.cfg.Scenes.Login
	case constants.CaptchaSceneClaim:
		return s.cfg.Scenes.Claim
	default:
		return false
	}
}

// PublicSetting 可下发给前端的配置，不含密钥
func (s *CaptchaService) PublicSetting() models.JSON {
	if s == nil {
		return models.JSON{"provider": constants.CaptchaProviderNone}
	}
	public := models.JSON{
		"provider": s.cfg.Provider,
		"scenes": map[string]interface{}{
			"login": s.IsSceneEnabled(constants.CaptchaSceneLogin),
			"claim": s.IsSceneEnabled(constants.CaptchaSceneClaim),
		},
	}
	if s.cfg.Provider == constants.CaptchaProviderTurnstile {
		public["turnstile"] = map[string]interface{}{"site_key": s.cfg.Turnstile.SiteKey}
	}
	return public
}

// GenerateImageChallenge 生成图片验证码
func (s *CaptchaService) GenerateImageChallenge() (*CaptchaImageChallenge, error) {
	if s == nil || s.cfg.Provider != constants.CaptchaProviderImage {
		return nil, ErrCaptchaConfigInvalid
	}
	img := s.cfg.Image
	driver := base64Captcha.NewDriverString(
		img.Height,
		img.Width,
		img.NoiseCount,
		img.ShowLine,
		img.Length,
		"23456789abcdefghjkmnpqrstuvwxyz",
		nil,
		base64Captcha.DefaultEmbeddedFonts,
		nil,
	)
	captcha := base64Captcha.NewCaptcha(driver, s.store())
	id, b64s, _, err := captcha.Generate()
	if err != nil {
		return nil, err
	}
	return &CaptchaImageChallenge{
		CaptchaID:   strings.TrimSpace(id),
		ImageBase64: strings.TrimSpace(b64s),
	}, nil
}

// Verify 按场景校验验证码，场景未启用直接通过
func (s *CaptchaService) Verify(ctx context.Context, scene string, payload CaptchaVerifyPayload, clientIP string) error {
	if !s.IsSceneEnabled(scene) {
		return nil
	}

	switch s.cfg.Provider {
	case constants.CaptchaProviderImage:
		captchaID := strings.TrimSpace(payload.CaptchaID)
		captchaCode := strings.ToLower(strings.TrimSpace(payload.CaptchaCode))
		if captchaID == "" || captchaCode == "" {
			return ErrCaptchaRequired
		}
		if !s.store().Verify(captchaID, captchaCode, true) {
			return ErrCaptchaInvalid
		}
		return nil
	case constants.CaptchaProviderTurnstile:
		token := strings.TrimSpace(payload.TurnstileToken)
		if token == "" {
			return ErrCaptchaRequired
		}
		return s.verifyTurnstile(ctx, token, strings.TrimSpace(clientIP))
	default:
		return ErrCaptchaConfigInvalid
	}
}

func (s *CaptchaService) verifyTurnstile(ctx context.Context, token, clientIP string) error {
	secret := s.cfg.Turnstile.SecretKey
	if secret == "" {
		return ErrCaptchaConfigInvalid
	}

	form := url.Values{}
	form.Set("secret", secret)
	form.Set("response", token)
	if clientIP != "" {
		form.Set("remoteip", clientIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Turnstile.VerifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCaptchaVerifyFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCaptchaVerifyFailed, err)
	}
	defer resp.Body.Close()

	var result turnstileVerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("%w: %v", ErrCaptchaVerifyFailed, err)
	}
	if !result.Success {
		return ErrCaptchaInvalid
	}
	return nil
}

func (s *CaptchaService) store() base64Captcha.Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.imageStore == nil {
		s.imageStore = base64Captcha.NewMemoryStore(s.cfg.Image.MaxStore, time.Duration(s.cfg.Image.ExpireSeconds)*time.Second)
	}
	return s.imageStore
}

func normalizeCaptchaConfig(cfg config.CaptchaConfig) config.CaptchaConfig {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch provider {
	case constants.CaptchaProviderImage, constants.CaptchaProviderTurnstile:
		cfg.Provider = provider
	default:
		cfg.Provider = constants.CaptchaProviderNone
	}

	if cfg.Image.Length < 4 || cfg.Image.Length > 8 {
		cfg.Image.Length = 5
	}
	if cfg.Image.Width < 100 {
		cfg.Image.Width = 240
	}
	if cfg.Image.Height < 40 {
		cfg.Image.Height = 80
	}
	if cfg.Image.NoiseCount < 0 {
		cfg.Image.NoiseCount = 2
	}
	if cfg.Image.ShowLine < 0 {
		cfg.Image.ShowLine = 2
	}
	if cfg.Image.ExpireSeconds < 30 || cfg.Image.ExpireSeconds > 3600 {
		cfg.Image.ExpireSeconds = 300
	}
	if cfg.Image.MaxStore < 100 {
		cfg.Image.MaxStore = 10240
	}

	cfg.Turnstile.SiteKey = strings.TrimSpace(cfg.Turnstile.SiteKey)
	cfg.Turnstile.SecretKey = strings.TrimSpace(cfg.Turnstile.SecretKey)
	cfg.Turnstile.VerifyURL = strings.TrimSpace(cfg.Turnstile.VerifyURL)
	if cfg.Turnstile.VerifyURL == "" {
		cfg.Turnstile.VerifyURL = defaultTurnstileVerifyURL
	}
	if cfg.Turnstile.TimeoutMS < 500 || cfg.Turnstile.TimeoutMS > 10000 {
		cfg.Turnstile.TimeoutMS = 2000
	}
	return cfg
}
