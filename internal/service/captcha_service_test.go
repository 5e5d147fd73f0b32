package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/qrewards/qrewards/internal/config"
	"github.com/qrewards/qrewards/internal/constants"
)

func TestCaptchaSceneSwitch(t *testing.T) {
	svc := NewCaptchaService(config.CaptchaConfig{Provider: "IMAGE", Scenes: config.CaptchaSceneConfig{Claim: true}})
	if !svc.IsSceneEnabled(constants.CaptchaSceneClaim) || svc.IsSceneEnabled(constants.CaptchaSceneLogin) {
		t.Fatalf("unexpected scene switches")
	}

	none := NewCaptchaService(config.CaptchaConfig{Provider: "unknown", Scenes: config.CaptchaSceneConfig{Claim: true}})
	if none.IsSceneEnabled(constants.CaptchaSceneClaim) {
		t.Fatalf("unknown provider should disable captcha")
	}
	if err := none.Verify(context.Background(), constants.CaptchaSceneClaim, CaptchaVerifyPayload{}, ""); err != nil {
		t.Fatalf("disabled scene should pass, got %v", err)
	}

	var nilSvc *CaptchaService
	if err := nilSvc.Verify(context.Background(), constants.CaptchaSceneClaim, CaptchaVerifyPayload{}, ""); err != nil {
		t.Fatalf("nil service should pass, got %v", err)
	}
}

func TestCaptchaImageVerify(t *testing.T) {
	svc := NewCaptchaService(config.CaptchaConfig{Provider: "image", Scenes: config.CaptchaSceneConfig{Claim: true}})
	challenge, err := svc.GenerateImageChallenge()
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if challenge.CaptchaID == "" || challenge.ImageBase64 == "" {
		t.Fatalf("unexpected challenge: %+v", challenge)
	}
	answer := svc.store().Get(challenge.CaptchaID, false)

	err = svc.Verify(context.Background(), constants.CaptchaSceneClaim, CaptchaVerifyPayload{CaptchaID: challenge.CaptchaID}, "")
	if !errors.Is(err, ErrCaptchaRequired) {
		t.Fatalf("missing code should be required, got %v", err)
	}
	err = svc.Verify(context.Background(), constants.CaptchaSceneClaim, CaptchaVerifyPayload{CaptchaID: challenge.CaptchaID, CaptchaCode: answer}, "")
	if err != nil {
		t.Fatalf("correct answer should pass, got %v", err)
	}
	// 验证后即失效
	err = svc.Verify(context.Background(), constants.CaptchaSceneClaim, CaptchaVerifyPayload{CaptchaID: challenge.CaptchaID, CaptchaCode: answer}, "")
	if !errors.Is(err, ErrCaptchaInvalid) {
		t.Fatalf("reused captcha should be invalid, got %v", err)
	}
}

func TestCaptchaTurnstileVerify(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("secret") == "s3cret" && r.PostForm.Get("response") == "good" && r.PostForm.Get("remoteip") == "198.51.100.1" {
			_, _ = w.Write([]byte(`{"success":true}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":false,"error-codes":["invalid-input-response"]}`))
	}))
	defer server.Close()

	svc := NewCaptchaService(config.CaptchaConfig{
		Provider:  "turnstile",
		Scenes:    config.CaptchaSceneConfig{Login: true},
		Turnstile: config.CaptchaTurnstileConfig{SiteKey: "site", SecretKey: "s3cret", VerifyURL: server.URL},
	})
	if err := svc.Verify(context.Background(), constants.CaptchaSceneLogin, CaptchaVerifyPayload{TurnstileToken: "good"}, "198.51.100.1"); err != nil {
		t.Fatalf("valid token should pass, got %v", err)
	}
	if err := svc.Verify(context.Background(), constants.CaptchaSceneLogin, CaptchaVerifyPayload{TurnstileToken: "bad"}, "198.51.100.1"); !errors.Is(err, ErrCaptchaInvalid) {
		t.Fatalf("invalid token should fail, got %v", err)
	}
	if err := svc.Verify(context.Background(), constants.CaptchaSceneLogin, CaptchaVerifyPayload{}, ""); !errors.Is(err, ErrCaptchaRequired) {
		t.Fatalf("missing token should be required, got %v", err)
	}
	if setting := svc.PublicSetting(); setting["provider"] != "turnstile" {
		t.Fatalf("unexpected public setting: %+v", setting)
	}
}
