package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/qrewards/qrewards/internal/cache"
	"github.com/qrewards/qrewards/internal/config"
	"github.com/qrewards/qrewards/internal/models"
	"github.com/qrewards/qrewards/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const middlewareSecret = "middleware-test-secret"

type stubAdminRepo struct {
	admins map[uint]*models.Admin
}

func (r *stubAdminRepo) GetByUsername(username string) (*models.Admin, error) {
	for _, admin := range r.admins {
		if admin.Username == username {
			return admin, nil
		}
	}
	return nil, nil
}

func (r *stubAdminRepo) GetByID(id uint) (*models.Admin, error) {
	return r.admins[id], nil
}

func (r *stubAdminRepo) List() ([]models.Admin, error) {
	items := make([]models.Admin, 0, len(r.admins))
	for _, admin := range r.admins {
		items = append(items, *admin)
	}
	return items, nil
}

func (r *stubAdminRepo) RotatePassword(id uint, hash string, at time.Time) error {
	admin := r.admins[id]
	admin.PasswordHash = hash
	admin.TokenVersion++
	admin.TokenInvalidBefore = &at
	return nil
}

func (r *stubAdminRepo) RecordLogin(uint, string, time.Time) error { return nil }

func signAdminToken(t *testing.T, admin *models.Admin, issuedAt time.Time) string {
	t.Helper()
	claims := service.JWTClaims{
		AdminID:      admin.ID,
		Username:     admin.Username,
		TokenVersion: admin.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(middlewareSecret))
	require.NoError(t, err)
	return token
}

func envelopeCode(t *testing.T, w *httptest.ResponseRecorder) int {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		StatusCode int `json:"status_code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp.StatusCode
}

func TestCORSPolicyAllowOrigin(t *testing.T) {
	open := newCORSPolicy(config.CORSConfig{AllowedOrigins: []string{"*"}})
	require.Equal(t, "*", open.allowOrigin("https://rewards.example.com"))

	withCreds := newCORSPolicy(config.CORSConfig{AllowedOrigins: []string{"*"}, AllowCredentials: true})
	require.Equal(t, "https://rewards.example.com", withCreds.allowOrigin("https://rewards.example.com"))

	listed := newCORSPolicy(config.CORSConfig{AllowedOrigins: []string{"https://admin.example.com", " https://rewards.example.com "}})
	require.Equal(t, "https://Rewards.Example.com", listed.allowOrigin("https://Rewards.Example.com"))
	require.Empty(t, listed.allowOrigin("https://evil.example.com"))
	require.Empty(t, listed.allowOrigin(""))
}

func TestCORSMiddlewarePreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORSMiddleware(config.CORSConfig{AllowedOrigins: []string{"https://admin.example.com"}, MaxAge: 600}))
	r.POST("/api/v1/admin/cards", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/admin/cards", nil)
	req.Header.Set("Origin", "https://admin.example.com")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "https://admin.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "600", w.Header().Get("Access-Control-Max-Age"))
	require.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "X-Locale")
	require.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition")
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, getRequestID(c))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "req-123")
	r.ServeHTTP(w, req)
	require.Equal(t, "req-123", w.Header().Get(requestIDHeader))
	require.Equal(t, "req-123", w.Body.String())

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, strings.Repeat("x", 100))
	r.ServeHTTP(w, req)
	generated := w.Header().Get(requestIDHeader)
	require.NotEmpty(t, generated)
	require.NotEqual(t, strings.Repeat("x", 100), generated)
}

func TestBearerToken(t *testing.T) {
	token, key := bearerToken("Bearer abc.def")
	require.Equal(t, "abc.def", token)
	require.Empty(t, key)

	_, key = bearerToken("")
	require.Equal(t, "error.auth_header_missing", key)
	_, key = bearerToken("Basic abc")
	require.Equal(t, "error.auth_header_invalid", key)
	_, key = bearerToken("Bearer ")
	require.Equal(t, "error.auth_header_invalid", key)
}

func TestJWTAuthMiddlewareMissingSecret(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(JWTAuthMiddleware("", nil))
	r.GET("/admin/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/ping", nil))
	require.Equal(t, 401, envelopeCode(t, w))
}

func TestJWTAuthMiddlewareTokenLifecycle(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cache.Use(nil, "")

	admin := &models.Admin{ID: 7, Username: "ops", TokenVersion: 1}
	repo := &stubAdminRepo{admins: map[uint]*models.Admin{7: admin}}

	r := gin.New()
	r.Use(JWTAuthMiddleware(middlewareSecret, repo))
	r.GET("/admin/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status_code": 0, "username": c.GetString(ctxUsername)})
	})
	call := func(token string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/admin/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		r.ServeHTTP(w, req)
		return envelopeCode(t, w)
	}

	issued := time.Now().Add(-time.Minute)
	token := signAdminToken(t, admin, issued)
	require.Equal(t, 0, call(token))
	require.Equal(t, 401, call(token+"x"))

	// 改密后版本号递增，旧 Token 失效
	admin.TokenVersion = 2
	require.Equal(t, 401, call(token))

	// 签发时间早于失效时间点
	invalidBefore := time.Now()
	admin.TokenInvalidBefore = &invalidBefore
	require.Equal(t, 401, call(signAdminToken(t, admin, issued)))
	require.Equal(t, 0, call(signAdminToken(t, admin, invalidBefore.Add(time.Second))))

	delete(repo.admins, 7)
	require.Equal(t, 401, call(signAdminToken(t, admin, time.Now())))
}

func TestAdminRBACMiddlewareWithoutService(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(ctxAdminID, uint(1))
		c.Set(ctxAdminIsSuper, true)
	})
	r.GET("/api/v1/admin/cards", AdminRBACMiddleware(nil), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status_code": 0})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/cards", nil))
	// 授权服务缺失时一律拒绝，超级管理员也不例外
	require.Equal(t, 401, envelopeCode(t, w))
}

func TestContextAdminID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	require.Zero(t, contextAdminID(c))
	c.Set(ctxAdminID, 3)
	require.Equal(t, uint(3), contextAdminID(c))
	c.Set(ctxAdminID, float64(-1))
	require.Zero(t, contextAdminID(c))
	c.Set(ctxAdminID, "4")
	require.Zero(t, contextAdminID(c))
}
