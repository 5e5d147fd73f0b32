package router

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func newLimitedEngine(t *testing.T, rule RateLimitRule) (*gin.Engine, *miniredis.Miniredis) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	r := gin.New()
	r.POST("/claim", RateLimitMiddleware(client, rule, KeyByIP), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status_code": 0})
	})
	return r, mr
}

func statusCodeOf(t *testing.T, r *gin.Engine) int {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/claim", nil)
	req.RemoteAddr = "10.0.0.8:4000"
	r.ServeHTTP(w, req)
	var resp struct {
		StatusCode int `json:"status_code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	return resp.StatusCode
}

func TestKeyByIPAndJSONField(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/auth", strings.NewReader(`{"email":" Test@Example.com "}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Request.RemoteAddr = "1.2.3.4:5678"

	key := KeyByIPAndJSONField("email")(c)
	if key != "test@example.com|1.2.3.4" {
		t.Fatalf("key want test@example.com|1.2.3.4 got %s", key)
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		t.Fatalf("read body after key extraction failed: %v", err)
	}
	if !strings.Contains(string(body), "Test@Example.com") {
		t.Fatalf("request body should be restored after reading field")
	}
}

func TestRateLimitMiddlewareWithoutClient(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RateLimitMiddleware(nil, RateLimitRule{WindowSeconds: 60, MaxRequests: 1}, KeyByIP))
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok":true`) {
		t.Fatalf("expected handler response body, got %s", w.Body.String())
	}
}

func TestRateLimitKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":42}`))
	c.Request.RemoteAddr = "1.2.3.4:5678"

	if got := rateLimitKey(c, "qr:rate:login", KeyByIPAndJSONField("username")); got != "qr:rate:login:1.2.3.4" {
		t.Fatalf("non-string field should fall back to ip, got %s", got)
	}
	if got := rateLimitKey(c, "", nil); got != "1.2.3.4" {
		t.Fatalf("nil key func should use ip, got %s", got)
	}
}

func TestRateLimitMiddlewareWindow(t *testing.T) {
	r, mr := newLimitedEngine(t, RateLimitRule{Prefix: "qr:rate:claim", WindowSeconds: 60, MaxRequests: 2})

	for i := 0; i < 2; i++ {
		if code := statusCodeOf(t, r); code != 0 {
			t.Fatalf("request %d status_code want 0 got %d", i, code)
		}
	}
	if code := statusCodeOf(t, r); code != 429 {
		t.Fatalf("third request status_code want 429 got %d", code)
	}

	mr.FastForward(61 * time.Second)
	if code := statusCodeOf(t, r); code != 0 {
		t.Fatalf("after window status_code want 0 got %d", code)
	}
}

func TestRateLimitMiddlewareBlock(t *testing.T) {
	r, mr := newLimitedEngine(t, RateLimitRule{Prefix: "qr:rate:login", WindowSeconds: 10, MaxRequests: 1, BlockSeconds: 300})

	if code := statusCodeOf(t, r); code != 0 {
		t.Fatalf("first request status_code want 0 got %d", code)
	}
	if code := statusCodeOf(t, r); code != 429 {
		t.Fatalf("second request status_code want 429 got %d", code)
	}
	if !mr.Exists("qr:rate:login:10.0.0.8:block") {
		t.Fatalf("block key should be set after exceeding limit")
	}

	// 计数窗口已过但仍在封禁期
	mr.FastForward(11 * time.Second)
	if code := statusCodeOf(t, r); code != 429 {
		t.Fatalf("blocked request status_code want 429 got %d", code)
	}

	mr.FastForward(300 * time.Second)
	if code := statusCodeOf(t, r); code != 0 {
		t.Fatalf("after block status_code want 0 got %d", code)
	}
}
