package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/huangang/basewatch/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func limitedRouter(h gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(h)
	router.POST("/api/reports", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	return router
}

func post(router *gin.Engine, ip string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/reports", nil)
	req.RemoteAddr = ip + ":12345"
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimit_AllowsNormalRequests(t *testing.T) {
	rl := NewRateLimiter(10, 10, "")
	defer rl.Stop()

	if w := post(limitedRouter(rl.Middleware()), "192.168.1.1"); w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
}

func TestRateLimit_BlocksExcessiveRequests(t *testing.T) {
	rl := NewRateLimiter(1, 2, "submission rate exceeded")
	defer rl.Stop()
	router := limitedRouter(rl.Middleware())

	var last *httptest.ResponseRecorder
	for i := 0; i < 5; i++ {
		last = post(router, "10.0.0.1")
	}

	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status %d after burst exceeded, got %d", http.StatusTooManyRequests, last.Code)
	}
	var resp response.Response
	if err := json.Unmarshal(last.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Code != 429 || resp.Message != "submission rate exceeded" {
		t.Errorf("response = %+v", resp)
	}
}

func TestRateLimit_IndependentPerIP(t *testing.T) {
	rl := NewRateLimiter(1, 1, "")
	defer rl.Stop()
	router := limitedRouter(rl.Middleware())

	if w := post(router, "10.0.0.1"); w.Code != http.StatusOK {
		t.Errorf("IP1 first request: expected %d, got %d", http.StatusOK, w.Code)
	}
	if w := post(router, "10.0.0.2"); w.Code != http.StatusOK {
		t.Errorf("IP2 first request: expected %d, got %d", http.StatusOK, w.Code)
	}
}

func TestRateLimit_DisabledWithZeroRPS(t *testing.T) {
	router := limitedRouter(RateLimit(0, 0, ""))
	for i := 0; i < 20; i++ {
		if w := post(router, "10.0.0.3"); w.Code != http.StatusOK {
			t.Fatalf("request %d blocked with limiter disabled", i)
		}
	}
}
