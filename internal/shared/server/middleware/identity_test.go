package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func newIdentityRouter() *gin.Engine {
	r := gin.New()
	r.Use(Identity())
	r.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ownerId": OwnerIDFromContext(c),
			"isGuest": IsGuest(c),
		})
	})
	return r
}

func TestIdentityUserHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := newIdentityRouter()

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-User-Id", "user-42")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if body := resp.Body.String(); !containsAll(body, `"ownerId":"user-42"`, `"isGuest":false`) {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestIdentityGuestHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := newIdentityRouter()

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-Guest-Id", "abc")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if body := resp.Body.String(); !containsAll(body, `"ownerId":"guest:abc"`, `"isGuest":true`) {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestIdentityMissingRejected(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := newIdentityRouter()

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
