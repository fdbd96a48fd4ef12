package middleware

import (
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/covoitsn/covoiturage-backend/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
	os.Setenv("JWT_SECRET", "test-secret")
}

func protectedRouter() *gin.Engine {
	r := gin.New()
	r.GET("/ping", AuthMiddleware(), func(c *gin.Context) {
		c.JSON(200, gin.H{"userId": c.GetUint("userId"), "email": c.GetString("email")})
	})
	r.GET("/admin", AuthMiddleware(), RequireRole(models.RoleAdmin), func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})
	return r
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte(os.Getenv("JWT_SECRET")))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func get(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddlewareValidToken(t *testing.T) {
	r := protectedRouter()
	token := signToken(t, jwt.MapClaims{
		"id":    float64(42),
		"email": "awa@example.com",
		"roles": []string{models.RoleUser},
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	if w := get(r, "/ping", token); w.Code != 200 {
		t.Errorf("got status %d, want 200 (body %s)", w.Code, w.Body.String())
	}
}

func TestAuthMiddlewareRejectsBadTokens(t *testing.T) {
	r := protectedRouter()
	exp := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name  string
		token string
	}{
		{"no token", ""},
		{"garbage", "not.a.jwt"},
		{"missing id claim", signToken(t, jwt.MapClaims{"email": "a@b.com", "exp": exp})},
		{"missing email claim", signToken(t, jwt.MapClaims{"id": float64(1), "exp": exp})},
		{"id of wrong type", signToken(t, jwt.MapClaims{"id": "1", "email": "a@b.com", "exp": exp})},
		{"expired", signToken(t, jwt.MapClaims{"id": float64(1), "email": "a@b.com", "exp": time.Now().Add(-time.Hour).Unix()})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := get(r, "/ping", tt.token); w.Code != 401 {
				t.Errorf("got status %d, want 401", w.Code)
			}
		})
	}
}

func TestAuthMiddlewareQueryParamFallback(t *testing.T) {
	r := protectedRouter()
	token := signToken(t, jwt.MapClaims{
		"id":    float64(42),
		"email": "awa@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest("GET", "/ping?token="+token, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Errorf("got status %d, want 200", w.Code)
	}
}

func TestRequireRole(t *testing.T) {
	r := protectedRouter()
	exp := time.Now().Add(time.Hour).Unix()

	admin := signToken(t, jwt.MapClaims{
		"id": float64(1), "email": "admin@b.com",
		"roles": []string{models.RoleUser, models.RoleAdmin}, "exp": exp,
	})
	plain := signToken(t, jwt.MapClaims{
		"id": float64(2), "email": "user@b.com",
		"roles": []string{models.RoleUser}, "exp": exp,
	})

	if w := get(r, "/admin", admin); w.Code != 200 {
		t.Errorf("admin: got status %d, want 200", w.Code)
	}
	if w := get(r, "/admin", plain); w.Code != 403 {
		t.Errorf("plain user: got status %d, want 403", w.Code)
	}
}
