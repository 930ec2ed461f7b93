package httpkit

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"loancrm_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type testJWTConfig struct{}

func (testJWTConfig) GetJWTAccessSecret() string { return "test-secret" }

func signToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func protectedEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", AuthRequired(testJWTConfig{}), func(c *gin.Context) {
		identity := MustGetIdentity(c)
		if identity == nil {
			return
		}
		c.String(http.StatusOK, identity.UserID().String())
	})
	return r
}

func TestAuthRequiredAcceptsBearerAndQueryToken(t *testing.T) {
	userID := uuid.New()
	token := signToken(t, jwt.MapClaims{
		"sub":  userID.String(),
		"type": "access",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}, "test-secret")
	r := protectedEngine()

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != userID.String() {
		t.Fatalf("bearer: expected 200 with user id, got %d %q", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me?token="+token, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("query token: expected 200, got %d", w.Code)
	}
}

func TestAuthRequiredRejectsBadTokens(t *testing.T) {
	r := protectedEngine()
	userID := uuid.New().String()

	cases := map[string]string{
		"missing":      "",
		"wrong secret": signToken(t, jwt.MapClaims{"sub": userID, "type": "access"}, "other"),
		"refresh type": signToken(t, jwt.MapClaims{"sub": userID, "type": "refresh"}, "test-secret"),
		"bad subject":  signToken(t, jwt.MapClaims{"sub": "nope", "type": "access"}, "test-secret"),
		"expired": signToken(t, jwt.MapClaims{
			"sub": userID, "type": "access", "exp": time.Now().Add(-time.Minute).Unix(),
		}, "test-secret"),
	}

	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if token != "" {
				req.Header.Set("Authorization", "Bearer "+token)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", w.Code)
			}
		})
	}
}

func TestConversionRateLimiterRejectsBurst(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := NewConversionRateLimiter(nil)
	r := gin.New()
	r.POST("/start", limiter.RateLimit(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	var last int
	for i := 0; i < 11; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/start", nil))
		last = w.Code
		if i < 10 && last != http.StatusNoContent {
			t.Fatalf("request %d: expected 204 within burst, got %d", i, last)
		}
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %d", last)
	}
}

func TestRequestIDIsEchoedOrGenerated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get(HeaderRequestID); got != "req-123" {
		t.Fatalf("expected echoed request id, got %q", got)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if _, err := uuid.Parse(w.Header().Get(HeaderRequestID)); err != nil {
		t.Fatalf("expected generated uuid request id, got %q", w.Header().Get(HeaderRequestID))
	}
}

func TestRequestLoggerLogsServerErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	r := gin.New()
	r.Use(RequestLogger(logger.NewWithWriter("production", &buf)))
	r.GET("/boom", func(c *gin.Context) {
		HandleError(c, errors.New("database exploded"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if !strings.Contains(buf.String(), `"msg":"http_error"`) || !strings.Contains(buf.String(), "database exploded") {
		t.Fatalf("expected http_error log line, got %q", buf.String())
	}
	if strings.Contains(w.Body.String(), "database exploded") {
		t.Fatal("internal error details must not leak to the client")
	}
}

func TestMustGetIdentityRejectsAnonymousCaller(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/open", func(c *gin.Context) {
		if MustGetIdentity(c) == nil {
			return
		}
		c.Status(http.StatusOK)
	})
	r.GET("/nil-user", func(c *gin.Context) {
		c.Set(ContextUserIDKey, uuid.Nil)
		if MustGetIdentity(c) == nil {
			return
		}
		c.Status(http.StatusOK)
	})

	for _, path := range []string{"/open", "/nil-user"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, w.Code)
		}
	}
}
