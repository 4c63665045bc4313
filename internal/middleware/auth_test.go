package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	testSecret = "test-secret"
	testIssuer = "identity.test"
)

func setupAuthRouter() *gin.Engine {
	r := gin.New()
	r.Use(AuthMiddleware(testSecret, testIssuer))
	r.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString("userID")})
	})
	return r
}

func doAuthRequest(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", http.NoBody)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func signClaims(t *testing.T, method jwt.SigningMethod, key any, claims *JWTClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestAuthMiddleware(t *testing.T) {
	r := setupAuthRouter()

	valid, err := GenerateAccessToken(testSecret, testIssuer, "user-42", time.Minute)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	t.Run("valid_token_sets_user", func(t *testing.T) {
		rec := doAuthRequest(r, "Bearer "+valid)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got := parseBody(t, rec)["user_id"]; got != "user-42" {
			t.Errorf("user_id = %v, want user-42", got)
		}
	})

	t.Run("subject_fallback", func(t *testing.T) {
		now := time.Now()
		tok := signClaims(t, jwt.SigningMethodHS256, []byte(testSecret), &JWTClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "user-sub",
				Issuer:    testIssuer,
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
			},
		})
		rec := doAuthRequest(r, "Bearer "+tok)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if got := parseBody(t, rec)["user_id"]; got != "user-sub" {
			t.Errorf("user_id = %v, want user-sub", got)
		}
	})

	expired, _ := GenerateAccessToken(testSecret, testIssuer, "user-42", -time.Minute)
	wrongIssuer, _ := GenerateAccessToken(testSecret, "someone-else", "user-42", time.Minute)
	wrongSecret, _ := GenerateAccessToken("other-secret", testIssuer, "user-42", time.Minute)
	refresh := signClaims(t, jwt.SigningMethodHS256, []byte(testSecret), &JWTClaims{
		UserID:    "user-42",
		TokenType: "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	noUser := signClaims(t, jwt.SigningMethodHS256, []byte(testSecret), &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	unsigned := signClaims(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, &JWTClaims{
		UserID: "user-42",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	rejected := []struct {
		name   string
		header string
	}{
		{"missing_header", ""},
		{"wrong_scheme", "Basic " + valid},
		{"extra_parts", "Bearer " + valid + " extra"},
		{"garbage_token", "Bearer not.a.jwt"},
		{"expired", "Bearer " + expired},
		{"wrong_issuer", "Bearer " + wrongIssuer},
		{"wrong_secret", "Bearer " + wrongSecret},
		{"refresh_token", "Bearer " + refresh},
		{"no_user_id", "Bearer " + noUser},
		{"alg_none", "Bearer " + unsigned},
	}
	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			rec := doAuthRequest(r, tt.header)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
			errObj, ok := parseBody(t, rec)["error"].(map[string]interface{})
			if !ok || errObj["code"] != "UNAUTHORIZED" {
				t.Errorf("expected UNAUTHORIZED error, got %v", errObj)
			}
		})
	}
}

func TestAuthMiddleware_AnyIssuer(t *testing.T) {
	r := gin.New()
	r.Use(AuthMiddleware(testSecret, ""))
	r.GET("/me", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	tok, _ := GenerateAccessToken(testSecret, "anyone", "user-1", time.Minute)
	if rec := doAuthRequest(r, "Bearer "+tok); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}
