package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	apperrors "finmanager/internal/errors"
	"finmanager/internal/logger"
)

const testSecret = "test-secret"

func init() {
	logger.Init("test")
	gin.SetMode(gin.TestMode)
}

func doRequest(r *gin.Engine, header, value string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	if header != "" {
		req.Header.Set(header, value)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse response body: %v", err)
	}
	return result
}

func setupAuthRouter(secret string) *gin.Engine {
	r := gin.New()
	r.Use(AuthMiddleware(secret))
	r.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"subject": Subject(c)})
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	valid, err := GenerateToken(testSecret, "alice", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	expired, err := GenerateToken(testSecret, "alice", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	foreign, err := GenerateToken("other-secret", "alice", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	tests := []struct {
		name        string
		secret      string
		header      string
		wantStatus  int
		wantSubject string
	}{
		{name: "valid_token", secret: testSecret, header: "Bearer " + valid, wantStatus: http.StatusOK, wantSubject: "alice"},
		{name: "missing_header", secret: testSecret, wantStatus: http.StatusUnauthorized},
		{name: "wrong_scheme", secret: testSecret, header: "Basic " + valid, wantStatus: http.StatusUnauthorized},
		{name: "expired_token", secret: testSecret, header: "Bearer " + expired, wantStatus: http.StatusUnauthorized},
		{name: "wrong_secret", secret: testSecret, header: "Bearer " + foreign, wantStatus: http.StatusUnauthorized},
		{name: "garbage_token", secret: testSecret, header: "Bearer not.a.jwt", wantStatus: http.StatusUnauthorized},
		{name: "auth_disabled", secret: "", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupAuthRouter(tt.secret)
			header := ""
			if tt.header != "" {
				header = "Authorization"
			}
			rec := doRequest(r, header, tt.header)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			body := parseBody(t, rec)
			if tt.wantStatus == http.StatusUnauthorized {
				errObj, ok := body["error"].(map[string]interface{})
				if !ok {
					t.Fatalf("expected error object, got %v", body)
				}
				if errObj["code"] != "UNAUTHORIZED" {
					t.Errorf("expected UNAUTHORIZED, got %v", errObj["code"])
				}
				return
			}
			if body["subject"] != tt.wantSubject {
				t.Errorf("expected subject %q, got %v", tt.wantSubject, body["subject"])
			}
		})
	}
}

func TestAuthMiddleware_RejectsOtherAlgorithms(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   "mallory",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}

	rec := doRequest(setupAuthRouter(testSecret), "Authorization", "Bearer "+signed)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestGenerateToken(t *testing.T) {
	t.Run("round_trips_subject", func(t *testing.T) {
		token, err := GenerateToken(testSecret, "cli", time.Hour)
		if err != nil {
			t.Fatalf("GenerateToken: %v", err)
		}
		claims, err := ParseToken(testSecret, token)
		if err != nil {
			t.Fatalf("ParseToken: %v", err)
		}
		if claims.Subject != "cli" || claims.Issuer != tokenIssuer {
			t.Errorf("unexpected claims %+v", claims.RegisteredClaims)
		}
	})

	t.Run("empty_secret", func(t *testing.T) {
		if _, err := GenerateToken("", "cli", time.Hour); err == nil {
			t.Fatal("expected error for empty secret")
		}
	})
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"app_error", apperrors.ErrBudgetNotFound, http.StatusNotFound, "BUDGET_NOT_FOUND"},
		{"wrapped_app_error", apperrors.Wrap(apperrors.ErrInternalServer, errors.New("db down")), http.StatusInternalServerError, "INTERNAL_ERROR"},
		{"plain_error", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(ErrorHandler())
			r.GET("/test", func(c *gin.Context) {
				_ = c.Error(tt.err)
			})

			rec := doRequest(r, "", "")

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			errObj := parseBody(t, rec)["error"].(map[string]interface{})
			if errObj["code"] != tt.wantCode {
				t.Errorf("expected code %q, got %v", tt.wantCode, errObj["code"])
			}
			if tt.name == "plain_error" && errObj["message"] == "boom" {
				t.Error("internal error message leaked to the client")
			}
		})
	}

	t.Run("written_response_is_kept", func(t *testing.T) {
		r := gin.New()
		r.Use(ErrorHandler())
		r.GET("/test", func(c *gin.Context) {
			_ = c.Error(errors.New("ignored"))
			c.JSON(http.StatusAccepted, gin.H{"ok": true})
		})

		rec := doRequest(r, "", "")

		if rec.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d", rec.Code)
		}
	})
}

func TestNoRoute(t *testing.T) {
	r := gin.New()
	r.NoRoute(NoRoute())

	rec := doRequest(r, "", "")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	errObj := parseBody(t, rec)["error"].(map[string]interface{})
	if errObj["code"] != "NOT_FOUND" {
		t.Errorf("expected NOT_FOUND, got %v", errObj["code"])
	}
}

func TestRequestLogging(t *testing.T) {
	newRouter := func() *gin.Engine {
		r := gin.New()
		r.Use(RequestLogging())
		r.GET("/test", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"request_id": RequestID(c)})
		})
		return r
	}

	t.Run("generates_an_id", func(t *testing.T) {
		rec := doRequest(newRouter(), "", "")

		id := rec.Header().Get("X-Request-ID")
		if id == "" {
			t.Fatal("expected X-Request-ID header")
		}
		if parseBody(t, rec)["request_id"] != id {
			t.Error("expected context request id to match the header")
		}
	})

	t.Run("reuses_a_valid_incoming_id", func(t *testing.T) {
		incoming := "01890a5d-ac96-774b-bcce-b302099a8057"
		rec := doRequest(newRouter(), "X-Request-ID", incoming)

		if got := rec.Header().Get("X-Request-ID"); got != incoming {
			t.Errorf("expected %s, got %s", incoming, got)
		}
	})

	t.Run("replaces_a_malformed_incoming_id", func(t *testing.T) {
		rec := doRequest(newRouter(), "X-Request-ID", "<script>")

		if got := rec.Header().Get("X-Request-ID"); got == "<script>" || got == "" {
			t.Errorf("expected a generated id, got %q", got)
		}
	})
}
