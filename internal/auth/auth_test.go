package auth_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/opsdesk-api/internal/auth"
	"github.com/opsdesk-api/internal/config"
	"github.com/opsdesk-api/internal/mocks"
	"github.com/opsdesk-api/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newManager() *auth.Manager {
	return auth.NewManager(config.AuthConfig{
		JWTSecret: "test-secret-test-secret-test-secret",
		Issuer:    "opsdesk-test",
		TokenTTL:  time.Hour,
	})
}

func TestManager_IssueAndParse(t *testing.T) {
	m := newManager()

	token, err := m.Issue("auth-1", time.Now())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if claims.Subject != "auth-1" {
		t.Errorf("Expected subject auth-1, got %s", claims.Subject)
	}
}

func TestManager_ParseRejects(t *testing.T) {
	m := newManager()
	expired, _ := m.Issue("auth-1", time.Now().Add(-2*time.Hour))
	foreign, _ := auth.NewManager(config.AuthConfig{
		JWTSecret: "another-secret-another-secret-xx",
		Issuer:    "opsdesk-test",
		TokenTTL:  time.Hour,
	}).Issue("auth-1", time.Now())
	noSubject, _ := m.Issue("", time.Now())

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"expired", expired},
		{"wrong secret", foreign},
		{"missing subject", noSubject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.Parse(tt.token); !errors.Is(err, auth.ErrInvalidToken) {
				t.Errorf("Expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func newRouter(m *auth.Manager, users *mocks.MockUserService) *gin.Engine {
	r := gin.New()
	r.Use(auth.Middleware(m, users, zerolog.Nop()))
	r.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": auth.CurrentUser(c).ID})
	})
	return r
}

func TestMiddleware(t *testing.T) {
	m := newManager()
	users := mocks.NewMockUserService(&models.User{
		ID:         "u1",
		AuthUserID: "auth-1",
		Role:       models.RoleManager,
		Active:     true,
	})
	router := newRouter(m, users)

	valid, _ := m.Issue("auth-1", time.Now())
	stranger, _ := m.Issue("auth-404", time.Now())

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"unknown profile", "Bearer " + stranger, http.StatusUnauthorized},
		{"valid", "Bearer " + valid, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestMiddleware_LookupFailure(t *testing.T) {
	m := newManager()
	users := mocks.NewMockUserService()
	users.LookupErr = errors.New("connection refused")
	router := newRouter(m, users)

	token, _ := m.Issue("auth-1", time.Now())
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", w.Code)
	}
}
