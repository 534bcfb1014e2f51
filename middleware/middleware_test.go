package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"membercrm/models"
	"membercrm/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newSessions() *services.Sessions {
	return services.NewSessions([]byte("test-secret"), time.Hour, "membercrm", services.NewMemoryRevocations())
}

func protectedRouter(sessions *services.Sessions, action services.Action) *gin.Engine {
	r := gin.New()
	r.GET("/p", AuthRequired(sessions, "crm_session"), RequirePermission(action), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": c.GetString("userID"), "role": c.GetString("userRole")})
	})
	return r
}

func TestAuthRequiredMissingToken(t *testing.T) {
	r := protectedRouter(newSessions(), services.ActionReadMembers)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/p", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Authentication required")
}

func TestAuthRequiredBearer(t *testing.T) {
	s := newSessions()
	token, _, err := s.Issue(models.User{ID: "u-1", Role: models.RoleViewer})
	require.NoError(t, err)

	r := protectedRouter(s, services.ActionReadMembers)
	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":"u-1","role":"VIEWER"}`, w.Body.String())
}

func TestAuthRequiredCookie(t *testing.T) {
	s := newSessions()
	token, _, err := s.Issue(models.User{ID: "u-1", Role: models.RoleAdmin})
	require.NoError(t, err)

	r := protectedRouter(s, services.ActionViewLogs)
	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	req.AddCookie(&http.Cookie{Name: "crm_session", Value: token})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthRequiredInvalidToken(t *testing.T) {
	r := protectedRouter(newSessions(), services.ActionReadMembers)
	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRequiredRevoked(t *testing.T) {
	s := newSessions()
	token, claims, err := s.Issue(models.User{ID: "u-1", Role: models.RoleAdmin})
	require.NoError(t, err)
	require.NoError(t, s.Revoke(context.Background(), claims))

	r := protectedRouter(s, services.ActionReadMembers)
	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Session has ended")
}

func TestRequirePermissionForbidden(t *testing.T) {
	s := newSessions()
	token, _, err := s.Issue(models.User{ID: "u-1", Role: models.RoleViewer})
	require.NoError(t, err)

	r := protectedRouter(s, services.ActionSendEmail)
	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequirePermissionUnknownRole(t *testing.T) {
	s := newSessions()
	token, _, err := s.Issue(models.User{ID: "u-1", Role: "OWNER"})
	require.NoError(t, err)

	r := protectedRouter(s, services.ActionReadMembers)
	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

type erroringLimiter struct{}

func (erroringLimiter) Allow(context.Context, string) (services.RateResult, error) {
	return services.RateResult{}, errors.New("redis down")
}

type recordingLimiter struct {
	keys []string
	*services.MemoryLimiter
}

func (l *recordingLimiter) Allow(ctx context.Context, key string) (services.RateResult, error) {
	l.keys = append(l.keys, key)
	return l.MemoryLimiter.Allow(ctx, key)
}

func loginRouter(l services.Limiter) *gin.Engine {
	r := gin.New()
	r.POST("/login", LoginRateLimit(l), func(c *gin.Context) {
		body, _ := io.ReadAll(c.Request.Body)
		c.String(http.StatusOK, string(body))
	})
	return r
}

func TestLoginRateLimit(t *testing.T) {
	l := &recordingLimiter{MemoryLimiter: services.NewMemoryLimiter(2, time.Minute)}
	r := loginRouter(l)
	body := `{"email":" Ada@Example.com ","password":"pw"}`

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body)))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, body, w.Body.String(), "body must reach the handler intact")
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body)))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "login:192.0.2.1:ada@example.com", l.keys[0])
}

func TestLoginRateLimitFailsOpen(t *testing.T) {
	r := loginRouter(erroringLimiter{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusOK, w.Code)
}
