package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"membercrm/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var userCols = []string{"id", "name", "email", "password_hash", "role", "cover_url", "created_at"}

func userRow(t *testing.T, password, role string) *sqlmock.Rows {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return sqlmock.NewRows(userCols).
		AddRow(testUserID, "Ada", "ada@example.com", string(hash), role, nil, time.Now())
}

func TestLogin(t *testing.T) {
	e := newEnv(t)
	e.mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
		WithArgs("ada@example.com").
		WillReturnRows(userRow(t, "correct horse", models.RoleEditor))

	w := e.do(http.MethodPost, "/api/auth/login", map[string]string{
		"email": " Ada@Example.com ", "password": "correct horse",
	}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode[map[string]any](t, w)
	assert.NotEmpty(t, body["token"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "EDITOR", user["role"])
	assert.NotContains(t, w.Body.String(), "password")

	var cookie *http.Cookie
	for _, ck := range w.Result().Cookies() {
		if ck.Name == "crm_session" {
			cookie = ck
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, body["token"], cookie.Value)
}

func TestLoginWrongPassword(t *testing.T) {
	e := newEnv(t)
	e.mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
		WithArgs("ada@example.com").
		WillReturnRows(userRow(t, "correct horse", models.RoleAdmin))

	w := e.do(http.MethodPost, "/api/auth/login", map[string]string{
		"email": "ada@example.com", "password": "wrong",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginUnknownUser(t *testing.T) {
	e := newEnv(t)
	e.mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
		WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows(userCols))

	w := e.do(http.MethodPost, "/api/auth/login", map[string]string{
		"email": "nobody@example.com", "password": "whatever",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid credentials")
}

func TestLoginMissingFields(t *testing.T) {
	e := newEnv(t)
	w := e.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "ada@example.com"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "password is required")
}

func TestLoginRateLimited(t *testing.T) {
	e := newEnvWithLimit(t, 2)
	for i := 0; i < 2; i++ {
		e.mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
			WithArgs("ada@example.com").
			WillReturnRows(sqlmock.NewRows(userCols))
	}

	creds := map[string]string{"email": "ada@example.com", "password": "guess"}
	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodPost, "/api/auth/login", creds, "").Code)
	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodPost, "/api/auth/login", creds, "").Code)

	w := e.do(http.MethodPost, "/api/auth/login", creds, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestMe(t *testing.T) {
	e := newEnv(t)
	e.mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).
		WithArgs(testUserID).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(testUserID, "Ada", "ada@example.com", "hash", "", "https://cdn/x.png", time.Now()))

	w := e.do(http.MethodGet, "/api/auth/me", nil, models.RoleViewer)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode[map[string]any](t, w)
	assert.Equal(t, "VIEWER", body["role"])
	assert.Equal(t, "https://cdn/x.png", body["coverUrl"])
}

func TestLogoutRevokesToken(t *testing.T) {
	e := newEnv(t)
	token := e.token(models.RoleAdmin)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var cleared bool
	for _, ck := range w.Result().Cookies() {
		if ck.Name == "crm_session" && ck.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared)

	req = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
