package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"membercrm/config"
	"membercrm/db"
	"membercrm/models"
	"membercrm/services"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

const (
	testUserID   = "11111111-1111-1111-1111-111111111111"
	testMemberID = "22222222-2222-2222-2222-222222222222"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeTransport struct {
	mu     sync.Mutex
	sent   []services.Message
	fail   map[string]bool
	onSend func(services.Message)
}

func (f *fakeTransport) Name() string { return "fake" }

func (f *fakeTransport) Send(_ context.Context, msg services.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[msg.To] {
		return errors.New("rejected")
	}
	f.sent = append(f.sent, msg)
	if f.onSend != nil {
		f.onSend(msg)
	}
	return nil
}

type fakeStorage struct {
	key         string
	contentType string
	body        []byte
}

func (f *fakeStorage) Put(_ context.Context, key, contentType string, body io.Reader, _ int64) (string, error) {
	f.key, f.contentType = key, contentType
	f.body, _ = io.ReadAll(body)
	return "https://cdn.example.com/" + key, nil
}

type testEnv struct {
	t         *testing.T
	api       *API
	router    *gin.Engine
	mock      sqlmock.Sqlmock
	transport *fakeTransport
}

func newEnv(t *testing.T) *testEnv {
	return newEnvWithLimit(t, 100)
}

func newEnvWithLimit(t *testing.T, loginLimit int) *testEnv {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	db.DB = mockDB
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		mockDB.Close()
	})

	cfg := &config.Config{
		Cookie:  config.CookieConfig{Name: "crm_session"},
		Mail:    config.MailConfig{FromName: "Member CRM"},
		Storage: config.StorageConfig{MaxUploadSize: 4 << 20},
	}
	transport := &fakeTransport{fail: map[string]bool{}}
	api := New(Deps{
		Config:   cfg,
		Mailer:   services.NewMailer(transport, 0, nil),
		Sessions: services.NewSessions([]byte("test-secret"), time.Hour, "membercrm", services.NewMemoryRevocations()),
	})

	r := gin.New()
	api.Register(r, services.NewMemoryLimiter(loginLimit, time.Minute))
	return &testEnv{t: t, api: api, router: r, mock: mock, transport: transport}
}

func (e *testEnv) token(role string) string {
	e.t.Helper()
	token, _, err := e.api.sessions.Issue(models.User{ID: testUserID, Name: "Ada", Email: "ada@example.com", Role: role})
	require.NoError(e.t, err)
	return token
}

// do sends body as JSON; an empty role sends no credentials.
func (e *testEnv) do(method, path string, body any, role string) *httptest.ResponseRecorder {
	e.t.Helper()
	return e.doContext(context.Background(), method, path, body, role)
}

func (e *testEnv) doContext(ctx context.Context, method, path string, body any, role string) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("Authorization", "Bearer "+e.token(role))
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestUnauthenticatedRoutes(t *testing.T) {
	e := newEnv(t)
	for _, path := range []string{"/api/members", "/api/templates", "/api/logs", "/api/cover", "/api/auth/me"} {
		w := e.do(http.MethodGet, path, nil, "")
		require.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestHealth(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodGet, "/healthz", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"ok","database":"up","mail":"fake"}`, w.Body.String())
}
