package handlers

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"membercrm/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type logsResponse struct {
	Logs []models.EmailLog `json:"logs"`
}

var logCols = []string{"id", "recipient", "subject", "tier", "count", "attempted", "sent_at", "user_id", "name",
	"member_id", "member_name", "member_tier"}

func TestListLogs(t *testing.T) {
	e := newEnv(t)
	now := time.Now()
	e.mock.ExpectQuery(`FROM email_logs l\s+LEFT JOIN users u .+LEFT JOIN members m ON m.id = l.member_id`).
		WithArgs(50, 0).
		WillReturnRows(sqlmock.NewRows(logCols).
			AddRow(3, "ada@example.com", "Hi Ada", "ALL", 1, 1, now, testUserID, "Ada", testMemberID, "Ada Lovelace", "GOLD").
			AddRow(2, "bulk", "News", "GOLD", 10, 12, now, testUserID, "Ada", nil, nil, nil).
			AddRow(1, "a@example.com", "Hi", "ALL", 1, 1, now, nil, "", nil, nil, nil))

	w := e.do(http.MethodGet, "/api/logs", nil, models.RoleAdmin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode[logsResponse](t, w)
	require.Len(t, body.Logs, 3)

	linked := body.Logs[0]
	require.NotNil(t, linked.MemberID)
	assert.Equal(t, testMemberID, *linked.MemberID)
	require.NotNil(t, linked.MemberName)
	assert.Equal(t, "Ada Lovelace", *linked.MemberName)
	require.NotNil(t, linked.MemberTier)
	assert.Equal(t, "GOLD", *linked.MemberTier)

	assert.Equal(t, "bulk", body.Logs[1].Recipient)
	assert.Equal(t, "Ada", body.Logs[1].UserName)
	assert.Equal(t, 12, body.Logs[1].Attempted)
	assert.Nil(t, body.Logs[1].MemberID)
	assert.NotContains(t, w.Body.String(), `"memberName":null`)

	assert.Equal(t, "Unknown", body.Logs[2].UserName)
	assert.Nil(t, body.Logs[2].UserID)
}

func TestListLogsRowError(t *testing.T) {
	e := newEnv(t)
	e.mock.ExpectQuery(`FROM email_logs`).
		WithArgs(50, 0).
		WillReturnRows(sqlmock.NewRows(logCols).
			AddRow(2, "bulk", "News", "GOLD", 10, 12, time.Now(), testUserID, "Ada", nil, nil, nil).
			AddRow(1, "bulk", "Old", "GOLD", 1, 1, time.Now(), testUserID, "Ada", nil, nil, nil).
			RowError(1, errors.New("connection reset")))

	w := e.do(http.MethodGet, "/api/logs", nil, models.RoleAdmin)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Database error")
}

func TestListLogsPaging(t *testing.T) {
	e := newEnv(t)
	e.mock.ExpectQuery(`FROM email_logs`).
		WithArgs(200, 40).
		WillReturnRows(sqlmock.NewRows(logCols))

	w := e.do(http.MethodGet, "/api/logs?limit=1000&offset=40", nil, models.RoleAdmin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"logs":[],"limit":200,"offset":40}`, w.Body.String())

	w = e.do(http.MethodGet, "/api/logs?limit=zero", nil, models.RoleAdmin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodGet, "/api/logs?offset=-1", nil, models.RoleAdmin)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListLogsForbiddenForEditor(t *testing.T) {
	e := newEnv(t)
	w := e.do(http.MethodGet, "/api/logs", nil, models.RoleEditor)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
