package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/qiniu/x/xlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solutions/interview-gate/internal/common/utils"
	"github.com/solutions/interview-gate/internal/protodef/errors"
	"github.com/solutions/interview-gate/internal/protodef/form"
	"github.com/solutions/interview-gate/internal/protodef/model"
	"github.com/solutions/interview-gate/internal/service/gate"
	"github.com/solutions/interview-gate/internal/service/schedule"
)

const testSessionID = "5f1b2c3d4e5f6a7b8c9d0e1f"

type fakeRegistry struct {
	sessions    map[string]*model.InterviewSessionDo
	createdBy   string
	createdRows []form.CandidateRow
	cancelledBy string
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{sessions: map[string]*model.InterviewSessionDo{
		testSessionID: {
			ID:              testSessionID,
			InterviewerID:   "acc-1",
			Date:            "2025-09-01",
			StartTime:       "10:00",
			CandidateEmails: []string{"b@x.com"},
			Status:          model.SessionStatusScheduled,
		},
	}}
}

func (f *fakeRegistry) CreateSession(xl *xlog.Logger, interviewerID string, date string, startTime string, rows []form.CandidateRow) (*model.InterviewSessionDo, error) {
	f.createdBy = interviewerID
	f.createdRows = rows
	emails := schedule.CandidateEmails(rows)
	if len(emails) == 0 {
		return nil, errors.Validation("no valid candidate emails found")
	}
	session := &model.InterviewSessionDo{
		ID:              "5f1b2c3d4e5f6a7b8c9d0e20",
		InterviewerID:   interviewerID,
		Date:            date,
		StartTime:       startTime,
		CandidateEmails: emails,
		Status:          model.SessionStatusScheduled,
	}
	f.sessions[session.ID] = session
	return session, nil
}

func (f *fakeRegistry) GetSession(xl *xlog.Logger, id string) (*model.InterviewSessionDo, error) {
	session, ok := f.sessions[id]
	if !ok {
		return nil, errors.NotFound("session not found")
	}
	return session, nil
}

func (f *fakeRegistry) CheckCandidate(xl *xlog.Logger, id string, email string) (*schedule.CandidateCheck, error) {
	session, ok := f.sessions[id]
	if !ok {
		return &schedule.CandidateCheck{}, nil
	}
	return &schedule.CandidateCheck{EmailExists: session.HasCandidate(utils.NormalizeEmail(email)), Session: session}, nil
}

func (f *fakeRegistry) CancelSession(xl *xlog.Logger, interviewerID string, id string) (*model.InterviewSessionDo, error) {
	f.cancelledBy = interviewerID
	session, err := f.GetSession(xl, id)
	if err != nil {
		return nil, err
	}
	if session.InterviewerID != interviewerID {
		return nil, errors.Forbidden("only the owner can cancel the session")
	}
	session.Status = model.SessionStatusCancelled
	return session, nil
}

func (f *fakeRegistry) ListSessions(xl *xlog.Logger, interviewerID string) ([]model.InterviewSessionDo, error) {
	var list []model.InterviewSessionDo
	for _, s := range f.sessions {
		if s.InterviewerID == interviewerID {
			list = append(list, *s)
		}
	}
	return list, nil
}

func newSessionHandler(registry *fakeRegistry, now time.Time) *SessionApiHandler {
	h := NewSessionApiHandler(registry, gate.New(time.UTC), "https://interview.example.com/")
	h.now = func() time.Time { return now }
	return h
}

func newSessionEngine(h *SessionApiHandler) *gin.Engine {
	router := newEngine()
	auth := router.Group("/api", loginAs("acc-1", model.RoleAdmin))
	auth.POST("/generate", h.Generate)
	auth.GET("/sessions", h.ListSessions)
	auth.POST("/cancel-session/:sessionId", h.CancelSession)
	router.GET("/api/check_session/:sessionId", h.CheckSession)
	router.GET("/api/check_session/:sessionId/:email", h.CheckCandidate)
	return router
}

func TestGenerateFromJSON(t *testing.T) {
	registry := newFakeRegistry()
	router := newSessionEngine(newSessionHandler(registry, time.Now()))

	w := doJSON(router, http.MethodPost, "/api/generate", map[string]interface{}{
		"date":       "2025-09-01",
		"startTime":  "10:00",
		"candidates": []map[string]string{{"Email": " B@X.com "}, {"email": ""}, {"email": "c@x.com"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp model.CreateSessionResponse
	decode(t, w, &resp)
	assert.Equal(t, 2, resp.CandidateCount)
	assert.Equal(t, "https://interview.example.com/interviewcheck/"+resp.SessionID, resp.Link)
	assert.Equal(t, "acc-1", registry.createdBy)
	assert.Equal(t, []string{"b@x.com", "c@x.com"}, registry.sessions[resp.SessionID].CandidateEmails)
}

func TestGenerateFromCSVUpload(t *testing.T) {
	registry := newFakeRegistry()
	router := newSessionEngine(newSessionHandler(registry, time.Now()))

	csv := "Name,EMAIL\nBob,b@x.com\nCarol,C@X.COM\n"
	w := doMultipart(router, "/api/generate",
		map[string]string{"date": "2025-09-01", "startTime": "10:00"},
		upload{field: "file", filename: "candidates.csv", content: []byte(csv)})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Len(t, registry.createdRows, 2)
	assert.Equal(t, "Bob", registry.createdRows[0]["name"])

	w = doMultipart(router, "/api/generate", map[string]string{"date": "2025-09-01", "startTime": "10:00"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doMultipart(router, "/api/generate",
		map[string]string{"date": "2025-09-01", "startTime": "10:00"},
		upload{field: "file", filename: "candidates.pdf", content: []byte("%PDF")})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerateRejectsBadInput(t *testing.T) {
	registry := newFakeRegistry()
	router := newSessionEngine(newSessionHandler(registry, time.Now()))

	w := doJSON(router, http.MethodPost, "/api/generate", map[string]interface{}{
		"date": "01/09/2025", "startTime": "10:00", "candidates": []map[string]string{{"email": "b@x.com"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, registry.createdBy)

	w = doJSON(router, http.MethodPost, "/api/generate", map[string]interface{}{
		"date": "2025-09-01", "startTime": "10:00", "candidates": []map[string]string{{"name": "nobody"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckSessionReportsWindowState(t *testing.T) {
	registry := newFakeRegistry()
	cases := []struct {
		now   time.Time
		state gate.State
	}{
		{time.Date(2025, 9, 1, 9, 59, 0, 0, time.UTC), gate.StateWaiting},
		{time.Date(2025, 9, 1, 10, 15, 0, 0, time.UTC), gate.StateOpen},
		{time.Date(2025, 9, 1, 10, 31, 0, 0, time.UTC), gate.StateExpired},
	}
	for _, tc := range cases {
		router := newSessionEngine(newSessionHandler(registry, tc.now))
		w := doJSON(router, http.MethodGet, "/api/check_session/"+testSessionID, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var info model.SessionInfoResponse
		decode(t, w, &info)
		assert.Equal(t, string(tc.state), info.WindowState)
		assert.Equal(t, "2025-09-01", info.ScheduledDate)
		assert.True(t, info.WindowEnd.Sub(info.WindowStart) == gate.WindowLength)
	}

	router := newSessionEngine(newSessionHandler(registry, time.Now()))
	w := doJSON(router, http.MethodGet, "/api/check_session/5f1b2c3d4e5f6a7b8c9d0eff", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCheckCandidate(t *testing.T) {
	registry := newFakeRegistry()
	router := newSessionEngine(newSessionHandler(registry, time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)))

	w := doJSON(router, http.MethodGet, "/api/check_session/"+testSessionID+"/B@X.COM", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp model.CheckCandidateResponse
	decode(t, w, &resp)
	assert.True(t, resp.EmailExists)
	require.NotNil(t, resp.SessionInfoResponse)
	assert.Equal(t, string(gate.StateOpen), resp.WindowState)

	w = doJSON(router, http.MethodGet, "/api/check_session/5f1b2c3d4e5f6a7b8c9d0eff/b@x.com", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp = model.CheckCandidateResponse{}
	decode(t, w, &resp)
	assert.False(t, resp.EmailExists)
	assert.Nil(t, resp.SessionInfoResponse)
}

func TestCancelAndListSessions(t *testing.T) {
	registry := newFakeRegistry()
	router := newSessionEngine(newSessionHandler(registry, time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC)))

	w := doJSON(router, http.MethodGet, "/api/sessions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list model.SessionListResponse
	decode(t, w, &list)
	assert.Equal(t, 1, list.Total)

	w = doJSON(router, http.MethodPost, "/api/cancel-session/"+testSessionID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var info model.SessionInfoResponse
	decode(t, w, &info)
	assert.Equal(t, string(model.SessionStatusCancelled), info.Status)
	assert.Equal(t, string(gate.StateCancelled), info.WindowState)
	assert.Equal(t, "acc-1", registry.cancelledBy)

	registry.sessions[testSessionID].InterviewerID = "someone-else"
	w = doJSON(router, http.MethodPost, "/api/cancel-session/"+testSessionID, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
