package handler

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/qiniu/x/xlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solutions/interview-gate/internal/protodef/errors"
	"github.com/solutions/interview-gate/internal/protodef/model"
	"github.com/solutions/interview-gate/internal/service/ledger"
)

const testReportID = "5f1b2c3d4e5f6a7b8c9d0e30"

type fakeLedger struct {
	reports  map[string]*model.EvaluationReportDo
	created  *ledger.CandidateInfo
	payload  []byte
	decision *ledger.DecideArgs
	err      error
}

func newFakeLedger() *fakeLedger {
	email := "b@x.com"
	return &fakeLedger{reports: map[string]*model.EvaluationReportDo{
		testReportID: {
			ID:                testReportID,
			SessionID:         testSessionID,
			InterviewerID:     "acc-1",
			CandidateOverview: model.CandidateOverviewDo{Email: &email},
			DecisionStatus:    model.DecisionPending,
		},
		"5f1b2c3d4e5f6a7b8c9d0e31": {
			ID:             "5f1b2c3d4e5f6a7b8c9d0e31",
			SessionID:      testSessionID,
			InterviewerID:  "acc-2",
			DecisionStatus: model.DecisionPending,
		},
	}}
}

func (f *fakeLedger) CreateReport(xl *xlog.Logger, sessionID string, interviewerID string, candidate ledger.CandidateInfo) (*model.EvaluationReportDo, error) {
	f.created = &candidate
	if f.err != nil {
		return nil, f.err
	}
	return &model.EvaluationReportDo{ID: "5f1b2c3d4e5f6a7b8c9d0e40", SessionID: sessionID, InterviewerID: interviewerID}, nil
}

func (f *fakeLedger) MergePayload(xl *xlog.Logger, reportID string, raw []byte) (*model.EvaluationReportDo, error) {
	f.payload = raw
	if f.err != nil {
		return nil, f.err
	}
	report, ok := f.reports[reportID]
	if !ok {
		return nil, errors.NotFound("report not found")
	}
	return report, nil
}

func (f *fakeLedger) GetReport(xl *xlog.Logger, reportID string) (*ledger.ReportView, error) {
	report, ok := f.reports[reportID]
	if !ok {
		return nil, errors.NotFound("report not found")
	}
	return &ledger.ReportView{Report: report}, nil
}

func (f *fakeLedger) list(match func(*model.EvaluationReportDo) bool) []model.EvaluationReportDo {
	var list []model.EvaluationReportDo
	for _, r := range f.reports {
		if match(r) {
			list = append(list, *r)
		}
	}
	return list
}

func (f *fakeLedger) ListByInterviewer(xl *xlog.Logger, interviewerID string) ([]model.EvaluationReportDo, error) {
	return f.list(func(r *model.EvaluationReportDo) bool { return r.InterviewerID == interviewerID }), nil
}

func (f *fakeLedger) ListBySession(xl *xlog.Logger, sessionID string) ([]model.EvaluationReportDo, error) {
	return f.list(func(r *model.EvaluationReportDo) bool { return r.SessionID == sessionID }), nil
}

func (f *fakeLedger) ListDecidedBy(xl *xlog.Logger, interviewerID string) ([]model.EvaluationReportDo, error) {
	return f.list(func(r *model.EvaluationReportDo) bool { return r.DecidedBy != nil && *r.DecidedBy == interviewerID }), nil
}

func (f *fakeLedger) Decide(xl *xlog.Logger, args ledger.DecideArgs) (*ledger.ReportView, error) {
	f.decision = &args
	if f.err != nil {
		return nil, f.err
	}
	report := f.reports[args.ReportID]
	report.DecisionStatus = model.DecisionStatus(args.Decision)
	report.DecidedBy = &args.InterviewerID
	return &ledger.ReportView{
		Report:  report,
		Decider: &model.AccountDo{ID: args.InterviewerID, Username: "alice", Role: model.RoleAdmin},
	}, nil
}

func newReportEngine(l *fakeLedger) *gin.Engine {
	h := NewReportApiHandler(l)
	router := newEngine()
	router.POST("/api/create-report", h.CreateReport)
	router.PUT("/api/update-report/:reportId", h.UpdateReport)
	auth := router.Group("/api", loginAs("acc-1", model.RoleAdmin))
	auth.GET("/candidates/:interviewerId", h.Candidates)
	auth.GET("/reports/:reportId", h.GetReport)
	auth.GET("/reports/session/:sessionId", h.ListBySession)
	auth.GET("/reports/decided-by/:interviewerId", h.ListDecidedBy)
	auth.POST("/candidate-action", h.CandidateAction)
	return router
}

func TestCreateReport(t *testing.T) {
	l := newFakeLedger()
	router := newReportEngine(l)

	w := doJSON(router, http.MethodPost, "/api/create-report", map[string]string{
		"sessionId":     testSessionID,
		"interviewerId": "acc-1",
		"email":         "B@X.com",
		"name":          "Bob",
		"resumeUrl":     "https://cdn.example.com/resume.pdf",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp model.CreateReportResponse
	decode(t, w, &resp)
	assert.Equal(t, "5f1b2c3d4e5f6a7b8c9d0e40", resp.ReportID)
	require.NotNil(t, l.created)
	assert.Equal(t, "b@x.com", l.created.Email)
	assert.Equal(t, "https://cdn.example.com/resume.pdf", l.created.ResumeURL)

	l.created = nil
	w = doJSON(router, http.MethodPost, "/api/create-report", map[string]string{"sessionId": "bad", "interviewerId": "acc-1", "email": "b@x.com", "name": "Bob"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, l.created)
}

func TestUpdateReportPassesRawPayload(t *testing.T) {
	l := newFakeLedger()
	router := newReportEngine(l)

	payload := []byte(`{"final_report":{"overall_performance":{"score":0}}}`)
	req := httptest.NewRequest(http.MethodPut, "/api/update-report/"+testReportID, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, payload, l.payload)

	l.err = errors.Validation("report payload must be a JSON object")
	req = httptest.NewRequest(http.MethodPut, "/api/update-report/"+testReportID, bytes.NewReader([]byte(`[1]`)))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateReportRejectsOversizedPayload(t *testing.T) {
	l := newFakeLedger()
	router := newReportEngine(l)

	big := bytes.Repeat([]byte("a"), MaxReportPayloadSize+1)
	req := httptest.NewRequest(http.MethodPut, "/api/update-report/"+testReportID, bytes.NewReader(big))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, l.payload)

	// 不带 Content-Length 的 chunked 请求
	req = httptest.NewRequest(http.MethodPut, "/api/update-report/"+testReportID, io.MultiReader(bytes.NewReader(big)))
	req.ContentLength = -1
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w, nil)
	assert.Equal(t, model.ResponseErrorValidation, env.Code)
	assert.Equal(t, "report payload is too large", env.Message)
	assert.Nil(t, l.payload)
}

func TestReportListsAreScopedToCaller(t *testing.T) {
	l := newFakeLedger()
	router := newReportEngine(l)

	w := doJSON(router, http.MethodGet, "/api/candidates/acc-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list model.ReportListResponse
	decode(t, w, &list)
	assert.Equal(t, 1, list.Total)

	w = doJSON(router, http.MethodGet, "/api/candidates/acc-2", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(router, http.MethodGet, "/api/reports/session/"+testSessionID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list = model.ReportListResponse{}
	decode(t, w, &list)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, testReportID, list.List[0].ID)

	w = doJSON(router, http.MethodGet, "/api/reports/5f1b2c3d4e5f6a7b8c9d0e31", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(router, http.MethodGet, "/api/reports/decided-by/acc-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list = model.ReportListResponse{}
	decode(t, w, &list)
	assert.Equal(t, 0, list.Total)
	assert.NotNil(t, list.List)
}

func TestCandidateAction(t *testing.T) {
	l := newFakeLedger()
	router := newReportEngine(l)

	w := doJSON(router, http.MethodPost, "/api/candidate-action", map[string]string{
		"reportId":    testReportID,
		"email":       "B@X.com",
		"decision":    "selected",
		"companyName": "Acme",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp model.ReportResponse
	decode(t, w, &resp)
	assert.Equal(t, model.DecisionSelected, resp.DecisionStatus)
	require.NotNil(t, resp.Decider)
	assert.Equal(t, "alice", resp.Decider.Username)
	require.NotNil(t, l.decision)
	assert.Equal(t, "acc-1", l.decision.InterviewerID)
	assert.Equal(t, "b@x.com", l.decision.CandidateEmail)

	w = doJSON(router, http.MethodGet, "/api/reports/"+testReportID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	l.decision = nil
	w = doJSON(router, http.MethodPost, "/api/candidate-action", map[string]string{
		"reportId": testReportID, "email": "b@x.com", "decision": "maybe", "companyName": "Acme",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, l.decision)

	l.err = errors.Forbidden("report belongs to another interviewer")
	w = doJSON(router, http.MethodPost, "/api/candidate-action", map[string]string{
		"reportId": testReportID, "email": "b@x.com", "decision": "rejected", "companyName": "Acme",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}
