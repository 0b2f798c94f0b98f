package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/qiniu/x/xlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solutions/interview-gate/internal/protodef/errors"
	"github.com/solutions/interview-gate/internal/protodef/model"
	"github.com/solutions/interview-gate/internal/service/cloud"
	"github.com/solutions/interview-gate/internal/service/interview"
)

type fakeFlow struct {
	started  *interview.StartArgs
	answered []string
	err      error
}

func (f *fakeFlow) Start(ctx context.Context, xl *xlog.Logger, args interview.StartArgs) (*interview.StartResult, error) {
	f.started = &args
	if f.err != nil {
		return nil, f.err
	}
	resumeURL := "https://cdn.example.com/resume/" + args.SessionID + "/" + args.Email
	return &interview.StartResult{
		Report: &model.EvaluationReportDo{
			ID:                testReportID,
			CandidateOverview: model.CandidateOverviewDo{ResumeURL: &resumeURL},
		},
		CandidateID:   "cand-1",
		InterviewID:   "iv-1",
		FirstQuestion: "Tell me about yourself.",
	}, nil
}

func (f *fakeFlow) Answer(ctx context.Context, xl *xlog.Logger, reportID string, interviewID string, answer string) (*cloud.AnswerResult, error) {
	f.answered = append(f.answered, answer)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.answered) >= 2 {
		return &cloud.AnswerResult{Stop: true}, nil
	}
	return &cloud.AnswerResult{NextQuestion: "Why this role?"}, nil
}

func newInterviewEngine(flow *fakeFlow) *gin.Engine {
	h := NewInterviewApiHandler(flow)
	router := newEngine()
	router.POST("/api/interview/:sessionId/start", h.Start)
	router.POST("/api/interview/answer", h.Answer)
	return router
}

func TestStartInterview(t *testing.T) {
	flow := &fakeFlow{}
	router := newInterviewEngine(flow)

	w := doMultipart(router, "/api/interview/"+testSessionID+"/start",
		map[string]string{"name": "Bob", "email": "B@X.com", "preferredDomain": "backend", "yearOfStudy": "3"},
		upload{field: "resume", filename: "bob.pdf", content: []byte("%PDF-1.4 resume")})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp model.StartInterviewResponse
	decode(t, w, &resp)
	assert.Equal(t, testReportID, resp.ReportID)
	assert.Equal(t, "iv-1", resp.InterviewID)
	assert.Equal(t, "Tell me about yourself.", resp.FirstQuestion)
	assert.NotEmpty(t, resp.ResumeURL)

	require.NotNil(t, flow.started)
	assert.Equal(t, testSessionID, flow.started.SessionID)
	assert.Equal(t, "b@x.com", flow.started.Email)
	assert.Equal(t, "bob.pdf", flow.started.ResumeFilename)
	assert.Equal(t, []byte("%PDF-1.4 resume"), flow.started.Resume)
}

func TestStartInterviewRequiresResume(t *testing.T) {
	flow := &fakeFlow{}
	router := newInterviewEngine(flow)

	w := doMultipart(router, "/api/interview/"+testSessionID+"/start", map[string]string{"name": "Bob", "email": "b@x.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, flow.started)
}

func TestStartInterviewOutsideWindow(t *testing.T) {
	flow := &fakeFlow{err: errors.Forbidden("interview window is not open")}
	router := newInterviewEngine(flow)

	w := doMultipart(router, "/api/interview/"+testSessionID+"/start",
		map[string]string{"name": "Bob", "email": "b@x.com"},
		upload{field: "resume", filename: "bob.pdf", content: []byte("resume")})
	assert.Equal(t, http.StatusForbidden, w.Code)
	env := decode(t, w, nil)
	assert.Equal(t, "interview window is not open", env.Message)
}

func TestAnswer(t *testing.T) {
	flow := &fakeFlow{}
	router := newInterviewEngine(flow)

	w := doJSON(router, http.MethodPost, "/api/interview/answer", map[string]string{"reportId": testReportID, "interviewId": "iv-1", "answer": "I build services."})
	require.Equal(t, http.StatusOK, w.Code)
	var resp model.AnswerResponse
	decode(t, w, &resp)
	assert.False(t, resp.Stop)
	assert.Equal(t, "Why this role?", resp.NextQuestion)

	w = doJSON(router, http.MethodPost, "/api/interview/answer", map[string]string{"reportId": testReportID, "interviewId": "iv-1", "answer": "Because."})
	require.Equal(t, http.StatusOK, w.Code)
	resp = model.AnswerResponse{}
	decode(t, w, &resp)
	assert.True(t, resp.Stop)

	w = doJSON(router, http.MethodPost, "/api/interview/answer", map[string]string{"reportId": "nope", "interviewId": "iv-1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, flow.answered, 2)
}
