package handler

import (
	"context"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/qiniu/x/xlog"

	"github.com/solutions/interview-gate/internal/protodef/errors"
	"github.com/solutions/interview-gate/internal/protodef/form"
	"github.com/solutions/interview-gate/internal/protodef/model"
	"github.com/solutions/interview-gate/internal/service/cloud"
	"github.com/solutions/interview-gate/internal/service/interview"
)

type InterviewFlow interface {
	Start(ctx context.Context, xl *xlog.Logger, args interview.StartArgs) (*interview.StartResult, error)
	Answer(ctx context.Context, xl *xlog.Logger, reportID string, interviewID string, answer string) (*cloud.AnswerResult, error)
}

type InterviewApiHandler struct {
	Flow InterviewFlow
}

func NewInterviewApiHandler(flow InterviewFlow) *InterviewApiHandler {
	return &InterviewApiHandler{Flow: flow}
}

// Start 候选人在窗口打开时上传简历并开始面试。
func (h *InterviewApiHandler) Start(c *gin.Context) {
	xl := requestLogger(c)
	args := &form.StartInterviewForm{}
	if !bindForm(c, xl, args) {
		return
	}
	fileHeader, err := c.FormFile("resume")
	if err != nil {
		xl.Infof("missing resume file, error %v", err)
		sendError(c, xl, errors.Validation("resume file is required"))
		return
	}
	if fileHeader.Size > interview.MaxResumeSize {
		sendError(c, xl, errors.Validation("resume file is too large"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		sendError(c, xl, errors.Internal(err))
		return
	}
	defer file.Close()
	resume, err := io.ReadAll(io.LimitReader(file, interview.MaxResumeSize+1))
	if err != nil {
		sendError(c, xl, errors.Internal(err))
		return
	}

	result, err := h.Flow.Start(c.Request.Context(), xl, interview.StartArgs{
		SessionID:       c.Param("sessionId"),
		Name:            args.Name,
		Email:           args.Email,
		PreferredDomain: args.PreferredDomain,
		YearOfStudy:     args.YearOfStudy,
		ResumeFilename:  fileHeader.Filename,
		Resume:          resume,
	})
	if err != nil {
		sendError(c, xl, err)
		return
	}
	resp := model.StartInterviewResponse{
		ReportID:      result.Report.ID,
		CandidateID:   result.CandidateID,
		InterviewID:   result.InterviewID,
		FirstQuestion: result.FirstQuestion,
	}
	if url := result.Report.CandidateOverview.ResumeURL; url != nil {
		resp.ResumeURL = *url
	}
	model.NewSuccessResponse(resp).WithRequestID(xl.ReqId).Send(c)
}

func (h *InterviewApiHandler) Answer(c *gin.Context) {
	xl := requestLogger(c)
	args := &form.AnswerForm{}
	if !bindForm(c, xl, args) {
		return
	}
	result, err := h.Flow.Answer(c.Request.Context(), xl, args.ReportID, args.InterviewID, args.Answer)
	if err != nil {
		sendError(c, xl, err)
		return
	}
	resp := model.AnswerResponse{Stop: result.Stop, NextQuestion: result.NextQuestion}
	model.NewSuccessResponse(resp).WithRequestID(xl.ReqId).Send(c)
}
