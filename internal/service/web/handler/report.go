package handler

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/qiniu/x/xlog"

	"github.com/solutions/interview-gate/internal/protodef/errors"
	"github.com/solutions/interview-gate/internal/protodef/form"
	"github.com/solutions/interview-gate/internal/protodef/model"
	"github.com/solutions/interview-gate/internal/service/ledger"
)

// MaxReportPayloadSize 最终报告请求体大小上限。
const MaxReportPayloadSize = 1 << 20

type ReportLedger interface {
	CreateReport(xl *xlog.Logger, sessionID string, interviewerID string, candidate ledger.CandidateInfo) (*model.EvaluationReportDo, error)
	MergePayload(xl *xlog.Logger, reportID string, raw []byte) (*model.EvaluationReportDo, error)
	GetReport(xl *xlog.Logger, reportID string) (*ledger.ReportView, error)
	ListByInterviewer(xl *xlog.Logger, interviewerID string) ([]model.EvaluationReportDo, error)
	ListBySession(xl *xlog.Logger, sessionID string) ([]model.EvaluationReportDo, error)
	ListDecidedBy(xl *xlog.Logger, interviewerID string) ([]model.EvaluationReportDo, error)
	Decide(xl *xlog.Logger, args ledger.DecideArgs) (*ledger.ReportView, error)
}

type ReportApiHandler struct {
	Ledger ReportLedger
}

func NewReportApiHandler(l ReportLedger) *ReportApiHandler {
	return &ReportApiHandler{Ledger: l}
}

func newReportResponse(view *ledger.ReportView) model.ReportResponse {
	resp := model.ReportResponse{EvaluationReportDo: *view.Report}
	if view.Decider != nil {
		decider := model.NewUserInfoResponse(view.Decider)
		resp.Decider = &decider
	}
	return resp
}

func sendReportList(c *gin.Context, xl *xlog.Logger, reports []model.EvaluationReportDo) {
	if reports == nil {
		reports = []model.EvaluationReportDo{}
	}
	resp := model.ReportListResponse{Total: len(reports), List: reports}
	model.NewSuccessResponse(resp).WithRequestID(xl.ReqId).Send(c)
}

func (h *ReportApiHandler) CreateReport(c *gin.Context) {
	xl := requestLogger(c)
	args := &form.CreateReportForm{}
	if !bindForm(c, xl, args) {
		return
	}
	report, err := h.Ledger.CreateReport(xl, args.SessionID, args.InterviewerID, ledger.CandidateInfo{
		Name:            args.Name,
		Email:           args.Email,
		ResumeURL:       args.ResumeURL,
		PreferredDomain: args.PreferredDomain,
		YearOfStudy:     args.YearOfStudy,
	})
	if err != nil {
		sendError(c, xl, err)
		return
	}
	model.NewCreatedResponse(model.CreateReportResponse{ReportID: report.ID}).WithRequestID(xl.ReqId).Send(c)
}

// UpdateReport 请求体为评估服务生成的最终报告，原样交给 ledger 解析合并。
func (h *ReportApiHandler) UpdateReport(c *gin.Context) {
	xl := requestLogger(c)
	if c.Request.ContentLength > MaxReportPayloadSize {
		sendError(c, xl, errors.Validation("report payload is too large"))
		return
	}
	// chunked 请求没有 Content-Length，读取时同样限制大小
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxReportPayloadSize)
	raw, err := c.GetRawData()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			sendError(c, xl, errors.Validation("report payload is too large"))
			return
		}
		xl.Infof("failed to read report payload, error %v", err)
		model.NewFailResponse(*model.NewResponseErrorBadRequest()).WithRequestID(xl.ReqId).Send(c)
		return
	}
	report, err := h.Ledger.MergePayload(xl, c.Param("reportId"), raw)
	if err != nil {
		sendError(c, xl, err)
		return
	}
	model.NewSuccessResponse(report).WithRequestID(xl.ReqId).Send(c)
}

// Candidates 面试官名下的全部报告。
func (h *ReportApiHandler) Candidates(c *gin.Context) {
	xl := requestLogger(c)
	interviewerID := c.Param("interviewerId")
	if !requireSelf(c, xl, interviewerID) {
		return
	}
	reports, err := h.Ledger.ListByInterviewer(xl, interviewerID)
	if err != nil {
		sendError(c, xl, err)
		return
	}
	sendReportList(c, xl, reports)
}

func (h *ReportApiHandler) GetReport(c *gin.Context) {
	xl := requestLogger(c)
	view, err := h.Ledger.GetReport(xl, c.Param("reportId"))
	if err != nil {
		sendError(c, xl, err)
		return
	}
	if !requireSelf(c, xl, view.Report.InterviewerID) {
		return
	}
	model.NewSuccessResponse(newReportResponse(view)).WithRequestID(xl.ReqId).Send(c)
}

// ListBySession 只返回当前面试官名下的报告。
func (h *ReportApiHandler) ListBySession(c *gin.Context) {
	xl := requestLogger(c)
	reports, err := h.Ledger.ListBySession(xl, c.Param("sessionId"))
	if err != nil {
		sendError(c, xl, err)
		return
	}
	accountID := currentAccountID(c)
	owned := make([]model.EvaluationReportDo, 0, len(reports))
	for _, report := range reports {
		if report.InterviewerID == accountID {
			owned = append(owned, report)
		}
	}
	sendReportList(c, xl, owned)
}

func (h *ReportApiHandler) ListDecidedBy(c *gin.Context) {
	xl := requestLogger(c)
	interviewerID := c.Param("interviewerId")
	if !requireSelf(c, xl, interviewerID) {
		return
	}
	reports, err := h.Ledger.ListDecidedBy(xl, interviewerID)
	if err != nil {
		sendError(c, xl, err)
		return
	}
	sendReportList(c, xl, reports)
}

// CandidateAction 当前登录的面试官对报告做出录用或拒绝的决定。
func (h *ReportApiHandler) CandidateAction(c *gin.Context) {
	xl := requestLogger(c)
	args := &form.CandidateActionForm{}
	if !bindForm(c, xl, args) {
		return
	}
	view, err := h.Ledger.Decide(xl, ledger.DecideArgs{
		ReportID:       args.ReportID,
		CandidateEmail: args.Email,
		Decision:       args.Decision,
		CompanyName:    args.CompanyName,
		InterviewerID:  currentAccountID(c),
	})
	if err != nil {
		sendError(c, xl, err)
		return
	}
	xl.Infof("report %s decided as %s", view.Report.ID, view.Report.DecisionStatus)
	model.NewSuccessResponse(newReportResponse(view)).WithRequestID(xl.ReqId).Send(c)
}
