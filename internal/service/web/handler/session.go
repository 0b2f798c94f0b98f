package handler

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/qiniu/x/xlog"

	"github.com/solutions/interview-gate/internal/protodef/errors"
	"github.com/solutions/interview-gate/internal/protodef/form"
	"github.com/solutions/interview-gate/internal/protodef/model"
	"github.com/solutions/interview-gate/internal/service/gate"
	"github.com/solutions/interview-gate/internal/service/schedule"
)

// MaxSheetSize 候选人名单文件大小上限。
const MaxSheetSize = 5 << 20

type SessionRegistry interface {
	CreateSession(xl *xlog.Logger, interviewerID string, date string, startTime string, rows []form.CandidateRow) (*model.InterviewSessionDo, error)
	GetSession(xl *xlog.Logger, id string) (*model.InterviewSessionDo, error)
	CheckCandidate(xl *xlog.Logger, id string, email string) (*schedule.CandidateCheck, error)
	CancelSession(xl *xlog.Logger, interviewerID string, id string) (*model.InterviewSessionDo, error)
	ListSessions(xl *xlog.Logger, interviewerID string) ([]model.InterviewSessionDo, error)
}

type SessionApiHandler struct {
	Registry        SessionRegistry
	Gate            *gate.Gate
	FrontendUrlHost string
	now             func() time.Time
}

func NewSessionApiHandler(registry SessionRegistry, g *gate.Gate, frontendUrlHost string) *SessionApiHandler {
	return &SessionApiHandler{
		Registry:        registry,
		Gate:            g,
		FrontendUrlHost: strings.TrimSuffix(frontendUrlHost, "/"),
		now:             time.Now,
	}
}

// interviewLink 候选人打开的面试入口页面。
func (h *SessionApiHandler) interviewLink(sessionID string) string {
	if h.FrontendUrlHost == "" {
		return ""
	}
	return h.FrontendUrlHost + "/interviewcheck/" + sessionID
}

func (h *SessionApiHandler) sessionInfo(session *model.InterviewSessionDo) (*model.SessionInfoResponse, error) {
	state, window, err := h.Gate.Evaluate(session, h.now())
	if err != nil {
		return nil, err
	}
	return &model.SessionInfoResponse{
		SessionID:     session.ID,
		InterviewerID: session.InterviewerID,
		StartTime:     session.StartTime,
		ScheduledDate: session.Date,
		Status:        string(session.Status),
		WindowState:   string(state),
		WindowStart:   window.Start,
		WindowEnd:     window.End,
	}, nil
}

// Generate 创建面试。multipart 请求从 file 字段读取 CSV/XLSX 名单，JSON 请求使用 candidates。
func (h *SessionApiHandler) Generate(c *gin.Context) {
	xl := requestLogger(c)
	args := &form.GenerateSessionForm{}
	if !bindForm(c, xl, args) {
		return
	}
	rows := args.Candidates
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			xl.Infof("missing candidate sheet, error %v", err)
			sendError(c, xl, errors.Validation("candidate sheet file is required"))
			return
		}
		if fileHeader.Size > MaxSheetSize {
			sendError(c, xl, errors.Validation("candidate sheet is too large"))
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			sendError(c, xl, errors.Internal(err))
			return
		}
		defer file.Close()
		rows, err = schedule.ParseCandidateSheet(fileHeader.Filename, file)
		if err != nil {
			sendError(c, xl, err)
			return
		}
	}

	session, err := h.Registry.CreateSession(xl, currentAccountID(c), args.Date, args.StartTime, rows)
	if err != nil {
		sendError(c, xl, err)
		return
	}
	xl.Infof("session %s created with %d candidates", session.ID, len(session.CandidateEmails))
	resp := model.CreateSessionResponse{
		SessionID:      session.ID,
		CandidateCount: len(session.CandidateEmails),
		Link:           h.interviewLink(session.ID),
	}
	model.NewCreatedResponse(resp).WithRequestID(xl.ReqId).Send(c)
}

func (h *SessionApiHandler) ListSessions(c *gin.Context) {
	xl := requestLogger(c)
	sessions, err := h.Registry.ListSessions(xl, currentAccountID(c))
	if err != nil {
		sendError(c, xl, err)
		return
	}
	if sessions == nil {
		sessions = []model.InterviewSessionDo{}
	}
	resp := model.SessionListResponse{Total: len(sessions), List: sessions}
	model.NewSuccessResponse(resp).WithRequestID(xl.ReqId).Send(c)
}

func (h *SessionApiHandler) CancelSession(c *gin.Context) {
	xl := requestLogger(c)
	session, err := h.Registry.CancelSession(xl, currentAccountID(c), c.Param("sessionId"))
	if err != nil {
		sendError(c, xl, err)
		return
	}
	info, err := h.sessionInfo(session)
	if err != nil {
		sendError(c, xl, err)
		return
	}
	model.NewSuccessResponse(info).WithRequestID(xl.ReqId).Send(c)
}

// CheckSession 无需登录，返回面试元信息与当前窗口状态。
func (h *SessionApiHandler) CheckSession(c *gin.Context) {
	xl := requestLogger(c)
	session, err := h.Registry.GetSession(xl, c.Param("sessionId"))
	if err != nil {
		sendError(c, xl, err)
		return
	}
	info, err := h.sessionInfo(session)
	if err != nil {
		sendError(c, xl, err)
		return
	}
	model.NewSuccessResponse(info).WithRequestID(xl.ReqId).Send(c)
}

// CheckCandidate 面试不存在时同样返回 emailExists=false。
func (h *SessionApiHandler) CheckCandidate(c *gin.Context) {
	xl := requestLogger(c)
	check, err := h.Registry.CheckCandidate(xl, c.Param("sessionId"), c.Param("email"))
	if err != nil {
		sendError(c, xl, err)
		return
	}
	resp := model.CheckCandidateResponse{EmailExists: check.EmailExists}
	if check.Session != nil {
		resp.SessionInfoResponse, err = h.sessionInfo(check.Session)
		if err != nil {
			sendError(c, xl, err)
			return
		}
	}
	model.NewSuccessResponse(resp).WithRequestID(xl.ReqId).Send(c)
}
