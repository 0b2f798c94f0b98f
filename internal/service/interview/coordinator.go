package interview

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/qiniu/x/xlog"

	"github.com/solutions/interview-gate/internal/common/utils"
	"github.com/solutions/interview-gate/internal/protodef/errors"
	"github.com/solutions/interview-gate/internal/protodef/model"
	"github.com/solutions/interview-gate/internal/service/cloud"
	"github.com/solutions/interview-gate/internal/service/gate"
	"github.com/solutions/interview-gate/internal/service/ledger"
	"github.com/solutions/interview-gate/internal/service/schedule"
)

// MaxResumeSize 简历文件大小上限。
const MaxResumeSize = 10 << 20

type Evaluator interface {
	UploadResume(ctx context.Context, xl *xlog.Logger, filename string, file io.Reader, name string, email string) (*cloud.ResumeUpload, error)
	StartInterview(ctx context.Context, xl *xlog.Logger, candidateID string, role string) (*cloud.InterviewStart, error)
	SubmitAnswer(ctx context.Context, xl *xlog.Logger, interviewID string, answer string) (*cloud.AnswerResult, error)
	GetFinalReport(ctx context.Context, xl *xlog.Logger, interviewID string) ([]byte, error)
}

type CandidateChecker interface {
	CheckCandidate(xl *xlog.Logger, id string, email string) (*schedule.CandidateCheck, error)
}

type ReportLedger interface {
	CreateReport(xl *xlog.Logger, sessionID string, interviewerID string, candidate ledger.CandidateInfo) (*model.EvaluationReportDo, error)
	AttachInterview(xl *xlog.Logger, reportID string, candidateID string, interviewID string) (*model.EvaluationReportDo, error)
	GetReport(xl *xlog.Logger, reportID string) (*ledger.ReportView, error)
	MergePayload(xl *xlog.Logger, reportID string, raw []byte) (*model.EvaluationReportDo, error)
}

// Coordinator 候选人从入场到报告写入的面试流程。
type Coordinator struct {
	sessions  CandidateChecker
	gate      *gate.Gate
	reports   ReportLedger
	evaluator Evaluator
	storage   cloud.ResumeStorage
	now       func() time.Time
	xl        *xlog.Logger
}

func NewCoordinator(sessions CandidateChecker, g *gate.Gate, reports ReportLedger, evaluator Evaluator, storage cloud.ResumeStorage, xl *xlog.Logger) *Coordinator {
	if xl == nil {
		xl = xlog.New("interview-gate-interview")
	}
	return &Coordinator{
		sessions:  sessions,
		gate:      g,
		reports:   reports,
		evaluator: evaluator,
		storage:   storage,
		now:       time.Now,
		xl:        xl,
	}
}

type StartArgs struct {
	SessionID       string
	Name            string
	Email           string
	PreferredDomain string
	YearOfStudy     string
	ResumeFilename  string
	Resume          []byte
}

type StartResult struct {
	Report        *model.EvaluationReportDo
	CandidateID   string
	InterviewID   string
	FirstQuestion string
}

// Start 窗口打开且候选人在名单中时，保存简历、创建报告并开始面试。
func (c *Coordinator) Start(ctx context.Context, xl *xlog.Logger, args StartArgs) (*StartResult, error) {
	if xl == nil {
		xl = c.xl
	}
	email := utils.NormalizeEmail(args.Email)
	if len(args.Resume) == 0 {
		return nil, errors.Validation("resume file is required")
	}
	if len(args.Resume) > MaxResumeSize {
		return nil, errors.Validation("resume file is too large")
	}
	check, err := c.sessions.CheckCandidate(xl, args.SessionID, email)
	if err != nil {
		return nil, err
	}
	if check.Session == nil {
		return nil, errors.NotFound("session not found")
	}
	if !check.EmailExists {
		return nil, errors.Forbidden("email is not invited to this session")
	}
	if err := c.gate.Admit(check.Session, c.now()); err != nil {
		return nil, err
	}

	resumeURL, err := c.storage.SaveResume(xl, args.SessionID, args.ResumeFilename, args.Resume)
	if err != nil {
		return nil, err
	}
	upload, err := c.evaluator.UploadResume(ctx, xl, args.ResumeFilename, bytes.NewReader(args.Resume), args.Name, email)
	if err != nil {
		return nil, err
	}
	report, err := c.reports.CreateReport(xl, args.SessionID, check.Session.InterviewerID, ledger.CandidateInfo{
		Name:            args.Name,
		Email:           email,
		ResumeURL:       resumeURL,
		PreferredDomain: args.PreferredDomain,
		YearOfStudy:     args.YearOfStudy,
	})
	if err != nil {
		return nil, err
	}
	started, err := c.evaluator.StartInterview(ctx, xl, upload.CandidateID, args.PreferredDomain)
	if err != nil {
		return nil, err
	}
	report, err = c.reports.AttachInterview(xl, report.ID, upload.CandidateID, started.InterviewID)
	if err != nil {
		return nil, err
	}
	xl.Infof("candidate %s started interview %s, report %s", email, started.InterviewID, report.ID)
	return &StartResult{
		Report:        report,
		CandidateID:   upload.CandidateID,
		InterviewID:   started.InterviewID,
		FirstQuestion: started.FirstQuestion,
	}, nil
}

// Answer 转发回答，评估服务结束面试时拉取最终报告合并到账本。
func (c *Coordinator) Answer(ctx context.Context, xl *xlog.Logger, reportID string, interviewID string, answer string) (*cloud.AnswerResult, error) {
	if xl == nil {
		xl = c.xl
	}
	view, err := c.reports.GetReport(xl, reportID)
	if err != nil {
		return nil, err
	}
	if view.Report.InterviewID == "" || view.Report.InterviewID != interviewID {
		return nil, errors.Validation("interview does not belong to the report")
	}
	result, err := c.evaluator.SubmitAnswer(ctx, xl, interviewID, answer)
	if err != nil {
		return nil, err
	}
	if !result.Stop {
		return result, nil
	}

	raw, err := c.evaluator.GetFinalReport(ctx, xl, interviewID)
	if err != nil {
		return nil, err
	}
	if _, err := c.reports.MergePayload(xl, reportID, raw); err != nil {
		if !errors.Is(err, errors.ServerErrorValidation) {
			return nil, err
		}
		xl.Warnf("final report of interview %s has nothing to merge, error %v", interviewID, err)
	}
	xl.Infof("interview %s finished, report %s finalized", interviewID, reportID)
	return result, nil
}
