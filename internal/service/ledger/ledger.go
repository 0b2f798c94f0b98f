package ledger

import (
	"fmt"
	"time"

	"github.com/qiniu/x/xlog"
	"gopkg.in/mgo.v2/bson"

	"github.com/solutions/interview-gate/internal/common/utils"
	"github.com/solutions/interview-gate/internal/protodef/errors"
	"github.com/solutions/interview-gate/internal/protodef/model"
	"github.com/solutions/interview-gate/internal/service/cloud"
	"github.com/solutions/interview-gate/internal/service/db/dao"
)

type ReportStore interface {
	CreateReport(xl *xlog.Logger, report *model.EvaluationReportDo) error
	GetReport(xl *xlog.Logger, id string) (*model.EvaluationReportDo, error)
	ReplaceSubdocuments(xl *xlog.Logger, id string, fields map[string]interface{}) (*model.EvaluationReportDo, error)
	ListByInterviewer(xl *xlog.Logger, interviewerID string) ([]model.EvaluationReportDo, error)
	ListBySession(xl *xlog.Logger, sessionID string) ([]model.EvaluationReportDo, error)
	ListDecidedBy(xl *xlog.Logger, interviewerID string) ([]model.EvaluationReportDo, error)
}

// SessionLookup 创建报告时确认面试存在。
type SessionLookup interface {
	GetSession(xl *xlog.Logger, id string) (*model.InterviewSessionDo, error)
}

type AccountLookup interface {
	GetAccountByID(xl *xlog.Logger, id string) (*model.AccountDo, error)
}

// Ledger 评估报告的创建、合并与录用决定。
type Ledger struct {
	reports  ReportStore
	sessions SessionLookup
	accounts AccountLookup
	mail     cloud.MailSender
	now      func() time.Time
	xl       *xlog.Logger
}

func New(reports ReportStore, sessions SessionLookup, accounts AccountLookup, mail cloud.MailSender, xl *xlog.Logger) *Ledger {
	if xl == nil {
		xl = xlog.New("interview-gate-report-ledger")
	}
	return &Ledger{
		reports:  reports,
		sessions: sessions,
		accounts: accounts,
		mail:     mail,
		now:      time.Now,
		xl:       xl,
	}
}

type CandidateInfo struct {
	Name            string
	Email           string
	ResumeURL       string
	PreferredDomain string
	YearOfStudy     string
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// CreateReport 候选人进入面试流程时创建待决定的空报告，不检查重复。
func (l *Ledger) CreateReport(xl *xlog.Logger, sessionID string, interviewerID string, candidate CandidateInfo) (*model.EvaluationReportDo, error) {
	if xl == nil {
		xl = l.xl
	}
	if !bson.IsObjectIdHex(sessionID) {
		return nil, errors.Validation("malformed session id")
	}
	email := utils.NormalizeEmail(candidate.Email)
	if email == "" || candidate.Name == "" {
		return nil, errors.Validation("candidate name and email are required")
	}
	session, err := l.sessions.GetSession(xl, sessionID)
	if err != nil {
		return nil, err
	}
	if interviewerID != "" && interviewerID != session.InterviewerID {
		return nil, errors.Validation("interviewer does not own the session")
	}

	report := &model.EvaluationReportDo{
		SessionID:     sessionID,
		InterviewerID: session.InterviewerID,
		CandidateOverview: model.CandidateOverviewDo{
			Name:            optionalString(candidate.Name),
			Email:           &email,
			ResumeURL:       optionalString(candidate.ResumeURL),
			PreferredDomain: optionalString(candidate.PreferredDomain),
			YearOfStudy:     optionalString(candidate.YearOfStudy),
		},
		Strengths:      []string{},
		Weaknesses:     []string{},
		DecisionStatus: model.DecisionPending,
	}
	if err := l.reports.CreateReport(xl, report); err != nil {
		return nil, err
	}
	xl.Infof("created report %s for %s in session %s", report.ID, email, sessionID)
	return report, nil
}

// AttachInterview 记录评估服务中的候选人与面试ID。
func (l *Ledger) AttachInterview(xl *xlog.Logger, reportID string, candidateID string, interviewID string) (*model.EvaluationReportDo, error) {
	if xl == nil {
		xl = l.xl
	}
	return l.reports.ReplaceSubdocuments(xl, reportID, map[string]interface{}{
		dao.ReportFieldCandidateID: candidateID,
		dao.ReportFieldInterviewID: interviewID,
	})
}

// MergePayload 解析评估服务返回的报告并合并。
func (l *Ledger) MergePayload(xl *xlog.Logger, reportID string, raw []byte) (*model.EvaluationReportDo, error) {
	if !bson.IsObjectIdHex(reportID) {
		return nil, errors.Validation("malformed report id")
	}
	patch, err := ParseReportPatch(raw)
	if err != nil {
		return nil, err
	}
	return l.MergeFinalReport(xl, reportID, patch)
}

// MergeFinalReport 只覆盖片段中出现的字段，子文档整体替换。
func (l *Ledger) MergeFinalReport(xl *xlog.Logger, reportID string, patch *ReportPatch) (*model.EvaluationReportDo, error) {
	if xl == nil {
		xl = l.xl
	}
	if !bson.IsObjectIdHex(reportID) {
		return nil, errors.Validation("malformed report id")
	}
	if patch == nil || patch.Empty() {
		return nil, errors.Validation("no report fields to update")
	}
	report, err := l.reports.GetReport(xl, reportID)
	if err != nil {
		return nil, err
	}
	fields := patch.Apply(report)
	if len(fields) == 0 {
		return nil, errors.Validation("no report fields to update")
	}
	updated, err := l.reports.ReplaceSubdocuments(xl, reportID, fields)
	if err != nil {
		return nil, err
	}
	xl.Infof("merged %d fields into report %s", len(fields), reportID)
	return updated, nil
}

// ReportView 报告及做出决定的面试官。
type ReportView struct {
	Report  *model.EvaluationReportDo
	Decider *model.AccountDo
}

func (l *Ledger) GetReport(xl *xlog.Logger, reportID string) (*ReportView, error) {
	if xl == nil {
		xl = l.xl
	}
	if !bson.IsObjectIdHex(reportID) {
		return nil, errors.Validation("malformed report id")
	}
	report, err := l.reports.GetReport(xl, reportID)
	if err != nil {
		return nil, err
	}
	return l.view(xl, report), nil
}

func (l *Ledger) view(xl *xlog.Logger, report *model.EvaluationReportDo) *ReportView {
	view := &ReportView{Report: report}
	if report.DecidedBy == nil || *report.DecidedBy == "" {
		return view
	}
	decider, err := l.accounts.GetAccountByID(xl, *report.DecidedBy)
	if err != nil {
		xl.Warnf("failed to load decider %s of report %s, error %v", *report.DecidedBy, report.ID, err)
		return view
	}
	view.Decider = decider
	return view
}

func (l *Ledger) ListByInterviewer(xl *xlog.Logger, interviewerID string) ([]model.EvaluationReportDo, error) {
	if xl == nil {
		xl = l.xl
	}
	if interviewerID == "" {
		return nil, errors.Validation("interviewer id is required")
	}
	return l.reports.ListByInterviewer(xl, interviewerID)
}

func (l *Ledger) ListBySession(xl *xlog.Logger, sessionID string) ([]model.EvaluationReportDo, error) {
	if xl == nil {
		xl = l.xl
	}
	if !bson.IsObjectIdHex(sessionID) {
		return nil, errors.Validation("malformed session id")
	}
	return l.reports.ListBySession(xl, sessionID)
}

func (l *Ledger) ListDecidedBy(xl *xlog.Logger, interviewerID string) ([]model.EvaluationReportDo, error) {
	if xl == nil {
		xl = l.xl
	}
	if interviewerID == "" {
		return nil, errors.Validation("interviewer id is required")
	}
	return l.reports.ListDecidedBy(xl, interviewerID)
}

type DecideArgs struct {
	ReportID       string
	CandidateEmail string
	Decision       string
	CompanyName    string
	InterviewerID  string
}

// Decide 写入录用决定后通知候选人，邮件失败不回滚。重复调用以最后一次为准。
func (l *Ledger) Decide(xl *xlog.Logger, args DecideArgs) (*ReportView, error) {
	if xl == nil {
		xl = l.xl
	}
	email := utils.NormalizeEmail(args.CandidateEmail)
	if email == "" || args.Decision == "" || args.CompanyName == "" {
		return nil, errors.Validation("email, decision and company name are required")
	}
	decision := model.DecisionStatus(args.Decision)
	if decision != model.DecisionSelected && decision != model.DecisionRejected {
		return nil, errors.Validation("decision must be selected or rejected")
	}
	if !bson.IsObjectIdHex(args.ReportID) {
		return nil, errors.Validation("malformed report id")
	}
	report, err := l.reports.GetReport(xl, args.ReportID)
	if err != nil {
		return nil, err
	}
	if report.InterviewerID != args.InterviewerID {
		return nil, errors.Forbidden("report belongs to another interviewer")
	}
	if stored := report.CandidateOverview.Email; stored != nil && *stored != "" && utils.NormalizeEmail(*stored) != email {
		return nil, errors.Validation("email does not match the report's candidate")
	}
	if report.DecisionStatus != model.DecisionPending {
		xl.Warnf("report %s already decided as %s, overwriting with %s", report.ID, report.DecisionStatus, decision)
	}

	now := l.now()
	company := args.CompanyName
	decidedBy := args.InterviewerID
	updated, err := l.reports.ReplaceSubdocuments(xl, args.ReportID, map[string]interface{}{
		dao.ReportFieldDecisionStatus: decision,
		dao.ReportFieldCompanyName:    &company,
		dao.ReportFieldDecisionDate:   &now,
		dao.ReportFieldDecidedBy:      &decidedBy,
	})
	if err != nil {
		return nil, err
	}

	subject, body := decisionMail(updated, decision, company)
	if err := l.mail.SendMail(xl, email, subject, body); err != nil {
		xl.Errorf("decision on report %s saved but notifying %s failed, error %v", updated.ID, email, err)
	}
	return l.view(xl, updated), nil
}

func decisionMail(report *model.EvaluationReportDo, decision model.DecisionStatus, company string) (string, string) {
	name := "Candidate"
	if n := report.CandidateOverview.Name; n != nil && *n != "" {
		name = *n
	}
	if decision == model.DecisionSelected {
		return fmt.Sprintf("Congratulations! You have been selected by %s", company),
			fmt.Sprintf("Dear %s,\n\nWe are pleased to inform you that you have been selected by %s after your interview.\n\nBest regards,\n%s", name, company, company)
	}
	return fmt.Sprintf("Your interview result from %s", company),
		fmt.Sprintf("Dear %s,\n\nThank you for interviewing with %s. We will not be moving forward with your application at this time.\n\nBest regards,\n%s", name, company, company)
}
