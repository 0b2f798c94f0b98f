package schedule

import (
	"time"

	"github.com/qiniu/x/xlog"
	"gopkg.in/mgo.v2/bson"

	"github.com/solutions/interview-gate/internal/common/utils"
	"github.com/solutions/interview-gate/internal/protodef/errors"
	"github.com/solutions/interview-gate/internal/protodef/form"
	"github.com/solutions/interview-gate/internal/protodef/model"
	"github.com/solutions/interview-gate/internal/service/gate"
)

type SessionStore interface {
	CreateSession(xl *xlog.Logger, session *model.InterviewSessionDo) error
	GetSession(xl *xlog.Logger, id string) (*model.InterviewSessionDo, error)
	ListSessionsByInterviewer(xl *xlog.Logger, interviewerID string) ([]model.InterviewSessionDo, error)
	ListSessionsByStatus(xl *xlog.Logger, status model.SessionStatus) ([]model.InterviewSessionDo, error)
	UpdateSessionStatus(xl *xlog.Logger, id string, from model.SessionStatus, to model.SessionStatus) (bool, error)
}

// Registry 面试的创建与查询。
type Registry struct {
	sessions SessionStore
	gate     *gate.Gate
	xl       *xlog.Logger
}

func NewRegistry(sessions SessionStore, g *gate.Gate, xl *xlog.Logger) *Registry {
	if xl == nil {
		xl = xlog.New("interview-gate-session-registry")
	}
	return &Registry{sessions: sessions, gate: g, xl: xl}
}

// CreateSession 从候选人名单创建一场状态为 Scheduled 的面试。
func (r *Registry) CreateSession(xl *xlog.Logger, interviewerID string, date string, startTime string, rows []form.CandidateRow) (*model.InterviewSessionDo, error) {
	if xl == nil {
		xl = r.xl
	}
	if interviewerID == "" {
		return nil, errors.Validation("interviewer id is required")
	}
	if _, err := gate.NewWindow(date, startTime, r.gate.Location()); err != nil {
		return nil, err
	}
	emails := CandidateEmails(rows)
	if len(emails) == 0 {
		return nil, errors.Validation("no valid candidate emails found")
	}
	session := &model.InterviewSessionDo{
		InterviewerID:   interviewerID,
		Date:            date,
		StartTime:       startTime,
		CandidateEmails: emails,
		Status:          model.SessionStatusScheduled,
	}
	if err := r.sessions.CreateSession(xl, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (r *Registry) GetSession(xl *xlog.Logger, id string) (*model.InterviewSessionDo, error) {
	if xl == nil {
		xl = r.xl
	}
	if !bson.IsObjectIdHex(id) {
		return nil, errors.Validation("malformed session id")
	}
	return r.sessions.GetSession(xl, id)
}

// CandidateCheck 候选人是否在面试名单中，面试不存在时 Session 为 nil。
type CandidateCheck struct {
	EmailExists bool
	Session     *model.InterviewSessionDo
}

// CheckCandidate 面试不存在时返回 EmailExists=false 而不是错误。
func (r *Registry) CheckCandidate(xl *xlog.Logger, id string, email string) (*CandidateCheck, error) {
	session, err := r.GetSession(xl, id)
	if errors.Is(err, errors.ServerErrorNotFound) {
		return &CandidateCheck{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &CandidateCheck{
		EmailExists: session.HasCandidate(utils.NormalizeEmail(email)),
		Session:     session,
	}, nil
}

// CancelSession 只有创建者可以取消仍处于 Scheduled 状态的面试。
func (r *Registry) CancelSession(xl *xlog.Logger, interviewerID string, id string) (*model.InterviewSessionDo, error) {
	if xl == nil {
		xl = r.xl
	}
	session, err := r.GetSession(xl, id)
	if err != nil {
		return nil, err
	}
	if session.InterviewerID != interviewerID {
		return nil, errors.Forbidden("only the owner can cancel the session")
	}
	if session.Status == model.SessionStatusCancelled {
		return session, nil
	}
	updated, err := r.sessions.UpdateSessionStatus(xl, id, model.SessionStatusScheduled, model.SessionStatusCancelled)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, errors.Conflict("session is no longer scheduled")
	}
	xl.Infof("interviewer %s cancelled session %s", interviewerID, id)
	session.Status = model.SessionStatusCancelled
	return session, nil
}

func (r *Registry) ListSessions(xl *xlog.Logger, interviewerID string) ([]model.InterviewSessionDo, error) {
	if xl == nil {
		xl = r.xl
	}
	return r.sessions.ListSessionsByInterviewer(xl, interviewerID)
}

// CompleteExpired 将窗口已过期的 Scheduled 面试标记为 Completed，返回更新的数量。
func (r *Registry) CompleteExpired(xl *xlog.Logger, now time.Time) (int, error) {
	if xl == nil {
		xl = r.xl
	}
	sessions, err := r.sessions.ListSessionsByStatus(xl, model.SessionStatusScheduled)
	if err != nil {
		return 0, err
	}
	completed := 0
	for i := range sessions {
		session := &sessions[i]
		state, _, err := r.gate.Evaluate(session, now)
		if err != nil {
			xl.Warnf("session %s has malformed schedule %s %s, error %v", session.ID, session.Date, session.StartTime, err)
			continue
		}
		if state != gate.StateExpired {
			continue
		}
		updated, err := r.sessions.UpdateSessionStatus(xl, session.ID, model.SessionStatusScheduled, model.SessionStatusCompleted)
		if err != nil {
			xl.Errorf("failed to complete session %s, error %v", session.ID, err)
			continue
		}
		if updated {
			completed++
		}
	}
	return completed, nil
}
