package gate

import (
	"time"

	"github.com/solutions/interview-gate/internal/protodef/errors"
	"github.com/solutions/interview-gate/internal/protodef/model"
)

const (
	dateLayout      = "2006-01-02"
	startTimeLayout = "15:04"

	// WindowLength 入场窗口长度，固定30分钟，不随面试变化。
	WindowLength = 30 * time.Minute
)

type State string

const (
	StateWaiting   State = "waiting"
	StateOpen      State = "open"
	StateExpired   State = "expired"
	StateCancelled State = "cancelled"
)

// Window 面试的入场窗口 [Start, End]，两端均包含。
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow 在 loc 时区内组合日期与开始时间。
func NewWindow(date string, startTime string, loc *time.Location) (Window, error) {
	if loc == nil {
		loc = time.Local
	}
	day, err := time.ParseInLocation(dateLayout, date, loc)
	if err != nil {
		return Window{}, errors.Validation("date must be YYYY-MM-DD")
	}
	clock, err := time.Parse(startTimeLayout, startTime)
	if err != nil {
		return Window{}, errors.Validation("startTime must be HH:MM")
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, loc)
	return Window{Start: start, End: start.Add(WindowLength)}, nil
}

func (w Window) StateAt(now time.Time) State {
	switch {
	case now.Before(w.Start):
		return StateWaiting
	case now.After(w.End):
		return StateExpired
	default:
		return StateOpen
	}
}

// Gate 按配置的时区计算面试窗口。
type Gate struct {
	loc *time.Location
}

func New(loc *time.Location) *Gate {
	if loc == nil {
		loc = time.Local
	}
	return &Gate{loc: loc}
}

func (g *Gate) Location() *time.Location {
	return g.loc
}

func (g *Gate) Window(session *model.InterviewSessionDo) (Window, error) {
	return NewWindow(session.Date, session.StartTime, g.loc)
}

// Evaluate 已取消的面试总是 cancelled，其余按时间判断。
func (g *Gate) Evaluate(session *model.InterviewSessionDo, now time.Time) (State, Window, error) {
	window, err := g.Window(session)
	if err != nil {
		return "", Window{}, err
	}
	if session.Status == model.SessionStatusCancelled {
		return StateCancelled, window, nil
	}
	return window.StateAt(now), window, nil
}

// Admit 只有窗口打开时才允许进入面试流程。
func (g *Gate) Admit(session *model.InterviewSessionDo, now time.Time) error {
	state, _, err := g.Evaluate(session, now)
	if err != nil {
		return err
	}
	switch state {
	case StateOpen:
		return nil
	case StateWaiting:
		return errors.Forbidden("interview has not started yet")
	case StateCancelled:
		return errors.Forbidden("interview has been cancelled")
	default:
		return errors.Forbidden("interview window has expired")
	}
}
