package task

import (
	"time"

	"github.com/jasonlvhit/gocron"
	"github.com/qiniu/x/xlog"
)

// SessionCompleter 将窗口已过期的面试标记为结束。
type SessionCompleter interface {
	CompleteExpired(xl *xlog.Logger, now time.Time) (int, error)
}

// SessionTask 定时扫描 Scheduled 状态的面试。
type SessionTask struct {
	sessions SessionCompleter
	now      func() time.Time
	xl       *xlog.Logger
}

func NewSessionTask(sessions SessionCompleter, xl *xlog.Logger) *SessionTask {
	if xl == nil {
		xl = xlog.New("interview-gate-session-task")
	}
	return &SessionTask{sessions: sessions, now: time.Now, xl: xl}
}

func (t *SessionTask) TaskForCompleteExpiredSessions() {
	now := t.now()
	t.xl.Debugf("TaskForCompleteExpiredSessions run at %s", now.String())
	n, err := t.sessions.CompleteExpired(t.xl, now)
	if err != nil {
		t.xl.Errorf("TaskForCompleteExpiredSessions failed, error: %v", err)
		return
	}
	if n > 0 {
		t.xl.Infof("TaskForCompleteExpiredSessions completed %d sessions", n)
	}
}

// Schedule 每 interval 执行一次，关闭返回的 channel 停止调度。
func (t *SessionTask) Schedule(interval time.Duration) (*gocron.Scheduler, chan bool, error) {
	seconds := uint64(interval / time.Second)
	if seconds == 0 {
		seconds = 60
	}
	s := gocron.NewScheduler()
	if err := s.Every(seconds).Seconds().Do(t.TaskForCompleteExpiredSessions); err != nil {
		return nil, nil, err
	}
	return s, s.Start(), nil
}
