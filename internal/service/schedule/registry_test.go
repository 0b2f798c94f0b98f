package schedule

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/qiniu/x/xlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gopkg.in/mgo.v2/bson"

	"github.com/solutions/interview-gate/internal/protodef/errors"
	"github.com/solutions/interview-gate/internal/protodef/form"
	"github.com/solutions/interview-gate/internal/protodef/model"
	"github.com/solutions/interview-gate/internal/service/gate"
)

type memorySessions struct {
	mutex    sync.Mutex
	sessions map[string]*model.InterviewSessionDo
}

func newMemorySessions() *memorySessions {
	return &memorySessions{sessions: map[string]*model.InterviewSessionDo{}}
}

func (m *memorySessions) CreateSession(xl *xlog.Logger, session *model.InterviewSessionDo) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	session.ID = bson.NewObjectId().Hex()
	c := *session
	m.sessions[session.ID] = &c
	return nil
}

func (m *memorySessions) GetSession(xl *xlog.Logger, id string) (*model.InterviewSessionDo, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, errors.NotFound("session not found")
	}
	c := *s
	return &c, nil
}

func (m *memorySessions) ListSessionsByInterviewer(xl *xlog.Logger, interviewerID string) ([]model.InterviewSessionDo, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	list := []model.InterviewSessionDo{}
	for _, s := range m.sessions {
		if s.InterviewerID == interviewerID {
			list = append(list, *s)
		}
	}
	return list, nil
}

func (m *memorySessions) ListSessionsByStatus(xl *xlog.Logger, status model.SessionStatus) ([]model.InterviewSessionDo, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	list := []model.InterviewSessionDo{}
	for _, s := range m.sessions {
		if s.Status == status {
			list = append(list, *s)
		}
	}
	return list, nil
}

func (m *memorySessions) UpdateSessionStatus(xl *xlog.Logger, id string, from model.SessionStatus, to model.SessionStatus) (bool, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.Status != from {
		return false, nil
	}
	s.Status = to
	return true, nil
}

func newRegistry() (*Registry, *memorySessions) {
	store := newMemorySessions()
	return NewRegistry(store, gate.New(time.UTC), xlog.New("test")), store
}

func TestCreateSessionAndCheckCandidate(t *testing.T) {
	r, _ := newRegistry()
	session, err := r.CreateSession(nil, "interviewer-1", "2025-09-01", "10:00", []form.CandidateRow{{"email": "b@x.com"}})
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusScheduled, session.Status)
	assert.Equal(t, []string{"b@x.com"}, session.CandidateEmails)

	check, err := r.CheckCandidate(nil, session.ID, "B@X.COM")
	require.NoError(t, err)
	assert.True(t, check.EmailExists)
	assert.Equal(t, "interviewer-1", check.Session.InterviewerID)
	assert.Equal(t, "10:00", check.Session.StartTime)
	assert.Equal(t, "2025-09-01", check.Session.Date)

	check, err = r.CheckCandidate(nil, session.ID, "c@x.com")
	require.NoError(t, err)
	assert.False(t, check.EmailExists)
}

func TestCreateSessionNormalizesEmails(t *testing.T) {
	r, _ := newRegistry()
	rows := []form.CandidateRow{
		{"Email": "  A@X.com "},
		{"EMAIL": ""},
		{"name": "no email"},
		{"email": "a@x.com"},
	}
	session, err := r.CreateSession(nil, "i", "2025-09-01", "10:00", rows)
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.com", "a@x.com"}, session.CandidateEmails)
}

func TestCreateSessionValidation(t *testing.T) {
	r, _ := newRegistry()
	_, err := r.CreateSession(nil, "i", "2025-09-01", "10:00", []form.CandidateRow{{"email": " "}})
	assert.True(t, errors.Is(err, errors.ServerErrorValidation))
	_, err = r.CreateSession(nil, "i", "01-09-2025", "10:00", []form.CandidateRow{{"email": "a@x.com"}})
	assert.True(t, errors.Is(err, errors.ServerErrorValidation))
	_, err = r.CreateSession(nil, "", "2025-09-01", "10:00", []form.CandidateRow{{"email": "a@x.com"}})
	assert.True(t, errors.Is(err, errors.ServerErrorValidation))
}

func TestGetSessionErrors(t *testing.T) {
	r, _ := newRegistry()
	_, err := r.GetSession(nil, "not-an-id")
	assert.True(t, errors.Is(err, errors.ServerErrorValidation))
	_, err = r.GetSession(nil, bson.NewObjectId().Hex())
	assert.True(t, errors.Is(err, errors.ServerErrorNotFound))

	_, err = r.CheckCandidate(nil, "not-an-id", "a@x.com")
	assert.True(t, errors.Is(err, errors.ServerErrorValidation))
	check, err := r.CheckCandidate(nil, bson.NewObjectId().Hex(), "a@x.com")
	require.NoError(t, err)
	assert.False(t, check.EmailExists)
	assert.Nil(t, check.Session)
}

func TestCancelSession(t *testing.T) {
	r, store := newRegistry()
	session, err := r.CreateSession(nil, "owner", "2025-09-01", "10:00", []form.CandidateRow{{"email": "a@x.com"}})
	require.NoError(t, err)

	_, err = r.CancelSession(nil, "someone-else", session.ID)
	assert.True(t, errors.Is(err, errors.ServerErrorForbidden))

	cancelled, err := r.CancelSession(nil, "owner", session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusCancelled, cancelled.Status)
	_, err = r.CancelSession(nil, "owner", session.ID)
	assert.NoError(t, err)

	other, err := r.CreateSession(nil, "owner", "2025-09-01", "10:00", []form.CandidateRow{{"email": "a@x.com"}})
	require.NoError(t, err)
	store.sessions[other.ID].Status = model.SessionStatusCompleted
	_, err = r.CancelSession(nil, "owner", other.ID)
	assert.True(t, errors.Is(err, errors.ServerErrorConflict))

	list, err := r.ListSessions(nil, "owner")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestCompleteExpired(t *testing.T) {
	r, store := newRegistry()
	rows := []form.CandidateRow{{"email": "a@x.com"}}
	past, err := r.CreateSession(nil, "i", "2025-09-01", "10:00", rows)
	require.NoError(t, err)
	open, err := r.CreateSession(nil, "i", "2025-09-01", "11:00", rows)
	require.NoError(t, err)
	cancelled, err := r.CreateSession(nil, "i", "2025-09-01", "09:00", rows)
	require.NoError(t, err)
	_, err = r.CancelSession(nil, "i", cancelled.ID)
	require.NoError(t, err)

	n, err := r.CompleteExpired(nil, time.Date(2025, 9, 1, 11, 10, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, model.SessionStatusCompleted, store.sessions[past.ID].Status)
	assert.Equal(t, model.SessionStatusScheduled, store.sessions[open.ID].Status)
	assert.Equal(t, model.SessionStatusCancelled, store.sessions[cancelled.ID].Status)
}

func TestParseCandidateSheetCSV(t *testing.T) {
	data := "\ufeffName,EMAIL\nBob,B@X.com\nNobody,\nCarol, c@x.com\n"
	rows, err := ParseCandidateSheet("list.csv", strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Bob", rows[0]["name"])
	assert.Equal(t, []string{"b@x.com", "c@x.com"}, CandidateEmails(rows))
}

func TestParseCandidateSheetDuplicateEmailColumns(t *testing.T) {
	data := "Email,Name,EMAIL\nb@x.com,Bob,wrong@x.com\n,Nobody,also-wrong@x.com\n"
	for i := 0; i < 20; i++ {
		rows, err := ParseCandidateSheet("list.csv", strings.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, []string{"b@x.com"}, CandidateEmails(rows), "first email column wins")
	}
}

func TestCandidateEmailsPicksColumnDeterministically(t *testing.T) {
	rows := []form.CandidateRow{
		{"Email": "upper@x.com", "email": "exact@x.com", "EMAIL": "shout@x.com"},
		{"eMail": "m@x.com", "EMAIL": "s@x.com", "Email": "u@x.com"},
		{"name": "Nobody"},
	}
	for i := 0; i < 20; i++ {
		assert.Equal(t, []string{"exact@x.com", "s@x.com"}, CandidateEmails(rows))
	}
}

func TestParseCandidateSheetXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Name", "Email"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"Bob", "b@x.com"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"Dan", "D@X.COM"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	rows, err := ParseCandidateSheet("list.xlsx", buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"b@x.com", "d@x.com"}, CandidateEmails(rows))
}

func TestParseCandidateSheetRejects(t *testing.T) {
	_, err := ParseCandidateSheet("list.pdf", strings.NewReader("x"))
	assert.True(t, errors.Is(err, errors.ServerErrorValidation))
	_, err = ParseCandidateSheet("list.xlsx", strings.NewReader("not a zip"))
	assert.True(t, errors.Is(err, errors.ServerErrorValidation))
	rows, err := ParseCandidateSheet("list.csv", strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, rows)
}
