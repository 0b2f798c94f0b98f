package form

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solutions/interview-gate/internal/protodef/errors"
)

func TestRegisterForm(t *testing.T) {
	f := &RegisterForm{UID: "uid-1", Username: "alice", Email: " A@X.com "}
	f.Normalize()
	assert.Equal(t, "a@x.com", f.Email)
	require.NoError(t, Check(f))

	f = &RegisterForm{Username: "alice", Email: "a@x.com", Password: "secret1"}
	assert.NoError(t, Check(f), "password may replace uid")

	f = &RegisterForm{Username: "alice", Email: "a@x.com"}
	err := Check(f)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ServerErrorValidation))

	f = &RegisterForm{UID: "u", Username: "alice", Email: "a@x.com", Role: "root"}
	assert.Error(t, Check(f))

	f = &RegisterForm{UID: "u", Username: "alice", Email: "a@x.com", Role: "interviewer"}
	assert.NoError(t, Check(f))

	f = &RegisterForm{UID: "u", Email: "a@x.com"}
	assert.Error(t, Check(f))
}

func TestVerifyOtpForm(t *testing.T) {
	assert.NoError(t, Check(&VerifyOtpForm{Email: "a@x.com", Otp: "123456"}))
	assert.Error(t, Check(&VerifyOtpForm{Email: "a@x.com", Otp: "12345"}))
	assert.Error(t, Check(&VerifyOtpForm{Email: "a@x.com", Otp: "12345a"}))
	assert.Error(t, Check(&VerifyOtpForm{Otp: "123456"}))
	assert.Error(t, Check(&VerifyOtpForm{Email: "a@x.com", Otp: "123456", IsPasswordReset: true}))
	assert.Error(t, Check(&VerifyOtpForm{Email: "a@x.com", Otp: "123456", IsPasswordReset: true, NewPassword: "short"}))
	assert.NoError(t, Check(&VerifyOtpForm{Email: "a@x.com", Otp: "123456", IsPasswordReset: true, NewPassword: "another1"}))
}

func TestGenerateSessionForm(t *testing.T) {
	assert.NoError(t, Check(&GenerateSessionForm{Date: "2025-09-01", StartTime: "10:00"}))
	assert.Error(t, Check(&GenerateSessionForm{Date: "01/09/2025", StartTime: "10:00"}))
	assert.Error(t, Check(&GenerateSessionForm{Date: "2025-09-01", StartTime: "25:00"}))
	assert.Error(t, Check(&GenerateSessionForm{StartTime: "10:00"}))
}

func TestCandidateActionForm(t *testing.T) {
	id := "5f1a2b3c4d5e6f7a8b9c0d1e"
	assert.NoError(t, Check(&CandidateActionForm{ReportID: id, Email: "b@x.com", Decision: "selected", CompanyName: "Acme"}))
	assert.Error(t, Check(&CandidateActionForm{ReportID: id, Email: "b@x.com", Decision: "maybe", CompanyName: "Acme"}))
	assert.Error(t, Check(&CandidateActionForm{ReportID: id, Email: "b@x.com", Decision: "rejected"}))
	assert.Error(t, Check(&CandidateActionForm{ReportID: "nope", Email: "b@x.com", Decision: "rejected", CompanyName: "Acme"}))
}

func TestCreateReportForm(t *testing.T) {
	f := &CreateReportForm{SessionID: "5f1a2b3c4d5e6f7a8b9c0d1e", InterviewerID: "i1", Email: "B@x.com", Name: "Bob"}
	f.Normalize()
	assert.NoError(t, Check(f))
	f.SessionID = "bad"
	assert.Error(t, Check(f))
}
