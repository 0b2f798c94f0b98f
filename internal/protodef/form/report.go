package form

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/solutions/interview-gate/internal/common/utils"
	"github.com/solutions/interview-gate/internal/protodef/model"
)

// CreateReportForm 候选人进入面试流程时创建报告。
type CreateReportForm struct {
	SessionID       string `json:"sessionId" form:"sessionId"`
	InterviewerID   string `json:"interviewerId" form:"interviewerId"`
	UserID          string `json:"userId" form:"userId"`
	Email           string `json:"email" form:"email"`
	Name            string `json:"name" form:"name"`
	PreferredDomain string `json:"preferredDomain" form:"preferredDomain"`
	YearOfStudy     string `json:"yearOfStudy" form:"yearOfStudy"`
	ResumeURL       string `json:"resumeUrl" form:"resumeUrl"`
}

func (f *CreateReportForm) Normalize() {
	f.Email = utils.NormalizeEmail(f.Email)
}

func (f *CreateReportForm) Validate() error {
	return validation.ValidateStruct(f,
		validation.Field(&f.SessionID, validation.Required, IDRule),
		validation.Field(&f.InterviewerID, validation.Required),
		validation.Field(&f.Email, validation.Required, is.EmailFormat),
		validation.Field(&f.Name, validation.Required),
	)
}

// CandidateActionForm 面试官对候选人做出录用或拒绝的决定。
type CandidateActionForm struct {
	ReportID    string `json:"reportId" form:"reportId"`
	Email       string `json:"email" form:"email"`
	Decision    string `json:"decision" form:"decision"`
	CompanyName string `json:"companyName" form:"companyName"`
}

func (f *CandidateActionForm) Normalize() {
	f.Email = utils.NormalizeEmail(f.Email)
}

func (f *CandidateActionForm) Validate() error {
	return validation.ValidateStruct(f,
		validation.Field(&f.ReportID, validation.Required, IDRule),
		validation.Field(&f.Email, validation.Required, is.EmailFormat),
		validation.Field(&f.Decision, validation.Required,
			validation.In(string(model.DecisionSelected), string(model.DecisionRejected)).Error("decision must be selected or rejected")),
		validation.Field(&f.CompanyName, validation.Required),
	)
}
