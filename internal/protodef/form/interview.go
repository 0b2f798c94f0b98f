package form

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/solutions/interview-gate/internal/common/utils"
)

// StartInterviewForm 候选人开始面试，简历以 multipart 文件 resume 上传。
type StartInterviewForm struct {
	Name            string `form:"name"`
	Email           string `form:"email"`
	PreferredDomain string `form:"preferredDomain"`
	YearOfStudy     string `form:"yearOfStudy"`
}

func (f *StartInterviewForm) Normalize() {
	f.Email = utils.NormalizeEmail(f.Email)
}

func (f *StartInterviewForm) Validate() error {
	return validation.ValidateStruct(f,
		validation.Field(&f.Name, validation.Required, validation.Length(1, 128)),
		validation.Field(&f.Email, validation.Required, is.EmailFormat),
	)
}

// AnswerForm 候选人回答当前问题。
type AnswerForm struct {
	ReportID    string `json:"reportId" form:"reportId"`
	InterviewID string `json:"interviewId" form:"interviewId"`
	Answer      string `json:"answer" form:"answer"`
}

func (f *AnswerForm) Validate() error {
	return validation.ValidateStruct(f,
		validation.Field(&f.ReportID, validation.Required, IDRule),
		validation.Field(&f.InterviewID, validation.Required),
	)
}
