package form

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/mgo.v2/bson"
)

const (
	DateLayout      = "2006-01-02"
	StartTimeLayout = "15:04"

	ErrDateMsg      = "date must be YYYY-MM-DD"
	ErrStartTimeMsg = "startTime must be HH:MM"
	ErrIDMsg        = "malformed id"
)

// CandidateRow 候选人名单中的一行，列名不区分大小写。
type CandidateRow map[string]string

// GenerateSessionForm 创建面试。候选人名单来自 Candidates 或上传的 CSV/XLSX 文件。
type GenerateSessionForm struct {
	Date       string         `json:"date" form:"date"`
	StartTime  string         `json:"startTime" form:"startTime"`
	Candidates []CandidateRow `json:"candidates" form:"-"`
}

func layoutRule(layout, msg string) validation.Rule {
	return validation.By(func(value interface{}) error {
		s, _ := value.(string)
		if _, err := time.Parse(layout, s); err != nil {
			return validation.NewError("validation_layout", msg)
		}
		return nil
	})
}

// IDRule 校验 ID 为合法的 ObjectId。
var IDRule = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if !bson.IsObjectIdHex(s) {
		return validation.NewError("validation_object_id", ErrIDMsg)
	}
	return nil
})

func (f *GenerateSessionForm) Validate() error {
	return validation.ValidateStruct(f,
		validation.Field(&f.Date, validation.Required, layoutRule(DateLayout, ErrDateMsg)),
		validation.Field(&f.StartTime, validation.Required, layoutRule(StartTimeLayout, ErrStartTimeMsg)),
	)
}
