package model

import (
	"time"
)

/*
	db_model.go: 规定数据存储的格式。
*/

// Role 账号角色。
type Role string

const (
	RoleCandidate Role = "candidate"
	RoleAdmin     Role = "admin"
	// RoleInterviewer 与 RoleAdmin 等价，注册时统一存为 admin。
	RoleInterviewer Role = "interviewer"
)

// ParseRole 解析注册时传入的角色，空值为 candidate。
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case "", RoleCandidate:
		return RoleCandidate, true
	case RoleAdmin, RoleInterviewer:
		return RoleAdmin, true
	}
	return "", false
}

// AccountDo 用户账号信息。
type AccountDo struct {
	// 用户ID，作为数据库唯一标识。
	ID string `json:"id" bson:"_id"`
	// UID 身份服务（Firebase）签发的用户ID，全局唯一。
	UID      string `json:"uid" bson:"uid"`
	Username string `json:"username" bson:"username"`
	// Email 小写存储，全局唯一。
	Email string `json:"email" bson:"email"`
	Role  Role   `json:"role" bson:"role"`
	// Otp 不为空时账号处于未验证状态，不能登录。
	Otp        string     `json:"-" bson:"otp,omitempty"`
	OtpExpires *time.Time `json:"-" bson:"otpExpires,omitempty"`
	// PendingPasswordHash 重置密码时暂存的新密码哈希，验证码通过后才生效。
	PendingPasswordHash string    `json:"-" bson:"pendingPasswordHash,omitempty"`
	PasswordHash        string    `json:"-" bson:"passwordHash,omitempty"`
	CreateTime          time.Time `json:"createTime" bson:"createTime"`
	UpdateTime          time.Time `json:"updateTime" bson:"updateTime"`
}

// Unverified 是否有待验证的验证码。
func (a *AccountDo) Unverified() bool {
	return a.Otp != ""
}

type SessionStatus string

const (
	SessionStatusScheduled SessionStatus = "Scheduled"
	SessionStatusCompleted SessionStatus = "Completed"
	SessionStatusCancelled SessionStatus = "Cancelled"
)

// InterviewSessionDo 面试官创建的一场面试，包含日期、开始时间与候选人邮箱列表。
type InterviewSessionDo struct {
	ID            string `json:"id" bson:"_id"`
	InterviewerID string `json:"interviewerId" bson:"interviewerId"`
	// Date 格式为 YYYY-MM-DD。
	Date string `json:"date" bson:"date"`
	// StartTime 格式为 HH:MM。
	StartTime       string        `json:"startTime" bson:"startTime"`
	CandidateEmails []string      `json:"candidateEmails" bson:"candidateEmails"`
	Status          SessionStatus `json:"status" bson:"status"`
	CreateTime      time.Time     `json:"createTime" bson:"createTime"`
	UpdateTime      time.Time     `json:"updateTime" bson:"updateTime"`
}

// HasCandidate 候选人邮箱是否在该面试中，email 需已转为小写。
func (s *InterviewSessionDo) HasCandidate(email string) bool {
	for _, e := range s.CandidateEmails {
		if e == email {
			return true
		}
	}
	return false
}

type DecisionStatus string

const (
	DecisionPending  DecisionStatus = "pending"
	DecisionSelected DecisionStatus = "selected"
	DecisionRejected DecisionStatus = "rejected"
)

// CandidateOverviewDo 候选人概况。
type CandidateOverviewDo struct {
	Name            *string `json:"name" bson:"name"`
	Email           *string `json:"email" bson:"email"`
	ResumeURL       *string `json:"resumeUrl" bson:"resumeUrl"`
	Summary         *string `json:"summary" bson:"summary"`
	PreferredDomain *string `json:"preferredDomain" bson:"preferredDomain"`
	YearOfStudy     *string `json:"yearOfStudy" bson:"yearOfStudy"`
}

// PerformanceDo 整体表现。
type PerformanceDo struct {
	Score   *float64 `json:"score" bson:"score"`
	Level   *string  `json:"level" bson:"level"`
	Summary *string  `json:"summary" bson:"summary"`
}

// SectionEvaluationDo 单个环节的评分与反馈。
type SectionEvaluationDo struct {
	Score    *float64 `json:"score" bson:"score"`
	Feedback *string  `json:"feedback" bson:"feedback"`
}

// EvaluationDo 分环节评价。
type EvaluationDo struct {
	General   *SectionEvaluationDo `json:"general" bson:"general"`
	HR        *SectionEvaluationDo `json:"hr" bson:"hr"`
	Technical *SectionEvaluationDo `json:"technical" bson:"technical"`
}

// RecommendationDo 最终建议。
type RecommendationDo struct {
	Decision      *string `json:"decision" bson:"decision"`
	Justification *string `json:"justification" bson:"justification"`
}

// EvaluationReportDo 一个候选人在一场面试中的评估报告。
type EvaluationReportDo struct {
	ID            string `json:"id" bson:"_id"`
	SessionID     string `json:"sessionId" bson:"sessionId"`
	InterviewerID string `json:"interviewerId" bson:"interviewerId"`
	// CandidateID 评估服务返回的候选人ID。
	CandidateID string `json:"candidateId,omitempty" bson:"candidateId,omitempty"`
	InterviewID string `json:"interviewId,omitempty" bson:"interviewId,omitempty"`

	CandidateOverview   CandidateOverviewDo `json:"candidateOverview" bson:"candidateOverview"`
	OverallPerformance  PerformanceDo       `json:"overallPerformance" bson:"overallPerformance"`
	Strengths           []string            `json:"strengths" bson:"strengths"`
	Weaknesses          []string            `json:"weaknesses" bson:"weaknesses"`
	Evaluation          EvaluationDo        `json:"evaluation" bson:"evaluation"`
	FinalRecommendation RecommendationDo    `json:"finalRecommendation" bson:"finalRecommendation"`

	DecisionStatus DecisionStatus `json:"decisionStatus" bson:"decisionStatus"`
	CompanyName    *string        `json:"companyName" bson:"companyName"`
	DecisionDate   *time.Time     `json:"decisionDate" bson:"decisionDate"`
	DecidedBy      *string        `json:"decidedBy" bson:"decidedBy"`

	CreateTime time.Time `json:"createTime" bson:"createTime"`
	UpdateTime time.Time `json:"updateTime" bson:"updateTime"`
}

// ActionRecordDo 请求流水。
type ActionRecordDo struct {
	Msg       string `json:"msg" bson:"msg"`
	AccountID string `json:"accountId" bson:"accountId"`
	RequestID string `json:"requestId" bson:"requestId"`
	Method    string `json:"method" bson:"method"`
	Subject   string `json:"subject" bson:"subject"`
	Status    int    `json:"status" bson:"status"`
	// LatencyMs 请求处理耗时，单位毫秒。
	LatencyMs int64     `json:"latencyMs" bson:"latencyMs"`
	Time      time.Time `json:"time" bson:"time"`
}
