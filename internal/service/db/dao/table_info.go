package dao

import (
	"gopkg.in/mgo.v2"
)

const (
	// CollectionAccount 存储账号信息的表。
	CollectionAccount = "accounts"

	// CollectionInterviewSession 存储面试信息的表。
	CollectionInterviewSession = "interview_sessions"

	// CollectionEvaluationReport 存储候选人评估报告的表。
	CollectionEvaluationReport = "evaluation_reports"

	// ActionCollection 全局日志流水
	ActionCollection = "actions"
)

// 评估报告中可整体替换的子文档字段。
const (
	ReportFieldCandidateOverview   = "candidateOverview"
	ReportFieldOverallPerformance  = "overallPerformance"
	ReportFieldStrengths           = "strengths"
	ReportFieldWeaknesses          = "weaknesses"
	ReportFieldEvaluation          = "evaluation"
	ReportFieldFinalRecommendation = "finalRecommendation"
	ReportFieldCandidateID         = "candidateId"
	ReportFieldInterviewID         = "interviewId"
	ReportFieldDecisionStatus      = "decisionStatus"
	ReportFieldCompanyName         = "companyName"
	ReportFieldDecisionDate        = "decisionDate"
	ReportFieldDecidedBy           = "decidedBy"
	ReportFieldUpdateTime          = "updateTime"
)

// Indexes 每个表需要的索引。
var Indexes = map[string][]mgo.Index{
	CollectionAccount: {
		{Key: []string{"uid"}, Unique: true},
		{Key: []string{"email"}, Unique: true},
		{Key: []string{"username"}, Unique: true},
	},
	CollectionInterviewSession: {
		{Key: []string{"interviewerId", "-createTime"}},
		{Key: []string{"status"}},
	},
	CollectionEvaluationReport: {
		{Key: []string{"interviewerId"}},
		{Key: []string{"sessionId"}},
		{Key: []string{"decidedBy"}},
	},
}

// EnsureIndexes 为表创建索引，已存在时不做任何操作。
func EnsureIndexes(coll *mgo.Collection) error {
	for _, index := range Indexes[coll.Name] {
		if err := coll.EnsureIndex(index); err != nil {
			return err
		}
	}
	return nil
}
