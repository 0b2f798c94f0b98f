package db

import (
	"strings"
	"time"

	"github.com/qiniu/x/xlog"
	"gopkg.in/mgo.v2"
	"gopkg.in/mgo.v2/bson"

	"github.com/solutions/interview-gate/internal/common/utils"
	"github.com/solutions/interview-gate/internal/protodef/errors"
	"github.com/solutions/interview-gate/internal/protodef/model"
	"github.com/solutions/interview-gate/internal/service/db/dao"
)

type ReportService struct {
	mongoClient *mgo.Session
	reportColl  *mgo.Collection
	xl          *xlog.Logger
}

func NewReportService(conf utils.MongoConfig, xl *xlog.Logger) (*ReportService, error) {
	if xl == nil {
		xl = xlog.New("interview-gate-report-db")
	}
	mongoClient, reportColl, err := openCollection(conf, dao.CollectionEvaluationReport, xl)
	if err != nil {
		return nil, err
	}
	return &ReportService{
		mongoClient: mongoClient,
		reportColl:  reportColl,
		xl:          xl,
	}, nil
}

func (c *ReportService) CreateReport(xl *xlog.Logger, report *model.EvaluationReportDo) error {
	if xl == nil {
		xl = c.xl
	}
	if report.ID == "" {
		report.ID = bson.NewObjectId().Hex()
	}
	now := time.Now()
	report.CreateTime = now
	report.UpdateTime = now
	if err := c.reportColl.Insert(report); err != nil {
		return translateError(xl, err, "report")
	}
	return nil
}

func (c *ReportService) GetReport(xl *xlog.Logger, id string) (*model.EvaluationReportDo, error) {
	if xl == nil {
		xl = c.xl
	}
	report := model.EvaluationReportDo{}
	if err := c.reportColl.FindId(id).One(&report); err != nil {
		return nil, translateError(xl, err, "report")
	}
	return &report, nil
}

// ReplaceSubdocuments 在一次原子更新中整体替换若干顶层字段，字段名不能包含"."。
func (c *ReportService) ReplaceSubdocuments(xl *xlog.Logger, id string, fields map[string]interface{}) (*model.EvaluationReportDo, error) {
	if xl == nil {
		xl = c.xl
	}
	set := bson.M{dao.ReportFieldUpdateTime: time.Now()}
	for name, value := range fields {
		if name == "" || name == "_id" || strings.ContainsAny(name, ".$") {
			return nil, errors.Validation("invalid report field " + name)
		}
		set[name] = value
	}
	report := model.EvaluationReportDo{}
	_, err := c.reportColl.FindId(id).Apply(mgo.Change{Update: bson.M{"$set": set}, ReturnNew: true}, &report)
	if err != nil {
		return nil, translateError(xl, err, "report")
	}
	return &report, nil
}

func (c *ReportService) ListByInterviewer(xl *xlog.Logger, interviewerID string) ([]model.EvaluationReportDo, error) {
	return c.listBy(xl, "interviewerId", interviewerID)
}

func (c *ReportService) ListBySession(xl *xlog.Logger, sessionID string) ([]model.EvaluationReportDo, error) {
	return c.listBy(xl, "sessionId", sessionID)
}

func (c *ReportService) ListDecidedBy(xl *xlog.Logger, interviewerID string) ([]model.EvaluationReportDo, error) {
	return c.listBy(xl, dao.ReportFieldDecidedBy, interviewerID)
}

func (c *ReportService) listBy(xl *xlog.Logger, field string, value string) ([]model.EvaluationReportDo, error) {
	if xl == nil {
		xl = c.xl
	}
	reports := []model.EvaluationReportDo{}
	if err := c.reportColl.Find(bson.M{field: value}).Sort("-createTime").All(&reports); err != nil {
		return nil, translateError(xl, err, "report")
	}
	return reports, nil
}
