package db

import (
	"github.com/qiniu/x/xlog"
	"gopkg.in/mgo.v2"

	"github.com/solutions/interview-gate/internal/common/utils"
	"github.com/solutions/interview-gate/internal/protodef/model"
	"github.com/solutions/interview-gate/internal/service/db/dao"
)

// ActionService 保存请求流水。
type ActionService struct {
	mongoClient *mgo.Session
	actionColl  *mgo.Collection
	xl          *xlog.Logger
}

func NewActionService(conf utils.MongoConfig, xl *xlog.Logger) (*ActionService, error) {
	if xl == nil {
		xl = xlog.New("interview-gate-action-db")
	}
	mongoClient, actionColl, err := openCollection(conf, dao.ActionCollection, xl)
	if err != nil {
		return nil, err
	}
	return &ActionService{mongoClient: mongoClient, actionColl: actionColl, xl: xl}, nil
}

func (c *ActionService) SaveAction(xl *xlog.Logger, record *model.ActionRecordDo) error {
	if xl == nil {
		xl = c.xl
	}
	if err := c.actionColl.Insert(record); err != nil {
		xl.Errorf("failed save action %v, error %v", record, err)
		return err
	}
	return nil
}
