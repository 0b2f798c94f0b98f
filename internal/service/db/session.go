package db

import (
	"time"

	"github.com/qiniu/x/xlog"
	"gopkg.in/mgo.v2"
	"gopkg.in/mgo.v2/bson"

	"github.com/solutions/interview-gate/internal/common/utils"
	"github.com/solutions/interview-gate/internal/protodef/model"
	"github.com/solutions/interview-gate/internal/service/db/dao"
)

type SessionService struct {
	mongoClient *mgo.Session
	sessionColl *mgo.Collection
	xl          *xlog.Logger
}

func NewSessionService(conf utils.MongoConfig, xl *xlog.Logger) (*SessionService, error) {
	if xl == nil {
		xl = xlog.New("interview-gate-session-db")
	}
	mongoClient, sessionColl, err := openCollection(conf, dao.CollectionInterviewSession, xl)
	if err != nil {
		return nil, err
	}
	return &SessionService{
		mongoClient: mongoClient,
		sessionColl: sessionColl,
		xl:          xl,
	}, nil
}

func (c *SessionService) CreateSession(xl *xlog.Logger, session *model.InterviewSessionDo) error {
	if xl == nil {
		xl = c.xl
	}
	if session.ID == "" {
		session.ID = bson.NewObjectId().Hex()
	}
	now := time.Now()
	session.CreateTime = now
	session.UpdateTime = now
	if err := c.sessionColl.Insert(session); err != nil {
		return translateError(xl, err, "session")
	}
	xl.Infof("interviewer %s created session %s with %d candidates", session.InterviewerID, session.ID, len(session.CandidateEmails))
	return nil
}

func (c *SessionService) GetSession(xl *xlog.Logger, id string) (*model.InterviewSessionDo, error) {
	if xl == nil {
		xl = c.xl
	}
	session := model.InterviewSessionDo{}
	if err := c.sessionColl.FindId(id).One(&session); err != nil {
		return nil, translateError(xl, err, "session")
	}
	return &session, nil
}

// ListSessionsByInterviewer 面试官创建的面试，按创建时间倒序。
func (c *SessionService) ListSessionsByInterviewer(xl *xlog.Logger, interviewerID string) ([]model.InterviewSessionDo, error) {
	if xl == nil {
		xl = c.xl
	}
	sessions := []model.InterviewSessionDo{}
	err := c.sessionColl.Find(bson.M{"interviewerId": interviewerID}).Sort("-createTime").All(&sessions)
	if err != nil {
		return nil, translateError(xl, err, "session")
	}
	return sessions, nil
}

func (c *SessionService) ListSessionsByStatus(xl *xlog.Logger, status model.SessionStatus) ([]model.InterviewSessionDo, error) {
	if xl == nil {
		xl = c.xl
	}
	sessions := []model.InterviewSessionDo{}
	if err := c.sessionColl.Find(bson.M{"status": status}).All(&sessions); err != nil {
		return nil, translateError(xl, err, "session")
	}
	return sessions, nil
}

// UpdateSessionStatus 仅当当前状态为 from 时更新为 to，返回是否发生了更新。
func (c *SessionService) UpdateSessionStatus(xl *xlog.Logger, id string, from model.SessionStatus, to model.SessionStatus) (bool, error) {
	if xl == nil {
		xl = c.xl
	}
	err := c.sessionColl.Update(
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updateTime": time.Now()}},
	)
	if err == mgo.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, translateError(xl, err, "session")
	}
	return true, nil
}

// Ping 检查 mongo 连接是否可用。
func (c *SessionService) Ping(xl *xlog.Logger) error {
	if xl == nil {
		xl = c.xl
	}
	session := c.mongoClient.Copy()
	defer session.Close()
	if err := session.Ping(); err != nil {
		xl.Errorf("mongo ping failed, error %v", err)
		return err
	}
	return nil
}
