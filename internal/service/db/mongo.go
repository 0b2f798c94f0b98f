package db

import (
	"github.com/qiniu/x/xlog"
	"gopkg.in/mgo.v2"

	"github.com/solutions/interview-gate/internal/common/utils"
	"github.com/solutions/interview-gate/internal/protodef/errors"
	"github.com/solutions/interview-gate/internal/service/db/dao"
)

// openCollection 连接 mongo 并确保索引存在。
func openCollection(conf utils.MongoConfig, name string, xl *xlog.Logger) (*mgo.Session, *mgo.Collection, error) {
	mongoClient, err := mgo.Dial(conf.URI)
	if err != nil {
		xl.Errorf("failed to create mongo client, error %v", err)
		return nil, nil, err
	}
	coll := mongoClient.DB(conf.Database).C(name)
	if err := dao.EnsureIndexes(coll); err != nil {
		xl.Errorf("failed to ensure indexes of %s, error %v", name, err)
		mongoClient.Close()
		return nil, nil, err
	}
	return mongoClient, coll, nil
}

// translateError 把 mgo 的错误转换为 ServerError。
func translateError(xl *xlog.Logger, err error, what string) error {
	switch {
	case err == nil:
		return nil
	case err == mgo.ErrNotFound:
		return errors.NotFound(what + " not found")
	case mgo.IsDup(err):
		return errors.Wrap(errors.ServerErrorConflict, what+" already exists", err)
	default:
		xl.Errorf("mongo operation on %s failed, error %v", what, err)
		return errors.Internal(err)
	}
}
