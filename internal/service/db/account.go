package db

import (
	"time"

	"github.com/qiniu/x/xlog"
	"gopkg.in/mgo.v2"
	"gopkg.in/mgo.v2/bson"

	"github.com/solutions/interview-gate/internal/common/utils"
	"github.com/solutions/interview-gate/internal/protodef/errors"
	"github.com/solutions/interview-gate/internal/protodef/model"
	"github.com/solutions/interview-gate/internal/service/db/dao"
)

// AccountService 用户注册、验证码、资料更新等账号存储操作。
type AccountService struct {
	mongoClient *mgo.Session
	accountColl *mgo.Collection
	xl          *xlog.Logger
}

func NewAccountService(conf utils.MongoConfig, xl *xlog.Logger) (*AccountService, error) {
	if xl == nil {
		xl = xlog.New("interview-gate-account-db")
	}
	mongoClient, accountColl, err := openCollection(conf, dao.CollectionAccount, xl)
	if err != nil {
		return nil, err
	}
	return &AccountService{
		mongoClient: mongoClient,
		accountColl: accountColl,
		xl:          xl,
	}, nil
}

// UpsertByUID 以身份服务ID为键创建或更新账号，同时写入新的验证码并丢弃未完成的重置密码。
func (c *AccountService) UpsertByUID(xl *xlog.Logger, account *model.AccountDo) (*model.AccountDo, error) {
	if xl == nil {
		xl = c.xl
	}
	now := time.Now()
	set := bson.M{
		"username":   account.Username,
		"email":      account.Email,
		"role":       account.Role,
		"otp":        account.Otp,
		"otpExpires": account.OtpExpires,
		"updateTime": now,
	}
	if account.PasswordHash != "" {
		set["passwordHash"] = account.PasswordHash
	}
	change := mgo.Change{
		Update: bson.M{
			"$set":   set,
			"$unset": bson.M{"pendingPasswordHash": ""},
			"$setOnInsert": bson.M{
				"_id":        bson.NewObjectId().Hex(),
				"createTime": now,
			},
		},
		Upsert:    true,
		ReturnNew: true,
	}
	result := model.AccountDo{}
	_, err := c.accountColl.Find(bson.M{"uid": account.UID}).Apply(change, &result)
	if err != nil {
		if mgo.IsDup(err) {
			xl.Infof("username %s or email %s already used by another account", account.Username, account.Email)
			return nil, errors.Wrap(errors.ServerErrorConflict, "username or email already in use", err)
		}
		return nil, translateError(xl, err, "account")
	}
	return &result, nil
}

// GetAccountByID 使用ID查找账号。
func (c *AccountService) GetAccountByID(xl *xlog.Logger, id string) (*model.AccountDo, error) {
	return c.GetAccountByFields(xl, bson.M{"_id": id})
}

// GetAccountByUID 使用身份服务ID查找账号。
func (c *AccountService) GetAccountByUID(xl *xlog.Logger, uid string) (*model.AccountDo, error) {
	return c.GetAccountByFields(xl, bson.M{"uid": uid})
}

// GetAccountByEmail 使用邮箱查找账号。
func (c *AccountService) GetAccountByEmail(xl *xlog.Logger, email string) (*model.AccountDo, error) {
	return c.GetAccountByFields(xl, bson.M{"email": email})
}

// GetAccountByFields 根据一组key/value关系查找用户账号。
func (c *AccountService) GetAccountByFields(xl *xlog.Logger, fields bson.M) (*model.AccountDo, error) {
	if xl == nil {
		xl = c.xl
	}
	account := model.AccountDo{}
	err := c.accountColl.Find(fields).One(&account)
	if err != nil {
		if err == mgo.ErrNotFound {
			xl.Infof("no such user for fields %v", fields)
		}
		return nil, translateError(xl, err, "account")
	}
	return &account, nil
}

// SetPendingOtp 为已存在的账号写入新的验证码与待生效的密码哈希。
func (c *AccountService) SetPendingOtp(xl *xlog.Logger, email string, otp string, expires time.Time, pendingPasswordHash string) error {
	if xl == nil {
		xl = c.xl
	}
	err := c.accountColl.Update(bson.M{"email": email}, bson.M{"$set": bson.M{
		"otp":                 otp,
		"otpExpires":          expires,
		"pendingPasswordHash": pendingPasswordHash,
		"updateTime":          time.Now(),
	}})
	return translateError(xl, err, "account")
}

// ConsumeOtp 原子地校验并清除验证码：仅当 email、otp 匹配且未过期时才更新。
// pendingPasswordHash 不为空时要求与库中一致，并在同一次更新中写入正式密码。
func (c *AccountService) ConsumeOtp(xl *xlog.Logger, email string, otp string, now time.Time, pendingPasswordHash string) (*model.AccountDo, error) {
	if xl == nil {
		xl = c.xl
	}
	selector := bson.M{
		"email":      email,
		"otp":        otp,
		"otpExpires": bson.M{"$gte": now},
	}
	update := bson.M{
		"$unset": bson.M{"otp": "", "otpExpires": "", "pendingPasswordHash": ""},
		"$set":   bson.M{"updateTime": now},
	}
	if pendingPasswordHash != "" {
		selector["pendingPasswordHash"] = pendingPasswordHash
		update["$set"] = bson.M{"updateTime": now, "passwordHash": pendingPasswordHash}
	}
	result := model.AccountDo{}
	_, err := c.accountColl.Find(selector).Apply(mgo.Change{Update: update, ReturnNew: true}, &result)
	if err != nil {
		if err == mgo.ErrNotFound {
			xl.Infof("otp for %s mismatched, expired or already used", email)
			return nil, errors.InvalidOtp()
		}
		return nil, translateError(xl, err, "account")
	}
	return &result, nil
}

// UpdateUsername 修改用户名。
func (c *AccountService) UpdateUsername(xl *xlog.Logger, id string, username string) (*model.AccountDo, error) {
	if xl == nil {
		xl = c.xl
	}
	result := model.AccountDo{}
	change := mgo.Change{
		Update:    bson.M{"$set": bson.M{"username": username, "updateTime": time.Now()}},
		ReturnNew: true,
	}
	_, err := c.accountColl.FindId(id).Apply(change, &result)
	if err != nil {
		if mgo.IsDup(err) {
			return nil, errors.Wrap(errors.ServerErrorConflict, "username already in use", err)
		}
		return nil, translateError(xl, err, "account")
	}
	return &result, nil
}
