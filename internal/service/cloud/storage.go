package cloud

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/qiniu/go-sdk/v7/auth/qbox"
	"github.com/qiniu/go-sdk/v7/storage"
	"github.com/qiniu/x/xlog"

	"github.com/solutions/interview-gate/internal/common/utils"
	"github.com/solutions/interview-gate/internal/protodef/errors"
)

// ResumeStorage 保存候选人上传的简历，返回可访问的URL。
type ResumeStorage interface {
	SaveResume(xl *xlog.Logger, sessionID string, filename string, data []byte) (string, error)
}

// NewResumeStorage 未配置 bucket 时不保存简历，URL 为空。
func NewResumeStorage(keyPair utils.QiniuKeyPair, conf utils.QiniuStorageConfig) ResumeStorage {
	if conf.Bucket == "" {
		return discardStorage{}
	}
	return &KodoResumeStorage{keyPair: keyPair, conf: conf}
}

type discardStorage struct{}

func (discardStorage) SaveResume(xl *xlog.Logger, sessionID string, filename string, data []byte) (string, error) {
	return "", nil
}

// KodoResumeStorage 七牛对象存储。
type KodoResumeStorage struct {
	keyPair utils.QiniuKeyPair
	conf    utils.QiniuStorageConfig
}

// ResumeKey 简历在 bucket 中的文件名。
func (k *KodoResumeStorage) ResumeKey(sessionID string, filename string) string {
	pattern := k.conf.KeyPattern
	if pattern == "" {
		pattern = "resume/%s/%s"
	}
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf(pattern, sessionID, uuid.NewString()+ext)
}

func (k *KodoResumeStorage) SaveResume(xl *xlog.Logger, sessionID string, filename string, data []byte) (string, error) {
	fileKey := k.ResumeKey(sessionID, filename)
	mac := qbox.NewMac(k.keyPair.AccessKey, k.keyPair.SecretKey)
	putPolicy := storage.PutPolicy{
		Scope: k.conf.Bucket + ":" + fileKey,
	}
	upToken := putPolicy.UploadToken(mac)
	cfg := storage.Config{}
	// 是否使用https域名
	cfg.UseHTTPS = k.conf.UseHTTPS
	formUploader := storage.NewFormUploader(&cfg)
	ret := storage.PutRet{}
	err := formUploader.Put(context.Background(), &ret, upToken, fileKey, bytes.NewReader(data), int64(len(data)), nil)
	if err != nil {
		xl.Errorf("resume uploading failed err:%v", err)
		return "", errors.Upstream("failed to store resume", err)
	}
	xl.Infof("resume %s uploaded", ret.Key)
	return strings.TrimSuffix(k.conf.URLPrefix, "/") + "/" + ret.Key, nil
}
