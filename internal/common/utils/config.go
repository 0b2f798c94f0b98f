// Copyright 2020 Qiniu Cloud (qiniu.com)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package utils

import (
	"log"
	"os"
	"strconv"
	"time"

	qconfig "github.com/qiniu/x/config"
)

var (
	DefaultConf Config
)

// InitConf loads the JSON config file and then applies environment overrides.
func InitConf(configFilePath string) {
	err := qconfig.LoadFile(&DefaultConf, configFilePath)
	if err != nil {
		log.Fatalf("failed to load config file, error %v", err)
	}
	DefaultConf.ApplyEnv()
}

// MongoConfig mongo 数据库配置。
type MongoConfig struct {
	URI      string `json:"uri"`
	Database string `json:"database"`
}

// QiniuKeyPair 七牛APIaccess key/secret key配置。
type QiniuKeyPair struct {
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
}

// QiniuStorageConfig 七牛对象存储服务配置，用于保存候选人简历。
type QiniuStorageConfig struct {
	// Bucket 上传的文件所在的七牛对象存储bucket。
	Bucket string `json:"bucket"`
	// URLPrefix 上传的文件的下载URL前缀，一般为该bucket对应的默认域名。
	URLPrefix string `json:"url_prefix"`
	// KeyPattern 简历文件名模式，参数依次为 session id 与随机文件名。
	KeyPattern string `json:"key_pattern"`
	UseHTTPS   bool   `json:"use_https"`
}

// MailConfig 发送邮件的配置。
type MailConfig struct {
	// Provider 为 smtp 时通过SMTP发送，为 test 时只记录日志。
	Provider      string `json:"provider"`
	SMTPHost      string `json:"smtp_host"`
	SMTPPort      int    `json:"smtp_port"`
	From          string `json:"from"`
	Username      string `json:"username"`
	Password      string `json:"password"`
	TimeoutSecond int    `json:"timeout_s"`
}

// FirebaseConfig 身份服务配置。
type FirebaseConfig struct {
	// Provider 为 firebase 时连接 Firebase Auth，为 test 时使用内存实现。
	Provider        string `json:"provider"`
	ProjectID       string `json:"project_id"`
	CredentialsFile string `json:"credentials_file"`
	// WebAPIKey 用于邮箱密码登录的 REST 接口。
	WebAPIKey string `json:"web_api_key"`
}

// EvaluationConfig 简历解析与面试问答服务配置。
type EvaluationConfig struct {
	Endpoint      string `json:"endpoint"`
	APIKey        string `json:"api_key"`
	TimeoutSecond int    `json:"timeout_s"`
}

// RedisConfig 验证码重发限流使用的 redis。
type RedisConfig struct {
	Enabled   bool   `json:"enabled"`
	Address   string `json:"address"`
	Password  string `json:"password"`
	DB        int    `json:"db"`
	Namespace string `json:"namespace"`
}

// OtpConfig 验证码配置。
type OtpConfig struct {
	ValidateTimeoutSecond int `json:"validate_timeout_s"`
	ResendTimeoutSecond   int `json:"resend_timeout_s"`
	// MaxAttempts 有效期内同一邮箱允许校验失败的次数。
	MaxAttempts int `json:"max_attempts"`
	// FixedCodes 固定的邮箱->验证码组合，供测试用。
	FixedCodes map[string]string `json:"fixed_codes,omitempty"`
}

// Config 后端配置。
type Config struct {
	// debug等级，为1时输出info/warn/error日志，为0除以上外还输出debug日志
	DebugLevel int    `json:"debug_level"`
	ListenAddr string `json:"listen_addr"`
	// 前端页面host，用于拼接面试链接。
	FrontendUrlHost string   `json:"frontend_url_host"`
	AllowOrigins    []string `json:"allow_origins"`
	// TrustedProxies 可信的反向代理地址或网段，为空时不信任任何 X-Forwarded-For。
	TrustedProxies []string `json:"trusted_proxies"`
	// TimeZone 面试日期与开始时间所在的时区，为空时使用进程本地时区。
	TimeZone          string             `json:"time_zone"`
	SessionTokenHours int                `json:"session_token_hours"`
	JwtKey            string             `json:"jwt_key"`
	Mongo             *MongoConfig       `json:"mongo"`
	QiniuKeyPair      QiniuKeyPair       `json:"qiniu_key_pair"`
	Storage           QiniuStorageConfig `json:"storage"`
	Mail              MailConfig         `json:"mail"`
	Firebase          FirebaseConfig     `json:"firebase"`
	Evaluation        EvaluationConfig   `json:"evaluation"`
	Redis             RedisConfig        `json:"redis"`
	Otp               OtpConfig          `json:"otp"`
}

// ApplyEnv 使用环境变量覆盖配置文件中的密钥类配置。
func (c *Config) ApplyEnv() {
	if v := os.Getenv("JWT_KEY"); v != "" {
		c.JwtKey = v
	}
	if v := os.Getenv("MONGO_URI"); v != "" {
		if c.Mongo == nil {
			c.Mongo = &MongoConfig{}
		}
		c.Mongo.URI = v
	}
	if v := os.Getenv("MAIL_PASSWORD"); v != "" {
		c.Mail.Password = v
	}
	if v := os.Getenv("FIREBASE_CREDENTIALS_FILE"); v != "" {
		c.Firebase.CredentialsFile = v
	}
	if v := os.Getenv("FIREBASE_WEB_API_KEY"); v != "" {
		c.Firebase.WebAPIKey = v
	}
	if v := os.Getenv("EVALUATION_API_KEY"); v != "" {
		c.Evaluation.APIKey = v
	}
	if v := os.Getenv("QINIU_ACCESS_KEY"); v != "" {
		c.QiniuKeyPair.AccessKey = v
	}
	if v := os.Getenv("QINIU_SECRET_KEY"); v != "" {
		c.QiniuKeyPair.SecretKey = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("DEBUG_LEVEL"); v != "" {
		if level, err := strconv.Atoi(v); err == nil {
			c.DebugLevel = level
		}
	}
}

// Location 返回面试时间所在时区。
func (c *Config) Location() *time.Location {
	if c.TimeZone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		log.Printf("unknown time zone %q, fall back to local, error %v", c.TimeZone, err)
		return time.Local
	}
	return loc
}

// SessionTokenTTL 登录凭证有效期，默认7天。
func (c *Config) SessionTokenTTL() time.Duration {
	if c.SessionTokenHours <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(c.SessionTokenHours) * time.Hour
}

// NewSample 返回样例配置。
func NewSample() *Config {
	return &Config{
		DebugLevel:        0,
		ListenAddr:        ":8000",
		SessionTokenHours: 7 * 24,
		Mongo: &MongoConfig{
			URI:      "mongodb://localhost:27017",
			Database: "interview_gate_test",
		},
		Storage: QiniuStorageConfig{
			Bucket:     os.Getenv("QINIU_RESUME_BUCKET"),
			KeyPattern: "resume/%s/%s",
		},
		Mail: MailConfig{
			Provider:      "test",
			TimeoutSecond: 10,
		},
		Firebase: FirebaseConfig{
			Provider: "test",
		},
		Otp: OtpConfig{
			ValidateTimeoutSecond: 600,
			ResendTimeoutSecond:   60,
			MaxAttempts:           5,
		},
	}
}
