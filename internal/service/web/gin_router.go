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

package web

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/qiniu/x/xlog"

	"github.com/solutions/interview-gate/internal/common/utils"
	"github.com/solutions/interview-gate/internal/protodef/model"
	"github.com/solutions/interview-gate/internal/service/cloud"
	"github.com/solutions/interview-gate/internal/service/db"
	"github.com/solutions/interview-gate/internal/service/gate"
	"github.com/solutions/interview-gate/internal/service/identity"
	"github.com/solutions/interview-gate/internal/service/interview"
	"github.com/solutions/interview-gate/internal/service/ledger"
	"github.com/solutions/interview-gate/internal/service/schedule"
	"github.com/solutions/interview-gate/internal/service/task"
	"github.com/solutions/interview-gate/internal/service/web/handler"
	"github.com/solutions/interview-gate/internal/service/web/middleware"
)

const (
	// 会发送验证码邮件的接口，每个IP每10秒补充一次，最多连续5次。
	OtpRequestInterval = 10 * time.Second
	OtpRequestBurst    = 5
)

// Gateway 账号接口与登录凭证校验。
type Gateway interface {
	handler.AccountGateway
	middleware.Authenticator
}

// Services 路由依赖的全部服务。
type Services struct {
	Gateway  Gateway
	Registry handler.SessionRegistry
	Gate     *gate.Gate
	Ledger   handler.ReportLedger
	Flow     handler.InterviewFlow
	// Sweeper 供定时任务使用。
	Sweeper task.SessionCompleter
	Actions middleware.ActionStore
	Pingers map[string]handler.Pinger

	FrontendUrlHost string
	AllowOrigins    []string
	// TrustedProxies 为空时 ClientIP 只取连接的对端地址。
	TrustedProxies []string
}

// NewServices 连接数据库与外部服务，组装各模块。
func NewServices(ctx context.Context, conf *utils.Config) (*Services, error) {
	xl := xlog.New("interview-gate-init")
	if conf.Mongo == nil {
		return nil, fmt.Errorf("mongo config is required")
	}
	accountService, err := db.NewAccountService(*conf.Mongo, nil)
	if err != nil {
		return nil, err
	}
	sessionService, err := db.NewSessionService(*conf.Mongo, nil)
	if err != nil {
		return nil, err
	}
	reportService, err := db.NewReportService(*conf.Mongo, nil)
	if err != nil {
		return nil, err
	}
	actionService, err := db.NewActionService(*conf.Mongo, nil)
	if err != nil {
		return nil, err
	}

	mail, err := cloud.NewMailSender(conf.Mail, nil)
	if err != nil {
		return nil, err
	}
	provider, err := cloud.NewIdentityProvider(ctx, conf.Firebase, nil)
	if err != nil {
		return nil, err
	}
	throttle := cloud.NewSendThrottle(conf.Redis)
	evaluator := cloud.NewEvaluationClient(conf.Evaluation)
	resumes := cloud.NewResumeStorage(conf.QiniuKeyPair, conf.Storage)

	windowGate := gate.New(conf.Location())
	registry := schedule.NewRegistry(sessionService, windowGate, nil)
	reportLedger := ledger.New(reportService, sessionService, accountService, mail, nil)
	xl.Infof("services ready, time zone %s", windowGate.Location())

	return &Services{
		Gateway:         identity.NewGateway(accountService, provider, mail, throttle, identity.NewConfig(conf), nil),
		Registry:        registry,
		Gate:            windowGate,
		Ledger:          reportLedger,
		Flow:            interview.NewCoordinator(registry, windowGate, reportLedger, evaluator, resumes, nil),
		Sweeper:         registry,
		Actions:         actionService,
		Pingers:         map[string]handler.Pinger{"mongo": sessionService},
		FrontendUrlHost: conf.FrontendUrlHost,
		AllowOrigins:    conf.AllowOrigins,
		TrustedProxies:  conf.TrustedProxies,
	}, nil
}

// NewRouter 返回gin router，所有接口位于 /api 下。
func NewRouter(s *Services) *gin.Engine {
	router := gin.New()
	// gin 默认信任所有代理，任何客户端都能用 X-Forwarded-For 伪造来源IP
	if err := router.SetTrustedProxies(s.TrustedProxies); err != nil {
		xlog.New("interview-gate-router").Errorf("invalid trusted proxies %v, trust none, error %v", s.TrustedProxies, err)
		_ = router.SetTrustedProxies(nil)
	}
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(s.AllowOrigins))

	accountApiHandler := handler.NewAccountApiHandler(s.Gateway)
	sessionApiHandler := handler.NewSessionApiHandler(s.Registry, s.Gate, s.FrontendUrlHost)
	reportApiHandler := handler.NewReportApiHandler(s.Ledger)
	interviewApiHandler := handler.NewInterviewApiHandler(s.Flow)
	healthApiHandler := handler.NewHealthApiHandler(s.Pingers)
	otpLimiter := middleware.NewIPRateLimiter(OtpRequestInterval, OtpRequestBurst).Middleware()

	api := router.Group("/api", middleware.AddRequestID, middleware.NewActionManager(s.Actions).ActionLogMiddleware())
	{
		api.GET("/healthz", healthApiHandler.Healthz)

		// 账号
		api.POST("/register", otpLimiter, accountApiHandler.Register)
		api.POST("/login", accountApiHandler.Login)
		api.POST("/verify-otp", otpLimiter, accountApiHandler.VerifyOtp)
		api.POST("/forgot-password", otpLimiter, accountApiHandler.ForgotPassword)

		// 候选人入口，无需登录
		api.GET("/check_session/:sessionId", sessionApiHandler.CheckSession)
		api.GET("/check_session/:sessionId/:email", sessionApiHandler.CheckCandidate)
		api.POST("/create-report", reportApiHandler.CreateReport)
		api.PUT("/update-report/:reportId", reportApiHandler.UpdateReport)
		api.POST("/interview/:sessionId/start", interviewApiHandler.Start)
		api.POST("/interview/answer", interviewApiHandler.Answer)
	}

	auth := api.Group("", middleware.Authenticate(s.Gateway))
	{
		auth.GET("/profile", accountApiHandler.GetProfile)
		auth.PUT("/profile", accountApiHandler.UpdateProfile)
	}

	admin := auth.Group("", middleware.RequireRole(model.RoleAdmin))
	{
		admin.POST("/generate", sessionApiHandler.Generate)
		admin.GET("/sessions", sessionApiHandler.ListSessions)
		admin.POST("/cancel-session/:sessionId", sessionApiHandler.CancelSession)
		admin.GET("/candidates/:interviewerId", reportApiHandler.Candidates)
		admin.GET("/reports/:reportId", reportApiHandler.GetReport)
		admin.GET("/reports/session/:sessionId", reportApiHandler.ListBySession)
		admin.GET("/reports/decided-by/:interviewerId", reportApiHandler.ListDecidedBy)
		admin.POST("/candidate-action", reportApiHandler.CandidateAction)
	}

	router.NoRoute(middleware.AddRequestID, middleware.ReturnNotFound)
	return router
}
