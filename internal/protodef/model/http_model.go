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

package model

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

/*
	protocol.go: 规定API的参数与返回值的定义，***Args 表示 *** 接口的参数，***Response表示 *** 接口的返回体格式。
*/

const (
	// RequestIDHeader 七牛 request ID 头部。
	RequestIDHeader = "X-Reqid"
	// XLogKey gin context中，用于获取记录请求相关日志的 xlog logger的key。
	XLogKey = "xlog-logger"

	// ClaimsContextKey 存放在请求context 中的登录凭证信息。
	ClaimsContextKey = "claims"

	// RequestStartKey 存放在gin context中的请求开始时间（time.Time）。
	RequestStartKey = "request-start"

	// 状态码和状态信息
	ResponseStatusCodeSuccess    ResponseStatusCode    = 0
	ResponseStatusMessageSuccess ResponseStatusMessage = "success"
)

// 状态码和状态信息
type ResponseStatusCode int
type ResponseStatusMessage string

type Response struct {
	Code      int         `json:"code"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data"`
	RequestID string      `json:"requestId"`

	status int
}

// NewSuccessResponse 成功的返回。
func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Code:    int(ResponseStatusCodeSuccess),
		Message: string(ResponseStatusMessageSuccess),
		Data:    data,
		status:  http.StatusOK,
	}
}

// NewCreatedResponse 创建资源成功的返回，HTTP状态码为201。
func NewCreatedResponse(data interface{}) *Response {
	r := NewSuccessResponse(data)
	r.status = http.StatusCreated
	return r
}

// NewFailResponse 失败的返回，HTTP状态码由错误码前三位决定。
func NewFailResponse(err ResponseError) *Response {
	return &Response{
		Code:    int(err.Code),
		Message: string(err.Message),
		status:  err.HTTPStatus(),
	}
}

func (r *Response) WithRequestID(requestID string) *Response {
	r.RequestID = requestID
	return r
}

func (r *Response) Send(c *gin.Context) {
	status := r.status
	if status == 0 {
		status = http.StatusOK
	}
	c.JSON(status, r)
}

// UserInfoResponse 用户的信息。
type UserInfoResponse struct {
	ID       string `json:"accountId"`
	UID      string `json:"uid"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// NewUserInfoResponse 从账号生成返回给前端的用户信息。
func NewUserInfoResponse(account *AccountDo) UserInfoResponse {
	return UserInfoResponse{
		ID:       account.ID,
		UID:      account.UID,
		Username: account.Username,
		Email:    account.Email,
		Role:     string(account.Role),
	}
}

// RegisterResponse 注册的返回结果，账号处于待验证状态。
type RegisterResponse struct {
	UserInfoResponse
	OtpExpires time.Time `json:"otpExpires"`
}

// SignInResponse 登录或验证码验证成功的返回结果。
type SignInResponse struct {
	UserInfoResponse
	Token string `json:"token"`
}

// MessageResponse 只包含提示信息的返回结果。
type MessageResponse struct {
	Message string `json:"message"`
}

// CreateSessionResponse 创建面试的返回结果。
type CreateSessionResponse struct {
	SessionID      string `json:"sessionId"`
	CandidateCount int    `json:"candidateCount"`
	Link           string `json:"link,omitempty"`
}

// SessionInfoResponse 面试元信息。
type SessionInfoResponse struct {
	SessionID     string `json:"sessionId"`
	InterviewerID string `json:"interviewerId"`
	StartTime     string `json:"startTime"`
	ScheduledDate string `json:"scheduledDate"`
	Status        string `json:"status"`
	// WindowState 请求时刻的入场窗口状态：waiting/open/expired/cancelled。
	WindowState string    `json:"windowState"`
	WindowStart time.Time `json:"windowStart"`
	WindowEnd   time.Time `json:"windowEnd"`
}

// CheckCandidateResponse 候选人是否在面试名单中。
type CheckCandidateResponse struct {
	EmailExists bool `json:"emailExists"`
	*SessionInfoResponse
}

// SessionListResponse 面试官的面试列表。
type SessionListResponse struct {
	Total int                  `json:"total"`
	List  []InterviewSessionDo `json:"list"`
}

// CreateReportResponse 创建报告的返回结果。
type CreateReportResponse struct {
	ReportID string `json:"reportId"`
}

// ReportResponse 报告，附带做出决定的面试官信息。
type ReportResponse struct {
	EvaluationReportDo
	Decider *UserInfoResponse `json:"decider,omitempty"`
}

// ReportListResponse 报告列表。
type ReportListResponse struct {
	Total int                  `json:"total"`
	List  []EvaluationReportDo `json:"list"`
}

// StartInterviewResponse 开始面试的返回结果。
type StartInterviewResponse struct {
	ReportID      string `json:"reportId"`
	CandidateID   string `json:"candidateId"`
	InterviewID   string `json:"interviewId"`
	FirstQuestion string `json:"firstQuestion"`
	ResumeURL     string `json:"resumeUrl,omitempty"`
}

// AnswerResponse 回答问题后的返回结果，Stop 为 true 时面试结束、报告已写入。
type AnswerResponse struct {
	Stop         bool   `json:"stop"`
	NextQuestion string `json:"nextQuestion,omitempty"`
}
