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

package errors

import (
	"encoding/json"
	stderrors "errors"
)

// ServerError 服务端内部错误与非正常返回结果定义
type ServerError struct {
	Code    int    `json:"code"`
	Summary string `json:"summary"`
	// cause 不对外暴露，仅用于日志。
	cause error
}

func (e *ServerError) Error() string {
	buf, _ := json.Marshal(e)
	if e.cause != nil {
		return string(buf) + ": " + e.cause.Error()
	}
	return string(buf)
}

func (e *ServerError) Unwrap() error {
	return e.cause
}

// 各种服务端内部错误的错误码定义。错误码为5位数字。
const (
	// 1开头表示请求或数据相关的错误。
	ServerErrorValidation      = 10001
	ServerErrorNotFound        = 10002
	ServerErrorConflict        = 10003
	ServerErrorUnauthorized    = 10004
	ServerErrorForbidden       = 10005
	ServerErrorInvalidOtp      = 10006
	ServerErrorTooManyAttempts = 10007
	ServerErrorNotVerified     = 10008
	ServerErrorMongoOpFail     = 11000
)

const (
	// 2开头表示外部服务错误。
	ServerErrorUpstream     = 20001
	ServerErrorMailSendFail = 20002
)

func New(code int, summary string) *ServerError {
	return &ServerError{Code: code, Summary: summary}
}

// Wrap keeps cause for logging; Summary is what callers may show.
func Wrap(code int, summary string, cause error) *ServerError {
	return &ServerError{Code: code, Summary: summary, cause: cause}
}

func Validation(summary string) *ServerError { return New(ServerErrorValidation, summary) }

func NotFound(summary string) *ServerError { return New(ServerErrorNotFound, summary) }

func Conflict(summary string) *ServerError { return New(ServerErrorConflict, summary) }

func Unauthorized(summary string) *ServerError { return New(ServerErrorUnauthorized, summary) }

func Forbidden(summary string) *ServerError { return New(ServerErrorForbidden, summary) }

func InvalidOtp() *ServerError { return New(ServerErrorInvalidOtp, "invalid or expired otp") }

func TooManyAttempts() *ServerError {
	return New(ServerErrorTooManyAttempts, "too many failed attempts, try again later")
}

func NotVerified() *ServerError { return New(ServerErrorNotVerified, "account not verified") }

func Upstream(summary string, cause error) *ServerError {
	return Wrap(ServerErrorUpstream, summary, cause)
}

func Internal(cause error) *ServerError {
	return Wrap(ServerErrorMongoOpFail, "internal server error", cause)
}

// As 返回错误链上第一个 ServerError。
func As(err error) (*ServerError, bool) {
	var serverErr *ServerError
	if stderrors.As(err, &serverErr) {
		return serverErr, true
	}
	return nil, false
}

// CodeOf 返回错误链上第一个 ServerError 的错误码，非 ServerError 返回0。
func CodeOf(err error) int {
	if serverErr, ok := As(err); ok {
		return serverErr.Code
	}
	return 0
}

// Is reports whether err carries the given code.
func Is(err error, code int) bool {
	return err != nil && CodeOf(err) == code
}
