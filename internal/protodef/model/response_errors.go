package model

import (
	"net/http"

	"github.com/solutions/interview-gate/internal/protodef/errors"
)

type ResponseError struct {
	// 自定义错误码，前三位为HTTP状态码。
	Code int `json:"code"`
	// 请求ID。
	RequestID string `json:"requestID"`
	// Message
	Message string `json:"message"`
}

const (
	ResponseErrorBadRequest      = 400000
	ResponseErrorValidation      = 400001
	ResponseErrorWrongOtp        = 400002
	ResponseErrorUnauthorized    = 401000
	ResponseErrorNotLoggedIn     = 401001
	ResponseErrorBadToken        = 401003
	ResponseErrorForbidden       = 403000
	ResponseErrorNotVerified     = 403001
	ResponseErrorNotFound        = 404000
	ResponseErrorConflict        = 409000
	ResponseErrorTooManyRequests = 429000
	ResponseErrorOtpTooManyTries = 429001
	ResponseErrorInternal        = 500000
	ResponseErrorExternalService = 500001
)

// HTTPStatus 错误码对应的HTTP状态码。
func (e ResponseError) HTTPStatus() int {
	status := e.Code / 1000
	if status < 400 || status > 599 {
		return http.StatusInternalServerError
	}
	return status
}

// NewResponseErrorBadRequest 参数错误。
func NewResponseErrorBadRequest() *ResponseError {
	return &ResponseError{
		Code:    ResponseErrorBadRequest,
		Message: "bad request",
	}
}

// NewResponseErrorValidation 参数校验失败，Message 为具体原因。
func NewResponseErrorValidation(message string) *ResponseError {
	return &ResponseError{
		Code:    ResponseErrorValidation,
		Message: message,
	}
}

// NewResponseErrorNotLoggedIn 用户未登录。
func NewResponseErrorNotLoggedIn() *ResponseError {
	return &ResponseError{
		Code:    ResponseErrorNotLoggedIn,
		Message: "not logged in",
	}
}

// NewResponseErrorWrongOtp 验证码错误或已过期。
func NewResponseErrorWrongOtp() *ResponseError {
	return &ResponseError{
		Code:    ResponseErrorWrongOtp,
		Message: "invalid or expired otp",
	}
}

// NewResponseErrorBadToken 登录token错误。
func NewResponseErrorBadToken() *ResponseError {
	return &ResponseError{
		Code:    ResponseErrorBadToken,
		Message: "bad token",
	}
}

// NewResponseErrorNotVerified 账号验证码未验证。
func NewResponseErrorNotVerified() *ResponseError {
	return &ResponseError{
		Code:    ResponseErrorNotVerified,
		Message: "account not verified",
	}
}

func NewResponseErrorForbidden(message string) *ResponseError {
	return &ResponseError{
		Code:    ResponseErrorForbidden,
		Message: message,
	}
}

// NewResponseErrorInternal 其他内部服务错误。
func NewResponseErrorInternal() *ResponseError {
	return &ResponseError{
		Code:    ResponseErrorInternal,
		Message: "internal server error",
	}
}

// NewResponseErrorExternalService 调用外部服务错误。
func NewResponseErrorExternalService() *ResponseError {
	return &ResponseError{
		Code:    ResponseErrorExternalService,
		Message: "calling external service failed",
	}
}

// NewResponseErrorUnauthorized 一般的HTTP Unauthorized 错误。
func NewResponseErrorUnauthorized() *ResponseError {
	return &ResponseError{
		Code:    ResponseErrorUnauthorized,
		Message: "unauthorized",
	}
}

func NewResponseErrorNotFound(message string) *ResponseError {
	return &ResponseError{
		Code:    ResponseErrorNotFound,
		Message: message,
	}
}

func NewResponseErrorConflict(message string) *ResponseError {
	return &ResponseError{
		Code:    ResponseErrorConflict,
		Message: message,
	}
}

// NewResponseErrorOtpTooManyTries 验证码错误次数过多，暂时不能再校验。
func NewResponseErrorOtpTooManyTries() *ResponseError {
	return &ResponseError{
		Code:    ResponseErrorOtpTooManyTries,
		Message: "too many failed attempts, try again later",
	}
}

// NewResponseErrorTooManyRequests 请求过于频繁。
func NewResponseErrorTooManyRequests() *ResponseError {
	return &ResponseError{
		Code:    ResponseErrorTooManyRequests,
		Message: "too many requests",
	}
}

// NewResponseErrorFromServerError 将服务端错误转换为返回给调用方的错误，内部细节不返回。
func NewResponseErrorFromServerError(err error) *ResponseError {
	serverErr, ok := errors.As(err)
	if !ok {
		return NewResponseErrorInternal()
	}
	summary := serverErr.Summary
	switch serverErr.Code {
	case errors.ServerErrorValidation:
		return NewResponseErrorValidation(summary)
	case errors.ServerErrorNotFound:
		return NewResponseErrorNotFound(summary)
	case errors.ServerErrorConflict:
		return NewResponseErrorConflict(summary)
	case errors.ServerErrorUnauthorized:
		return NewResponseErrorUnauthorized().withMessage(summary)
	case errors.ServerErrorForbidden:
		return NewResponseErrorForbidden(summary)
	case errors.ServerErrorInvalidOtp:
		return NewResponseErrorWrongOtp()
	case errors.ServerErrorNotVerified:
		return NewResponseErrorNotVerified()
	case errors.ServerErrorTooManyAttempts:
		return NewResponseErrorOtpTooManyTries()
	case errors.ServerErrorUpstream, errors.ServerErrorMailSendFail:
		return NewResponseErrorExternalService()
	default:
		return NewResponseErrorInternal()
	}
}

func (e *ResponseError) withMessage(message string) *ResponseError {
	if message != "" {
		e.Message = message
	}
	return e
}
