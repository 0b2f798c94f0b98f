package cloud

import (
	"fmt"

	"github.com/tidwall/gjson"
)

type CallError struct {
	Api string
	Err error
}

func NewCallError(api string, err error) *CallError {
	return &CallError{Api: api, Err: err}
}

func (c CallError) Error() string {
	return fmt.Sprintf("call api %v error: %v", c.Api, c.Err)
}

func (c CallError) Unwrap() error {
	return c.Err
}

type StatusCodeError struct {
	Code int
	Msg  string
}

func NewStatusCodeError(code int, msg string) *StatusCodeError {
	return &StatusCodeError{Code: code, Msg: msg}
}

func (s StatusCodeError) Error() string {
	return fmt.Sprintf("resp status %v: %s", s.Code, s.Msg)
}

// NewEvaluationStatusError 解析评估服务返回的错误信息。
func NewEvaluationStatusError(code int, body []byte) *StatusCodeError {
	result := gjson.ParseBytes(body)
	message := result.Get("error").String()
	if message == "" {
		message = result.Get("message").String()
	}
	return NewStatusCodeError(code, message)
}
