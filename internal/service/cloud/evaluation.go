package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/qiniu/x/xlog"
	"github.com/tidwall/gjson"

	"github.com/solutions/interview-gate/internal/common/utils"
	"github.com/solutions/interview-gate/internal/protodef/errors"
)

// APIKeyHeader 评估服务鉴权头部。
const APIKeyHeader = "X-API-KEY"

// EvaluationClient 简历解析与面试问答服务。
type EvaluationClient struct {
	apiEndPoint string
	apiKey      string
	client      *http.Client
}

func NewEvaluationClient(conf utils.EvaluationConfig) *EvaluationClient {
	timeout := 60 * time.Second
	if conf.TimeoutSecond > 0 {
		timeout = time.Duration(conf.TimeoutSecond) * time.Second
	}
	return &EvaluationClient{
		apiEndPoint: conf.Endpoint,
		apiKey:      conf.APIKey,
		client:      &http.Client{Timeout: timeout},
	}
}

type ResumeUpload struct {
	CandidateID string
	ResumeID    string
}

type InterviewStart struct {
	InterviewID   string
	FirstQuestion string
}

type AnswerResult struct {
	Stop         bool
	NextQuestion string
}

// UploadResume /api/resumes/upload 上传简历，返回候选人ID。
func (c *EvaluationClient) UploadResume(ctx context.Context, xl *xlog.Logger, filename string, file io.Reader, name string, email string) (*ResumeUpload, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, errors.Upstream("evaluation service failed", err)
	}
	if _, err = io.Copy(part, file); err != nil {
		return nil, errors.Upstream("evaluation service failed", err)
	}
	_ = writer.WriteField("name", name)
	_ = writer.WriteField("email", email)
	if err = writer.Close(); err != nil {
		return nil, errors.Upstream("evaluation service failed", err)
	}

	result, err := c.call(ctx, xl, "/api/resumes/upload", writer.FormDataContentType(), body)
	if err != nil {
		return nil, err
	}
	upload := &ResumeUpload{
		CandidateID: result.Get("candidate_id").String(),
		ResumeID:    result.Get("resume_id").String(),
	}
	if upload.CandidateID == "" {
		xl.Errorf("no candidate_id in upload response %s", result.Raw)
		return nil, errors.Upstream("evaluation service failed", fmt.Errorf("no candidate id"))
	}
	return upload, nil
}

// StartInterview /api/interviews/start 为候选人开始面试。
func (c *EvaluationClient) StartInterview(ctx context.Context, xl *xlog.Logger, candidateID string, role string) (*InterviewStart, error) {
	result, err := c.postJSON(ctx, xl, "/api/interviews/start", map[string]string{
		"candidate_id": candidateID,
		"role":         role,
	})
	if err != nil {
		return nil, err
	}
	interviewID := result.Get("interview_id").String()
	if interviewID == "" {
		interviewID = result.Get("session_id").String()
	}
	if interviewID == "" {
		xl.Errorf("no interview id in start response %s", result.Raw)
		return nil, errors.Upstream("evaluation service failed", fmt.Errorf("no interview id"))
	}
	return &InterviewStart{
		InterviewID:   interviewID,
		FirstQuestion: result.Get("first_question").String(),
	}, nil
}

// SubmitAnswer /api/interviews/handle 提交回答，返回下一个问题或结束标记。
func (c *EvaluationClient) SubmitAnswer(ctx context.Context, xl *xlog.Logger, interviewID string, answer string) (*AnswerResult, error) {
	result, err := c.postJSON(ctx, xl, "/api/interviews/handle", map[string]string{
		"interview_id": interviewID,
		"answer":       answer,
	})
	if err != nil {
		return nil, err
	}
	return &AnswerResult{
		Stop:         result.Get("stop").Bool(),
		NextQuestion: result.Get("next_question").String(),
	}, nil
}

// GetFinalReport /api/reports/:interviewId 获取最终报告的原始JSON。
func (c *EvaluationClient) GetFinalReport(ctx context.Context, xl *xlog.Logger, interviewID string) ([]byte, error) {
	result, err := c.get(ctx, xl, "/api/reports/"+url.PathEscape(interviewID))
	if err != nil {
		return nil, err
	}
	report := result.Get("report")
	if !report.Exists() {
		report = *result
	}
	if !report.IsObject() {
		xl.Errorf("report of interview %s is not an object: %s", interviewID, report.Raw)
		return nil, errors.Upstream("evaluation service failed", fmt.Errorf("malformed report"))
	}
	return []byte(report.Raw), nil
}

func (c *EvaluationClient) postJSON(ctx context.Context, xl *xlog.Logger, api string, payload interface{}) (*gjson.Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Upstream("evaluation service failed", err)
	}
	return c.call(ctx, xl, api, "application/json", bytes.NewReader(body))
}

func (c *EvaluationClient) get(ctx context.Context, xl *xlog.Logger, api string) (*gjson.Result, error) {
	return c.do(ctx, xl, http.MethodGet, api, "", nil)
}

func (c *EvaluationClient) call(ctx context.Context, xl *xlog.Logger, api string, contentType string, body io.Reader) (*gjson.Result, error) {
	return c.do(ctx, xl, http.MethodPost, api, contentType, body)
}

func (c *EvaluationClient) do(ctx context.Context, xl *xlog.Logger, method string, api string, contentType string, body io.Reader) (*gjson.Result, error) {
	if xl == nil {
		xl = xlog.New("EvaluationClient")
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiEndPoint+api, body)
	if err != nil {
		return nil, errors.Upstream("evaluation service failed", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set(APIKeyHeader, c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		xl.Errorf("call error %+v", err)
		return nil, errors.Upstream("evaluation service failed", NewCallError(api, err))
	}
	defer resp.Body.Close()

	res, err := io.ReadAll(resp.Body)
	if err != nil {
		xl.Errorf("read response of %s error %v", api, err)
		return nil, errors.Upstream("evaluation service failed", NewCallError(api, err))
	}
	if resp.StatusCode/100 != 2 {
		xl.Errorf("StatusCode %d from %s", resp.StatusCode, api)
		return nil, errors.Upstream("evaluation service failed", NewEvaluationStatusError(resp.StatusCode, res))
	}
	if !gjson.ValidBytes(res) {
		xl.Errorf("invalid response json %s", string(res))
		return nil, errors.Upstream("evaluation service failed", NewCallError(api, fmt.Errorf("invalid response")))
	}
	result := gjson.ParseBytes(res)
	return &result, nil
}
