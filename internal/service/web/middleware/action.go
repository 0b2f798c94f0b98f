package middleware

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/qiniu/x/xlog"

	"github.com/solutions/interview-gate/internal/protodef/model"
)

// ActionStore 保存请求流水。
type ActionStore interface {
	SaveAction(xl *xlog.Logger, record *model.ActionRecordDo) error
}

var methodMsg = map[string]string{
	"POST":   "创建",
	"GET":    "获取",
	"DELETE": "删除",
	"PUT":    "更新",
}

// routeMsg key 为 "METHOD subject" 或只有 subject（匹配所有方法）。
var routeMsg = map[string]string{
	"register":               "注册",
	"login":                  "登录",
	"verify-otp":             "验证验证码",
	"forgot-password":        "重置密码",
	"GET profile":            "个人信息",
	"PUT profile":            "个人信息",
	"generate":               "创建面试",
	"GET sessions":           "面试列表",
	"cancel-session":         "取消面试",
	"check_session":          "查询面试",
	"create-report":          "创建报告",
	"update-report":          "写入最终报告",
	"candidates":             "候选人报告列表",
	"GET reports":            "报告",
	"GET reports session":    "面试报告列表",
	"GET reports decided-by": "已决定报告列表",
	"candidate-action":       "录用决定",
	"interview start":        "开始面试",
	"interview answer":       "回答问题",
}

type Action struct {
	method    string
	subject   string
	msg       string
	accountID string
	userInfo  string
}

func NewAction(method string, subject string, msg string) *Action {
	return &Action{method: method, subject: subject, msg: msg}
}

func (a Action) String() string {
	methodStr := ""
	if a.method != "ALL" {
		methodStr += methodMsg[a.method]
	}
	return strings.TrimSpace(fmt.Sprintf("%s %s%s", a.userInfo, methodStr, a.msg))
}

// With 填入当前登录用户。
func (a Action) With(c *gin.Context) Action {
	if claims := Claims(c); claims != nil {
		a.accountID = claims.AccountID
		a.userInfo = fmt.Sprintf("account %s", claims.AccountID)
	}
	return a
}

// ActionManager 按路由匹配请求对应的操作描述。
type ActionManager struct {
	actions []*Action
	store   ActionStore
}

func NewActionManager(store ActionStore) *ActionManager {
	am := &ActionManager{store: store}
	for k, v := range routeMsg {
		method, subject := parseMethodAndSubject(k)
		am.actions = append(am.actions, NewAction(method, subject, v))
	}
	return am
}

// MatchRoute 优先匹配带方法的描述。
func (am *ActionManager) MatchRoute(method string, fullPath string) (*Action, bool) {
	subject := strings.Join(parsePath(fullPath), " ")
	var fallback *Action
	for _, action := range am.actions {
		if action.subject != subject {
			continue
		}
		if action.method == method {
			return action, true
		}
		if action.method == "ALL" {
			fallback = action
		}
	}
	if fallback != nil {
		return fallback, true
	}
	return NewAction(method, subject, subject), false
}

// ActionLogMiddleware 记录匹配到的操作与响应状态到 actions 表。
func (am *ActionManager) ActionLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		action, ok := am.MatchRoute(c.Request.Method, c.FullPath())
		c.Next()
		if !ok || am.store == nil {
			return
		}
		xl := c.MustGet(model.XLogKey).(*xlog.Logger)
		filled := action.With(c)
		record := &model.ActionRecordDo{
			Msg:       filled.String(),
			AccountID: filled.accountID,
			RequestID: xl.ReqId,
			Method:    c.Request.Method,
			Subject:   filled.subject,
			Status:    c.Writer.Status(),
			Time:      time.Now(),
		}
		if start, ok := c.Get(model.RequestStartKey); ok {
			record.LatencyMs = record.Time.Sub(start.(time.Time)).Milliseconds()
		}
		if err := am.store.SaveAction(xl, record); err != nil {
			xl.Warnf("failed to save action log, error %v", err)
		}
	}
}

// /api/cancel-session/:sessionId -> cancel-session
// /api/interview/:sessionId/start -> interview start
// parsePath skip first path item && skip param,may return nil
func parsePath(path string) []string {
	fields := strings.Split(path, "/")
	if len(fields) < 2 {
		return nil
	}
	res := make([]string, 0)
	for _, part := range fields[2:] {
		if part != "" && !strings.HasPrefix(part, ":") {
			res = append(res, part)
		}
	}
	return res
}

// GET profile -> method="GET" subject="profile"
// login -> method="ALL" subject="login"
func parseMethodAndSubject(val string) (method, subject string) {
	val = strings.TrimSpace(val)
	if val == "" {
		return "", ""
	}
	for _, m := range []string{"GET", "POST", "PUT", "DELETE"} {
		if strings.HasPrefix(val, m+" ") {
			return m, strings.TrimSpace(val[len(m):])
		}
	}
	return "ALL", val
}
