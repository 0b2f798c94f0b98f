package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/qiniu/x/xlog"
)

// Pinger 检查依赖是否可用，例如数据库连接。
type Pinger interface {
	Ping(xl *xlog.Logger) error
}

type HealthApiHandler struct {
	Pingers map[string]Pinger
}

func NewHealthApiHandler(pingers map[string]Pinger) *HealthApiHandler {
	return &HealthApiHandler{Pingers: pingers}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Healthz 任一依赖不可用时返回 503。
func (h *HealthApiHandler) Healthz(c *gin.Context) {
	xl := requestLogger(c)
	resp := healthResponse{Status: "ok"}
	code := 200
	for name, p := range h.Pingers {
		if resp.Checks == nil {
			resp.Checks = map[string]string{}
		}
		if err := p.Ping(xl); err != nil {
			xl.Errorf("health check %s failed, error %v", name, err)
			resp.Checks[name] = "unavailable"
			resp.Status = "degraded"
			code = 503
			continue
		}
		resp.Checks[name] = "ok"
	}
	c.JSON(code, resp)
}
