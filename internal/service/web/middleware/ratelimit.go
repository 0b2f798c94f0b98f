package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/qiniu/x/xlog"
	"golang.org/x/time/rate"

	"github.com/solutions/interview-gate/internal/protodef/model"
)

// IPRateLimiter 按客户端IP限流，用于会发送验证码邮件的接口。
type IPRateLimiter struct {
	mutex    sync.Mutex
	limiters map[string]*visitor
	limit    rate.Limit
	burst    int
	idle     time.Duration
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewIPRateLimiter(every time.Duration, burst int) *IPRateLimiter {
	return &IPRateLimiter{
		limiters: map[string]*visitor{},
		limit:    rate.Every(every),
		burst:    burst,
		idle:     10 * time.Minute,
	}
}

func (l *IPRateLimiter) allow(ip string, now time.Time) bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	for key, v := range l.limiters {
		if now.Sub(v.lastSeen) > l.idle {
			delete(l.limiters, key)
		}
	}
	v, ok := l.limiters[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

func (l *IPRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.allow(c.ClientIP(), time.Now()) {
			return
		}
		xl := c.MustGet(model.XLogKey).(*xlog.Logger)
		xl.Infof("%s %s: rate limited for %s", c.Request.Method, c.Request.URL.Path, c.ClientIP())
		model.NewFailResponse(*model.NewResponseErrorTooManyRequests()).WithRequestID(xl.ReqId).Send(c)
		c.Abort()
	}
}
