package cloud

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/qiniu/x/xlog"
	re "github.com/redis/go-redis/v9"

	"github.com/solutions/interview-gate/internal/common/utils"
)

// SendThrottle 限制同一个key在一段时间内只能通过一次。
type SendThrottle interface {
	// Allow 返回 true 表示本次可以发送，并开始计时。
	Allow(xl *xlog.Logger, key string, window time.Duration) (bool, error)
}

// AttemptCounter 统计一段时间内的失败次数，窗口从第一次失败开始计算。
type AttemptCounter interface {
	Incr(xl *xlog.Logger, key string, window time.Duration) (int64, error)
	Count(xl *xlog.Logger, key string) (int64, error)
	Reset(xl *xlog.Logger, key string) error
}

type Throttle interface {
	SendThrottle
	AttemptCounter
}

// NewSendThrottle redis 未启用时使用进程内的实现。
func NewSendThrottle(conf utils.RedisConfig) Throttle {
	if !conf.Enabled {
		return NewMemoryThrottle()
	}
	return &RedisThrottle{
		redis: re.NewClient(&re.Options{
			Addr:     conf.Address,
			Password: conf.Password,
			DB:       conf.DB,
		}),
		namespace: conf.Namespace,
	}
}

type RedisThrottle struct {
	redis     *re.Client
	namespace string
}

func (r *RedisThrottle) withNamespace(key string) string {
	if r.namespace == "" {
		return "throttle:" + key
	}
	return fmt.Sprintf("%s:throttle:%s", r.namespace, key)
}

func (r *RedisThrottle) Allow(xl *xlog.Logger, key string, window time.Duration) (bool, error) {
	ok, err := r.redis.SetNX(context.Background(), r.withNamespace(key), time.Now().Unix(), window).Result()
	if err != nil {
		xl.Errorf("redis setnx %s failed, error %v", key, err)
		return false, err
	}
	return ok, nil
}

func (r *RedisThrottle) attemptKey(key string) string {
	return r.withNamespace("attempts:" + key)
}

func (r *RedisThrottle) Incr(xl *xlog.Logger, key string, window time.Duration) (int64, error) {
	ctx := context.Background()
	k := r.attemptKey(key)
	n, err := r.redis.Incr(ctx, k).Result()
	if err != nil {
		xl.Errorf("redis incr %s failed, error %v", key, err)
		return 0, err
	}
	if n == 1 {
		if err := r.redis.Expire(ctx, k, window).Err(); err != nil {
			xl.Errorf("redis expire %s failed, error %v", key, err)
			return n, err
		}
	}
	return n, nil
}

func (r *RedisThrottle) Count(xl *xlog.Logger, key string) (int64, error) {
	n, err := r.redis.Get(context.Background(), r.attemptKey(key)).Int64()
	if err == re.Nil {
		return 0, nil
	}
	if err != nil {
		xl.Errorf("redis get %s failed, error %v", key, err)
		return 0, err
	}
	return n, nil
}

func (r *RedisThrottle) Reset(xl *xlog.Logger, key string) error {
	if err := r.redis.Del(context.Background(), r.attemptKey(key)).Err(); err != nil {
		xl.Errorf("redis del %s failed, error %v", key, err)
		return err
	}
	return nil
}

// MemoryThrottle 单进程内的限流，多实例部署时应启用 redis。
type MemoryThrottle struct {
	mutex    sync.Mutex
	expires  map[string]time.Time
	attempts map[string]*attempt
	now      func() time.Time
}

type attempt struct {
	n     int64
	until time.Time
}

func NewMemoryThrottle() *MemoryThrottle {
	return &MemoryThrottle{expires: map[string]time.Time{}, attempts: map[string]*attempt{}, now: time.Now}
}

// SetClock 替换时钟，测试用。
func (m *MemoryThrottle) SetClock(now func() time.Time) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.now = now
}

func (m *MemoryThrottle) Allow(xl *xlog.Logger, key string, window time.Duration) (bool, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	now := m.now()
	for k, until := range m.expires {
		if !now.Before(until) {
			delete(m.expires, k)
		}
	}
	if _, ok := m.expires[key]; ok {
		return false, nil
	}
	m.expires[key] = now.Add(window)
	return true, nil
}

func (m *MemoryThrottle) live(key string, now time.Time) *attempt {
	a, ok := m.attempts[key]
	if !ok {
		return nil
	}
	if !now.Before(a.until) {
		delete(m.attempts, key)
		return nil
	}
	return a
}

func (m *MemoryThrottle) Incr(xl *xlog.Logger, key string, window time.Duration) (int64, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	now := m.now()
	a := m.live(key, now)
	if a == nil {
		a = &attempt{until: now.Add(window)}
		m.attempts[key] = a
	}
	a.n++
	return a.n, nil
}

func (m *MemoryThrottle) Count(xl *xlog.Logger, key string) (int64, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if a := m.live(key, m.now()); a != nil {
		return a.n, nil
	}
	return 0, nil
}

func (m *MemoryThrottle) Reset(xl *xlog.Logger, key string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.attempts, key)
	return nil
}
