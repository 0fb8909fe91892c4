package generation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Gate allows at most one generation run per case at a time.
type Gate interface {
	// Acquire returns ErrRunInProgress when key is already held.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// MemoryGate is a process-local Gate.
type MemoryGate struct {
	mu   sync.Mutex
	held map[string]bool
}

func NewMemoryGate() *MemoryGate {
	return &MemoryGate{held: map[string]bool{}}
}

func (g *MemoryGate) Acquire(_ context.Context, key string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held[key] {
		return nil, ErrRunInProgress
	}
	g.held[key] = true

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.held, key)
			g.mu.Unlock()
		})
	}, nil
}

// Held reports whether key is currently held.
func (g *MemoryGate) Held(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.held[key]
}

// unlockScript deletes the lock only if it still carries our token.
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// extendScript pushes the expiry out only while the lock still carries our
// token.
var extendScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0
`)

// RedisGate shares the gate across server instances with SET NX PX. A held
// lock is extended every third of its TTL until released, so the TTL only
// bounds how long a crashed instance can hold a case.
type RedisGate struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisGate(rdb *redis.Client, ttl time.Duration) *RedisGate {
	return &RedisGate{rdb: rdb, prefix: "pi:generation:", ttl: ttl}
}

func (g *RedisGate) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	ok, err := g.rdb.SetNX(ctx, g.prefix+key, token, g.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire generation lock: %w", err)
	}
	if !ok {
		return nil, ErrRunInProgress
	}

	stop := make(chan struct{})
	go g.keepAlive(g.prefix+key, token, stop)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = unlockScript.Run(ctx, g.rdb, []string{g.prefix + key}, token).Err()
		})
	}, nil
}

// keepAlive extends the lock until stop closes or the lock is lost.
func (g *RedisGate) keepAlive(key, token string, stop <-chan struct{}) {
	every := g.ttl / 3
	if every <= 0 {
		every = time.Millisecond
	}
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-stop:
			return
		case <-t.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			n, err := extendScript.Run(ctx, g.rdb, []string{key}, token, g.ttl.Milliseconds()).Int()
			cancel()
			if err == nil && n == 0 {
				return // expired and taken by someone else
			}
		}
	}
}

// NewRedisClient connects and pings, failing fast on a bad address.
func NewRedisClient(addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return rdb, nil
}
