package motivation

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	MaxInterventionsPerSession = 3
	MinInterventionGap         = 5 * time.Minute

	gateKeyPrefix = "edulife:intervention:"
	gateTTL       = 12 * time.Hour
	watchRetries  = 5
)

var ErrGateContention = errors.New("intervention gate: too much contention")

// Gate decides whether an intervention may be shown in a session. Allow
// records the intervention when it returns true.
type Gate interface {
	Allow(ctx context.Context, sessionKey string, now time.Time) (bool, error)
}

type gateState struct {
	count int
	last  time.Time
}

func (s gateState) allows(now time.Time) bool {
	if s.count >= MaxInterventionsPerSession {
		return false
	}
	return s.last.IsZero() || now.Sub(s.last) >= MinInterventionGap
}

// MemoryGate keeps gate state in process. Used when redis is not configured
// and in tests. Sessions idle for gateTTL are forgotten, as with RedisGate.
type MemoryGate struct {
	mu       sync.Mutex
	sessions map[string]gateState
	swept    time.Time
}

func NewMemoryGate() *MemoryGate {
	return &MemoryGate{sessions: map[string]gateState{}}
}

func (g *MemoryGate) Allow(_ context.Context, sessionKey string, now time.Time) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sweep(now)
	st := g.sessions[sessionKey]
	if !st.allows(now) {
		return false, nil
	}
	g.sessions[sessionKey] = gateState{count: st.count + 1, last: now}
	return true, nil
}

// sweep drops expired sessions, at most once per MinInterventionGap. Caller
// holds mu.
func (g *MemoryGate) sweep(now time.Time) {
	if !g.swept.IsZero() && now.Sub(g.swept) < MinInterventionGap {
		return
	}
	g.swept = now
	for key, st := range g.sessions {
		if now.Sub(st.last) >= gateTTL {
			delete(g.sessions, key)
		}
	}
}

// Len reports how many sessions the gate is tracking.
func (g *MemoryGate) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sessions)
}

// Reset forgets a session.
func (g *MemoryGate) Reset(sessionKey string) {
	g.mu.Lock()
	delete(g.sessions, sessionKey)
	g.mu.Unlock()
}

// RedisGate shares gate state across instances. Each session is a hash with
// count and last (unix nanos), updated under WATCH so concurrent requests for
// one session cannot both pass.
type RedisGate struct {
	rdb *goredis.Client
}

func NewRedisGate(rdb *goredis.Client) *RedisGate {
	return &RedisGate{rdb: rdb}
}

func (g *RedisGate) Allow(ctx context.Context, sessionKey string, now time.Time) (bool, error) {
	key := gateKeyPrefix + sessionKey
	allowed := false
	txf := func(tx *goredis.Tx) error {
		allowed = false
		vals, err := tx.HMGet(ctx, key, "count", "last").Result()
		if err != nil {
			return err
		}
		var st gateState
		if s, ok := vals[0].(string); ok {
			st.count, _ = strconv.Atoi(s)
		}
		if s, ok := vals[1].(string); ok {
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				st.last = time.Unix(0, n)
			}
		}
		if !st.allows(now) {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(p goredis.Pipeliner) error {
			p.HSet(ctx, key, "count", st.count+1, "last", now.UnixNano())
			p.Expire(ctx, key, gateTTL)
			return nil
		})
		if err != nil {
			return err
		}
		allowed = true
		return nil
	}
	for i := 0; i < watchRetries; i++ {
		err := g.rdb.Watch(ctx, txf, key)
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		if err != nil {
			return false, err
		}
		return allowed, nil
	}
	return false, ErrGateContention
}
