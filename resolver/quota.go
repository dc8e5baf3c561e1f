package resolver

import (
	"sync"
	"time"
)

const (
	defaultDailyCap = 50
	quotaWindow     = 24 * time.Hour
)

type quotaState struct {
	count   int
	resetAt time.Time
}

// QuotaGuard tracks external-call budgets per user over a rolling 24 hour
// window. State is process-local only, so across multiple processes the cap
// is a cost heuristic rather than a hard guarantee.
type QuotaGuard struct {
	mu       sync.Mutex
	dailyCap int
	now      func() time.Time
	users    map[string]*quotaState
}

func NewQuotaGuard(dailyCap int) *QuotaGuard {
	if dailyCap <= 0 {
		dailyCap = defaultDailyCap
	}
	return &QuotaGuard{
		dailyCap: dailyCap,
		now:      time.Now,
		users:    make(map[string]*quotaState),
	}
}

// window returns the user's current window, lazily creating or resetting it.
// Caller must hold the mutex.
func (g *QuotaGuard) window(userID string) *quotaState {
	w, ok := g.users[userID]
	if !ok {
		w = &quotaState{resetAt: g.now().Add(quotaWindow)}
		g.users[userID] = w
	} else if g.now().After(w.resetAt) {
		w.count = 0
		w.resetAt = g.now().Add(quotaWindow)
	}
	return w
}

// Check reports whether the user may still spend an external call. It never
// consumes budget itself.
func (g *QuotaGuard) Check(userID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.window(userID).count < g.dailyCap
}

// Increment records one spent external call. Called only after a search or
// language-model resolution succeeded; cache hits never consume quota.
func (g *QuotaGuard) Increment(userID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.window(userID).count++
}

// Used returns the user's consumed budget in the current window.
func (g *QuotaGuard) Used(userID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.window(userID).count
}
