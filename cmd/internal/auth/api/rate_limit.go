package authapi

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

type lockoutTier struct {
	Threshold int
	Duration  time.Duration
}

// evaluateWindowThrottle blocks once max failures fall inside window. retry is
// the time until enough of them age out to allow one more attempt.
func evaluateWindowThrottle(now time.Time, failures []time.Time, max int, window time.Duration) (bool, time.Duration) {
	if max <= 0 || window <= 0 {
		return false, 0
	}
	cut := now.Add(-window)
	in := make([]time.Time, 0, len(failures))
	for _, f := range failures {
		if f.After(cut) {
			in = append(in, f)
		}
	}
	if len(in) < max {
		return false, 0
	}
	sort.Slice(in, func(i, j int) bool { return in[i].Before(in[j]) })
	retry := in[len(in)-max].Add(window).Sub(now)
	if retry <= 0 {
		return false, 0
	}
	return true, retry
}

// evaluateProgressiveLockout applies the first tier (in the given order) whose
// threshold is met and whose lockout, counted from the newest failure, is
// still running.
func evaluateProgressiveLockout(now time.Time, failures []time.Time, tiers []lockoutTier) (bool, time.Duration) {
	if len(failures) == 0 {
		return false, 0
	}
	newest := failures[0]
	for _, f := range failures[1:] {
		if f.After(newest) {
			newest = f
		}
	}
	for _, t := range tiers {
		if t.Threshold <= 0 || t.Duration <= 0 || len(failures) < t.Threshold {
			continue
		}
		if retry := newest.Add(t.Duration).Sub(now); retry > 0 {
			return true, retry
		}
	}
	return false, 0
}

// failureLog keeps recent failure timestamps per key in process memory.
// Entries older than retention are dropped on write.
type failureLog struct {
	mu        sync.Mutex
	retention time.Duration
	byKey     map[string][]time.Time
}

func newFailureLog(retention time.Duration) *failureLog {
	return &failureLog{retention: retention, byKey: make(map[string][]time.Time)}
}

func (l *failureLog) recent(key string) []time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]time.Time(nil), l.byKey[key]...)
}

func (l *failureLog) add(key string, now time.Time) {
	if key == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	cut := now.Add(-l.retention)
	kept := l.byKey[key][:0]
	for _, f := range l.byKey[key] {
		if f.After(cut) {
			kept = append(kept, f)
		}
	}
	l.byKey[key] = append(kept, now)

	if len(l.byKey) > 4096 {
		for k, fs := range l.byKey {
			if len(fs) == 0 || !fs[len(fs)-1].After(cut) {
				delete(l.byKey, k)
			}
		}
	}
}

func (l *failureLog) reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.byKey, key)
}

// linkThrottle combines a per-IP sliding window with a per-username
// progressive lockout for the link endpoint.
type linkThrottle struct {
	cfg    Config
	byIP   *failureLog
	byUser *failureLog
}

func newLinkThrottle(cfg Config) *linkThrottle {
	retention := cfg.LinkIPWindow
	for _, t := range cfg.lockoutTiers() {
		if t.Duration > retention {
			retention = t.Duration
		}
	}
	return &linkThrottle{
		cfg:    cfg,
		byIP:   newFailureLog(cfg.LinkIPWindow),
		byUser: newFailureLog(retention),
	}
}

func (t *linkThrottle) check(ip, username string, now time.Time) (bool, time.Duration) {
	if ip != "" {
		if blocked, retry := evaluateWindowThrottle(now, t.byIP.recent(ip), t.cfg.LinkIPMax, t.cfg.LinkIPWindow); blocked {
			return true, retry
		}
	}
	if u := usernameKey(username); u != "" {
		return evaluateProgressiveLockout(now, t.byUser.recent(u), t.cfg.lockoutTiers())
	}
	return false, 0
}

func (t *linkThrottle) fail(ip, username string, now time.Time) {
	t.byIP.add(ip, now)
	t.byUser.add(usernameKey(username), now)
}

func (t *linkThrottle) succeed(username string) {
	t.byUser.reset(usernameKey(username))
}

func usernameKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func writeRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	if retryAfter > 0 {
		secs := int64(retryAfter / time.Second)
		if retryAfter%time.Second != 0 {
			secs++
		}
		w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
	}
	writeError(w, http.StatusTooManyRequests, "rate_limited", "too many attempts")
}
