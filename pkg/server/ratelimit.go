package server

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// clientLimiter keeps one token bucket per client address. Idle buckets are
// evicted so the map does not grow with client churn.
type clientLimiter struct {
	perSecond float64
	burst     int

	mu      sync.Mutex
	clients map[string]*clientBucket
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientLimiter(perSecond float64, burst int) *clientLimiter {
	l := &clientLimiter{
		perSecond: perSecond,
		burst:     burst,
		clients:   make(map[string]*clientBucket),
	}
	go l.evictLoop()
	return l
}

func (l *clientLimiter) bucketFor(addr string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.clients[addr]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(rate.Limit(l.perSecond), l.burst)}
		l.clients[addr] = b
	}
	b.lastSeen = time.Now()
	return b.limiter
}

func (l *clientLimiter) evictLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-3 * time.Minute)
		l.mu.Lock()
		for addr, b := range l.clients {
			if b.lastSeen.Before(cutoff) {
				delete(l.clients, addr)
			}
		}
		l.mu.Unlock()
	}
}

func (l *clientLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		addr := r.RemoteAddr
		if host, _, err := net.SplitHostPort(addr); err == nil {
			addr = host
		}
		if !l.bucketFor(addr).Allow() {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
