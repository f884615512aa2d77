package web

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// rateLimiter is a fixed-window limiter keyed by client IP. RemoteAddr is
// already rewritten by TrustedRealIP when the peer is a trusted proxy.
type rateLimiter struct {
	mu       sync.Mutex
	clients map[string]*client
	rate     int
	window   time.Duration
	now      func() time.Time
	done     chan struct{}
	once     sync.Once
}

type client struct {
	remaining    int
	windowStart time.Time
}

// newRateLimiter starts a limiter whose cleanup loop ends on Shutdown.
func (s *Server) newRateLimiter(rate int, window time.Duration) *rateLimiter {
	rl := newRateLimiter(rate, window)
	s.limiters = append(s.limiters, rl)
	go rl.cleanup()
	return rl
}

func newRateLimiter(rate int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		clients: make(map[string]*client),
		rate:     rate,
		window:   window,
		now:      time.Now,
		done:     make(chan struct{}),
	}
}

func (rl *rateLimiter) stop() {
	rl.once.Do(func() { close(rl.done) })
}

// cleanup drops clients idle for two windows.
func (rl *rateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()
	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.mu.Lock()
			for ip, v := range rl.clients {
				if rl.now().Sub(v.windowStart) > rl.window*2 {
					delete(rl.clients, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// allow consumes a token for ip. When the window is exhausted it returns
// the time until the window resets.
func (rl *rateLimiter) allow(ip string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, ok := rl.clients[ip]
	if !ok || now.Sub(v.windowStart) >= rl.window {
		rl.clients[ip] = &client{remaining: rl.rate - 1, windowStart: now}
		return true, 0
	}
	if v.remaining <= 0 {
		return false, rl.window - now.Sub(v.windowStart)
	}
	v.remaining--
	return true, 0
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}

		if ok, wait := rl.allow(ip); !ok {
			secs := int(wait.Round(time.Second) / time.Second)
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			respondError(w, r, errRateLimited)
			return
		}
		next.ServeHTTP(w, r)
	})
}
