package api

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

// requestLogger logs one structured line per request
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("request",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"remote", r.RemoteAddr,
			"duration", time.Since(start))
	})
}

// Admin authentication

// AdminRole is the role claim an admin token must carry
const AdminRole = "admin"

// AdminClaims are the JWT claims of an admin bearer token
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type adminAuth struct {
	secret []byte
}

func newAdminAuth(secret string) *adminAuth {
	return &adminAuth{secret: []byte(secret)}
}

// IssueAdminToken signs an HS256 admin token for subject, valid for ttl
func IssueAdminToken(secret, subject string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is not configured")
	}
	now := time.Now()
	claims := AdminClaims{
		Role: AdminRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// verify checks an "Authorization: Bearer <token>" header
func (a *adminAuth) verify(header string) (*AdminClaims, error) {
	if len(a.secret) == 0 {
		return nil, errors.New("admin access is not configured")
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return nil, errors.New("missing bearer token")
	}

	claims := &AdminClaims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if claims.Role != AdminRole {
		return nil, errors.New("admin role required")
	}
	return claims, nil
}

func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.auth.verify(r.Header.Get("Authorization"))
		if err != nil {
			s.logger.Debug("admin access denied", "path", r.URL.Path, "error", err)
			writeFailure(w, http.StatusUnauthorized, "Admin authorization required")
			return
		}
		s.logger.Debug("admin request", "subject", claims.Subject, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

// Per-IP rate limiting

const (
	limiterIdleTTL       = 30 * time.Minute
	limiterSweepInterval = 5 * time.Minute
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipRateLimiter keeps one token bucket per client IP. Idle buckets are swept
// lazily while serving requests. A nil limiter allows everything.
type ipRateLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	clients   map[string]*clientLimiter
	lastSweep time.Time
	now       func() time.Time
}

func newIPRateLimiter(rps float64, burst int) *ipRateLimiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &ipRateLimiter{
		limit:     rate.Limit(rps),
		burst:     burst,
		clients:   make(map[string]*clientLimiter),
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (l *ipRateLimiter) allow(ip string) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > limiterSweepInterval {
		for key, c := range l.clients {
			if now.Sub(c.lastSeen) > limiterIdleTTL {
				delete(l.clients, key)
			}
		}
		l.lastSweep = now
	}

	c, ok := l.clients[ip]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

// clientIP returns the host part of RemoteAddr, which middleware.RealIP has
// already replaced with the forwarded address when present
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(clientIP(r)) {
			writeFailure(w, http.StatusTooManyRequests, "Too many requests, please try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Idempotent replay

// IdempotencyHeader lets clients retry a POST without creating a second resource
const IdempotencyHeader = "Idempotency-Key"

const replayTTL = 24 * time.Hour

// replayEntry is one recorded response. done is closed once the first
// request finishes; status stays 0 when the response was not kept.
type replayEntry struct {
	bodyHash    [32]byte
	done        chan struct{}
	status      int
	contentType string
	body        []byte
	expiresAt   time.Time
}

type idempotencyCache struct {
	mu    sync.Mutex
	cache *lru.Cache[[32]byte, *replayEntry]
}

// newIdempotencyCache returns nil when size is not positive, disabling replay
func newIdempotencyCache(size int) (*idempotencyCache, error) {
	if size <= 0 {
		return nil, nil
	}
	cache, err := lru.New[[32]byte, *replayEntry](size)
	if err != nil {
		return nil, err
	}
	return &idempotencyCache{cache: cache}, nil
}

func replayKey(r *http.Request, key string) [32]byte {
	return sha256.Sum256([]byte(r.Method + " " + r.URL.Path + " " + key))
}

// claim returns the entry for key, creating it when absent or expired.
// owner is true when the caller must run the handler and complete the entry.
func (c *idempotencyCache) claim(key [32]byte, bodyHash [32]byte) (entry *replayEntry, owner bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.cache.Get(key); ok {
		select {
		case <-e.done:
			if e.status != 0 && time.Now().Before(e.expiresAt) {
				return e, false
			}
		default:
			return e, false
		}
	}

	e := &replayEntry{bodyHash: bodyHash, done: make(chan struct{})}
	c.cache.Add(key, e)
	return e, true
}

func (c *idempotencyCache) release(key [32]byte, e *replayEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e.status == 0 {
		if cur, ok := c.cache.Peek(key); ok && cur == e {
			c.cache.Remove(key)
		}
	}
	close(e.done)
}

// idempotent replays the stored 2xx response for a repeated Idempotency-Key.
// A request arriving while the first is still running waits for it.
func (s *Server) idempotent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
		if s.replay == nil || key == "" {
			next.ServeHTTP(w, r)
			return
		}
		if len(key) > 255 {
			writeFailure(w, http.StatusBadRequest, "Idempotency-Key must be at most 255 characters")
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeFailure(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		bodyHash := sha256.Sum256(body)
		cacheKey := replayKey(r, key)

		for {
			entry, owner := s.replay.claim(cacheKey, bodyHash)
			if owner {
				s.record(w, r, next, cacheKey, entry)
				return
			}

			select {
			case <-entry.done:
			case <-r.Context().Done():
				return
			}
			if entry.status == 0 {
				// The first attempt was not kept; run this one
				continue
			}
			if entry.bodyHash != bodyHash {
				writeFailure(w, http.StatusConflict, "Idempotency-Key was already used with a different request")
				return
			}
			w.Header().Set("Content-Type", entry.contentType)
			w.Header().Set("Idempotent-Replayed", "true")
			w.WriteHeader(entry.status)
			_, _ = w.Write(entry.body)
			return
		}
	})
}

func (s *Server) record(w http.ResponseWriter, r *http.Request, next http.Handler, key [32]byte, entry *replayEntry) {
	var buf bytes.Buffer
	ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
	ww.Tee(&buf)

	defer func() {
		status := ww.Status()
		if status >= 200 && status < 300 {
			entry.status = status
			entry.contentType = ww.Header().Get("Content-Type")
			entry.body = buf.Bytes()
			entry.expiresAt = time.Now().Add(replayTTL)
		}
		s.replay.release(key, entry)
	}()
	next.ServeHTTP(ww, r)
}
