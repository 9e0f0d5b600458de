package middleware

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// idleClientTTL is how long a client's bucket survives without traffic.
const idleClientTTL = 10 * time.Minute

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter keeps one token bucket per client IP. Uploads are heavy, so the
// defaults are small; idle buckets are swept on access instead of by a goroutine.
type rateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientBucket
	limit     rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

func newRateLimiter(limit rate.Limit, burst int) *rateLimiter {
	return &rateLimiter{
		clients: make(map[string]*clientBucket),
		limit:   limit,
		burst:   burst,
		now:     time.Now,
	}
}

func (r *rateLimiter) limiterFor(ip string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if now.Sub(r.lastSweep) > idleClientTTL {
		for key, client := range r.clients {
			if now.Sub(client.lastSeen) > idleClientTTL {
				delete(r.clients, key)
			}
		}
		r.lastSweep = now
	}

	client, ok := r.clients[ip]
	if !ok {
		client = &clientBucket{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.clients[ip] = client
	}
	client.lastSeen = now

	return client.limiter
}

func (r *rateLimiter) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// retryAfter is the whole number of seconds until one token is back.
func (r *rateLimiter) retryAfter() int {
	if r.limit <= 0 || r.limit == rate.Inf {
		return 1
	}
	return int(math.Ceil(1 / float64(r.limit)))
}

func (m *middleware) NewRateLimiter(ctx *fiber.Ctx) error {
	clientIP := ctx.IP()
	if clientIP == "" {
		// Proxy header configured but absent.
		clientIP = ctx.Context().RemoteIP().String()
	}

	if !m.rateLimitter.limiterFor(clientIP).Allow() {
		m.log.WithFields(logrus.Fields{
			"request_id": m.GetRequestID(ctx),
			"client_ip":  clientIP,
			"path":       ctx.Path(),
		}).Warn("Upload rate limit exceeded")

		ctx.Set(fiber.HeaderRetryAfter, strconv.Itoa(m.rateLimitter.retryAfter()))
		return ctx.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error": "Processing failed: too many requests",
			"code":  "RATE_LIMITED",
		})
	}

	return ctx.Next()
}
