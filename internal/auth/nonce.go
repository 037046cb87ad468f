package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const nonceTTL = 5 * time.Minute

// NonceStore 一次性 nonce，防止重放
type NonceStore interface {
	Put(ctx context.Context, nonce string, ttl time.Duration) error
	// Take 取出并删除，不存在或已过期返回 false
	Take(ctx context.Context, nonce string) (bool, error)
}

type memoryNonces struct {
	mu     sync.Mutex
	expiry map[string]time.Time
}

func NewMemoryNonceStore() NonceStore {
	return &memoryNonces{expiry: make(map[string]time.Time)}
}

func (m *memoryNonces) Put(_ context.Context, nonce string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for n, exp := range m.expiry {
		if now.After(exp) {
			delete(m.expiry, n)
		}
	}
	m.expiry[nonce] = now.Add(ttl)
	return nil
}

func (m *memoryNonces) Take(_ context.Context, nonce string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.expiry[nonce]
	delete(m.expiry, nonce)
	return ok && time.Now().Before(exp), nil
}

type redisNonces struct {
	rdb *redis.Client
}

func NewRedisNonceStore(rdb *redis.Client) NonceStore {
	return &redisNonces{rdb: rdb}
}

func nonceKey(nonce string) string { return fmt.Sprintf("auth:nonce:%s", nonce) }

func (r *redisNonces) Put(ctx context.Context, nonce string, ttl time.Duration) error {
	return r.rdb.Set(ctx, nonceKey(nonce), 1, ttl).Err()
}

func (r *redisNonces) Take(ctx context.Context, nonce string) (bool, error) {
	n, err := r.rdb.Del(ctx, nonceKey(nonce)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func generateNonce() (string, error) {
	b := make([]byte, 16)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GET /auth/nonce
func (h *Handler) GetNonce(c *gin.Context) {
	nonce, err := generateNonce()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to generate nonce"})
		return
	}
	if err := h.nonces.Put(c.Request.Context(), nonce, nonceTTL); err != nil {
		h.logger.Error("save nonce failed", "err", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "failed to save nonce"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "nonce": nonce, "message": SignMessage(nonce)})
}
