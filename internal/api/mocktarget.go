package api

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// MockTarget serves local delivery targets for exercising the relay
// end to end without an external receiver. It is registered only when
// MOCK_TARGET_ENABLED is set.
type MockTarget struct {
	mu       sync.Mutex
	attempts map[string]int // failCount param -> requests seen
}

// NewMockTarget creates a mock target with fresh counters
func NewMockTarget() *MockTarget {
	return &MockTarget{
		attempts: make(map[string]int),
	}
}

// RegisterRoutes registers the mock endpoints on the given router
func (m *MockTarget) RegisterRoutes(r *gin.Engine) {
	mock := r.Group("/mock")
	{
		mock.POST("/always-success", m.AlwaysSuccess)
		mock.POST("/always-fail", m.AlwaysFail)
		mock.POST("/fail-then-success/:failCount", m.FailThenSuccess)
		mock.POST("/timeout", m.Timeout)
		mock.POST("/reset", m.Reset)
	}
}

// AlwaysSuccess responds 200 to every request
func (m *MockTarget) AlwaysSuccess(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// AlwaysFail responds 500 to every request
func (m *MockTarget) AlwaysFail(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, gin.H{"error": "simulated failure"})
}

// FailThenSuccess responds 503 for the first failCount requests, then
// 200. Counters persist across requests until Reset.
func (m *MockTarget) FailThenSuccess(c *gin.Context) {
	param := c.Param("failCount")
	failCount, err := strconv.Atoi(param)
	if err != nil || failCount < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid fail count"})
		return
	}

	m.mu.Lock()
	m.attempts[param]++
	seen := m.attempts[param]
	m.mu.Unlock()

	if seen <= failCount {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "simulated transient failure",
			"attempt": seen,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "attempt": seen})
}

// Timeout holds the request long enough to trip a short client read
// timeout before responding
func (m *MockTarget) Timeout(c *gin.Context) {
	select {
	case <-time.After(35 * time.Second):
	case <-c.Request.Context().Done():
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Reset clears all fail-then-success counters
func (m *MockTarget) Reset(c *gin.Context) {
	m.mu.Lock()
	m.attempts = make(map[string]int)
	m.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}
