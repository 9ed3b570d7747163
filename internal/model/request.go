package model

import "sync"

// RequestContext is the request-scoped client context shared by the
// middleware chain and handlers. The auth middleware fills UserID after the
// outer tracker has installed it, so access is guarded.
type RequestContext struct {
	IP        string
	UserAgent string

	mu     sync.RWMutex
	userID string
}

// SetUserID records the authenticated user.
func (c *RequestContext) SetUserID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = id
}

// UserID returns the authenticated user, or "" when anonymous.
func (c *RequestContext) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

// RequestLogEntry is the single record emitted per HTTP request.
type RequestLogEntry struct {
	IP         string
	Method     string
	URL        string
	UserAgent  string
	UserID     *string
	DurationMS float64
	Status     int
}
