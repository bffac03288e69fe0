package lookup

import (
	"net/http"
	"sync"
)

// Credentials carries what the host session knows about the user: the
// bearer access token and the CSRF token the API hands out.
type Credentials struct {
	mu          sync.RWMutex
	accessToken string
	csrfToken   string
}

func NewCredentials(accessToken, csrfToken string) *Credentials {
	return &Credentials{accessToken: accessToken, csrfToken: csrfToken}
}

func (c *Credentials) CSRFToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.csrfToken
}

func (c *Credentials) apply(req *http.Request) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}
	if req.Method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
		if c.csrfToken != "" {
			req.Header.Set("X-CSRF-Token", c.csrfToken)
		}
	}
}

func (c *Credentials) capture(token string) {
	if token == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.csrfToken = token
}
