package session

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	CookieName = "sessionid"
	contextKey = "session"
)

// Session is the per-request handle on the caller's browser session.
type Session struct {
	ID      string
	counter Counter
}

// Visit records one more visit and returns the total including this one.
func (s Session) Visit(ctx context.Context) (int64, error) {
	return s.counter.Incr(ctx, s.ID)
}

// Middleware attaches a Session to every request, issuing a new session
// cookie when the request carries none or a malformed one.
func Middleware(counter Counter, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(CookieName)
		if err != nil || uuid.Validate(id) != nil {
			id = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(CookieName, id, int(TTL.Seconds()), "/", "", secure, true)
		}
		c.Set(contextKey, Session{ID: id, counter: counter})
		c.Next()
	}
}

// From returns the request's session. ok is false when Middleware did not run.
func From(c *gin.Context) (Session, bool) {
	v, ok := c.Get(contextKey)
	if !ok {
		return Session{}, false
	}
	s, ok := v.(Session)
	return s, ok
}
