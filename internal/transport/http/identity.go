package httptransport

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"socialhub-server-go/internal/domain/auth"
	"socialhub-server-go/internal/platform/config"
)

const actingUserKey = "socialhub.acting_user"

// Identity resolves the acting user of a request. With a JWT secret the
// bearer token's subject is used; otherwise the configured header is trusted.
// A request without either is anonymous.
type Identity struct {
	tokens *auth.AuthToken
	header string
	admins map[string]struct{}
}

func NewIdentity(cfg config.AuthConfig) *Identity {
	id := &Identity{
		header: cfg.UserHeader,
		admins: make(map[string]struct{}, len(cfg.AdminUsers)),
	}
	if id.header == "" {
		id.header = "X-User-ID"
	}
	if cfg.JWTSecret != "" {
		id.tokens = auth.NewAuthToken(cfg.JWTSecret)
	}
	for _, u := range cfg.AdminUsers {
		if u = strings.TrimSpace(u); u != "" {
			id.admins[u] = struct{}{}
		}
	}
	return id
}

// Resolve returns the acting user for req. An error means a token was
// presented and rejected.
func (i *Identity) Resolve(req *http.Request) (string, error) {
	if i.tokens == nil {
		return strings.TrimSpace(req.Header.Get(i.header)), nil
	}
	token := bearerToken(req)
	if token == "" {
		return "", nil
	}
	return i.tokens.VerifyToken(token)
}

// Middleware stores the acting user on the gin context.
func (i *Identity) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := i.Resolve(c.Request)
		if err != nil {
			RespondError(c, http.StatusUnauthorized, "invalid token", nil)
			return
		}
		c.Set(actingUserKey, user)
		c.Next()
	}
}

// RequireUser rejects anonymous requests.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if ActingUser(c) == "" {
			RespondError(c, http.StatusUnauthorized, "acting user is required", nil)
			return
		}
		c.Next()
	}
}

// RequireAdmin rejects users not listed in the admin allow-list.
func (i *Identity) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := ActingUser(c)
		if user == "" {
			RespondError(c, http.StatusUnauthorized, "acting user is required", nil)
			return
		}
		if _, ok := i.admins[user]; !ok {
			RespondError(c, http.StatusForbidden, "admin privileges required", nil)
			return
		}
		c.Next()
	}
}

func ActingUser(c *gin.Context) string {
	return c.GetString(actingUserKey)
}

func bearerToken(req *http.Request) string {
	h := req.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	// Browsers cannot set headers on websocket upgrades.
	return req.URL.Query().Get("token")
}
