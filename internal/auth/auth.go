package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/Merchously/iRun/internal/permission"
	"github.com/Merchously/iRun/internal/session"
	"github.com/Merchously/iRun/internal/transport"
)

// UserSummary is the public face of an account.
type UserSummary struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// Identity is what the guard hands back once a caller is authenticated.
type Identity struct {
	User    UserSummary
	Session *session.Session
	Roles   []permission.Role
}

func (i *Identity) UserID() string {
	if i == nil {
		return ""
	}
	return i.User.ID
}

// SessionAuthority is the slice of the session service the auth package depends on.
type SessionAuthority interface {
	Create(ctx context.Context, userID string) (*session.Session, error)
	Validate(ctx context.Context, token string) (*session.Session, error)
	Invalidate(ctx context.Context, token string) error
}

// IdentityRepository loads a user and their role names. A missing user yields internal.ErrUserNotFound.
type IdentityRepository interface {
	GetIdentity(ctx context.Context, userID string) (*UserSummary, []string, error)
}

type ctxKey string

const ContextIdentityKey ctxKey = "identity"

func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(ContextIdentityKey).(*Identity)
	return id, ok && id != nil
}

func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, ContextIdentityKey, id)
}

// CookieConfig controls how the session token travels to the browser.
type CookieConfig struct {
	Name   string
	Secure bool
}

// TokenFromRequest prefers the session cookie and falls back to a bearer token.
func TokenFromRequest(r *http.Request, cookieName string) string {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return transport.BearerToken(r)
}

func (c CookieConfig) issue(w http.ResponseWriter, sess *session.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    sess.ID,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		MaxAge:   int(time.Until(sess.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c CookieConfig) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
