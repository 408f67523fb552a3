package auth

import (
	"strings"
	"time"

	"github.com/Merchously/iRun/internal"
	"github.com/Merchously/iRun/internal/core/common/validation"
	"github.com/Merchously/iRun/internal/session"
)

const (
	minPasswordLength    = 8
	maxPasswordLength    = 128
	minDisplayNameLength = 2
	maxDisplayNameLength = 50
)

type RegisterDTO struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// Normalize lowercases the email and trims surrounding whitespace from the display name.
func (d RegisterDTO) Normalize() RegisterDTO {
	d.Email = normalizeEmail(d.Email)
	d.DisplayName = strings.TrimSpace(d.DisplayName)
	return d
}

func (d RegisterDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required().Email()
	v.Field("password", d.Password).Required().MinLength(minPasswordLength).MaxLength(maxPasswordLength)
	v.Field("display_name", d.DisplayName).Required().MinLength(minDisplayNameLength).MaxLength(maxDisplayNameLength)
	return v.Validate()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// LoginDTO is the transport shape used by the HTTP handler to accept login requests.
type LoginDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (d LoginDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required()
	v.Field("password", d.Password).Required()
	return v.Validate()
}

// AuthResult is returned by register and login; the token is also set as a cookie.
type AuthResult struct {
	User      UserSummary      `json:"user"`
	Session   *session.Session `json:"-"`
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
}
