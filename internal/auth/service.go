package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Merchously/iRun/internal"
	"github.com/Merchously/iRun/internal/audit"
	"github.com/Merchously/iRun/internal/permission"
	"golang.org/x/crypto/bcrypt"
)

// Credentials is the minimal row needed to check a password.
type Credentials struct {
	UserID       string
	Email        string
	DisplayName  string
	PasswordHash string
}

// NewAccount is persisted together with its initial role in one transaction.
type NewAccount struct {
	Email        string
	PasswordHash string
	DisplayName  string
	Role         permission.Role
}

type UserRepository interface {
	IdentityRepository
	// FindCredentialsByEmail returns internal.ErrUserNotFound when no account matches.
	FindCredentialsByEmail(ctx context.Context, email string) (*Credentials, error)
	// CreateWithRole returns internal.ErrEmailTaken on a duplicate email.
	CreateWithRole(ctx context.Context, acct NewAccount) (*UserSummary, error)
}

type ServiceAPI interface {
	Register(ctx context.Context, dto RegisterDTO) (*AuthResult, error)
	Login(ctx context.Context, dto LoginDTO) (*AuthResult, error)
	Logout(ctx context.Context, token string) error
}

// Service is the main auth service with dependencies
type Service struct {
	users      UserRepository
	sessions   SessionAuthority
	audit      audit.Recorder
	bcryptCost int
	logger     *slog.Logger
}

func NewService(users UserRepository, sessions SessionAuthority, recorder audit.Recorder, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:      users,
		sessions:   sessions,
		audit:      recorder,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// Register creates an account holding the default role and signs it in.
func (s *Service) Register(ctx context.Context, dto RegisterDTO) (*AuthResult, error) {
	dto = dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	hash, err := s.HashPassword(dto.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.CreateWithRole(ctx, NewAccount{
		Email:        dto.Email,
		PasswordHash: hash,
		DisplayName:  dto.DisplayName,
		Role:         permission.DefaultRole,
	})
	if err != nil {
		return nil, err
	}

	result, err := s.startSession(ctx, *user)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID)
	s.audit.Record(ctx, audit.Entry{
		ActorID:    user.ID,
		Action:     audit.ActionUserRegister,
		EntityType: audit.EntityUser,
		EntityID:   user.ID,
	})
	return result, nil
}

// Login never reveals whether the email or the password was wrong.
func (s *Service) Login(ctx context.Context, dto LoginDTO) (*AuthResult, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	creds, err := s.users.FindCredentialsByEmail(ctx, normalizeEmail(dto.Email))
	if errors.Is(err, internal.ErrUserNotFound) {
		return nil, internal.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find credentials: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(dto.Password)); err != nil {
		s.logger.DebugContext(ctx, "login rejected", "user_id", creds.UserID)
		return nil, internal.ErrInvalidCredentials
	}

	result, err := s.startSession(ctx, UserSummary{
		ID:          creds.UserID,
		Email:       creds.Email,
		DisplayName: creds.DisplayName,
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.Entry{
		ActorID:    creds.UserID,
		Action:     audit.ActionUserLogin,
		EntityType: audit.EntityUser,
		EntityID:   creds.UserID,
	})
	return result, nil
}

// Logout is idempotent: an unknown or expired token is not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	sess, err := s.sessions.Validate(ctx, token)
	if err == nil {
		s.audit.Record(ctx, audit.Entry{
			ActorID:    sess.UserID,
			Action:     audit.ActionUserLogout,
			EntityType: audit.EntityUser,
			EntityID:   sess.UserID,
		})
	} else if !internal.IsType(err, internal.ErrorTypeUnauthenticated) {
		return err
	}

	return s.sessions.Invalidate(ctx, token)
}

func (s *Service) startSession(ctx context.Context, user UserSummary) (*AuthResult, error) {
	sess, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &AuthResult{
		User:      user,
		Session:   sess,
		Token:     sess.ID,
		ExpiresAt: sess.ExpiresAt,
	}, nil
}

// HashPassword creates a bcrypt hash of the password
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
