package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/boddenberg/insightedge-bfa-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// ============================================================
// Register (POST /v1/auth/register)
// ============================================================

func (s *AuthService) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.LoginResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Register")
	defer span.End()

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	span.SetAttributes(attribute.String("username", req.Username))

	if req.Username == "" {
		return nil, &domain.ErrValidation{Field: "username", Message: "Username is required"}
	}
	if req.Email == "" {
		return nil, &domain.ErrValidation{Field: "email", Message: "Email is required"}
	}
	if len(req.Password) < minPasswordLength {
		return nil, &domain.ErrValidation{
			Field:   "password",
			Message: fmt.Sprintf("Password must be at least %d characters", minPasswordLength),
		}
	}

	existing, err := s.store.GetUserByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if existing == nil {
		existing, err = s.store.GetUserByEmail(ctx, req.Email)
		if err != nil {
			return nil, fmt.Errorf("check existing email: %w", err)
		}
	}
	if existing != nil {
		return nil, &domain.ErrConflict{Message: "User already exists"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	// The store enforces uniqueness too, which covers a concurrent register.
	user, err := s.store.CreateUser(ctx, &domain.User{
		Username:     req.Username,
		Email:        req.Email,
		Name:         req.Name,
		Role:         domain.RoleUser,
		PasswordHash: string(hash),
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		zap.String("user_id", user.ID),
		zap.String("username", user.Username),
	)

	return s.loginResponse(user)
}

// ============================================================
// EnsureAdmin (startup bootstrap)
// ============================================================

// EnsureAdmin creates an admin account with the given credentials unless
// a user with that username already exists. An existing user is left
// untouched, whatever its role.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, email, password string) error {
	ctx, span := authTracer.Start(ctx, "AuthService.EnsureAdmin")
	defer span.End()

	existing, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("check existing admin: %w", err)
	}
	if existing != nil {
		if existing.Role != domain.RoleAdmin {
			s.logger.Warn("admin bootstrap: username taken by a non-admin user",
				zap.String("username", username),
			)
		}
		return nil
	}

	if len(password) < minPasswordLength {
		return &domain.ErrValidation{
			Field:   "password",
			Message: fmt.Sprintf("Password must be at least %d characters", minPasswordLength),
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user, err := s.store.CreateUser(ctx, &domain.User{
		Username:     username,
		Email:        email,
		Name:         "Administrator",
		Role:         domain.RoleAdmin,
		PasswordHash: string(hash),
	})
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}

	s.logger.Info("admin user created", zap.String("user_id", user.ID), zap.String("username", username))
	return nil
}
