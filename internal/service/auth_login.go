package service

import (
	"context"
	"fmt"

	"github.com/boddenberg/insightedge-bfa-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const msgInvalidCredentials = "Invalid credentials"

// ============================================================
// Login (POST /v1/auth/login)
// ============================================================

func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Login")
	defer span.End()
	span.SetAttributes(attribute.String("username", req.Username))

	if req.Username == "" || req.Password == "" {
		return nil, &domain.ErrUnauthorized{Message: msgInvalidCredentials}
	}

	user, err := s.store.GetUserByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, &domain.ErrUnauthorized{Message: msgInvalidCredentials}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warn("login: wrong password", zap.String("user_id", user.ID))
		return nil, &domain.ErrUnauthorized{Message: msgInvalidCredentials}
	}

	s.profiles.Set(user.ID, user)
	s.logger.Info("user logged in", zap.String("user_id", user.ID))

	return s.loginResponse(user)
}

// ============================================================
// Logout (POST /v1/auth/logout)
// ============================================================

// Logout revokes the presented access token and evicts the cached profile.
func (s *AuthService) Logout(ctx context.Context, claims *JWTClaims) error {
	_, span := authTracer.Start(ctx, "AuthService.Logout")
	defer span.End()

	if claims.ID != "" {
		s.revoked.Set(claims.ID, true)
	}
	s.profiles.Delete(claims.Sub)

	s.logger.Info("user logged out", zap.String("user_id", claims.Sub))
	return nil
}
