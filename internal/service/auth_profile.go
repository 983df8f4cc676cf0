package service

import (
	"context"
	"fmt"

	"github.com/boddenberg/insightedge-bfa-go/internal/domain"
)

// ============================================================
// Me (GET /v1/auth/me)
// ============================================================

// Me returns the user behind an access token, served from the profile
// cache when possible.
func (s *AuthService) Me(ctx context.Context, userID string) (*domain.User, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Me")
	defer span.End()

	if user, ok := s.profiles.Get(userID); ok {
		return user, nil
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, &domain.ErrNotFound{Resource: "user", ID: userID}
	}

	s.profiles.Set(userID, user)
	return user, nil
}
