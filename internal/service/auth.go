package service

import (
	"time"

	"github.com/boddenberg/insightedge-bfa-go/internal/domain"
	"github.com/boddenberg/insightedge-bfa-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var authTracer = otel.Tracer("service/auth")

const (
	bcryptCost        = 12
	minPasswordLength = 6
)

// AuthService handles registration, login, logout and token validation.
//
// Access tokens are stateless HS256 JWTs. Logout revokes a token by its
// jti in revoked, whose TTL must be at least the access TTL so an entry
// outlives the token it blocks.
type AuthService struct {
	store     port.UserStore
	profiles  port.Cache[*domain.User]
	revoked   port.Cache[bool]
	jwtSecret []byte
	accessTTL time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewAuthService creates a new auth service.
func NewAuthService(
	store port.UserStore,
	profiles port.Cache[*domain.User],
	revoked port.Cache[bool],
	jwtSecret string,
	accessTTL time.Duration,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		store:     store,
		profiles:  profiles,
		revoked:   revoked,
		jwtSecret: []byte(jwtSecret),
		accessTTL: accessTTL,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *AuthService) loginResponse(user *domain.User) (*domain.LoginResponse, error) {
	token, err := s.signAccessToken(user)
	if err != nil {
		return nil, err
	}
	return &domain.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int(s.accessTTL.Seconds()),
		User:        user,
	}, nil
}
