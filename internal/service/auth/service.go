package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/ecare-e2e/internal/model"
	"github.com/jwalitptl/ecare-e2e/internal/service"
	"github.com/jwalitptl/ecare-e2e/pkg/auth"
	"github.com/jwalitptl/ecare-e2e/pkg/security"
)

// Session is what an access token resolves to
type Session struct {
	Username string
	Tenant   string
}

type Service struct {
	creds    *security.Credentials
	jwtSvc   auth.JWTService
	sessions *cache.Cache
}

// NewService issues tokens for the accounts in creds. A session lives as long
// as its token; expired sessions are swept every cleanup interval.
func NewService(creds *security.Credentials, jwtSvc auth.JWTService, cleanup time.Duration) *Service {
	return &Service{
		creds:    creds,
		jwtSvc:   jwtSvc,
		sessions: cache.New(cache.NoExpiration, cleanup),
	}
}

func (s *Service) Login(ctx context.Context, username, password, tenant string) (*model.LoginData, error) {
	if tenant == "" {
		return nil, fmt.Errorf("%w: tenant is required", service.ErrInvalidInput)
	}
	if err := s.creds.Verify(username, password); err != nil {
		return nil, service.ErrInvalidCredentials
	}

	token, ttl, err := s.jwtSvc.GenerateAccessToken(username, tenant)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	claims, err := s.jwtSvc.ValidateToken(token)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	s.sessions.Set(claims.ID, Session{Username: username, Tenant: tenant}, ttl)

	return &model.LoginData{
		AccessToken: token,
		ExpiresIn:   int(ttl / time.Second),
		TokenType:   "Bearer",
	}, nil
}

// Authenticate resolves a bearer token to its live session.
func (s *Service) Authenticate(ctx context.Context, token string) (*Session, error) {
	claims, err := s.jwtSvc.ValidateToken(token)
	if err != nil {
		return nil, service.ErrUnauthorized
	}
	v, ok := s.sessions.Get(claims.ID)
	if !ok {
		return nil, service.ErrUnauthorized
	}
	session := v.(Session)
	return &session, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.jwtSvc.ValidateToken(token)
	if err != nil {
		return service.ErrUnauthorized
	}
	s.sessions.Delete(claims.ID)
	return nil
}
