package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mmynk/tabsplit/internal/auth"
)

// AuthService issues and checks API bearer tokens.
type AuthService struct {
	jwtManager *auth.JWTManager
	logger     *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(jwtManager *auth.JWTManager, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{jwtManager: jwtManager, logger: logger}
}

// IssueToken returns a signed token for subject, e.g. a device or operator name.
func (s *AuthService) IssueToken(ctx context.Context, subject string) (string, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", auth.ErrMissingSubject
	}

	token, err := s.jwtManager.Generate(subject)
	if err != nil {
		s.logger.Error("Failed to generate token", "subject", subject, "error", err)
		return "", err
	}

	s.logger.Info("Token issued", "subject", subject)
	return token, nil
}

// Authenticate validates a token and returns its subject.
func (s *AuthService) Authenticate(ctx context.Context, token string) (string, error) {
	claims, err := s.jwtManager.Validate(token)
	if err != nil {
		s.logger.Warn("Token rejected", "error", err)
		return "", err
	}
	return claims.Subject, nil
}
