package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rounds-service/internal/auth"
	"rounds-service/internal/docstore"
	"rounds-service/internal/domain"
	"rounds-service/internal/gateway"
)

// IdentityService provisions accounts and issues session tokens. Team numbers
// are handed out first come first served; emails on the organizer list get the
// admin role and no team.
type IdentityService struct {
	gw          *gateway.Gateway
	tokens      *auth.TokenService
	adminEmails map[string]bool
	log         *zap.Logger
	now         func() time.Time
}

func NewIdentityService(gw *gateway.Gateway, tokens *auth.TokenService, adminEmails []string, log *zap.Logger) *IdentityService {
	set := make(map[string]bool, len(adminEmails))
	for _, e := range adminEmails {
		set[strings.ToLower(strings.TrimSpace(e))] = true
	}
	return &IdentityService{
		gw:          gw,
		tokens:      tokens,
		adminEmails: set,
		log:         log,
		now:         time.Now,
	}
}

// Register creates an account and returns it with a session token.
func (s *IdentityService) Register(ctx context.Context, name, email, password string) (domain.Participant, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" || password == "" {
		return domain.Participant{}, "", fmt.Errorf("name, email and password are required")
	}

	if _, err := s.gw.GetUserByEmail(ctx, email); err == nil {
		return domain.Participant{}, "", domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.Participant{}, "", err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.Participant{}, "", fmt.Errorf("hash password: %w", err)
	}

	p := domain.Participant{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleCandidate,
		RegisteredAt: s.now().UnixMilli(),
	}
	if s.adminEmails[email] {
		p.Role = domain.RoleAdmin
	} else {
		count, err := s.gw.CountUsers(ctx)
		if err != nil {
			return domain.Participant{}, "", err
		}
		p.TeamNumber = count + 1
		p.Team = fmt.Sprintf("Team %d", p.TeamNumber)
	}

	if err := s.gw.CreateUser(ctx, p); err != nil {
		return domain.Participant{}, "", err
	}
	s.log.Info("user registered",
		zap.String("participant", p.ID),
		zap.String("role", p.Role),
		zap.Int("teamNumber", p.TeamNumber),
	)

	token, err := s.tokens.Generate(p.ID, p.Email, p.Role)
	if err != nil {
		return domain.Participant{}, "", err
	}
	p.PasswordHash = ""
	return p, token, nil
}

// Login verifies credentials and issues a token. An account whose email joined
// the organizer list since registration is promoted on the spot.
func (s *IdentityService) Login(ctx context.Context, email, password string) (domain.Participant, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	p, err := s.gw.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Participant{}, "", domain.ErrBadCredentials
		}
		return domain.Participant{}, "", err
	}
	if err := auth.ComparePassword(p.PasswordHash, password); err != nil {
		return domain.Participant{}, "", domain.ErrBadCredentials
	}

	if s.adminEmails[email] && p.Role != domain.RoleAdmin {
		if err := s.gw.UpdateUser(ctx, p.ID, docstore.Document{"role": domain.RoleAdmin}); err != nil {
			return domain.Participant{}, "", err
		}
		p.Role = domain.RoleAdmin
	}

	token, err := s.tokens.Generate(p.ID, p.Email, p.Role)
	if err != nil {
		return domain.Participant{}, "", err
	}
	p.PasswordHash = ""
	return p, token, nil
}

// Authenticate resolves a bearer token to the stored account.
func (s *IdentityService) Authenticate(ctx context.Context, token string) (domain.Participant, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return domain.Participant{}, domain.ErrBadCredentials
	}
	p, err := s.gw.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Participant{}, domain.ErrBadCredentials
		}
		return domain.Participant{}, err
	}
	p.PasswordHash = ""
	return p, nil
}
