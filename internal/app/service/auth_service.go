package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"trackmeet/internal/common"
	"trackmeet/internal/common/security"
	"trackmeet/internal/domain/model"
	"trackmeet/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AuthSettings is the slice of configuration the auth flows need.
type AuthSettings struct {
	AthleteTokenTTL time.Duration
	AdminTokenTTL   time.Duration
	AdminEmail      string
	AdminPassword   string
}

type AuthService struct {
	athleteRepo repository.AthleteRepository
	tokens      *security.TokenIssuer
	settings    AuthSettings
	logger      zerolog.Logger
	now         func() time.Time
}

func NewAuthService(athleteRepo repository.AthleteRepository, tokens *security.TokenIssuer, settings AuthSettings, logger zerolog.Logger) *AuthService {
	return &AuthService{
		athleteRepo: athleteRepo,
		tokens:      tokens,
		settings:    settings,
		logger:      logger.With().Str("component", "auth_service").Logger(),
		now:         time.Now,
	}
}

type RegisterAthleteRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Country  string `json:"country" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RegisterAthlete creates the athlete and returns a signed athlete token.
// A taken email is reported before the password rules are applied.
func (s *AuthService) RegisterAthlete(ctx context.Context, req RegisterAthleteRequest) (string, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := validateRequest(req); err != nil {
		return "", err
	}

	if _, err := s.athleteRepo.FindByEmail(ctx, req.Email); err == nil {
		return "", common.ErrEmailTaken
	} else if !errors.Is(err, common.ErrNotFound) {
		return "", fmt.Errorf("failed to look up athlete: %w", err)
	}
	if err := validatePassword(req.Password); err != nil {
		return "", err
	}

	hashedPassword, err := security.HashPassword(req.Password)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now().UTC()
	athlete := &model.Athlete{
		ID:                   uuid.NewString(),
		Name:                 req.Name,
		Email:                req.Email,
		HashedPassword:       hashedPassword,
		Country:              req.Country,
		Type:                 model.AthleteTypeAthlete,
		ParticipationHistory: []model.ParticipationEntry{},
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.athleteRepo.Create(ctx, nil, athlete); err != nil {
		if errors.Is(err, common.ErrConflict) {
			return "", common.ErrEmailTaken
		}
		return "", fmt.Errorf("failed to create athlete: %w", err)
	}

	token, err := s.tokens.GenerateToken(athlete.ID, security.RoleAthlete, s.settings.AthleteTokenTTL)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	s.logger.Info().Str("athlete_id", athlete.ID).Msg("athlete registered")
	return token, nil
}

// LoginAthlete answers unknown email and wrong password with the same error.
func (s *AuthService) LoginAthlete(ctx context.Context, req LoginRequest) (string, error) {
	if err := validateRequest(req); err != nil {
		return "", err
	}

	athlete, err := s.athleteRepo.FindByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", common.ErrInvalidCredentials
		}
		return "", fmt.Errorf("failed to find athlete: %w", err)
	}
	if !security.CheckPasswordHash(req.Password, athlete.HashedPassword) {
		return "", common.ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(athlete.ID, security.RoleAthlete, s.settings.AthleteTokenTTL)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return token, nil
}

// LoginAdmin checks the configured admin credential pair. There is no stored admin record.
func (s *AuthService) LoginAdmin(ctx context.Context, req LoginRequest) (string, error) {
	if err := validateRequest(req); err != nil {
		return "", err
	}

	emailOK := security.ConstantTimeEqual(req.Email, s.settings.AdminEmail)
	passwordOK := security.ConstantTimeEqual(req.Password, s.settings.AdminPassword)
	if !emailOK || !passwordOK {
		s.logger.Warn().Msg("admin login rejected")
		return "", common.ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(s.settings.AdminEmail, security.RoleAdmin, s.settings.AdminTokenTTL)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return token, nil
}
