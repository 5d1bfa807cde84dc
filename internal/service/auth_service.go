package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"donation_tracker/internal/model"
	"donation_tracker/internal/repository"
	"donation_tracker/internal/utils"

	"github.com/rs/zerolog"
)

// AuthService provides authentication related services
type AuthService interface {
	Register(ctx context.Context, req model.RegisterRequest) (*model.User, string, error)
	Login(ctx context.Context, email, password string) (*model.User, string, error)
}

type authService struct {
	userRepo repository.UserRepository
	jwtUtil  *utils.JWTUtil
	log      zerolog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(userRepo repository.UserRepository, jwtUtil *utils.JWTUtil, log zerolog.Logger) AuthService {
	return &authService{
		userRepo: userRepo,
		jwtUtil:  jwtUtil,
		log:      log.With().Str("component", "auth").Logger(),
	}
}

// validateRegistration checks every field before anything is written
func validateRegistration(req *model.RegisterRequest) error {
	req.Email = strings.TrimSpace(req.Email)
	if err := utils.ValidateName(req.Name); err != nil {
		return validationError(err)
	}
	if err := utils.ValidateEmail(req.Email); err != nil {
		return validationError(err)
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		return validationError(err)
	}

	if req.Role == "" {
		req.Role = model.RoleDonor
	}
	role, ok := model.NormalizeRole(req.Role)
	if !ok {
		return fmt.Errorf("%w: role must be one of Donor, Volunteer, Admin", ErrValidation)
	}
	req.Role = role

	if role != model.RoleAdmin {
		if err := utils.ValidatePhone(req.Phone); err != nil {
			return validationError(err)
		}
		if err := utils.ValidateLocation(req.Location); err != nil {
			return validationError(err)
		}
	}
	return nil
}

// Register creates a new account and returns a token for it
func (s *authService) Register(ctx context.Context, req model.RegisterRequest) (*model.User, string, error) {
	if err := validateRegistration(&req); err != nil {
		return nil, "", err
	}

	existingUser, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to check existing user: %w", err)
	}
	if existingUser != nil {
		return nil, "", ErrUserAlreadyExists
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hashedPassword,
		Role:         req.Role,
		CreatedAt:    time.Now(),
	}
	// Admin accounts carry no contact details
	if user.Role != model.RoleAdmin {
		phone, location := req.Phone, strings.TrimSpace(req.Location)
		user.Phone = &phone
		user.Location = &location
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, "", ErrUserAlreadyExists
		}
		return nil, "", fmt.Errorf("failed to create user in repository: %w", err)
	}
	s.log.Info().Int64("user_id", user.ID).Str("role", user.Role).Msg("user registered")

	token, err := s.jwtUtil.GenerateToken(user.ID, user.Role)
	if err != nil {
		s.log.Error().Err(err).Int64("user_id", user.ID).Msg("user created, but failed to generate token")
		return user, "", fmt.Errorf("user created, but failed to generate token: %w", err)
	}

	return user, token, nil
}

// Login authenticates a user and returns a JWT token
func (s *authService) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	user, err := s.userRepo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, "", fmt.Errorf("error finding user by email: %w", err)
	}
	// Unknown email and wrong password are indistinguishable to the caller
	if user == nil || !utils.CheckPasswordHash(password, user.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.jwtUtil.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	return user, token, nil
}
