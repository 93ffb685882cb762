package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/noah-isme/proctor-go-api/internal/dto"
	"github.com/noah-isme/proctor-go-api/internal/models"
	"github.com/noah-isme/proctor-go-api/internal/repository"
)

// AuthService manages account registration, login, and the teacher-side
// unblock action.
type AuthService interface {
	Register(ctx context.Context, payload dto.RegisterRequest) (dto.UserResponse, error)
	// Login authenticates by email and password. A blocked student is denied
	// with ErrAccountBlocked before the password is even checked, so the
	// client can direct the user to contact a teacher.
	Login(ctx context.Context, payload dto.LoginRequest) (dto.LoginResponse, error)
	// Unblock clears the malpractice block latch and resets the counter.
	Unblock(ctx context.Context, userID uint) (dto.UserResponse, error)
}

type authService struct {
	users     repository.UserRepository
	validator *validator.Validate
	jwtSecret string
	tokenTTL  time.Duration
	logger    zerolog.Logger
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users repository.UserRepository, validate *validator.Validate, jwtSecret string, tokenTTL time.Duration, logger zerolog.Logger) AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 12 * time.Hour
	}
	return &authService{
		users:     users,
		validator: validate,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		logger:    logger.With().Str("component", "auth_service").Logger(),
		now:       time.Now,
	}
}

func (s *authService) Register(ctx context.Context, payload dto.RegisterRequest) (dto.UserResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.UserResponse{}, err
	}

	email := strings.ToLower(strings.TrimSpace(payload.Email))
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return dto.UserResponse{}, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.UserResponse{}, err
	}

	roll := strings.TrimSpace(payload.RollNo)
	if roll != "" {
		if _, err := s.users.GetByRoll(ctx, roll); err == nil {
			return dto.UserResponse{}, ErrRollTaken
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, err
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
	if err != nil {
		return dto.UserResponse{}, err
	}

	role := payload.Role
	if role == "" {
		role = models.RoleStudent
	}

	user := models.User{
		Name:         strings.TrimSpace(payload.Name),
		Email:        email,
		RollNo:       roll,
		PasswordHash: string(hash),
		Role:         role,
	}

	if err := s.users.Create(ctx, &user); err != nil {
		return dto.UserResponse{}, err
	}

	s.logger.Info().Uint("user_id", user.ID).Str("role", user.Role).Msg("account registered")

	return newUserResponse(user), nil
}

func (s *authService) Login(ctx context.Context, payload dto.LoginRequest) (dto.LoginResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.LoginResponse{}, err
	}

	email := strings.ToLower(strings.TrimSpace(payload.Email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.LoginResponse{}, ErrInvalidCredentials
		}
		return dto.LoginResponse{}, err
	}

	// Block check comes before the password comparison: a blocked student
	// must not log in even with correct credentials.
	if user.IsBlocked {
		s.logger.Warn().Uint("user_id", user.ID).Msg("login denied for blocked account")
		return dto.LoginResponse{}, ErrAccountBlocked
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(payload.Password)); err != nil {
		return dto.LoginResponse{}, ErrInvalidCredentials
	}

	token, err := s.issueToken(user)
	if err != nil {
		return dto.LoginResponse{}, err
	}

	return dto.LoginResponse{Token: token, User: newUserResponse(user)}, nil
}

func (s *authService) Unblock(ctx context.Context, userID uint) (dto.UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrUserNotFound
		}
		return dto.UserResponse{}, err
	}

	if err := s.users.Unblock(ctx, user.ID); err != nil {
		return dto.UserResponse{}, err
	}

	s.logger.Info().Uint("user_id", user.ID).Msg("account unblocked, malpractice counter reset")

	user.IsBlocked = false
	user.MalpracticeCount = 0
	return newUserResponse(user), nil
}

// issueToken signs a session token. The jti claim doubles as the session
// identifier for access-code grants, so grants expire with the token.
func (s *authService) issueToken(user models.User) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":  user.ID,
		"role": user.Role,
		"roll": user.RollNo,
		"name": user.Name,
		"jti":  uuid.NewString(),
		"iat":  now.Unix(),
		"exp":  now.Add(s.tokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func newUserResponse(user models.User) dto.UserResponse {
	return dto.UserResponse{
		ID:               user.ID,
		Name:             user.Name,
		Email:            user.Email,
		RollNo:           user.RollNo,
		Role:             user.Role,
		MalpracticeCount: user.MalpracticeCount,
		IsBlocked:        user.IsBlocked,
	}
}
