package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/proctor-go-api/internal/models"
	"github.com/noah-isme/proctor-go-api/internal/repository"
)

// StudentIdentity carries the identity hints available when a cheating log
// is finalized. The authenticated user ID is preferred; the email is the
// fallback for unauthenticated sessions.
type StudentIdentity struct {
	UserID uint
	Email  string
}

// EscalationService consumes finalized cheating logs and maintains the
// per-student malpractice counter and block latch.
type EscalationService interface {
	// OnCheatingLogFinalized bumps the student's malpractice counter by
	// exactly one per finalized log, independent of how many incidents the
	// log contains. Crossing the threshold latches the block flag. Failures
	// are returned so the caller can surface them as warnings; they never
	// invalidate the log write itself.
	OnCheatingLogFinalized(ctx context.Context, log models.CheatingLog, identity StudentIdentity) error
}

type escalationService struct {
	users  repository.UserRepository
	logger zerolog.Logger
}

// NewEscalationService constructs an EscalationService instance.
func NewEscalationService(users repository.UserRepository, logger zerolog.Logger) EscalationService {
	return &escalationService{
		users:  users,
		logger: logger.With().Str("component", "escalation_service").Logger(),
	}
}

func (s *escalationService) OnCheatingLogFinalized(ctx context.Context, log models.CheatingLog, identity StudentIdentity) error {
	user, err := s.resolveStudent(ctx, identity)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn().
				Uint("user_id", identity.UserID).
				Str("email", identity.Email).
				Msg("cheating log student could not be resolved, counter not updated")
			return nil
		}
		return err
	}

	if user.Role != models.RoleStudent {
		return nil
	}

	if err := s.users.IncrementMalpractice(ctx, user.ID, models.MalpracticeBlockThreshold); err != nil {
		s.logger.Error().Err(err).Uint("user_id", user.ID).Msg("failed to update malpractice counter")
		return err
	}

	s.logger.Info().
		Uint("user_id", user.ID).
		Uint("cheating_log_id", log.ID).
		Int("incidents", log.TotalIncidents()).
		Msg("malpractice counter incremented")

	return nil
}

func (s *escalationService) resolveStudent(ctx context.Context, identity StudentIdentity) (models.User, error) {
	if identity.UserID != 0 {
		user, err := s.users.GetByID(ctx, identity.UserID)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, err
		}
	}

	if identity.Email != "" {
		return s.users.GetByEmail(ctx, identity.Email)
	}

	return models.User{}, gorm.ErrRecordNotFound
}
