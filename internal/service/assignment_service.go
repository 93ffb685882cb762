package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/proctor-go-api/internal/dto"
	"github.com/noah-isme/proctor-go-api/internal/models"
	"github.com/noah-isme/proctor-go-api/internal/repository"
)

// AssignmentService manages exam assignments and the attempt bookkeeping
// against their caps.
type AssignmentService interface {
	List(ctx context.Context, filter dto.AssignmentFilter) ([]dto.AssignmentResponse, error)
	Assign(ctx context.Context, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error)
	// SetMaxAttempts adjusts the attempt cap. Lowering the cap below the
	// attempts already used clamps attemptsUsed down so the invariant
	// attemptsUsed <= maxAttempts always holds.
	SetMaxAttempts(ctx context.Context, assignmentID uint, maxAttempts int) (dto.AssignmentResponse, error)
	// RecordAttempt consumes one attempt after a successful grading event.
	// The increment saturates at the cap; reaching the cap completes the
	// assignment, stamping completedAt only once.
	RecordAttempt(ctx context.Context, assignmentID uint, score float64) (models.ExamAssignment, error)
}

type assignmentService struct {
	assignments repository.AssignmentRepository
	exams       repository.ExamRepository
	users       repository.UserRepository
	validator   *validator.Validate
	logger      zerolog.Logger
	now         func() time.Time
}

// NewAssignmentService constructs an AssignmentService instance.
func NewAssignmentService(assignments repository.AssignmentRepository, exams repository.ExamRepository, users repository.UserRepository, validate *validator.Validate, logger zerolog.Logger) AssignmentService {
	return &assignmentService{
		assignments: assignments,
		exams:       exams,
		users:       users,
		validator:   validate,
		logger:      logger.With().Str("component", "assignment_service").Logger(),
		now:         time.Now,
	}
}

func (s *assignmentService) List(ctx context.Context, filter dto.AssignmentFilter) ([]dto.AssignmentResponse, error) {
	repoFilter := repository.AssignmentFilter{
		ExamID:      filter.ExamID,
		StudentRoll: filter.StudentRoll,
		Status:      filter.Status,
	}

	assignments, err := s.assignments.List(ctx, repoFilter)
	if err != nil {
		return nil, err
	}
	return dto.NewAssignmentResponseSlice(assignments), nil
}

func (s *assignmentService) Assign(ctx context.Context, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	exam, err := s.exams.Resolve(ctx, payload.ExamRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrExamNotFound
		}
		return dto.AssignmentResponse{}, err
	}

	roll := strings.TrimSpace(payload.StudentRoll)
	if _, err := s.users.GetByRoll(ctx, roll); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrUserNotFound
		}
		return dto.AssignmentResponse{}, err
	}

	if _, err := s.assignments.GetByExamAndRoll(ctx, exam.ID, roll); err == nil {
		return dto.AssignmentResponse{}, ErrDuplicateAssignment
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.AssignmentResponse{}, err
	}

	maxAttempts := payload.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	assignment := models.ExamAssignment{
		ExamID:      exam.ID,
		StudentRoll: roll,
		DueDate:     payload.DueDate,
		Status:      models.AssignmentStatusPending,
		MaxAttempts: maxAttempts,
	}

	if err := s.assignments.Create(ctx, &assignment); err != nil {
		// The unique index on (exam, roll) is the authoritative guard; a
		// racing duplicate create surfaces here.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.AssignmentResponse{}, ErrDuplicateAssignment
		}
		return dto.AssignmentResponse{}, err
	}

	assignment.Exam = exam
	s.logger.Info().Uint("exam_id", exam.ID).Str("student_roll", roll).Msg("exam assigned")

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) SetMaxAttempts(ctx context.Context, assignmentID uint, maxAttempts int) (dto.AssignmentResponse, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrAssignmentNotFound
		}
		return dto.AssignmentResponse{}, err
	}

	assignment.MaxAttempts = maxAttempts
	if assignment.AttemptsUsed > maxAttempts {
		assignment.AttemptsUsed = maxAttempts
	}

	if err := s.assignments.Update(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.logger.Info().
		Uint("assignment_id", assignment.ID).
		Int("max_attempts", assignment.MaxAttempts).
		Int("attempts_used", assignment.AttemptsUsed).
		Msg("attempt cap adjusted")

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) RecordAttempt(ctx context.Context, assignmentID uint, score float64) (models.ExamAssignment, error) {
	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ExamAssignment{}, ErrAssignmentNotFound
		}
		return models.ExamAssignment{}, err
	}

	if assignment.AttemptsUsed < assignment.MaxAttempts {
		assignment.AttemptsUsed++
	}
	assignment.Score = &score

	if assignment.AttemptsUsed >= assignment.MaxAttempts {
		assignment.Status = models.AssignmentStatusCompleted
		if assignment.CompletedAt == nil {
			completedAt := s.now()
			assignment.CompletedAt = &completedAt
		}
	}

	if err := s.assignments.Update(ctx, &assignment); err != nil {
		return models.ExamAssignment{}, err
	}

	return assignment, nil
}
