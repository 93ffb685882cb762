package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/proctor-go-api/internal/dto"
	"github.com/noah-isme/proctor-go-api/internal/models"
	"github.com/noah-isme/proctor-go-api/internal/repository"
)

// RequestContext carries the caller identity the access gate evaluates.
type RequestContext struct {
	UserID    uint
	Role      string
	Roll      string
	SessionID string
}

// AccessService is the gate in front of an exam's questions.
type AccessService interface {
	// CanViewQuestions applies the ordered gate checks and returns the
	// question views the caller may see. Denials are typed AccessError
	// values; the first failing check wins.
	CanViewQuestions(ctx context.Context, rc RequestContext, examRef string) ([]dto.QuestionView, error)
	// ValidateAccessCode checks a submitted code and, on success, records a
	// session-scoped grant for the exam. Exams without a code grant
	// implicitly.
	ValidateAccessCode(ctx context.Context, rc RequestContext, examRef, code string) error
}

type accessService struct {
	exams       repository.ExamRepository
	questions   repository.QuestionRepository
	assignments repository.AssignmentRepository
	grants      AccessGrantStore
	logger      zerolog.Logger
	now         func() time.Time
}

// NewAccessService constructs an AccessService instance.
func NewAccessService(exams repository.ExamRepository, questions repository.QuestionRepository, assignments repository.AssignmentRepository, grants AccessGrantStore, logger zerolog.Logger) AccessService {
	return &accessService{
		exams:       exams,
		questions:   questions,
		assignments: assignments,
		grants:      grants,
		logger:      logger.With().Str("component", "access_service").Logger(),
		now:         time.Now,
	}
}

func (s *accessService) CanViewQuestions(ctx context.Context, rc RequestContext, examRef string) ([]dto.QuestionView, error) {
	exam, err := s.exams.Resolve(ctx, examRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, DenyAccess(AccessNotFound)
		}
		return nil, err
	}

	isTeacher := rc.Role == models.RoleTeacher

	if !isTeacher {
		now := s.now()
		if now.Before(exam.LiveAt) {
			return nil, DenyAccess(AccessNotStarted)
		}
		if now.After(exam.DeadAt) {
			return nil, DenyAccess(AccessWindowClosed)
		}

		if exam.HasAccessCode() {
			granted, err := s.grants.HasGrant(ctx, rc.SessionID, exam.ID)
			if err != nil {
				return nil, err
			}
			if !granted {
				return nil, DenyAccess(AccessCodeRequired)
			}
		}

		assignment, err := s.assignments.GetByExamAndRoll(ctx, exam.ID, rc.Roll)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, DenyAccess(AccessNotAssigned)
			}
			return nil, err
		}

		if assignment.IsExhausted() {
			return nil, DenyAccess(AccessAttemptLimitReached)
		}
	}

	questions, err := s.questions.ListByExam(ctx, exam.ID)
	if err != nil {
		return nil, err
	}

	return buildQuestionViews(questions, isTeacher), nil
}

func (s *accessService) ValidateAccessCode(ctx context.Context, rc RequestContext, examRef, code string) error {
	exam, err := s.exams.Resolve(ctx, examRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return DenyAccess(AccessNotFound)
		}
		return err
	}

	if !exam.HasAccessCode() {
		return s.grants.Grant(ctx, rc.SessionID, exam.ID)
	}

	if strings.TrimSpace(code) != exam.AccessCode {
		return ErrInvalidAccessCode
	}

	if err := s.grants.Grant(ctx, rc.SessionID, exam.ID); err != nil {
		return err
	}

	s.logger.Info().Uint("exam_id", exam.ID).Uint("user_id", rc.UserID).Msg("access code validated")
	return nil
}

// buildQuestionViews shapes questions for the caller. Correctness flags and
// hidden test cases are stripped unless the caller is a teacher.
func buildQuestionViews(questions []models.Question, includeAnswers bool) []dto.QuestionView {
	views := make([]dto.QuestionView, 0, len(questions))
	for _, question := range questions {
		view := dto.QuestionView{
			ID:           question.ID,
			Type:         question.Type,
			Text:         question.Text,
			Marks:        question.Marks,
			InputFormat:  question.InputFormat,
			OutputFormat: question.OutputFormat,
			Constraints:  question.Constraints,
		}

		if options, err := question.DecodeOptions(); err == nil {
			for _, option := range options {
				optionView := dto.QuestionOptionView{OptionID: option.OptionID, Text: option.Text}
				if includeAnswers {
					optionView.IsCorrect = option.IsCorrect
				}
				view.Options = append(view.Options, optionView)
			}
		}

		if cases, err := question.DecodeTestCases(); err == nil {
			for _, testCase := range cases {
				if testCase.Hidden && !includeAnswers {
					continue
				}
				view.TestCases = append(view.TestCases, dto.TestCaseInput{
					Input:    testCase.Input,
					Expected: testCase.Expected,
					Hidden:   testCase.Hidden,
				})
			}
		}

		views = append(views, view)
	}
	return views
}
