package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/proctor-go-api/internal/dto"
	"github.com/noah-isme/proctor-go-api/internal/models"
	"github.com/noah-isme/proctor-go-api/internal/repository"
)

// ExamService covers the teacher-side authoring surface for exams and
// questions.
type ExamService interface {
	List(ctx context.Context) ([]dto.ExamResponse, error)
	Get(ctx context.Context, examRef string) (dto.ExamResponse, error)
	Create(ctx context.Context, createdBy uint, payload dto.ExamCreateRequest) (dto.ExamResponse, error)
	Update(ctx context.Context, examRef string, payload dto.ExamUpdateRequest) (dto.ExamResponse, error)
	Delete(ctx context.Context, examRef string) error
	AddQuestion(ctx context.Context, examRef string, payload dto.QuestionCreateRequest) (models.Question, error)
	DeleteQuestion(ctx context.Context, questionID uint) error
}

type examService struct {
	exams     repository.ExamRepository
	questions repository.QuestionRepository
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewExamService constructs an ExamService instance.
func NewExamService(exams repository.ExamRepository, questions repository.QuestionRepository, validate *validator.Validate, logger zerolog.Logger) ExamService {
	return &examService{
		exams:     exams,
		questions: questions,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "exam_service").Logger(),
	}
}

func (s *examService) List(ctx context.Context) ([]dto.ExamResponse, error) {
	exams, err := s.exams.List(ctx)
	if err != nil {
		return nil, err
	}
	return dto.NewExamResponseSlice(exams), nil
}

func (s *examService) Get(ctx context.Context, examRef string) (dto.ExamResponse, error) {
	exam, err := s.exams.Resolve(ctx, examRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ExamResponse{}, ErrExamNotFound
		}
		return dto.ExamResponse{}, err
	}
	return dto.NewExamResponse(exam), nil
}

func (s *examService) Create(ctx context.Context, createdBy uint, payload dto.ExamCreateRequest) (dto.ExamResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ExamResponse{}, err
	}

	if !payload.LiveAt.Before(payload.DeadAt) {
		return dto.ExamResponse{}, ErrInvalidExamWindow
	}

	exam := models.Exam{
		Name:            s.sanitizer.Sanitize(strings.TrimSpace(payload.Name)),
		Category:        s.sanitizer.Sanitize(strings.TrimSpace(payload.Category)),
		TotalQuestions:  payload.TotalQuestions,
		DurationMinutes: payload.DurationMinutes,
		LiveAt:          payload.LiveAt,
		DeadAt:          payload.DeadAt,
		AccessCode:      strings.TrimSpace(payload.AccessCode),
		LegacyCode:      strings.TrimSpace(payload.LegacyCode),
		CreatedBy:       createdBy,
	}

	if err := s.exams.Create(ctx, &exam); err != nil {
		return dto.ExamResponse{}, err
	}

	s.logger.Info().Uint("exam_id", exam.ID).Str("name", exam.Name).Msg("exam created")

	return dto.NewExamResponse(exam), nil
}

func (s *examService) Update(ctx context.Context, examRef string, payload dto.ExamUpdateRequest) (dto.ExamResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ExamResponse{}, err
	}

	exam, err := s.exams.Resolve(ctx, examRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ExamResponse{}, ErrExamNotFound
		}
		return dto.ExamResponse{}, err
	}

	if payload.Name != nil {
		exam.Name = s.sanitizer.Sanitize(strings.TrimSpace(*payload.Name))
	}
	if payload.Category != nil {
		exam.Category = s.sanitizer.Sanitize(strings.TrimSpace(*payload.Category))
	}
	if payload.DurationMinutes != nil {
		exam.DurationMinutes = *payload.DurationMinutes
	}
	if payload.LiveAt != nil {
		exam.LiveAt = *payload.LiveAt
	}
	if payload.DeadAt != nil {
		exam.DeadAt = *payload.DeadAt
	}
	if !exam.LiveAt.Before(exam.DeadAt) {
		return dto.ExamResponse{}, ErrInvalidExamWindow
	}
	if payload.AccessCode != nil {
		exam.AccessCode = strings.TrimSpace(*payload.AccessCode)
	}

	if err := s.exams.Update(ctx, &exam); err != nil {
		return dto.ExamResponse{}, err
	}

	return dto.NewExamResponse(exam), nil
}

func (s *examService) Delete(ctx context.Context, examRef string) error {
	exam, err := s.exams.Resolve(ctx, examRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrExamNotFound
		}
		return err
	}
	return s.exams.Delete(ctx, exam.ID)
}

func (s *examService) AddQuestion(ctx context.Context, examRef string, payload dto.QuestionCreateRequest) (models.Question, error) {
	if err := s.validator.Struct(payload); err != nil {
		return models.Question{}, err
	}

	exam, err := s.exams.Resolve(ctx, examRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Question{}, ErrExamNotFound
		}
		return models.Question{}, err
	}

	question := models.Question{
		ExamID:       exam.ID,
		Type:         payload.Type,
		Text:         s.sanitizer.Sanitize(payload.Text),
		Marks:        payload.Marks,
		InputFormat:  payload.InputFormat,
		OutputFormat: payload.OutputFormat,
		Constraints:  payload.Constraints,
	}
	if question.Marks <= 0 {
		question.Marks = 1
	}

	switch payload.Type {
	case models.QuestionTypeChoice:
		if err := validateOptions(payload.Options); err != nil {
			return models.Question{}, err
		}
		options := make([]models.Option, 0, len(payload.Options))
		for _, input := range payload.Options {
			options = append(options, models.Option{
				OptionID:  input.OptionID,
				Text:      s.sanitizer.Sanitize(input.Text),
				IsCorrect: input.IsCorrect,
			})
		}
		encoded, err := json.Marshal(options)
		if err != nil {
			return models.Question{}, err
		}
		question.Options = datatypes.JSON(encoded)

	case models.QuestionTypeCode:
		if len(payload.TestCases) == 0 {
			return models.Question{}, fmt.Errorf("%w: code question requires at least one test case", ErrInvalidQuestion)
		}
		cases := make([]models.TestCase, 0, len(payload.TestCases))
		for _, input := range payload.TestCases {
			cases = append(cases, models.TestCase{
				Input:    input.Input,
				Expected: input.Expected,
				Hidden:   input.Hidden,
			})
		}
		encoded, err := json.Marshal(cases)
		if err != nil {
			return models.Question{}, err
		}
		question.TestCases = datatypes.JSON(encoded)
	}

	if err := s.questions.Create(ctx, &question); err != nil {
		return models.Question{}, err
	}

	s.logger.Info().Uint("exam_id", exam.ID).Uint("question_id", question.ID).Str("type", question.Type).Msg("question added")

	return question, nil
}

func (s *examService) DeleteQuestion(ctx context.Context, questionID uint) error {
	if _, err := s.questions.GetByID(ctx, questionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrQuestionNotFound
		}
		return err
	}
	return s.questions.Delete(ctx, questionID)
}

func validateOptions(options []dto.OptionInput) error {
	if len(options) < 2 {
		return fmt.Errorf("%w: choice question requires at least two options", ErrInvalidQuestion)
	}
	correct := 0
	for _, option := range options {
		if option.IsCorrect {
			correct++
		}
	}
	if correct != 1 {
		return fmt.Errorf("%w: choice question requires exactly one correct option", ErrInvalidQuestion)
	}
	return nil
}
