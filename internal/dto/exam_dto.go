package dto

import (
	"time"

	"github.com/noah-isme/proctor-go-api/internal/models"
)

// ExamCreateRequest is the payload for creating an exam.
type ExamCreateRequest struct {
	Name            string    `json:"name" validate:"required,min=2,max=255"`
	Category        string    `json:"category" validate:"omitempty,max=128"`
	TotalQuestions  int       `json:"total_questions" validate:"required,min=1"`
	DurationMinutes int       `json:"duration_minutes" validate:"required,min=1"`
	LiveAt          time.Time `json:"live_at" validate:"required"`
	DeadAt          time.Time `json:"dead_at" validate:"required"`
	AccessCode      string    `json:"access_code" validate:"omitempty,min=4,max=64"`
	LegacyCode      string    `json:"legacy_code" validate:"omitempty,max=64"`
}

// ExamUpdateRequest is the payload for updating exam metadata.
type ExamUpdateRequest struct {
	Name            *string    `json:"name" validate:"omitempty,min=2,max=255"`
	Category        *string    `json:"category" validate:"omitempty,max=128"`
	DurationMinutes *int       `json:"duration_minutes" validate:"omitempty,min=1"`
	LiveAt          *time.Time `json:"live_at"`
	DeadAt          *time.Time `json:"dead_at"`
	AccessCode      *string    `json:"access_code" validate:"omitempty,max=64"`
}

// ExamResponse is the externally visible exam shape. The access code itself
// never appears, only whether one is required.
type ExamResponse struct {
	ID              uint      `json:"id"`
	Name            string    `json:"name"`
	Category        string    `json:"category,omitempty"`
	TotalQuestions  int       `json:"total_questions"`
	DurationMinutes int       `json:"duration_minutes"`
	LiveAt          time.Time `json:"live_at"`
	DeadAt          time.Time `json:"dead_at"`
	RequiresCode    bool      `json:"requires_code"`
	LegacyCode      string    `json:"legacy_code,omitempty"`
}

// NewExamResponse maps the model to its response shape.
func NewExamResponse(exam models.Exam) ExamResponse {
	return ExamResponse{
		ID:              exam.ID,
		Name:            exam.Name,
		Category:        exam.Category,
		TotalQuestions:  exam.TotalQuestions,
		DurationMinutes: exam.DurationMinutes,
		LiveAt:          exam.LiveAt,
		DeadAt:          exam.DeadAt,
		RequiresCode:    exam.HasAccessCode(),
		LegacyCode:      exam.LegacyCode,
	}
}

// NewExamResponseSlice maps a slice of exams.
func NewExamResponseSlice(exams []models.Exam) []ExamResponse {
	responses := make([]ExamResponse, 0, len(exams))
	for _, exam := range exams {
		responses = append(responses, NewExamResponse(exam))
	}
	return responses
}

// OptionInput is one option on a question create payload.
type OptionInput struct {
	OptionID  string `json:"option_id" validate:"required,max=32"`
	Text      string `json:"text" validate:"required"`
	IsCorrect bool   `json:"is_correct"`
}

// TestCaseInput is one test case on a code question create payload.
type TestCaseInput struct {
	Input    string `json:"input"`
	Expected string `json:"expected" validate:"required"`
	Hidden   bool   `json:"hidden"`
}

// QuestionCreateRequest is the payload for adding a question to an exam.
type QuestionCreateRequest struct {
	Type         string          `json:"type" validate:"required,oneof=choice code"`
	Text         string          `json:"text" validate:"required"`
	Marks        int             `json:"marks" validate:"omitempty,min=1"`
	Options      []OptionInput   `json:"options" validate:"omitempty,dive"`
	InputFormat  string          `json:"input_format"`
	OutputFormat string          `json:"output_format"`
	Constraints  string          `json:"constraints"`
	TestCases    []TestCaseInput `json:"test_cases" validate:"omitempty,dive"`
}

// QuestionOptionView is an option as shown to an exam taker. IsCorrect is
// populated only on the teacher read path and omitted otherwise.
type QuestionOptionView struct {
	OptionID  string `json:"option_id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct,omitempty"`
}

// QuestionView is a question as shown to an exam taker.
type QuestionView struct {
	ID           uint                 `json:"id"`
	Type         string               `json:"type"`
	Text         string               `json:"text"`
	Marks        int                  `json:"marks"`
	Options      []QuestionOptionView `json:"options,omitempty"`
	InputFormat  string               `json:"input_format,omitempty"`
	OutputFormat string               `json:"output_format,omitempty"`
	Constraints  string               `json:"constraints,omitempty"`
	TestCases    []TestCaseInput      `json:"test_cases,omitempty"`
}

// AccessCodeRequest is the payload for validating an exam access code.
type AccessCodeRequest struct {
	Code string `json:"code" validate:"required,max=64"`
}
