package dto

import (
	"time"

	"github.com/noah-isme/proctor-go-api/internal/models"
)

// SubmittedAnswer is one answer in a submission payload. Choice questions
// carry the selected option; code questions carry language and source.
type SubmittedAnswer struct {
	QuestionID     uint   `json:"question_id" validate:"required"`
	SelectedOption string `json:"selected_option"`
	Language       string `json:"language,omitempty"`
	Source         string `json:"source,omitempty"`
}

// SubmissionRequest is the payload for submitting an exam attempt. Both the
// manual finish action and the client-side timer expiry post the same shape.
type SubmissionRequest struct {
	Answers          []SubmittedAnswer `json:"answers" validate:"dive"`
	TimeTakenSeconds int               `json:"time_taken_seconds" validate:"omitempty,min=0"`
	ProctorSessionID string            `json:"proctor_session_id" validate:"omitempty,uuid4"`
}

// AnswerRecordResponse mirrors one graded answer.
type AnswerRecordResponse struct {
	QuestionID     uint   `json:"question_id"`
	SelectedOption string `json:"selected_option"`
	Correct        bool   `json:"correct"`
}

// ResultResponse is the externally visible result shape.
type ResultResponse struct {
	StudentID        uint                   `json:"student_id"`
	ExamID           uint                   `json:"exam_id"`
	Answers          []AnswerRecordResponse `json:"answers,omitempty"`
	Score            int                    `json:"score"`
	TotalQuestions   int                    `json:"total_questions"`
	Percentage       float64                `json:"percentage"`
	TimeTakenSeconds int                    `json:"time_taken_seconds"`
	Status           string                 `json:"status"`
	SubmittedAt      time.Time              `json:"submitted_at"`
}

// SubmissionResponse carries the authoritative grading outcome plus warnings
// for secondary effects that failed best-effort.
type SubmissionResponse struct {
	Result   ResultResponse `json:"result"`
	Warnings []string       `json:"warnings,omitempty"`
}

// NewResultResponse maps the model to its response shape.
func NewResultResponse(result models.Result) ResultResponse {
	response := ResultResponse{
		StudentID:        result.StudentID,
		ExamID:           result.ExamID,
		Score:            result.Score,
		TotalQuestions:   result.TotalQuestions,
		Percentage:       result.Percentage,
		TimeTakenSeconds: result.TimeTakenSeconds,
		Status:           result.Status,
		SubmittedAt:      result.SubmittedAt,
	}

	if records, err := result.DecodeAnswers(); err == nil {
		for _, record := range records {
			response.Answers = append(response.Answers, AnswerRecordResponse{
				QuestionID:     record.QuestionID,
				SelectedOption: record.SelectedOption,
				Correct:        record.Correct,
			})
		}
	}

	return response
}

// NewResultResponseSlice maps a slice of results.
func NewResultResponseSlice(results []models.Result) []ResultResponse {
	responses := make([]ResultResponse, 0, len(results))
	for _, result := range results {
		responses = append(responses, NewResultResponse(result))
	}
	return responses
}
