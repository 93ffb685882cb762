package dto

import (
	"time"

	"github.com/noah-isme/proctor-go-api/internal/models"
)

// AssignmentCreateRequest is the payload for assigning an exam to a student.
type AssignmentCreateRequest struct {
	ExamRef     string    `json:"exam_ref" validate:"required"`
	StudentRoll string    `json:"student_roll" validate:"required,max=64"`
	DueDate     time.Time `json:"due_date" validate:"required"`
	MaxAttempts int       `json:"max_attempts" validate:"omitempty,min=1"`
}

// MaxAttemptsUpdateRequest adjusts the attempt cap on an assignment.
type MaxAttemptsUpdateRequest struct {
	MaxAttempts int `json:"max_attempts" validate:"required,min=1"`
}

// AssignmentFilter narrows assignment list queries.
type AssignmentFilter struct {
	ExamID      *uint
	StudentRoll *string
	Status      *string
}

// AssignmentResponse is the externally visible assignment shape.
type AssignmentResponse struct {
	ID           uint       `json:"id"`
	ExamID       uint       `json:"exam_id"`
	ExamName     string     `json:"exam_name,omitempty"`
	StudentRoll  string     `json:"student_roll"`
	DueDate      time.Time  `json:"due_date"`
	Status       string     `json:"status"`
	MaxAttempts  int        `json:"max_attempts"`
	AttemptsUsed int        `json:"attempts_used"`
	Score        *float64   `json:"score,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// NewAssignmentResponse maps the model to its response shape.
func NewAssignmentResponse(assignment models.ExamAssignment) AssignmentResponse {
	return AssignmentResponse{
		ID:           assignment.ID,
		ExamID:       assignment.ExamID,
		ExamName:     assignment.Exam.Name,
		StudentRoll:  assignment.StudentRoll,
		DueDate:      assignment.DueDate,
		Status:       assignment.Status,
		MaxAttempts:  assignment.MaxAttempts,
		AttemptsUsed: assignment.AttemptsUsed,
		Score:        assignment.Score,
		CompletedAt:  assignment.CompletedAt,
	}
}

// NewAssignmentResponseSlice maps a slice of assignments.
func NewAssignmentResponseSlice(assignments []models.ExamAssignment) []AssignmentResponse {
	responses := make([]AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, NewAssignmentResponse(assignment))
	}
	return responses
}
