package models

import "time"

// Assignment status values.
const (
	AssignmentStatusPending   = "pending"
	AssignmentStatusCompleted = "completed"
	AssignmentStatusOverdue   = "overdue"
)

// ExamAssignment binds one student (by roll number) to one exam and tracks
// how many attempts the student has consumed against the cap.
// AttemptsUsed never exceeds MaxAttempts.
type ExamAssignment struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	ExamID       uint       `gorm:"not null;uniqueIndex:idx_exam_roll" json:"exam_id"`
	StudentRoll  string     `gorm:"size:64;not null;uniqueIndex:idx_exam_roll" json:"student_roll"`
	DueDate      time.Time  `json:"due_date"`
	Status       string     `gorm:"size:32;not null;default:pending" json:"status"`
	MaxAttempts  int        `gorm:"not null;default:1" json:"max_attempts"`
	AttemptsUsed int        `gorm:"not null;default:0" json:"attempts_used"`
	Score        *float64   `json:"score,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Exam         Exam       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"exam,omitempty"`
}

// AttemptsRemaining returns how many attempts the student may still consume.
func (a ExamAssignment) AttemptsRemaining() int {
	remaining := a.MaxAttempts - a.AttemptsUsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsExhausted reports whether the attempt cap has been reached.
func (a ExamAssignment) IsExhausted() bool {
	return a.AttemptsUsed >= a.MaxAttempts
}
