package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Result status values.
const (
	ResultStatusPassed = "Passed"
	ResultStatusFailed = "Failed"
)

// PassPercentage is the minimum percentage for a Passed status.
const PassPercentage = 60.0

// AnswerRecord captures the grading outcome for one question of one attempt.
type AnswerRecord struct {
	QuestionID     uint   `json:"question_id"`
	SelectedOption string `json:"selected_option"`
	Correct        bool   `json:"correct"`
}

// Result holds the graded outcome of a student's exam attempt. Exactly one
// row exists per (student, exam) pair; resubmission replaces the row in place
// via upsert.
type Result struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	StudentID        uint           `gorm:"not null;uniqueIndex:idx_student_exam" json:"student_id"`
	ExamID           uint           `gorm:"not null;uniqueIndex:idx_student_exam" json:"exam_id"`
	Answers          datatypes.JSON `json:"answers"`
	Score            int            `gorm:"not null" json:"score"`
	TotalQuestions   int            `gorm:"not null" json:"total_questions"`
	Percentage       float64        `gorm:"not null" json:"percentage"`
	TimeTakenSeconds int            `json:"time_taken_seconds"`
	Status           string         `gorm:"size:16;not null" json:"status"`
	SubmittedAt      time.Time      `gorm:"not null" json:"submitted_at"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// DecodeAnswers unmarshals the stored per-question answer records.
func (r Result) DecodeAnswers() ([]AnswerRecord, error) {
	if len(r.Answers) == 0 {
		return nil, nil
	}
	var records []AnswerRecord
	if err := json.Unmarshal(r.Answers, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Passed reports whether the attempt met the pass threshold.
func (r Result) Passed() bool {
	return r.Status == ResultStatusPassed
}
