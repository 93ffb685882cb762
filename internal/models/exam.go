package models

import "time"

// Exam represents a timed assessment authored by a teacher. Questions become
// visible to assigned students only inside the [LiveAt, DeadAt) window and,
// when AccessCode is set, after the code has been validated for the session.
type Exam struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Name            string    `gorm:"size:255;not null" json:"name"`
	Category        string    `gorm:"size:128" json:"category"`
	TotalQuestions  int       `gorm:"not null" json:"total_questions"`
	DurationMinutes int       `gorm:"not null" json:"duration_minutes"`
	LiveAt          time.Time `gorm:"not null" json:"live_at"`
	DeadAt          time.Time `gorm:"not null" json:"dead_at"`
	AccessCode      string    `gorm:"size:64" json:"-"`
	// LegacyCode carries the identifier an exam had under the pre-migration
	// scheme. Lookups accept it alongside the numeric ID; see ExamRepository.Resolve.
	LegacyCode string     `gorm:"size:64;index" json:"legacy_code,omitempty"`
	CreatedBy  uint       `gorm:"index" json:"created_by"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	Questions  []Question `json:"questions,omitempty"`
}

// IsLive reports whether the exam window is open at the reference time.
func (e Exam) IsLive(reference time.Time) bool {
	return !reference.Before(e.LiveAt) && !reference.After(e.DeadAt)
}

// HasAccessCode reports whether question visibility is gated by a code.
func (e Exam) HasAccessCode() bool {
	return e.AccessCode != ""
}
