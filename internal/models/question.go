package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Question types supported by the grading engine.
const (
	QuestionTypeChoice = "choice"
	QuestionTypeCode   = "code"
)

// Option is one selectable answer on a choice question. The IsCorrect flag
// never leaves the teacher-facing read path.
type Option struct {
	OptionID  string `json:"option_id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// TestCase is one input/expected pair used to grade a code question. Hidden
// cases are withheld from students.
type TestCase struct {
	Input    string `json:"input"`
	Expected string `json:"expected"`
	Hidden   bool   `json:"hidden"`
}

// Question belongs to an exam. Choice questions carry options; code questions
// carry format text and test cases.
type Question struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	ExamID       uint           `gorm:"not null;index" json:"exam_id"`
	Type         string         `gorm:"size:16;not null;default:choice" json:"type"`
	Text         string         `gorm:"type:text;not null" json:"text"`
	Marks        int            `gorm:"not null;default:1" json:"marks"`
	Options      datatypes.JSON `json:"options,omitempty"`
	InputFormat  string         `gorm:"type:text" json:"input_format,omitempty"`
	OutputFormat string         `gorm:"type:text" json:"output_format,omitempty"`
	Constraints  string         `gorm:"type:text" json:"constraints,omitempty"`
	TestCases    datatypes.JSON `json:"test_cases,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// DecodeOptions unmarshals the stored option list. A question without options
// decodes to an empty slice.
func (q Question) DecodeOptions() ([]Option, error) {
	if len(q.Options) == 0 {
		return nil, nil
	}
	var options []Option
	if err := json.Unmarshal(q.Options, &options); err != nil {
		return nil, err
	}
	return options, nil
}

// DecodeTestCases unmarshals the stored test case list.
func (q Question) DecodeTestCases() ([]TestCase, error) {
	if len(q.TestCases) == 0 {
		return nil, nil
	}
	var cases []TestCase
	if err := json.Unmarshal(q.TestCases, &cases); err != nil {
		return nil, err
	}
	return cases, nil
}

// CorrectOptionID returns the identifier of the option flagged correct, or an
// empty string when none is flagged.
func (q Question) CorrectOptionID() string {
	options, err := q.DecodeOptions()
	if err != nil {
		return ""
	}
	for _, option := range options {
		if option.IsCorrect {
			return option.OptionID
		}
	}
	return ""
}
