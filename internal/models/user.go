package models

import "time"

// Role values accepted for platform accounts.
const (
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// MalpracticeBlockThreshold is the number of finalized cheating logs after
// which a student account is blocked from logging in.
const MalpracticeBlockThreshold = 2

// User represents a platform account. Students additionally carry a roll
// number and the malpractice bookkeeping maintained by the escalator.
type User struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Name             string    `gorm:"size:255;not null" json:"name"`
	Email            string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	RollNo           string    `gorm:"size:64;uniqueIndex" json:"roll_no"`
	PasswordHash     string    `gorm:"size:255;not null" json:"-"`
	Role             string    `gorm:"size:32;not null;default:student" json:"role"`
	MalpracticeCount int       `gorm:"not null;default:0" json:"malpractice_count"`
	IsBlocked        bool      `gorm:"not null;default:false" json:"is_blocked"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// IsTeacher reports whether the account holds the teacher role.
func (u User) IsTeacher() bool {
	return u.Role == RoleTeacher
}
