package models

import (
	"time"

	"gorm.io/datatypes"
)

// CheatingLog is the permanent record of malpractice incidents detected over
// one exam attempt. It is written once when the attempt is submitted and is
// never mutated afterwards; only a teacher may delete it.
type CheatingLog struct {
	ID                    uint           `gorm:"primaryKey" json:"id"`
	ExamID                uint           `gorm:"not null;index" json:"exam_id"`
	StudentID             uint           `gorm:"index" json:"student_id"`
	StudentName           string         `gorm:"size:255" json:"student_name"`
	StudentEmail          string         `gorm:"size:255;index" json:"student_email"`
	NoFaceCount           int            `gorm:"not null;default:0" json:"no_face_count"`
	MultipleFaceCount     int            `gorm:"not null;default:0" json:"multiple_face_count"`
	CellPhoneCount        int            `gorm:"not null;default:0" json:"cell_phone_count"`
	ProhibitedObjectCount int            `gorm:"not null;default:0" json:"prohibited_object_count"`
	SnapshotURLs          datatypes.JSON `json:"snapshot_urls,omitempty"`
	CreatedAt             time.Time      `json:"created_at"`
}

// TotalIncidents sums the per-type counters.
func (l CheatingLog) TotalIncidents() int {
	return l.NoFaceCount + l.MultipleFaceCount + l.CellPhoneCount + l.ProhibitedObjectCount
}
