package dto

import (
	"time"

	"github.com/noah-isme/proctor-go-api/internal/models"
)

// Detection is one labeled bounding box reported by the classification
// collaborator for a single frame.
type Detection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
}

// FrameReport is one classified frame pushed by the exam client, either over
// the proctor websocket or the REST fallback.
type FrameReport struct {
	CapturedAt time.Time   `json:"captured_at"`
	Detections []Detection `json:"detections"`
	// Snapshot is an optional base64 JPEG of the frame, uploaded for audit
	// when the frame triggers an incident.
	Snapshot string `json:"snapshot,omitempty"`
}

// ProctorAlert is pushed to the client (and to the teacher monitor subject)
// when an incident passes its cooldown.
type ProctorAlert struct {
	SessionID  string    `json:"session_id"`
	ExamID     uint      `json:"exam_id"`
	StudentID  uint      `json:"student_id"`
	Incident   string    `json:"incident"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ProctorSessionResponse describes an open proctoring session.
type ProctorSessionResponse struct {
	SessionID string    `json:"session_id"`
	ExamID    uint      `json:"exam_id"`
	StartedAt time.Time `json:"started_at"`
}

// CheatingLogResponse is the externally visible cheating log shape.
type CheatingLogResponse struct {
	ID                    uint      `json:"id"`
	ExamID                uint      `json:"exam_id"`
	StudentID             uint      `json:"student_id"`
	StudentName           string    `json:"student_name"`
	StudentEmail          string    `json:"student_email"`
	NoFaceCount           int       `json:"no_face_count"`
	MultipleFaceCount     int       `json:"multiple_face_count"`
	CellPhoneCount        int       `json:"cell_phone_count"`
	ProhibitedObjectCount int       `json:"prohibited_object_count"`
	TotalIncidents        int       `json:"total_incidents"`
	CreatedAt             time.Time `json:"created_at"`
}

// NewCheatingLogResponse maps the model to its response shape.
func NewCheatingLogResponse(log models.CheatingLog) CheatingLogResponse {
	return CheatingLogResponse{
		ID:                    log.ID,
		ExamID:                log.ExamID,
		StudentID:             log.StudentID,
		StudentName:           log.StudentName,
		StudentEmail:          log.StudentEmail,
		NoFaceCount:           log.NoFaceCount,
		MultipleFaceCount:     log.MultipleFaceCount,
		CellPhoneCount:        log.CellPhoneCount,
		ProhibitedObjectCount: log.ProhibitedObjectCount,
		TotalIncidents:        log.TotalIncidents(),
		CreatedAt:             log.CreatedAt,
	}
}

// NewCheatingLogResponseSlice maps a slice of logs.
func NewCheatingLogResponseSlice(logs []models.CheatingLog) []CheatingLogResponse {
	responses := make([]CheatingLogResponse, 0, len(logs))
	for _, log := range logs {
		responses = append(responses, NewCheatingLogResponse(log))
	}
	return responses
}
