package proctor

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session scopes one detector to one exam attempt. The websocket reader and
// the submission flush can touch a session from different goroutines, so all
// access goes through the mutex.
type Session struct {
	ID        string
	ExamID    uint
	StudentID uint
	StartedAt time.Time

	mu           sync.Mutex
	detector     *Detector
	snapshotURLs []string
	flushed      bool
}

// NewSession opens a proctoring session for one attempt.
func NewSession(examID, studentID uint, startedAt time.Time) *Session {
	return &Session{
		ID:        uuid.NewString(),
		ExamID:    examID,
		StudentID: studentID,
		StartedAt: startedAt,
		detector:  NewDetector(),
	}
}

// Observe feeds one classified frame into the session's detector.
// A flushed session ignores further frames.
func (s *Session) Observe(at time.Time, detections []Detection) Observation {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.flushed {
		return Observation{Skipped: true}
	}
	return s.detector.Observe(at, detections)
}

// AttachSnapshot records the audit snapshot URL captured for an incident.
func (s *Session) AttachSnapshot(url string) {
	if url == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshotURLs = append(s.snapshotURLs, url)
}

// Draft is the accumulated, not-yet-persisted incident tally of a session.
type Draft struct {
	NoFace           int
	MultipleFace     int
	CellPhone        int
	ProhibitedObject int
	SnapshotURLs     []string
}

// Empty reports whether the draft holds no incidents at all.
func (d Draft) Empty() bool {
	return d.NoFace == 0 && d.MultipleFace == 0 && d.CellPhone == 0 && d.ProhibitedObject == 0
}

// Flush seals the session and returns its draft tally exactly once; later
// calls return ok=false. Reclining incidents fold into the no-face tally:
// both signal that the subject is no longer properly facing the camera.
func (s *Session) Flush() (Draft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.flushed {
		return Draft{}, false
	}
	s.flushed = true

	counts := s.detector.Counts()
	return Draft{
		NoFace:           counts[IncidentNoFace] + counts[IncidentReclining],
		MultipleFace:     counts[IncidentMultipleFace],
		CellPhone:        counts[IncidentCellPhone],
		ProhibitedObject: counts[IncidentProhibitedObject],
		SnapshotURLs:     s.snapshotURLs,
	}, true
}

// AlertMessage renders the user-facing message for an incident type.
func AlertMessage(incidentType IncidentType) string {
	switch incidentType {
	case IncidentNoFace:
		return "Face not visible. Please stay in front of the camera."
	case IncidentMultipleFace:
		return "Multiple people detected in the frame."
	case IncidentCellPhone:
		return "Cell phone detected. Put it away."
	case IncidentProhibitedObject:
		return "Prohibited material detected in the frame."
	case IncidentReclining:
		return "Please sit upright and face the camera."
	default:
		return "Suspicious activity detected."
	}
}
