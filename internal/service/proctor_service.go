package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/proctor-go-api/internal/dto"
	"github.com/noah-isme/proctor-go-api/internal/observability"
	"github.com/noah-isme/proctor-go-api/internal/proctor"
	"github.com/noah-isme/proctor-go-api/internal/repository"
)

// FileUploader stores an asset and returns its public URL.
type FileUploader interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// FrameClassifier is the object-classification collaborator: given an
// encoded frame and a confidence floor it returns labeled detections. Used
// when the client posts a raw frame instead of pre-classified detections.
type FrameClassifier interface {
	Classify(ctx context.Context, image []byte, confidenceFloor float64) ([]dto.Detection, error)
}

// ErrSessionNotFound indicates an unknown or already-flushed proctor session.
var ErrSessionNotFound = errors.New("proctor session not found")

// ProctorService owns the live proctoring sessions of this process. Each
// session wraps one incident detector scoped to one exam attempt.
type ProctorService interface {
	StartSession(ctx context.Context, rc RequestContext, examRef string) (dto.ProctorSessionResponse, error)
	// HandleFrame feeds one frame report into a session's detector and
	// returns the alerts that cleared their cooldown. It never fails the
	// stream: classification or upload errors are logged and the cycle is
	// skipped.
	HandleFrame(ctx context.Context, sessionID string, frame dto.FrameReport) []dto.ProctorAlert
	// Flush seals a session and returns its draft incident tally. The
	// session must belong to the given student and exam; a mismatched
	// flush leaves the session running and reports found=false. The
	// second and later flushes of one session also report found=false,
	// which is what makes a double-fired submission harmless to the draft.
	Flush(sessionID string, studentID, examID uint) (proctor.Draft, bool)
}

type proctorService struct {
	exams       repository.ExamRepository
	assignments repository.AssignmentRepository
	classifier  FrameClassifier
	uploader    FileUploader
	nats        *nats.Conn
	natsSubject string
	logger      zerolog.Logger
	now         func() time.Time

	mu       sync.RWMutex
	sessions map[string]*proctor.Session
}

// NewProctorService constructs a ProctorService instance. The classifier,
// uploader, and NATS connection are optional collaborators; a nil value
// disables the corresponding feature.
func NewProctorService(exams repository.ExamRepository, assignments repository.AssignmentRepository, classifier FrameClassifier, uploader FileUploader, natsConn *nats.Conn, natsSubject string, logger zerolog.Logger) ProctorService {
	if natsSubject == "" {
		natsSubject = "proctor.alerts"
	}
	return &proctorService{
		exams:       exams,
		assignments: assignments,
		classifier:  classifier,
		uploader:    uploader,
		nats:        natsConn,
		natsSubject: natsSubject,
		logger:      logger.With().Str("component", "proctor_service").Logger(),
		now:         time.Now,
		sessions:    make(map[string]*proctor.Session),
	}
}

func (s *proctorService) StartSession(ctx context.Context, rc RequestContext, examRef string) (dto.ProctorSessionResponse, error) {
	exam, err := s.exams.Resolve(ctx, examRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProctorSessionResponse{}, DenyAccess(AccessNotFound)
		}
		return dto.ProctorSessionResponse{}, err
	}

	if _, err := s.assignments.GetByExamAndRoll(ctx, exam.ID, rc.Roll); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProctorSessionResponse{}, DenyAccess(AccessNotAssigned)
		}
		return dto.ProctorSessionResponse{}, err
	}

	session := proctor.NewSession(exam.ID, rc.UserID, s.now())

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	s.logger.Info().
		Str("session_id", session.ID).
		Uint("exam_id", exam.ID).
		Uint("student_id", rc.UserID).
		Msg("proctor session started")

	return dto.ProctorSessionResponse{
		SessionID: session.ID,
		ExamID:    exam.ID,
		StartedAt: session.StartedAt,
	}, nil
}

func (s *proctorService) HandleFrame(ctx context.Context, sessionID string, frame dto.FrameReport) []dto.ProctorAlert {
	s.mu.RLock()
	session, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	detections := frame.Detections
	if len(detections) == 0 && frame.Snapshot != "" && s.classifier != nil {
		image, err := decodeSnapshot(frame.Snapshot)
		if err != nil {
			s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("invalid snapshot, cycle skipped")
			return nil
		}
		detections, err = s.classifier.Classify(ctx, image, proctor.DefaultConfidenceFloor)
		if err != nil {
			s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("classification failed, cycle skipped")
			return nil
		}
	}

	at := frame.CapturedAt
	if at.IsZero() {
		at = s.now()
	}

	observation := session.Observe(at, mapDetections(detections))
	if observation.Skipped || len(observation.Incidents) == 0 {
		return nil
	}

	for _, incidentType := range observation.Incidents {
		observability.IncidentsRecorded().WithLabelValues(string(incidentType)).Inc()
	}

	if frame.Snapshot != "" && s.uploader != nil {
		s.uploadSnapshot(ctx, session, frame.Snapshot, at)
	}

	alerts := make([]dto.ProctorAlert, 0, len(observation.Alerts))
	for _, incidentType := range observation.Alerts {
		alert := dto.ProctorAlert{
			SessionID:  session.ID,
			ExamID:     session.ExamID,
			StudentID:  session.StudentID,
			Incident:   string(incidentType),
			Message:    proctor.AlertMessage(incidentType),
			OccurredAt: at,
		}
		alerts = append(alerts, alert)
		s.publishAlert(alert)
	}

	return alerts
}

func (s *proctorService) Flush(sessionID string, studentID, examID uint) (proctor.Draft, bool) {
	s.mu.Lock()
	session, ok := s.sessions[sessionID]
	if ok && (session.StudentID != studentID || session.ExamID != examID) {
		s.mu.Unlock()
		s.logger.Warn().
			Str("session_id", sessionID).
			Uint("student_id", studentID).
			Uint("exam_id", examID).
			Msg("flush rejected, session belongs to another attempt")
		return proctor.Draft{}, false
	}
	if ok {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()

	if !ok {
		return proctor.Draft{}, false
	}

	draft, fresh := session.Flush()
	if !fresh {
		return proctor.Draft{}, false
	}
	return draft, true
}

// uploadSnapshot stores the audit frame for an incident. Upload failures
// only cost the snapshot, never the detection cycle.
func (s *proctorService) uploadSnapshot(ctx context.Context, session *proctor.Session, snapshot string, at time.Time) {
	image, err := decodeSnapshot(snapshot)
	if err != nil {
		s.logger.Warn().Err(err).Str("session_id", session.ID).Msg("snapshot rejected")
		return
	}

	name := fmt.Sprintf("proctor/%s/%d", session.ID, at.UnixMilli())
	url, err := s.uploader.Upload(ctx, name, bytes.NewReader(image))
	if err != nil {
		s.logger.Warn().Err(err).Str("session_id", session.ID).Msg("snapshot upload failed")
		return
	}

	session.AttachSnapshot(url)
}

func (s *proctorService) publishAlert(alert dto.ProctorAlert) {
	if s.nats == nil {
		return
	}

	payload, err := json.Marshal(alert)
	if err != nil {
		return
	}

	subject := fmt.Sprintf("%s.exam.%d", s.natsSubject, alert.ExamID)
	if err := s.nats.Publish(subject, payload); err != nil {
		s.logger.Warn().Err(err).Str("subject", subject).Msg("alert publish failed")
	}
}

func mapDetections(detections []dto.Detection) []proctor.Detection {
	mapped := make([]proctor.Detection, 0, len(detections))
	for _, detection := range detections {
		mapped = append(mapped, proctor.Detection{
			Label:      detection.Label,
			Confidence: detection.Confidence,
			Width:      detection.Width,
			Height:     detection.Height,
		})
	}
	return mapped
}

// decodeSnapshot decodes a base64 frame and verifies it is an image.
func decodeSnapshot(snapshot string) ([]byte, error) {
	image, err := base64.StdEncoding.DecodeString(snapshot)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	kind := mimetype.Detect(image)
	if !kind.Is("image/jpeg") && !kind.Is("image/png") && !kind.Is("image/webp") {
		return nil, fmt.Errorf("unsupported snapshot type: %s", kind.String())
	}

	return image, nil
}
