package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/proctor-go-api/internal/dto"
	"github.com/noah-isme/proctor-go-api/internal/models"
	"github.com/noah-isme/proctor-go-api/internal/observability"
	"github.com/noah-isme/proctor-go-api/internal/repository"
)

// CodeRunner is the code-execution collaborator used to grade code
// questions. Runs are opaque: source in, stdout out.
type CodeRunner interface {
	RunCode(ctx context.Context, language, source, stdin string) (stdout string, stderr string, err error)
}

// SubmissionService runs the idempotent submission routine: grade, upsert
// the result, consume one attempt, flush the proctor draft, escalate.
type SubmissionService interface {
	// Submit grades one attempt and persists its outcome. The Result upsert
	// is the authoritative side effect; everything downstream of it is best
	// effort and reported through the warnings list. Both the manual finish
	// action and timer expiry converge here.
	Submit(ctx context.Context, rc RequestContext, examRef string, payload dto.SubmissionRequest) (dto.SubmissionResponse, error)
	ResultsForStudent(ctx context.Context, studentID uint) ([]dto.ResultResponse, error)
	ResultsForExam(ctx context.Context, examRef string) ([]dto.ResultResponse, error)
}

type submissionService struct {
	exams          repository.ExamRepository
	questions      repository.QuestionRepository
	results        repository.ResultRepository
	cheatingLogs   repository.CheatingLogRepository
	users          repository.UserRepository
	assignmentRepo repository.AssignmentRepository
	assignments    AssignmentService
	proctoring     ProctorService
	escalation     EscalationService
	runner         CodeRunner
	validator      *validator.Validate
	logger         zerolog.Logger
	tracer         trace.Tracer
	now            func() time.Time
}

// NewSubmissionService constructs a SubmissionService instance.
func NewSubmissionService(
	exams repository.ExamRepository,
	questions repository.QuestionRepository,
	results repository.ResultRepository,
	cheatingLogs repository.CheatingLogRepository,
	users repository.UserRepository,
	assignmentRepo repository.AssignmentRepository,
	assignments AssignmentService,
	proctoring ProctorService,
	escalation EscalationService,
	runner CodeRunner,
	validate *validator.Validate,
	logger zerolog.Logger,
) SubmissionService {
	return &submissionService{
		exams:          exams,
		questions:      questions,
		results:        results,
		cheatingLogs:   cheatingLogs,
		users:          users,
		assignmentRepo: assignmentRepo,
		assignments:    assignments,
		proctoring:     proctoring,
		escalation:     escalation,
		runner:         runner,
		validator:      validate,
		logger:         logger.With().Str("component", "submission_service").Logger(),
		tracer:         otel.Tracer("github.com/noah-isme/proctor-go-api/internal/service/submission"),
		now:            time.Now,
	}
}

func (s *submissionService) Submit(ctx context.Context, rc RequestContext, examRef string, payload dto.SubmissionRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "submission.submit",
		trace.WithAttributes(attribute.String("exam_ref", examRef)))
	defer span.End()

	exam, err := s.exams.Resolve(ctx, examRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, DenyAccess(AccessNotFound)
		}
		return dto.SubmissionResponse{}, err
	}

	assignment, err := s.assignmentFor(ctx, exam.ID, rc.Roll)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	questions, err := s.questions.ListByExam(ctx, exam.ID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	records, score, err := s.gradeAnswers(ctx, questions, payload.Answers)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	encoded, err := json.Marshal(records)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	total := len(questions)
	percentage := GradePercentage(score, total)

	result := models.Result{
		StudentID:        rc.UserID,
		ExamID:           exam.ID,
		Answers:          datatypes.JSON(encoded),
		Score:            score,
		TotalQuestions:   total,
		Percentage:       percentage,
		TimeTakenSeconds: payload.TimeTakenSeconds,
		Status:           GradeStatus(percentage),
		SubmittedAt:      s.now(),
	}

	// The upsert on (student, exam) is the one authoritative write of the
	// routine; re-grading the same pair replaces the row in place.
	if err := s.results.Upsert(ctx, &result); err != nil {
		return dto.SubmissionResponse{}, err
	}

	observability.SubmissionsGraded().WithLabelValues(result.Status).Inc()
	span.SetAttributes(attribute.Int("score", score), attribute.String("status", result.Status))

	var warnings []string

	if _, err := s.assignments.RecordAttempt(ctx, assignment.ID, percentage); err != nil {
		s.logger.Error().Err(err).Uint("assignment_id", assignment.ID).Msg("attempt increment failed")
		warnings = append(warnings, "attempt could not be recorded")
	}

	warnings = append(warnings, s.flushProctorDraft(ctx, rc, exam.ID, payload.ProctorSessionID)...)

	s.logger.Info().
		Uint("exam_id", exam.ID).
		Uint("student_id", rc.UserID).
		Int("score", score).
		Str("status", result.Status).
		Msg("submission graded")

	return dto.SubmissionResponse{
		Result:   dto.NewResultResponse(result),
		Warnings: warnings,
	}, nil
}

// assignmentFor enforces the attempt gate before any grading happens.
func (s *submissionService) assignmentFor(ctx context.Context, examID uint, roll string) (models.ExamAssignment, error) {
	assignment, err := s.assignmentRepo.GetByExamAndRoll(ctx, examID, roll)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ExamAssignment{}, DenyAccess(AccessNotAssigned)
		}
		return models.ExamAssignment{}, err
	}

	if assignment.IsExhausted() {
		return models.ExamAssignment{}, DenyAccess(AccessAttemptLimitReached)
	}

	return assignment, nil
}

// gradeAnswers scores every question of the exam. An unanswered or unmatched
// question counts as incorrect and never errors; only a failing code
// execution collaborator aborts grading.
func (s *submissionService) gradeAnswers(ctx context.Context, questions []models.Question, answers []dto.SubmittedAnswer) ([]models.AnswerRecord, int, error) {
	byQuestion := make(map[uint]dto.SubmittedAnswer, len(answers))
	for _, answer := range answers {
		byQuestion[answer.QuestionID] = answer
	}

	records := make([]models.AnswerRecord, 0, len(questions))
	score := 0

	for _, question := range questions {
		answer, answered := byQuestion[question.ID]
		record := models.AnswerRecord{QuestionID: question.ID}

		if answered {
			record.SelectedOption = answer.SelectedOption

			switch question.Type {
			case models.QuestionTypeCode:
				correct, err := s.gradeCodeAnswer(ctx, question, answer)
				if err != nil {
					return nil, 0, err
				}
				record.Correct = correct
			default:
				record.Correct = gradeChoiceAnswer(question, answer.SelectedOption)
			}
		}

		if record.Correct {
			score++
		}
		records = append(records, record)
	}

	return records, score, nil
}

// gradeChoiceAnswer compares the submitted option against the option flagged
// correct, with both sides string-normalized.
func gradeChoiceAnswer(question models.Question, selected string) bool {
	correctID := question.CorrectOptionID()
	if correctID == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(selected), strings.TrimSpace(correctID))
}

// gradeCodeAnswer runs the submission against every test case; the answer is
// correct only when all of them pass. Collaborator failures surface as
// ErrCodeExecution rather than silently counting the answer wrong.
func (s *submissionService) gradeCodeAnswer(ctx context.Context, question models.Question, answer dto.SubmittedAnswer) (bool, error) {
	if strings.TrimSpace(answer.Source) == "" {
		return false, nil
	}
	if s.runner == nil {
		return false, fmt.Errorf("%w: no runner configured", ErrCodeExecution)
	}

	cases, err := question.DecodeTestCases()
	if err != nil || len(cases) == 0 {
		return false, nil
	}

	for _, testCase := range cases {
		stdout, _, err := s.runner.RunCode(ctx, answer.Language, answer.Source, testCase.Input)
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrCodeExecution, err)
		}
		if strings.TrimSpace(stdout) != strings.TrimSpace(testCase.Expected) {
			return false, nil
		}
	}

	return true, nil
}

// flushProctorDraft turns the session's draft into a permanent cheating log
// and feeds the escalator. The flush only succeeds for the session opened by
// this student for this exam; a session named by the payload but belonging to
// another attempt is left untouched. Every failure here is a warning, never a
// submission error; an empty draft finalizes no log.
func (s *submissionService) flushProctorDraft(ctx context.Context, rc RequestContext, examID uint, sessionID string) []string {
	if sessionID == "" || s.proctoring == nil {
		return nil
	}

	draft, ok := s.proctoring.Flush(sessionID, rc.UserID, examID)
	if !ok {
		return nil
	}
	if draft.Empty() {
		return nil
	}

	log := models.CheatingLog{
		ExamID:                examID,
		StudentID:             rc.UserID,
		NoFaceCount:           draft.NoFace,
		MultipleFaceCount:     draft.MultipleFace,
		CellPhoneCount:        draft.CellPhone,
		ProhibitedObjectCount: draft.ProhibitedObject,
	}

	identity := StudentIdentity{UserID: log.StudentID}
	if user, err := s.users.GetByID(ctx, log.StudentID); err == nil {
		log.StudentName = user.Name
		log.StudentEmail = user.Email
		identity.Email = user.Email
	}

	if len(draft.SnapshotURLs) > 0 {
		if encoded, err := json.Marshal(draft.SnapshotURLs); err == nil {
			log.SnapshotURLs = datatypes.JSON(encoded)
		}
	}

	if err := s.cheatingLogs.Create(ctx, &log); err != nil {
		s.logger.Error().Err(err).Uint("exam_id", examID).Msg("cheating log flush failed")
		return []string{"cheating log could not be persisted"}
	}

	observability.CheatingLogsFlushed().Inc()

	if err := s.escalation.OnCheatingLogFinalized(ctx, log, identity); err != nil {
		return []string{"malpractice counter could not be updated"}
	}

	return nil
}

func (s *submissionService) ResultsForStudent(ctx context.Context, studentID uint) ([]dto.ResultResponse, error) {
	results, err := s.results.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return dto.NewResultResponseSlice(results), nil
}

func (s *submissionService) ResultsForExam(ctx context.Context, examRef string) ([]dto.ResultResponse, error) {
	exam, err := s.exams.Resolve(ctx, examRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrExamNotFound
		}
		return nil, err
	}

	results, err := s.results.ListByExam(ctx, exam.ID)
	if err != nil {
		return nil, err
	}
	return dto.NewResultResponseSlice(results), nil
}

// GradePercentage computes the rounded percentage for a score. A zero
// question count grades to zero instead of dividing by zero.
func GradePercentage(score, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(score)/float64(total)*100*100) / 100
}

// GradeStatus maps a percentage to the pass/fail status.
func GradeStatus(percentage float64) string {
	if percentage >= models.PassPercentage {
		return models.ResultStatusPassed
	}
	return models.ResultStatusFailed
}
