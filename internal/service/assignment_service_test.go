package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/proctor-go-api/internal/dto"
	"github.com/noah-isme/proctor-go-api/internal/models"
)

type assignmentFixture struct {
	assignments *memoryAssignmentRepo
	exams       *memoryExamRepo
	users       *memoryUserRepo
	service     AssignmentService
}

func newAssignmentFixture(t *testing.T) *assignmentFixture {
	t.Helper()

	fixture := &assignmentFixture{
		assignments: newMemoryAssignmentRepo(),
		exams:       newMemoryExamRepo(),
		users:       newMemoryUserRepo(),
	}
	validate := validator.New(validator.WithRequiredStructEnabled())
	fixture.service = NewAssignmentService(fixture.assignments, fixture.exams, fixture.users, validate, zerolog.Nop())
	return fixture
}

func (f *assignmentFixture) seed(t *testing.T) models.Exam {
	t.Helper()
	student := models.User{Name: "Mina", Email: "mina@example.com", RollNo: "R1", Role: models.RoleStudent}
	require.NoError(t, f.users.Create(context.Background(), &student))
	return liveExam(f.exams, testClock)
}

func TestAssignCreatesAssignment(t *testing.T) {
	ctx := context.Background()
	fixture := newAssignmentFixture(t)
	exam := fixture.seed(t)

	assignment, err := fixture.service.Assign(ctx, dto.AssignmentCreateRequest{
		ExamRef:     "1",
		StudentRoll: "R1",
		DueDate:     testClock.Add(48 * time.Hour),
	})
	require.NoError(t, err)
	require.Equal(t, exam.ID, assignment.ExamID)
	require.Equal(t, models.AssignmentStatusPending, assignment.Status)
	require.Equal(t, 1, assignment.MaxAttempts)
}

func TestAssignRejectsUnknownExamAndStudent(t *testing.T) {
	ctx := context.Background()
	fixture := newAssignmentFixture(t)
	fixture.seed(t)

	_, err := fixture.service.Assign(ctx, dto.AssignmentCreateRequest{
		ExamRef: "404", StudentRoll: "R1", DueDate: testClock,
	})
	require.ErrorIs(t, err, ErrExamNotFound)

	_, err = fixture.service.Assign(ctx, dto.AssignmentCreateRequest{
		ExamRef: "1", StudentRoll: "R-unknown", DueDate: testClock,
	})
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestAssignRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	fixture := newAssignmentFixture(t)
	fixture.seed(t)

	payload := dto.AssignmentCreateRequest{ExamRef: "1", StudentRoll: "R1", DueDate: testClock}
	_, err := fixture.service.Assign(ctx, payload)
	require.NoError(t, err)

	_, err = fixture.service.Assign(ctx, payload)
	require.ErrorIs(t, err, ErrDuplicateAssignment)
}

func TestSetMaxAttemptsClampsUsage(t *testing.T) {
	ctx := context.Background()
	fixture := newAssignmentFixture(t)
	exam := fixture.seed(t)

	require.NoError(t, fixture.assignments.Create(ctx, &models.ExamAssignment{
		ExamID:       exam.ID,
		StudentRoll:  "R1",
		Status:       models.AssignmentStatusPending,
		MaxAttempts:  5,
		AttemptsUsed: 4,
	}))

	assignment, err := fixture.service.SetMaxAttempts(ctx, 1, 2)
	require.NoError(t, err)
	require.Equal(t, 2, assignment.MaxAttempts)
	require.Equal(t, 2, assignment.AttemptsUsed)
}

func TestRecordAttemptSaturatesAtCap(t *testing.T) {
	ctx := context.Background()
	fixture := newAssignmentFixture(t)
	exam := fixture.seed(t)

	require.NoError(t, fixture.assignments.Create(ctx, &models.ExamAssignment{
		ExamID:      exam.ID,
		StudentRoll: "R1",
		Status:      models.AssignmentStatusPending,
		MaxAttempts: 2,
	}))

	first, err := fixture.service.RecordAttempt(ctx, 1, 40)
	require.NoError(t, err)
	require.Equal(t, 1, first.AttemptsUsed)
	require.Equal(t, models.AssignmentStatusPending, first.Status)
	require.Nil(t, first.CompletedAt)

	second, err := fixture.service.RecordAttempt(ctx, 1, 80)
	require.NoError(t, err)
	require.Equal(t, 2, second.AttemptsUsed)
	require.Equal(t, models.AssignmentStatusCompleted, second.Status)
	require.NotNil(t, second.CompletedAt)
	completedAt := *second.CompletedAt

	// Past the cap, the counter saturates and the timestamp stays put.
	third, err := fixture.service.RecordAttempt(ctx, 1, 95)
	require.NoError(t, err)
	require.Equal(t, 2, third.AttemptsUsed)
	require.Equal(t, completedAt, *third.CompletedAt)
	require.NotNil(t, third.Score)
	require.InDelta(t, 95.0, *third.Score, 1e-9)
}

func TestRecordAttemptUnknownAssignment(t *testing.T) {
	fixture := newAssignmentFixture(t)

	_, err := fixture.service.RecordAttempt(context.Background(), 42, 10)
	require.ErrorIs(t, err, ErrAssignmentNotFound)
}
