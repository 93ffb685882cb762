package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/proctor-go-api/internal/models"
)

var testClock = time.Date(2025, time.March, 10, 10, 0, 0, 0, time.UTC)

type accessFixture struct {
	exams       *memoryExamRepo
	questions   *memoryQuestionRepo
	assignments *memoryAssignmentRepo
	grants      *memoryGrantStore
	service     AccessService
}

func newAccessFixture(t *testing.T) *accessFixture {
	t.Helper()

	fixture := &accessFixture{
		exams:       newMemoryExamRepo(),
		questions:   newMemoryQuestionRepo(),
		assignments: newMemoryAssignmentRepo(),
		grants:      newMemoryGrantStore(),
	}
	fixture.service = NewAccessService(fixture.exams, fixture.questions, fixture.assignments, fixture.grants, zerolog.Nop())
	fixture.service.(*accessService).now = func() time.Time { return testClock }
	return fixture
}

func (f *accessFixture) assign(t *testing.T, examID uint, roll string, maxAttempts, used int) {
	t.Helper()
	err := f.assignments.Create(context.Background(), &models.ExamAssignment{
		ExamID:       examID,
		StudentRoll:  roll,
		Status:       models.AssignmentStatusPending,
		MaxAttempts:  maxAttempts,
		AttemptsUsed: used,
		DueDate:      testClock.Add(24 * time.Hour),
	})
	require.NoError(t, err)
}

func studentContext(roll string) RequestContext {
	return RequestContext{UserID: 10, Role: models.RoleStudent, Roll: roll, SessionID: "sess-1"}
}

func TestCanViewQuestionsDenialOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown exam", func(t *testing.T) {
		fixture := newAccessFixture(t)

		_, err := fixture.service.CanViewQuestions(ctx, studentContext("R1"), "999")
		accessErr, ok := AsAccessError(err)
		require.True(t, ok)
		require.Equal(t, AccessNotFound, accessErr.Reason)
	})

	t.Run("before window", func(t *testing.T) {
		fixture := newAccessFixture(t)
		exam := models.Exam{Name: "x", LiveAt: testClock.Add(time.Hour), DeadAt: testClock.Add(2 * time.Hour)}
		require.NoError(t, fixture.exams.Create(ctx, &exam))

		_, err := fixture.service.CanViewQuestions(ctx, studentContext("R1"), "1")
		accessErr, _ := AsAccessError(err)
		require.Equal(t, AccessNotStarted, accessErr.Reason)
	})

	t.Run("after window", func(t *testing.T) {
		fixture := newAccessFixture(t)
		exam := models.Exam{Name: "x", LiveAt: testClock.Add(-2 * time.Hour), DeadAt: testClock.Add(-time.Hour)}
		require.NoError(t, fixture.exams.Create(ctx, &exam))

		_, err := fixture.service.CanViewQuestions(ctx, studentContext("R1"), "1")
		accessErr, _ := AsAccessError(err)
		require.Equal(t, AccessWindowClosed, accessErr.Reason)
	})

	t.Run("code required before assignment check", func(t *testing.T) {
		fixture := newAccessFixture(t)
		exam := liveExam(fixture.exams, testClock)
		exam.AccessCode = "open-sesame"
		require.NoError(t, fixture.exams.Update(ctx, &exam))
		// Deliberately no assignment: the code check must fire first.

		_, err := fixture.service.CanViewQuestions(ctx, studentContext("R1"), "1")
		accessErr, _ := AsAccessError(err)
		require.Equal(t, AccessCodeRequired, accessErr.Reason)
	})

	t.Run("not assigned", func(t *testing.T) {
		fixture := newAccessFixture(t)
		liveExam(fixture.exams, testClock)

		_, err := fixture.service.CanViewQuestions(ctx, studentContext("R1"), "1")
		accessErr, _ := AsAccessError(err)
		require.Equal(t, AccessNotAssigned, accessErr.Reason)
	})

	t.Run("attempts exhausted", func(t *testing.T) {
		fixture := newAccessFixture(t)
		exam := liveExam(fixture.exams, testClock)
		fixture.assign(t, exam.ID, "R1", 2, 2)

		_, err := fixture.service.CanViewQuestions(ctx, studentContext("R1"), "1")
		accessErr, _ := AsAccessError(err)
		require.Equal(t, AccessAttemptLimitReached, accessErr.Reason)
	})
}

func TestCanViewQuestionsAllowsAssignedStudent(t *testing.T) {
	ctx := context.Background()
	fixture := newAccessFixture(t)
	exam := liveExam(fixture.exams, testClock)
	fixture.assign(t, exam.ID, "R1", 2, 1)

	question := choiceQuestion(exam.ID, "b")
	require.NoError(t, fixture.questions.Create(ctx, &question))

	views, err := fixture.service.CanViewQuestions(ctx, studentContext("R1"), "1")
	require.NoError(t, err)
	require.Len(t, views, 1)
	for _, option := range views[0].Options {
		require.False(t, option.IsCorrect)
	}
}

func TestCanViewQuestionsResolvesLegacyCode(t *testing.T) {
	ctx := context.Background()
	fixture := newAccessFixture(t)
	exam := liveExam(fixture.exams, testClock)
	exam.LegacyCode = "DSF-2024"
	require.NoError(t, fixture.exams.Update(ctx, &exam))
	fixture.assign(t, exam.ID, "R1", 1, 0)

	_, err := fixture.service.CanViewQuestions(ctx, studentContext("R1"), "DSF-2024")
	require.NoError(t, err)
}

func TestCanViewQuestionsTeacherBypassesGate(t *testing.T) {
	ctx := context.Background()
	fixture := newAccessFixture(t)
	exam := models.Exam{Name: "x", LiveAt: testClock.Add(time.Hour), DeadAt: testClock.Add(2 * time.Hour), AccessCode: "locked"}
	require.NoError(t, fixture.exams.Create(ctx, &exam))

	question := choiceQuestion(exam.ID, "b")
	require.NoError(t, fixture.questions.Create(ctx, &question))
	hiddenCase := codeQuestion(exam.ID, []models.TestCase{{Input: "1", Expected: "2", Hidden: true}})
	require.NoError(t, fixture.questions.Create(ctx, &hiddenCase))

	teacher := RequestContext{UserID: 1, Role: models.RoleTeacher}
	views, err := fixture.service.CanViewQuestions(ctx, teacher, "1")
	require.NoError(t, err)
	require.Len(t, views, 2)

	var sawCorrect bool
	for _, option := range views[0].Options {
		sawCorrect = sawCorrect || option.IsCorrect
	}
	require.True(t, sawCorrect)
	require.Len(t, views[1].TestCases, 1)
}

func TestCanViewQuestionsHidesHiddenTestCases(t *testing.T) {
	ctx := context.Background()
	fixture := newAccessFixture(t)
	exam := liveExam(fixture.exams, testClock)
	fixture.assign(t, exam.ID, "R1", 1, 0)

	question := codeQuestion(exam.ID, []models.TestCase{
		{Input: "1", Expected: "2"},
		{Input: "3", Expected: "4", Hidden: true},
	})
	require.NoError(t, fixture.questions.Create(ctx, &question))

	views, err := fixture.service.CanViewQuestions(ctx, studentContext("R1"), "1")
	require.NoError(t, err)
	require.Len(t, views[0].TestCases, 1)
	require.Equal(t, "1", views[0].TestCases[0].Input)
}

func TestValidateAccessCode(t *testing.T) {
	ctx := context.Background()
	fixture := newAccessFixture(t)
	exam := liveExam(fixture.exams, testClock)
	exam.AccessCode = "open-sesame"
	require.NoError(t, fixture.exams.Update(ctx, &exam))
	fixture.assign(t, exam.ID, "R1", 1, 0)

	rc := studentContext("R1")

	err := fixture.service.ValidateAccessCode(ctx, rc, "1", "wrong")
	require.ErrorIs(t, err, ErrInvalidAccessCode)

	_, err = fixture.service.CanViewQuestions(ctx, rc, "1")
	accessErr, _ := AsAccessError(err)
	require.Equal(t, AccessCodeRequired, accessErr.Reason)

	require.NoError(t, fixture.service.ValidateAccessCode(ctx, rc, "1", " open-sesame "))

	_, err = fixture.service.CanViewQuestions(ctx, rc, "1")
	require.NoError(t, err)

	// The grant is scoped to the session that validated the code.
	other := rc
	other.SessionID = "sess-2"
	_, err = fixture.service.CanViewQuestions(ctx, other, "1")
	accessErr, _ = AsAccessError(err)
	require.Equal(t, AccessCodeRequired, accessErr.Reason)
}

func TestValidateAccessCodeImplicitWhenUnset(t *testing.T) {
	ctx := context.Background()
	fixture := newAccessFixture(t)
	liveExam(fixture.exams, testClock)

	require.NoError(t, fixture.service.ValidateAccessCode(ctx, studentContext("R1"), "1", ""))
}
