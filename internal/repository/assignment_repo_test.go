package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/proctor-go-api/internal/models"
)

func TestAssignmentRepositoryGetByExamAndRoll(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAssignmentRepository(db)
	ctx := context.Background()

	liveAt := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	exam := seedExam(t, db, "Data Structures Final", "", liveAt)
	other := seedExam(t, db, "Operating Systems Midterm", "", liveAt)

	assignment := models.ExamAssignment{
		ExamID:      exam.ID,
		StudentRoll: "R1",
		DueDate:     liveAt.Add(2 * time.Hour),
		Status:      models.AssignmentStatusPending,
		MaxAttempts: 2,
	}
	require.NoError(t, repo.Create(ctx, &assignment))

	got, err := repo.GetByExamAndRoll(ctx, exam.ID, "R1")
	require.NoError(t, err)
	require.Equal(t, assignment.ID, got.ID)
	require.Equal(t, exam.Name, got.Exam.Name)

	_, err = repo.GetByExamAndRoll(ctx, other.ID, "R1")
	require.Error(t, err)
	_, err = repo.GetByExamAndRoll(ctx, exam.ID, "R2")
	require.Error(t, err)
}

func TestAssignmentRepositoryListFilters(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAssignmentRepository(db)
	ctx := context.Background()

	liveAt := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	first := seedExam(t, db, "Data Structures Final", "", liveAt)
	second := seedExam(t, db, "Operating Systems Midterm", "", liveAt)

	completed := models.AssignmentStatusCompleted
	seed := []models.ExamAssignment{
		{ExamID: first.ID, StudentRoll: "R1", DueDate: liveAt.Add(time.Hour), Status: models.AssignmentStatusPending, MaxAttempts: 1},
		{ExamID: first.ID, StudentRoll: "R2", DueDate: liveAt.Add(2 * time.Hour), Status: completed, MaxAttempts: 1},
		{ExamID: second.ID, StudentRoll: "R1", DueDate: liveAt.Add(3 * time.Hour), Status: models.AssignmentStatusPending, MaxAttempts: 1},
	}
	for i := range seed {
		require.NoError(t, repo.Create(ctx, &seed[i]))
	}

	t.Run("by exam", func(t *testing.T) {
		got, err := repo.List(ctx, AssignmentFilter{ExamID: &first.ID})
		require.NoError(t, err)
		require.Len(t, got, 2)
	})

	t.Run("by roll", func(t *testing.T) {
		roll := "R1"
		got, err := repo.List(ctx, AssignmentFilter{StudentRoll: &roll})
		require.NoError(t, err)
		require.Len(t, got, 2)
	})

	t.Run("by status", func(t *testing.T) {
		got, err := repo.List(ctx, AssignmentFilter{Status: &completed})
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, "R2", got[0].StudentRoll)
	})

	t.Run("ordered by due date", func(t *testing.T) {
		got, err := repo.List(ctx, AssignmentFilter{})
		require.NoError(t, err)
		require.Len(t, got, 3)
		require.Equal(t, seed[0].ID, got[0].ID)
		require.Equal(t, seed[2].ID, got[2].ID)
	})
}

func TestAssignmentRepositoryRejectsDuplicatePair(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAssignmentRepository(db)
	ctx := context.Background()

	liveAt := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	exam := seedExam(t, db, "Data Structures Final", "", liveAt)

	assignment := models.ExamAssignment{ExamID: exam.ID, StudentRoll: "R1", DueDate: liveAt, Status: models.AssignmentStatusPending, MaxAttempts: 1}
	require.NoError(t, repo.Create(ctx, &assignment))

	dup := models.ExamAssignment{ExamID: exam.ID, StudentRoll: "R1", DueDate: liveAt, Status: models.AssignmentStatusPending, MaxAttempts: 1}
	require.Error(t, repo.Create(ctx, &dup))
}
