package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/proctor-go-api/internal/models"
)

func TestCheatingLogRepositoryListFilters(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCheatingLogRepository(db)
	ctx := context.Background()

	seed := []models.CheatingLog{
		{ExamID: 1, StudentID: 7, StudentName: "Mina", StudentEmail: "mina@example.com", CellPhoneCount: 2, SnapshotURLs: datatypes.JSON([]byte(`[]`))},
		{ExamID: 1, StudentID: 8, StudentName: "Ravi", StudentEmail: "ravi@example.com", NoFaceCount: 1, SnapshotURLs: datatypes.JSON([]byte(`[]`))},
		{ExamID: 2, StudentID: 7, StudentName: "Mina", StudentEmail: "mina@example.com", MultipleFaceCount: 1, SnapshotURLs: datatypes.JSON([]byte(`[]`))},
	}
	for i := range seed {
		require.NoError(t, repo.Create(ctx, &seed[i]))
	}

	t.Run("by exam", func(t *testing.T) {
		examID := uint(1)
		got, err := repo.List(ctx, CheatingLogFilter{ExamID: &examID})
		require.NoError(t, err)
		require.Len(t, got, 2)
	})

	t.Run("by student email", func(t *testing.T) {
		email := "mina@example.com"
		got, err := repo.List(ctx, CheatingLogFilter{StudentEmail: &email})
		require.NoError(t, err)
		require.Len(t, got, 2)
	})

	t.Run("combined", func(t *testing.T) {
		examID := uint(1)
		email := "mina@example.com"
		got, err := repo.List(ctx, CheatingLogFilter{ExamID: &examID, StudentEmail: &email})
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, 2, got[0].CellPhoneCount)
	})
}

func TestCheatingLogRepositoryDelete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCheatingLogRepository(db)
	ctx := context.Background()

	log := models.CheatingLog{ExamID: 1, StudentID: 7, StudentEmail: "mina@example.com", NoFaceCount: 3, SnapshotURLs: datatypes.JSON([]byte(`[]`))}
	require.NoError(t, repo.Create(ctx, &log))

	require.NoError(t, repo.Delete(ctx, log.ID))
	_, err := repo.GetByID(ctx, log.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
