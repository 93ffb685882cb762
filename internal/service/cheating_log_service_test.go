package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/proctor-go-api/internal/models"
	"github.com/noah-isme/proctor-go-api/internal/repository"
)

func TestCheatingLogListAndDelete(t *testing.T) {
	ctx := context.Background()
	logs := newMemoryCheatingLogRepo()
	exams := newMemoryExamRepo()
	service := NewCheatingLogService(logs, exams, nil, time.Minute, zerolog.Nop())

	require.NoError(t, logs.Create(ctx, &models.CheatingLog{ExamID: 1, StudentEmail: "a@example.com", CellPhoneCount: 1}))
	require.NoError(t, logs.Create(ctx, &models.CheatingLog{ExamID: 2, StudentEmail: "b@example.com", NoFaceCount: 2}))

	examID := uint(1)
	filtered, err := service.List(ctx, repository.CheatingLogFilter{ExamID: &examID})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	require.Equal(t, 1, filtered[0].TotalIncidents)

	require.NoError(t, service.Delete(ctx, filtered[0].ID))
	require.ErrorIs(t, service.Delete(ctx, filtered[0].ID), ErrCheatingLogNotFound)
}

func TestExamSummaryAggregatesAndCaches(t *testing.T) {
	ctx := context.Background()
	logs := newMemoryCheatingLogRepo()
	exams := newMemoryExamRepo()
	_, client := newTestRedis(t)
	service := NewCheatingLogService(logs, exams, client, time.Minute, zerolog.Nop())

	exam := liveExam(exams, testClock)
	require.NoError(t, logs.Create(ctx, &models.CheatingLog{ExamID: exam.ID, StudentEmail: "a@example.com", CellPhoneCount: 2, NoFaceCount: 1}))
	require.NoError(t, logs.Create(ctx, &models.CheatingLog{ExamID: exam.ID, StudentEmail: "b@example.com", ProhibitedObjectCount: 1}))

	summary, err := service.ExamSummary(ctx, "1")
	require.NoError(t, err)
	require.Equal(t, 2, summary.TotalLogs)
	require.Equal(t, 4, summary.TotalIncidents)
	require.Equal(t, 3, summary.ByStudent["a@example.com"])

	// A new log inside the cache window is not visible until the TTL lapses.
	require.NoError(t, logs.Create(ctx, &models.CheatingLog{ExamID: exam.ID, StudentEmail: "c@example.com", MultipleFaceCount: 1}))

	cached, err := service.ExamSummary(ctx, "1")
	require.NoError(t, err)
	require.Equal(t, 2, cached.TotalLogs)
}

func TestExamSummaryUnknownExam(t *testing.T) {
	service := NewCheatingLogService(newMemoryCheatingLogRepo(), newMemoryExamRepo(), nil, time.Minute, zerolog.Nop())

	_, err := service.ExamSummary(context.Background(), "404")
	require.ErrorIs(t, err, ErrExamNotFound)
}
