package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/proctor-go-api/internal/dto"
	"github.com/noah-isme/proctor-go-api/internal/repository"
)

// ExamCheatingSummary aggregates cheating logs for a teacher's monitor view.
type ExamCheatingSummary struct {
	ExamID         uint           `json:"exam_id"`
	TotalLogs      int            `json:"total_logs"`
	TotalIncidents int            `json:"total_incidents"`
	ByStudent      map[string]int `json:"by_student"`
}

// CheatingLogService covers the teacher-side read/delete surface over the
// append-only cheating logs.
type CheatingLogService interface {
	List(ctx context.Context, filter repository.CheatingLogFilter) ([]dto.CheatingLogResponse, error)
	Delete(ctx context.Context, id uint) error
	// ExamSummary aggregates one exam's logs, cached briefly so a teacher
	// polling the monitor view does not hammer the store.
	ExamSummary(ctx context.Context, examRef string) (ExamCheatingSummary, error)
}

type cheatingLogService struct {
	logs     repository.CheatingLogRepository
	exams    repository.ExamRepository
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
}

// NewCheatingLogService constructs a CheatingLogService instance.
func NewCheatingLogService(logs repository.CheatingLogRepository, exams repository.ExamRepository, cache *redis.Client, cacheTTL time.Duration, logger zerolog.Logger) CheatingLogService {
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	return &cheatingLogService{
		logs:     logs,
		exams:    exams,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger.With().Str("component", "cheating_log_service").Logger(),
	}
}

func (s *cheatingLogService) List(ctx context.Context, filter repository.CheatingLogFilter) ([]dto.CheatingLogResponse, error) {
	logs, err := s.logs.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return dto.NewCheatingLogResponseSlice(logs), nil
}

func (s *cheatingLogService) Delete(ctx context.Context, id uint) error {
	if _, err := s.logs.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCheatingLogNotFound
		}
		return err
	}
	return s.logs.Delete(ctx, id)
}

func (s *cheatingLogService) ExamSummary(ctx context.Context, examRef string) (ExamCheatingSummary, error) {
	exam, err := s.exams.Resolve(ctx, examRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ExamCheatingSummary{}, ErrExamNotFound
		}
		return ExamCheatingSummary{}, err
	}

	cacheKey := fmt.Sprintf("cheating_summary:exam:%d", exam.ID)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var summary ExamCheatingSummary
			if unmarshalErr := json.Unmarshal([]byte(cached), &summary); unmarshalErr == nil {
				return summary, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read summary cache")
		}
	}

	logs, err := s.logs.List(ctx, repository.CheatingLogFilter{ExamID: &exam.ID})
	if err != nil {
		return ExamCheatingSummary{}, err
	}

	summary := ExamCheatingSummary{
		ExamID:    exam.ID,
		TotalLogs: len(logs),
		ByStudent: make(map[string]int),
	}
	for _, log := range logs {
		incidents := log.TotalIncidents()
		summary.TotalIncidents += incidents
		summary.ByStudent[log.StudentEmail] += incidents
	}

	if s.cache != nil {
		if encoded, err := json.Marshal(summary); err == nil {
			if err := s.cache.Set(ctx, cacheKey, encoded, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to write summary cache")
			}
		}
	}

	return summary, nil
}
