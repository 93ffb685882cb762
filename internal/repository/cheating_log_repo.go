package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/proctor-go-api/internal/models"
)

// CheatingLogFilter narrows cheating log queries.
type CheatingLogFilter struct {
	ExamID       *uint
	StudentEmail *string
}

// CheatingLogRepository defines data operations for cheating logs. Logs are
// append-only; there is intentionally no Update.
type CheatingLogRepository interface {
	List(ctx context.Context, filter CheatingLogFilter) ([]models.CheatingLog, error)
	GetByID(ctx context.Context, id uint) (models.CheatingLog, error)
	Create(ctx context.Context, log *models.CheatingLog) error
	Delete(ctx context.Context, id uint) error
}

type cheatingLogRepository struct {
	db *gorm.DB
}

// NewCheatingLogRepository instantiates the repository.
func NewCheatingLogRepository(db *gorm.DB) CheatingLogRepository {
	return &cheatingLogRepository{db: db}
}

func (r *cheatingLogRepository) List(ctx context.Context, filter CheatingLogFilter) ([]models.CheatingLog, error) {
	query := r.db.WithContext(ctx).Model(&models.CheatingLog{})

	if filter.ExamID != nil {
		query = query.Where("exam_id = ?", *filter.ExamID)
	}
	if filter.StudentEmail != nil {
		query = query.Where("student_email = ?", *filter.StudentEmail)
	}

	var logs []models.CheatingLog
	if err := query.Order("created_at DESC").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *cheatingLogRepository) GetByID(ctx context.Context, id uint) (models.CheatingLog, error) {
	var log models.CheatingLog
	if err := r.db.WithContext(ctx).First(&log, id).Error; err != nil {
		return models.CheatingLog{}, err
	}
	return log, nil
}

func (r *cheatingLogRepository) Create(ctx context.Context, log *models.CheatingLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *cheatingLogRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.CheatingLog{}, id).Error
}
