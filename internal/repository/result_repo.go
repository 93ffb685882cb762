package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/proctor-go-api/internal/models"
)

// ResultRepository defines data operations for graded results.
type ResultRepository interface {
	ListByExam(ctx context.Context, examID uint) ([]models.Result, error)
	ListByStudent(ctx context.Context, studentID uint) ([]models.Result, error)
	GetByStudentAndExam(ctx context.Context, studentID, examID uint) (models.Result, error)
	// Upsert persists the result keyed by (student, exam). An existing row
	// for the pair is replaced in place; the database unique index is the
	// authoritative guard against duplicates under concurrent submissions.
	Upsert(ctx context.Context, result *models.Result) error
	Delete(ctx context.Context, id uint) error
}

type resultRepository struct {
	db *gorm.DB
}

// NewResultRepository instantiates the repository.
func NewResultRepository(db *gorm.DB) ResultRepository {
	return &resultRepository{db: db}
}

func (r *resultRepository) ListByExam(ctx context.Context, examID uint) ([]models.Result, error) {
	var results []models.Result
	if err := r.db.WithContext(ctx).
		Where("exam_id = ?", examID).
		Order("submitted_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *resultRepository) ListByStudent(ctx context.Context, studentID uint) ([]models.Result, error) {
	var results []models.Result
	if err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("submitted_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *resultRepository) GetByStudentAndExam(ctx context.Context, studentID, examID uint) (models.Result, error) {
	var result models.Result
	if err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Where("exam_id = ?", examID).
		First(&result).Error; err != nil {
		return models.Result{}, err
	}
	return result, nil
}

func (r *resultRepository) Upsert(ctx context.Context, result *models.Result) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "student_id"}, {Name: "exam_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"answers", "score", "total_questions", "percentage",
			"time_taken_seconds", "status", "submitted_at", "updated_at",
		}),
	}).Create(result).Error
}

func (r *resultRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Result{}, id).Error
}
