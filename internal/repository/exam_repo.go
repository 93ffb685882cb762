package repository

import (
	"context"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/proctor-go-api/internal/models"
)

// ExamRepository defines data operations for exams.
type ExamRepository interface {
	List(ctx context.Context) ([]models.Exam, error)
	GetByID(ctx context.Context, id uint) (models.Exam, error)
	// Resolve normalizes an external exam reference to a stored exam. It
	// accepts the numeric ID, its stringified form, or the legacy code an
	// exam carried under the pre-migration identifier scheme. All lookups
	// by reference go through here so the compatibility shim lives in one
	// place.
	Resolve(ctx context.Context, ref string) (models.Exam, error)
	Create(ctx context.Context, exam *models.Exam) error
	Update(ctx context.Context, exam *models.Exam) error
	Delete(ctx context.Context, id uint) error
}

type examRepository struct {
	db *gorm.DB
}

// NewExamRepository instantiates the repository.
func NewExamRepository(db *gorm.DB) ExamRepository {
	return &examRepository{db: db}
}

func (r *examRepository) List(ctx context.Context) ([]models.Exam, error) {
	var exams []models.Exam
	if err := r.db.WithContext(ctx).Order("live_at ASC").Find(&exams).Error; err != nil {
		return nil, err
	}
	return exams, nil
}

func (r *examRepository) GetByID(ctx context.Context, id uint) (models.Exam, error) {
	var exam models.Exam
	if err := r.db.WithContext(ctx).First(&exam, id).Error; err != nil {
		return models.Exam{}, err
	}
	return exam, nil
}

func (r *examRepository) Resolve(ctx context.Context, ref string) (models.Exam, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return models.Exam{}, gorm.ErrRecordNotFound
	}

	if id, err := strconv.ParseUint(ref, 10, 64); err == nil {
		exam, err := r.GetByID(ctx, uint(id))
		if err == nil {
			return exam, nil
		}
		if err != gorm.ErrRecordNotFound {
			return models.Exam{}, err
		}
	}

	var exam models.Exam
	if err := r.db.WithContext(ctx).Where("legacy_code = ?", ref).First(&exam).Error; err != nil {
		return models.Exam{}, err
	}
	return exam, nil
}

func (r *examRepository) Create(ctx context.Context, exam *models.Exam) error {
	return r.db.WithContext(ctx).Create(exam).Error
}

func (r *examRepository) Update(ctx context.Context, exam *models.Exam) error {
	return r.db.WithContext(ctx).Save(exam).Error
}

func (r *examRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Exam{}, id).Error
}
