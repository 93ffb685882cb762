package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/proctor-go-api/internal/models"
)

// QuestionRepository defines data operations for exam questions.
type QuestionRepository interface {
	ListByExam(ctx context.Context, examID uint) ([]models.Question, error)
	GetByID(ctx context.Context, id uint) (models.Question, error)
	Create(ctx context.Context, question *models.Question) error
	Delete(ctx context.Context, id uint) error
	CountByExam(ctx context.Context, examID uint) (int64, error)
}

type questionRepository struct {
	db *gorm.DB
}

// NewQuestionRepository instantiates the repository.
func NewQuestionRepository(db *gorm.DB) QuestionRepository {
	return &questionRepository{db: db}
}

func (r *questionRepository) ListByExam(ctx context.Context, examID uint) ([]models.Question, error) {
	var questions []models.Question
	if err := r.db.WithContext(ctx).
		Where("exam_id = ?", examID).
		Order("id ASC").
		Find(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}

func (r *questionRepository) GetByID(ctx context.Context, id uint) (models.Question, error) {
	var question models.Question
	if err := r.db.WithContext(ctx).First(&question, id).Error; err != nil {
		return models.Question{}, err
	}
	return question, nil
}

func (r *questionRepository) Create(ctx context.Context, question *models.Question) error {
	return r.db.WithContext(ctx).Create(question).Error
}

func (r *questionRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Question{}, id).Error
}

func (r *questionRepository) CountByExam(ctx context.Context, examID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Question{}).
		Where("exam_id = ?", examID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
