package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/proctor-go-api/internal/models"
)

// AssignmentFilter narrows assignment queries.
type AssignmentFilter struct {
	ExamID      *uint
	StudentRoll *string
	Status      *string
}

// AssignmentRepository defines data operations for exam assignments.
type AssignmentRepository interface {
	List(ctx context.Context, filter AssignmentFilter) ([]models.ExamAssignment, error)
	GetByID(ctx context.Context, id uint) (models.ExamAssignment, error)
	GetByExamAndRoll(ctx context.Context, examID uint, roll string) (models.ExamAssignment, error)
	Create(ctx context.Context, assignment *models.ExamAssignment) error
	Update(ctx context.Context, assignment *models.ExamAssignment) error
	Delete(ctx context.Context, id uint) error
}

type assignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository instantiates the repository.
func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

func (r *assignmentRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.ExamAssignment{}).Preload("Exam")
}

func (r *assignmentRepository) List(ctx context.Context, filter AssignmentFilter) ([]models.ExamAssignment, error) {
	query := r.baseQuery(ctx)

	if filter.ExamID != nil {
		query = query.Where("exam_id = ?", *filter.ExamID)
	}
	if filter.StudentRoll != nil {
		query = query.Where("student_roll = ?", *filter.StudentRoll)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var assignments []models.ExamAssignment
	if err := query.Order("due_date ASC").Find(&assignments).Error; err != nil {
		return nil, err
	}
	return assignments, nil
}

func (r *assignmentRepository) GetByID(ctx context.Context, id uint) (models.ExamAssignment, error) {
	var assignment models.ExamAssignment
	if err := r.baseQuery(ctx).First(&assignment, id).Error; err != nil {
		return models.ExamAssignment{}, err
	}
	return assignment, nil
}

func (r *assignmentRepository) GetByExamAndRoll(ctx context.Context, examID uint, roll string) (models.ExamAssignment, error) {
	var assignment models.ExamAssignment
	if err := r.baseQuery(ctx).
		Where("exam_id = ?", examID).
		Where("student_roll = ?", roll).
		First(&assignment).Error; err != nil {
		return models.ExamAssignment{}, err
	}
	return assignment, nil
}

func (r *assignmentRepository) Create(ctx context.Context, assignment *models.ExamAssignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *assignmentRepository) Update(ctx context.Context, assignment *models.ExamAssignment) error {
	return r.db.WithContext(ctx).Save(assignment).Error
}

func (r *assignmentRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.ExamAssignment{}, id).Error
}
