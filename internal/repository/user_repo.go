package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/proctor-go-api/internal/models"
)

// UserRepository defines data operations for platform accounts.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetByRoll(ctx context.Context, roll string) (models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	// IncrementMalpractice atomically bumps the malpractice counter and
	// latches the block flag once the threshold is reached. The update is a
	// single statement so concurrent escalations never lose an increment.
	IncrementMalpractice(ctx context.Context, id uint, blockThreshold int) error
	// Unblock clears the block latch and resets the counter to zero.
	Unblock(ctx context.Context, id uint) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository instantiates the repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *userRepository) GetByRoll(ctx context.Context, roll string) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("roll_no = ?", roll).First(&user).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *userRepository) IncrementMalpractice(ctx context.Context, id uint, blockThreshold int) error {
	return r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"malpractice_count": gorm.Expr("malpractice_count + 1"),
			"is_blocked":        gorm.Expr("is_blocked OR malpractice_count + 1 >= ?", blockThreshold),
		}).Error
}

func (r *userRepository) Unblock(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"malpractice_count": 0,
			"is_blocked":        false,
		}).Error
}
