package repositories

import (
	"context"

	"gorm.io/gorm"

	"liblend/internal/adapters/persistence/models"
	"liblend/internal/core/domain"
)

// UserRepository handles user data access
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// GetByID gets a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Preload("Department").First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail gets a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByRegisteredNumber gets a user by registration number
func (r *UserRepository) GetByRegisteredNumber(ctx context.Context, regNo string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("registered_number = ?", regNo).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update updates a user
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// List lists users with optional search and pagination
func (r *UserRepository) List(ctx context.Context, search string, offset, limit int) ([]*models.User, int64, error) {
	var users []*models.User
	var total int64

	query := r.db.WithContext(ctx).Model(&models.User{})
	if search != "" {
		like := "%" + search + "%"
		query = query.Where("full_name LIKE ? OR email LIKE ? OR registered_number LIKE ?", like, like, like)
	}

	query.Count(&total)

	err := query.
		Preload("Department").
		Order("full_name ASC").
		Offset(offset).
		Limit(limit).
		Find(&users).Error

	return users, total, err
}

// CountAdmins counts active admin users. Deactivated admins cannot act,
// so they must not satisfy the last-admin guard.
func (r *UserRepository) CountAdmins(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("role = ? AND is_active = ?", domain.RoleAdmin, true).
		Count(&count).Error
	return count, err
}

// ExistsByRegisteredNumber checks if a registration number is taken
func (r *UserRepository) ExistsByRegisteredNumber(ctx context.Context, regNo string, excludeID uint) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.User{}).
		Where("registered_number = ?", regNo)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	err := query.Count(&count).Error
	return count > 0, err
}

// ListDepartments lists all departments
func (r *UserRepository) ListDepartments(ctx context.Context) ([]*models.Department, error) {
	var departments []*models.Department
	err := r.db.WithContext(ctx).Order("name ASC").Find(&departments).Error
	return departments, err
}
