package repositories

import (
	"context"

	"gorm.io/gorm"

	"liblend/internal/adapters/persistence/models"
)

// BookRepository handles catalog reads outside the lending transaction
type BookRepository struct {
	db *gorm.DB
}

// NewBookRepository creates a new book repository
func NewBookRepository(db *gorm.DB) *BookRepository {
	return &BookRepository{db: db}
}

// GetByID gets a book by ID
func (r *BookRepository) GetByID(ctx context.Context, id uint) (*models.Book, error) {
	var book models.Book
	err := r.db.WithContext(ctx).First(&book, id).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// GetByCode gets a book by its external code
func (r *BookRepository) GetByCode(ctx context.Context, code string) (*models.Book, error) {
	var book models.Book
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&book).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// List lists books with optional search and category filter
func (r *BookRepository) List(ctx context.Context, search, category string, activeOnly bool, offset, limit int) ([]*models.Book, int64, error) {
	var books []*models.Book
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Book{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	if search != "" {
		like := "%" + search + "%"
		query = query.Where("title LIKE ? OR author LIKE ? OR code LIKE ?", like, like, like)
	}
	if category != "" {
		query = query.Where("category = ?", category)
	}

	query.Count(&total)

	err := query.Order("title ASC").
		Offset(offset).
		Limit(limit).
		Find(&books).Error

	return books, total, err
}

// Categories returns the distinct categories present in the catalog
func (r *BookRepository) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	err := r.db.WithContext(ctx).Model(&models.Book{}).
		Where("category <> ''").
		Distinct().
		Order("category ASC").
		Pluck("category", &categories).Error
	return categories, err
}
