package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"liblend/internal/adapters/persistence/models"
	"liblend/internal/adapters/persistence/repositories"
	"liblend/internal/core/domain"
	"liblend/internal/pkg/pagination"
)

// Catalog errors
var (
	ErrDuplicateCode = errors.New("a book with this code already exists")
	ErrBookHasLoans  = errors.New("book has open loans")
)

// CatalogService manages the book catalog. Copy-count mutations run
// through the same transactional store as the lending coordinator so
// the availability invariant holds under concurrent borrows.
type CatalogService struct {
	store    repositories.LendingStore
	bookRepo *repositories.BookRepository
	users    repositories.UserReader
	audit    *AuditService
}

// NewCatalogService creates a new catalog service
func NewCatalogService(store repositories.LendingStore, bookRepo *repositories.BookRepository, users repositories.UserReader, audit *AuditService) *CatalogService {
	return &CatalogService{
		store:    store,
		bookRepo: bookRepo,
		users:    users,
		audit:    audit,
	}
}

// CreateBookInput represents create book input
type CreateBookInput struct {
	Code        string `json:"code" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Author      string `json:"author,omitempty"`
	Category    string `json:"category,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	TotalCopies int    `json:"total_copies,omitempty"`
}

// UpdateBookInput represents update book input. Code is intentionally
// absent: the external code is immutable after creation.
type UpdateBookInput struct {
	Title       *string `json:"title,omitempty"`
	Author      *string `json:"author,omitempty"`
	Category    *string `json:"category,omitempty"`
	ImageURL    *string `json:"image_url,omitempty"`
	TotalCopies *int    `json:"total_copies,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

// BulkUpsertRow represents one already-parsed catalog row
type BulkUpsertRow struct {
	Code        string `json:"code"`
	Title       string `json:"title"`
	Author      string `json:"author,omitempty"`
	Category    string `json:"category,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	TotalCopies int    `json:"total_copies,omitempty"`
}

// BulkUpsertResult summarizes a bulk upsert
type BulkUpsertResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Failed   int `json:"failed"`
}

// Create creates a new catalog entry (admin only)
func (s *CatalogService) Create(ctx context.Context, input *CreateBookInput, adminID uint) (*models.Book, error) {
	if err := requireAdmin(ctx, s.users, adminID); err != nil {
		return nil, err
	}
	if input.Code == "" || input.Title == "" {
		return nil, domain.ErrValidation
	}

	total := input.TotalCopies
	if total < 1 {
		total = 1
	}

	book := &models.Book{
		Code:            input.Code,
		Title:           input.Title,
		Author:          input.Author,
		Category:        input.Category,
		ImageURL:        input.ImageURL,
		TotalCopies:     total,
		AvailableCopies: total,
		IsActive:        true,
	}

	err := s.store.InTx(ctx, func(tx repositories.LendingTx) error {
		if _, err := tx.GetBookByCode(input.Code); err == nil {
			return ErrDuplicateCode
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.CreateBook(book)
	})
	if err != nil {
		return nil, err
	}

	if auditErr := s.audit.Record(ctx, adminID, models.AuditBookCreate, map[string]interface{}{
		"book_id":   book.ID,
		"book_code": book.Code,
	}); auditErr != nil {
		logDegradedAudit(models.AuditBookCreate, adminID, auditErr)
	}
	return book, nil
}

// Update edits a catalog entry (admin only). A total-copies change is
// validated against the borrowed count inside the same transaction.
func (s *CatalogService) Update(ctx context.Context, bookID uint, input *UpdateBookInput, adminID uint) (*models.Book, error) {
	if err := requireAdmin(ctx, s.users, adminID); err != nil {
		return nil, err
	}

	var updated *models.Book
	err := s.store.InTx(ctx, func(tx repositories.LendingTx) error {
		book, err := tx.GetBookForUpdate(bookID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrBookNotFound
			}
			return err
		}

		if input.Title != nil {
			book.Title = *input.Title
		}
		if input.Author != nil {
			book.Author = *input.Author
		}
		if input.Category != nil {
			book.Category = *input.Category
		}
		if input.ImageURL != nil {
			book.ImageURL = *input.ImageURL
		}
		if input.IsActive != nil {
			book.IsActive = *input.IsActive
		}
		if input.TotalCopies != nil {
			newTotal := *input.TotalCopies
			if newTotal < 1 {
				return domain.ErrValidation
			}
			borrowed := book.BorrowedCopies()
			if newTotal < borrowed {
				return domain.ErrBelowBorrowed
			}
			book.TotalCopies = newTotal
			book.AvailableCopies = newTotal - borrowed
		}

		updated = book
		return tx.SaveBook(book)
	})
	if err != nil {
		return nil, err
	}

	if auditErr := s.audit.Record(ctx, adminID, models.AuditBookUpdate, map[string]interface{}{
		"book_id": bookID,
	}); auditErr != nil {
		logDegradedAudit(models.AuditBookUpdate, adminID, auditErr)
	}
	return updated, nil
}

// Delete removes a catalog entry (admin only). Blocked while any open
// loan still references the book.
func (s *CatalogService) Delete(ctx context.Context, bookID uint, adminID uint) error {
	if err := requireAdmin(ctx, s.users, adminID); err != nil {
		return err
	}

	err := s.store.InTx(ctx, func(tx repositories.LendingTx) error {
		if _, err := tx.GetBookForUpdate(bookID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrBookNotFound
			}
			return err
		}

		open, err := tx.CountOpenLoansByBook(bookID)
		if err != nil {
			return err
		}
		if open > 0 {
			return ErrBookHasLoans
		}
		return tx.DeleteBook(bookID)
	})
	if err != nil {
		return err
	}

	if auditErr := s.audit.Record(ctx, adminID, models.AuditBookDelete, map[string]interface{}{
		"book_id": bookID,
	}); auditErr != nil {
		logDegradedAudit(models.AuditBookDelete, adminID, auditErr)
	}
	return nil
}

// BulkUpsert inserts or updates already-parsed catalog rows (admin
// only). Each row runs in its own transaction so one bad row does not
// sink the batch; the copy math preserves the borrowed count on update.
func (s *CatalogService) BulkUpsert(ctx context.Context, rows []BulkUpsertRow, adminID uint) (*BulkUpsertResult, error) {
	if err := requireAdmin(ctx, s.users, adminID); err != nil {
		return nil, err
	}

	result := &BulkUpsertResult{}
	for _, row := range rows {
		if row.Code == "" || row.Title == "" {
			result.Failed++
			continue
		}

		err := s.store.InTx(ctx, func(tx repositories.LendingTx) error {
			existing, err := tx.GetBookByCode(row.Code)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				total := row.TotalCopies
				if total < 1 {
					total = 1
				}
				if createErr := tx.CreateBook(&models.Book{
					Code:            row.Code,
					Title:           row.Title,
					Author:          row.Author,
					Category:        row.Category,
					ImageURL:        row.ImageURL,
					TotalCopies:     total,
					AvailableCopies: total,
					IsActive:        true,
				}); createErr != nil {
					return createErr
				}
				result.Inserted++
				return nil
			}
			if err != nil {
				return err
			}

			// Re-read under lock so the borrowed count is stable while
			// we recompute availability.
			book, err := tx.GetBookForUpdate(existing.ID)
			if err != nil {
				return err
			}
			borrowed := book.BorrowedCopies()
			newTotal := row.TotalCopies
			if newTotal < 1 {
				newTotal = book.TotalCopies
			}
			if newTotal < borrowed {
				return domain.ErrBelowBorrowed
			}

			book.Title = row.Title
			book.Author = row.Author
			book.Category = row.Category
			book.ImageURL = row.ImageURL
			book.TotalCopies = newTotal
			book.AvailableCopies = newTotal - borrowed
			if saveErr := tx.SaveBook(book); saveErr != nil {
				return saveErr
			}
			result.Updated++
			return nil
		})
		if err != nil {
			result.Failed++
		}
	}

	if auditErr := s.audit.Record(ctx, adminID, models.AuditBulkUpload, map[string]interface{}{
		"inserted": result.Inserted,
		"updated":  result.Updated,
		"failed":   result.Failed,
		"total":    len(rows),
	}); auditErr != nil {
		logDegradedAudit(models.AuditBulkUpload, adminID, auditErr)
	}
	return result, nil
}

// GetByID returns one catalog entry
func (s *CatalogService) GetByID(ctx context.Context, bookID uint) (*models.Book, error) {
	book, err := s.bookRepo.GetByID(ctx, bookID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrBookNotFound
		}
		return nil, err
	}
	return book, nil
}

// CatalogListOutput represents a catalog listing page
type CatalogListOutput struct {
	Books []*models.Book   `json:"books"`
	Meta  *pagination.Meta `json:"meta"`
}

// List lists catalog entries with optional search and category filter.
// Non-admin callers only see active books.
func (s *CatalogService) List(ctx context.Context, search, category string, includeInactive bool, params *pagination.Params) (*CatalogListOutput, error) {
	books, total, err := s.bookRepo.List(ctx, search, category, !includeInactive, params.Offset, params.Limit)
	if err != nil {
		return nil, err
	}
	return &CatalogListOutput{
		Books: books,
		Meta:  pagination.GetMeta(params, total),
	}, nil
}

// Categories lists the distinct catalog categories
func (s *CatalogService) Categories(ctx context.Context) ([]string, error) {
	return s.bookRepo.Categories(ctx)
}
