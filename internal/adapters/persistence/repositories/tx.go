package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"liblend/internal/adapters/persistence/models"
	"liblend/internal/core/domain"
)

const (
	txMaxAttempts = 3
	txBackoffBase = 50 * time.Millisecond
)

// GormLendingStore implements LendingStore over a GORM database handle.
type GormLendingStore struct {
	db *gorm.DB
}

// NewGormLendingStore creates a new transactional store
func NewGormLendingStore(db *gorm.DB) *GormLendingStore {
	return &GormLendingStore{db: db}
}

// InTx runs fn inside one transaction. MySQL deadlocks (1213) and lock
// wait timeouts (1205) are retried with backoff; anything else fails
// immediately. Exhausted retries surface as domain.ErrUnavailable.
func (s *GormLendingStore) InTx(ctx context.Context, fn func(tx LendingTx) error) error {
	var err error
	for attempt := 0; attempt < txMaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(txBackoffBase << uint(attempt-1)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(&gormLendingTx{tx: tx})
		})
		if err == nil || !isRetryable(err) {
			return err
		}
	}
	return domain.ErrUnavailable
}

// isRetryable reports whether err is transient lock contention.
func isRetryable(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1213 || mysqlErr.Number == 1205
	}
	return false
}

// IsDuplicateKey reports whether err is a unique constraint violation.
func IsDuplicateKey(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// gormLendingTx is the per-transaction view handed to coordinator code.
type gormLendingTx struct {
	tx *gorm.DB
}

func (t *gormLendingTx) GetUserForUpdate(id uint) (*models.User, error) {
	var user models.User
	err := t.tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (t *gormLendingTx) GetBookForUpdate(id uint) (*models.Book, error) {
	var book models.Book
	err := t.tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&book, id).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (t *gormLendingTx) GetBookByCode(code string) (*models.Book, error) {
	var book models.Book
	err := t.tx.Where("code = ?", code).First(&book).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (t *gormLendingTx) CreateBook(book *models.Book) error {
	return t.tx.Create(book).Error
}

func (t *gormLendingTx) SaveBook(book *models.Book) error {
	return t.tx.Save(book).Error
}

func (t *gormLendingTx) DeleteBook(id uint) error {
	return t.tx.Delete(&models.Book{}, id).Error
}

func (t *gormLendingTx) GetLoanForUpdate(id uint) (*models.Loan, error) {
	var loan models.Loan
	err := t.tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&loan, id).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

func (t *gormLendingTx) CreateLoan(loan *models.Loan) error {
	return t.tx.Create(loan).Error
}

func (t *gormLendingTx) SaveLoan(loan *models.Loan) error {
	return t.tx.Save(loan).Error
}

// The loan counts are locking reads. At REPEATABLE READ a plain COUNT
// reads the transaction snapshot, which can predate a commit this
// transaction already waited on; FOR UPDATE reads the latest committed
// rows instead.
func (t *gormLendingTx) CountOpenLoansByUser(userID uint) (int64, error) {
	var count int64
	err := t.tx.Model(&models.Loan{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND status <> ?", userID, domain.LoanReturned).
		Count(&count).Error
	return count, err
}

func (t *gormLendingTx) CountOpenLoansByBook(bookID uint) (int64, error) {
	var count int64
	err := t.tx.Model(&models.Loan{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("book_id = ? AND status <> ?", bookID, domain.LoanReturned).
		Count(&count).Error
	return count, err
}

func (t *gormLendingTx) HasOpenLoan(userID, bookID uint) (bool, error) {
	var count int64
	err := t.tx.Model(&models.Loan{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND book_id = ? AND status <> ?", userID, bookID, domain.LoanReturned).
		Count(&count).Error
	return count > 0, err
}

func (t *gormLendingTx) GetSettings() (*models.Setting, error) {
	var setting models.Setting
	err := t.tx.First(&setting, models.SettingsID).Error
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

func (t *gormLendingTx) SaveSettings(setting *models.Setting) error {
	setting.ID = models.SettingsID
	return t.tx.Save(setting).Error
}
