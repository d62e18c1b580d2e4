package repositories

import (
	"context"
	"time"

	"liblend/internal/adapters/persistence/models"
)

// LendingStore runs a function inside a single database transaction.
// Every coordinator operation executes exactly one InTx call: read,
// validate and write happen against the same snapshot with row locks,
// and nothing is visible to other callers until commit. Implementations
// retry a bounded number of times on lock contention and surface
// domain.ErrUnavailable when retries are exhausted, so fn must not have
// side effects outside the transaction.
type LendingStore interface {
	InTx(ctx context.Context, fn func(tx LendingTx) error) error
}

// LendingTx is the row-level view a coordinator operation sees inside
// one transaction. The ForUpdate reads take exclusive row locks
// (SELECT ... FOR UPDATE): the patron row lock serializes all borrows
// by one patron across every title, and the book row lock serializes
// borrows and returns on one title. The open-loan counts are locking
// reads too, so they observe rows committed by transactions this one
// waited on instead of the transaction snapshot.
type LendingTx interface {
	GetUserForUpdate(id uint) (*models.User, error)

	GetBookForUpdate(id uint) (*models.Book, error)
	GetBookByCode(code string) (*models.Book, error)
	CreateBook(book *models.Book) error
	SaveBook(book *models.Book) error
	DeleteBook(id uint) error

	GetLoanForUpdate(id uint) (*models.Loan, error)
	CreateLoan(loan *models.Loan) error
	SaveLoan(loan *models.Loan) error
	CountOpenLoansByUser(userID uint) (int64, error)
	CountOpenLoansByBook(bookID uint) (int64, error)
	HasOpenLoan(userID, bookID uint) (bool, error)

	GetSettings() (*models.Setting, error)
	SaveSettings(setting *models.Setting) error
}

// LoanSweeper reclassifies lapsed loans. Kept separate from LendingStore
// because the sweep is one idempotent UPDATE, not a read-validate-write
// transaction.
type LoanSweeper interface {
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)
}

// AuditAppender appends privileged-mutation records. Append failures are
// the caller's degraded-success condition, never a rollback.
type AuditAppender interface {
	Append(ctx context.Context, entry *models.AuditLog) error
}

// AuditStore is the full audit trail surface: append-only writes plus
// read access for the admin listing.
type AuditStore interface {
	AuditAppender
	List(ctx context.Context, action string, offset, limit int) ([]*models.AuditLog, int64, error)
}

// UserReader is the slice of user storage the lending engine needs to
// re-validate role membership on privileged calls.
type UserReader interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
}

// UserStore is the account storage surface behind the user service.
type UserStore interface {
	UserReader
	List(ctx context.Context, search string, offset, limit int) ([]*models.User, int64, error)
	CountAdmins(ctx context.Context) (int64, error)
	ExistsByRegisteredNumber(ctx context.Context, regNo string, excludeID uint) (bool, error)
	Update(ctx context.Context, user *models.User) error
	ListDepartments(ctx context.Context) ([]*models.Department, error)
}
