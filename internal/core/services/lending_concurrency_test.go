package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"liblend/internal/adapters/persistence/models"
	"liblend/internal/adapters/persistence/repositories"
	"liblend/internal/core/domain"
)

// rowLockStore emulates row-level storage locking: ForUpdate reads take
// an exclusive per-row mutex held until the transaction ends, writes
// stay buffered until commit, and the loan counts see committed rows
// plus the transaction's own buffered writes. Unlike fakeStore, which
// serializes whole transactions on one mutex, transactions touching
// disjoint rows overlap here, so the per-patron checks only hold when
// the coordinator locks the patron row first.
type rowLockStore struct {
	mu         sync.Mutex
	locks      map[string]*sync.Mutex
	books      map[uint]*models.Book
	loans      map[uint]*models.Loan
	users      map[uint]*models.User
	settings   models.Setting
	nextBookID uint
	nextLoanID uint
}

func newRowLockStore() *rowLockStore {
	return &rowLockStore{
		locks: map[string]*sync.Mutex{},
		books: map[uint]*models.Book{},
		loans: map[uint]*models.Loan{},
		users: map[uint]*models.User{},
		settings: models.Setting{
			ID:                 models.SettingsID,
			MaxLoansPerStudent: 3,
			DefaultLoanDays:    14,
			AllowRenewals:      true,
			MaxRenewals:        1,
		},
		nextBookID: 1,
		nextLoanID: 1,
	}
}

func (s *rowLockStore) InTx(ctx context.Context, fn func(tx repositories.LendingTx) error) error {
	tx := &rowLockTx{
		store:      s,
		bookWrites: map[uint]*models.Book{},
		loanWrites: map[uint]*models.Loan{},
	}
	err := fn(tx)
	if err == nil {
		s.mu.Lock()
		for id, book := range tx.bookWrites {
			s.books[id] = book
		}
		for id, loan := range tx.loanWrites {
			s.loans[id] = loan
		}
		for _, loan := range tx.newLoans {
			s.loans[loan.ID] = loan
		}
		s.mu.Unlock()
	}
	for i := len(tx.held) - 1; i >= 0; i-- {
		tx.held[i].Unlock()
	}
	return err
}

func (s *rowLockStore) addUser(user *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *user
	s.users[user.ID] = &clone
}

func (s *rowLockStore) addBook(book models.Book) uint {
	s.mu.Lock()
	defer s.mu.Unlock()

	book.ID = s.nextBookID
	s.nextBookID++
	s.books[book.ID] = &book
	return book.ID
}

func (s *rowLockStore) openLoans(userID uint) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	for _, loan := range s.loans {
		if loan.UserID == userID && loan.Status != string(domain.LoanReturned) {
			n++
		}
	}
	return n
}

type rowLockTx struct {
	store      *rowLockStore
	held       []*sync.Mutex
	bookWrites map[uint]*models.Book
	loanWrites map[uint]*models.Loan
	newLoans   []*models.Loan
}

// lock blocks until the row mutex is acquired and keeps it held until
// the transaction ends.
func (t *rowLockTx) lock(key string) {
	t.store.mu.Lock()
	m, ok := t.store.locks[key]
	if !ok {
		m = &sync.Mutex{}
		t.store.locks[key] = m
	}
	t.store.mu.Unlock()

	m.Lock()
	t.held = append(t.held, m)
}

func (t *rowLockTx) GetUserForUpdate(id uint) (*models.User, error) {
	t.lock(fmt.Sprintf("user:%d", id))

	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	user, ok := t.store.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *user
	return &clone, nil
}

func (t *rowLockTx) GetBookForUpdate(id uint) (*models.Book, error) {
	t.lock(fmt.Sprintf("book:%d", id))

	if book, ok := t.bookWrites[id]; ok {
		clone := *book
		return &clone, nil
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	book, ok := t.store.books[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *book
	return &clone, nil
}

func (t *rowLockTx) GetBookByCode(code string) (*models.Book, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, book := range t.store.books {
		if book.Code == code {
			clone := *book
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (t *rowLockTx) CreateBook(book *models.Book) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	book.ID = t.store.nextBookID
	t.store.nextBookID++
	clone := *book
	t.store.books[book.ID] = &clone
	return nil
}

func (t *rowLockTx) SaveBook(book *models.Book) error {
	clone := *book
	t.bookWrites[book.ID] = &clone
	return nil
}

func (t *rowLockTx) DeleteBook(id uint) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	delete(t.store.books, id)
	return nil
}

func (t *rowLockTx) GetLoanForUpdate(id uint) (*models.Loan, error) {
	t.lock(fmt.Sprintf("loan:%d", id))

	if loan, ok := t.loanWrites[id]; ok {
		clone := *loan
		return &clone, nil
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	loan, ok := t.store.loans[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *loan
	return &clone, nil
}

func (t *rowLockTx) CreateLoan(loan *models.Loan) error {
	t.store.mu.Lock()
	loan.ID = t.store.nextLoanID
	t.store.nextLoanID++
	t.store.mu.Unlock()

	clone := *loan
	t.newLoans = append(t.newLoans, &clone)
	return nil
}

func (t *rowLockTx) SaveLoan(loan *models.Loan) error {
	clone := *loan
	t.loanWrites[loan.ID] = &clone
	return nil
}

func (t *rowLockTx) CountOpenLoansByUser(userID uint) (int64, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	var count int64
	for _, loan := range t.store.loans {
		if loan.UserID == userID && loan.Status != string(domain.LoanReturned) {
			count++
		}
	}
	for _, loan := range t.newLoans {
		if loan.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (t *rowLockTx) CountOpenLoansByBook(bookID uint) (int64, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	var count int64
	for _, loan := range t.store.loans {
		if loan.BookID == bookID && loan.Status != string(domain.LoanReturned) {
			count++
		}
	}
	for _, loan := range t.newLoans {
		if loan.BookID == bookID {
			count++
		}
	}
	return count, nil
}

func (t *rowLockTx) HasOpenLoan(userID, bookID uint) (bool, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, loan := range t.store.loans {
		if loan.UserID == userID && loan.BookID == bookID && loan.Status != string(domain.LoanReturned) {
			return true, nil
		}
	}
	for _, loan := range t.newLoans {
		if loan.UserID == userID && loan.BookID == bookID {
			return true, nil
		}
	}
	return false, nil
}

func (t *rowLockTx) GetSettings() (*models.Setting, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	clone := t.store.settings
	return &clone, nil
}

func (t *rowLockTx) SaveSettings(setting *models.Setting) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.settings = *setting
	return nil
}

func TestBorrowLimitHeldAcrossDifferentBooks(t *testing.T) {
	store := newRowLockStore()
	store.settings.MaxLoansPerStudent = 1
	store.addUser(testStudent(7))
	first := store.addBook(activeBook("BK-1", 2, 2))
	second := store.addBook(activeBook("BK-2", 2, 2))

	svc := NewLendingService(store, newFakeUsers(testStudent(7)), NewAuditService(&fakeAuditStore{}))

	// Two borrows by the same patron hold different book locks, so only
	// the patron row lock keeps them from both passing the limit check.
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, bookID := range []uint{first, second} {
		wg.Add(1)
		go func(i int, bookID uint) {
			defer wg.Done()
			_, errs[i] = svc.Borrow(context.Background(), 7, bookID, nil)
		}(i, bookID)
	}
	wg.Wait()

	var successes, limited int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, domain.ErrLimitReached):
			limited++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, limited)
	assert.Equal(t, 1, store.openLoans(7))
}

func TestBorrowConcurrentSameBookSamePatron(t *testing.T) {
	store := newRowLockStore()
	store.addUser(testStudent(7))
	bookID := store.addBook(activeBook("BK-1", 3, 3))

	svc := NewLendingService(store, newFakeUsers(testStudent(7)), NewAuditService(&fakeAuditStore{}))

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Borrow(context.Background(), 7, bookID, nil)
		}(i)
	}
	wg.Wait()

	var successes, duplicates int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, domain.ErrDuplicateLoan):
			duplicates++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, duplicates)
	assert.Equal(t, 1, store.openLoans(7))
}
