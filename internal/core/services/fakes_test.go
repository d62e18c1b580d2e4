package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"liblend/internal/adapters/persistence/models"
	"liblend/internal/adapters/persistence/repositories"
	"liblend/internal/core/domain"
)

// fakeStore is an in-memory LendingStore. InTx holds the store mutex for
// the whole callback, which gives the same serialized behavior the real
// store gets from row locks, and restores a snapshot when the callback
// fails so a failed transaction leaves no partial writes behind.
type fakeStore struct {
	mu            sync.Mutex
	books         map[uint]*models.Book
	loans         map[uint]*models.Loan
	users         map[uint]*models.User
	settings      models.Setting
	nextBookID    uint
	nextLoanID    uint
	createLoanErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
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

func (s *fakeStore) InTx(ctx context.Context, fn func(tx repositories.LendingTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	books, loans, settings := s.snapshot()
	if err := fn(&fakeTx{store: s}); err != nil {
		s.books = books
		s.loans = loans
		s.settings = settings
		return err
	}
	return nil
}

// MarkOverdue mirrors the production sweep: one idempotent pass over
// BORROWED loans whose due date has lapsed.
func (s *fakeStore) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var updated int64
	for _, loan := range s.loans {
		if loan.Status == string(domain.LoanBorrowed) && loan.DueAt.Before(now) {
			loan.Status = string(domain.LoanOverdue)
			updated++
		}
	}
	return updated, nil
}

func (s *fakeStore) snapshot() (map[uint]*models.Book, map[uint]*models.Loan, models.Setting) {
	books := make(map[uint]*models.Book, len(s.books))
	for id, book := range s.books {
		clone := *book
		books[id] = &clone
	}
	loans := make(map[uint]*models.Loan, len(s.loans))
	for id, loan := range s.loans {
		clone := *loan
		loans[id] = &clone
	}
	return books, loans, s.settings
}

// addUser seeds a user row for the patron lock taken during borrows.
func (s *fakeStore) addUser(user *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *user
	s.users[user.ID] = &clone
}

// addBook seeds a book outside any transaction and returns its ID.
func (s *fakeStore) addBook(book models.Book) uint {
	s.mu.Lock()
	defer s.mu.Unlock()

	book.ID = s.nextBookID
	s.nextBookID++
	s.books[book.ID] = &book
	return book.ID
}

// addLoan seeds a loan outside any transaction and returns its ID.
func (s *fakeStore) addLoan(loan models.Loan) uint {
	s.mu.Lock()
	defer s.mu.Unlock()

	loan.ID = s.nextLoanID
	s.nextLoanID++
	s.loans[loan.ID] = &loan
	return loan.ID
}

// book returns a copy of a stored book for assertions.
func (s *fakeStore) book(id uint) models.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.books[id]
}

// loan returns a copy of a stored loan for assertions.
func (s *fakeStore) loan(id uint) models.Loan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.loans[id]
}

// fakeTx is the row view handed to InTx callbacks. The store mutex is
// already held, so it reads and writes the maps directly.
type fakeTx struct {
	store *fakeStore
}

func (t *fakeTx) GetUserForUpdate(id uint) (*models.User, error) {
	user, ok := t.store.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *user
	return &clone, nil
}

func (t *fakeTx) GetBookForUpdate(id uint) (*models.Book, error) {
	book, ok := t.store.books[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *book
	return &clone, nil
}

func (t *fakeTx) GetBookByCode(code string) (*models.Book, error) {
	for _, book := range t.store.books {
		if book.Code == code {
			clone := *book
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (t *fakeTx) CreateBook(book *models.Book) error {
	book.ID = t.store.nextBookID
	t.store.nextBookID++
	clone := *book
	t.store.books[book.ID] = &clone
	return nil
}

func (t *fakeTx) SaveBook(book *models.Book) error {
	clone := *book
	t.store.books[book.ID] = &clone
	return nil
}

func (t *fakeTx) DeleteBook(id uint) error {
	delete(t.store.books, id)
	return nil
}

func (t *fakeTx) GetLoanForUpdate(id uint) (*models.Loan, error) {
	loan, ok := t.store.loans[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *loan
	return &clone, nil
}

func (t *fakeTx) CreateLoan(loan *models.Loan) error {
	if t.store.createLoanErr != nil {
		return t.store.createLoanErr
	}
	loan.ID = t.store.nextLoanID
	t.store.nextLoanID++
	clone := *loan
	t.store.loans[loan.ID] = &clone
	return nil
}

func (t *fakeTx) SaveLoan(loan *models.Loan) error {
	clone := *loan
	t.store.loans[loan.ID] = &clone
	return nil
}

func (t *fakeTx) CountOpenLoansByUser(userID uint) (int64, error) {
	var count int64
	for _, loan := range t.store.loans {
		if loan.UserID == userID && loan.Status != string(domain.LoanReturned) {
			count++
		}
	}
	return count, nil
}

func (t *fakeTx) CountOpenLoansByBook(bookID uint) (int64, error) {
	var count int64
	for _, loan := range t.store.loans {
		if loan.BookID == bookID && loan.Status != string(domain.LoanReturned) {
			count++
		}
	}
	return count, nil
}

func (t *fakeTx) HasOpenLoan(userID, bookID uint) (bool, error) {
	for _, loan := range t.store.loans {
		if loan.UserID == userID && loan.BookID == bookID && loan.Status != string(domain.LoanReturned) {
			return true, nil
		}
	}
	return false, nil
}

func (t *fakeTx) GetSettings() (*models.Setting, error) {
	clone := t.store.settings
	return &clone, nil
}

func (t *fakeTx) SaveSettings(setting *models.Setting) error {
	t.store.settings = *setting
	return nil
}

// fakeUsers is an in-memory UserStore.
type fakeUsers struct {
	users map[uint]*models.User
}

func newFakeUsers(users ...*models.User) *fakeUsers {
	f := &fakeUsers{users: map[uint]*models.User{}}
	for _, user := range users {
		clone := *user
		f.users[user.ID] = &clone
	}
	return f
}

func (f *fakeUsers) GetByID(ctx context.Context, id uint) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *user
	return &clone, nil
}

func (f *fakeUsers) List(ctx context.Context, search string, offset, limit int) ([]*models.User, int64, error) {
	var matched []*models.User
	for _, user := range f.users {
		if search == "" || strings.Contains(user.FullName, search) {
			clone := *user
			matched = append(matched, &clone)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (f *fakeUsers) CountAdmins(ctx context.Context) (int64, error) {
	var count int64
	for _, user := range f.users {
		if user.IsAdmin() && user.IsActive {
			count++
		}
	}
	return count, nil
}

func (f *fakeUsers) ExistsByRegisteredNumber(ctx context.Context, regNo string, excludeID uint) (bool, error) {
	for _, user := range f.users {
		if user.RegisteredNumber == regNo && user.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUsers) Update(ctx context.Context, user *models.User) error {
	if _, ok := f.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeUsers) ListDepartments(ctx context.Context) ([]*models.Department, error) {
	return nil, nil
}

// fakeAuditStore records appended entries in memory; failErr makes every
// append fail to exercise the degraded-success path.
type fakeAuditStore struct {
	mu      sync.Mutex
	failErr error
	entries []*models.AuditLog
}

func (f *fakeAuditStore) Append(ctx context.Context, entry *models.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failErr != nil {
		return f.failErr
	}
	clone := *entry
	f.entries = append(f.entries, &clone)
	return nil
}

func (f *fakeAuditStore) List(ctx context.Context, action string, offset, limit int) ([]*models.AuditLog, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var matched []*models.AuditLog
	for _, entry := range f.entries {
		if action == "" || entry.Action == action {
			matched = append(matched, entry)
		}
	}
	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (f *fakeAuditStore) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	actions := make([]string, 0, len(f.entries))
	for _, entry := range f.entries {
		actions = append(actions, entry.Action)
	}
	return actions
}

// Common test fixtures.

func testAdmin(id uint) *models.User {
	return &models.User{
		ID:               id,
		RegisteredNumber: "ADMIN001",
		FullName:         "Admin",
		Role:             string(domain.RoleAdmin),
		IsActive:         true,
	}
}

func testStudent(id uint) *models.User {
	return &models.User{
		ID:               id,
		RegisteredNumber: "STU001",
		FullName:         "Student",
		Role:             string(domain.RoleStudent),
		IsActive:         true,
	}
}
