package domain

import "time"

// Role represents user role in the system
type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleAdmin   Role = "ADMIN"
)

// LoanStatus represents the lifecycle state of a loan
type LoanStatus string

const (
	LoanBorrowed LoanStatus = "BORROWED"
	LoanOverdue  LoanStatus = "OVERDUE"
	LoanReturned LoanStatus = "RETURNED"
)

// User represents a library patron or administrator in the domain layer
type User struct {
	ID               uint
	RegisteredNumber string
	FullName         string
	Email            string
	Password         string // Hashed
	Role             Role
	DepartmentID     *uint
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Book represents a catalog entry with N identical copies
type Book struct {
	ID              uint
	Code            string // Immutable after creation
	Title           string
	Author          string
	Category        string
	ImageURL        string
	TotalCopies     int
	AvailableCopies int
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Loan represents one patron's borrowing of one copy of one book
type Loan struct {
	ID         uint
	UserID     uint
	BookID     uint
	BorrowedAt time.Time
	DueAt      time.Time
	ReturnedAt *time.Time
	Status     LoanStatus
	RenewCount int
	WasLate    bool
	CreatedBy  *uint // Set when an admin opened the loan on behalf of a patron
}

// Policy is the singleton configuration governing lending
type Policy struct {
	MaxLoansPerStudent int
	DefaultLoanDays    int
	FinePerDay         float64
	AllowRenewals      bool
	MaxRenewals        int
	UpdatedAt          time.Time
}

// TokenPair represents access and refresh tokens
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}
