package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"liblend/internal/core/domain"
)

// ============================================================
// Auth & User Tables
// ============================================================

// User represents users table (patrons + admins)
type User struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	RegisteredNumber string         `gorm:"uniqueIndex;size:20;not null" json:"registered_number"`
	FullName         string         `gorm:"size:100;not null" json:"full_name"`
	Email            string         `gorm:"uniqueIndex;size:100;not null" json:"email"`
	Password         string         `gorm:"size:255;not null" json:"-"`
	Role             string         `gorm:"size:20;default:'STUDENT'" json:"role"`
	DepartmentID     *uint          `gorm:"index" json:"department_id"`
	IsActive         bool           `gorm:"default:true" json:"is_active"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`

	Department *Department `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsAdmin() bool {
	return u.Role == string(domain.RoleAdmin)
}

// UserResponse DTO
type UserResponse struct {
	ID               uint      `json:"id"`
	RegisteredNumber string    `json:"registered_number"`
	FullName         string    `json:"full_name"`
	Email            string    `json:"email"`
	Role             string    `json:"role"`
	DepartmentID     *uint     `json:"department_id"`
	DepartmentName   string    `json:"department_name,omitempty"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
}

func (u *User) ToResponse() *UserResponse {
	resp := &UserResponse{
		ID:               u.ID,
		RegisteredNumber: u.RegisteredNumber,
		FullName:         u.FullName,
		Email:            u.Email,
		Role:             u.Role,
		DepartmentID:     u.DepartmentID,
		IsActive:         u.IsActive,
		CreatedAt:        u.CreatedAt,
	}
	if u.Department != nil {
		resp.DepartmentName = u.Department.Name
	}
	return resp
}

// Department represents departments table
type Department struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Department) TableName() string {
	return "departments"
}

// RefreshToken represents refresh_tokens table
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	TokenHash string     `gorm:"size:255;not null;index" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	RevokedAt *time.Time `gorm:"index" json:"revoked_at"`
	User      User       `gorm:"foreignKey:UserID" json:"-"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

func (rt *RefreshToken) IsExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}

// ============================================================
// Catalog & Lending Tables
// ============================================================

// Book represents books table. AvailableCopies must always equal
// TotalCopies minus the number of open loans on the book.
type Book struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Code            string    `gorm:"uniqueIndex;size:50;not null" json:"code"`
	Title           string    `gorm:"size:255;not null" json:"title"`
	Author          string    `gorm:"size:255" json:"author"`
	Category        string    `gorm:"size:100;index" json:"category"`
	ImageURL        string    `gorm:"size:500" json:"image_url"`
	TotalCopies     int       `gorm:"not null;default:1" json:"total_copies"`
	AvailableCopies int       `gorm:"not null;default:1" json:"available_copies"`
	IsActive        bool      `gorm:"default:true" json:"is_active"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Book) TableName() string {
	return "books"
}

// BorrowedCopies returns the number of copies currently out on loan.
func (b *Book) BorrowedCopies() int {
	return b.TotalCopies - b.AvailableCopies
}

// Loan represents loans table. At most one open (non-RETURNED) loan may
// exist per (user, book) pair: the coordinator enforces this inside the
// borrow transaction, and the unique index over OpenFlag enforces it at
// the storage layer.
type Loan struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"index;not null;uniqueIndex:uq_loans_open_user_book,priority:1" json:"user_id"`
	BookID     uint       `gorm:"index;not null;uniqueIndex:uq_loans_open_user_book,priority:2" json:"book_id"`
	BorrowedAt time.Time  `gorm:"not null" json:"borrowed_at"`
	DueAt      time.Time  `gorm:"index;not null" json:"due_at"`
	ReturnedAt *time.Time `json:"returned_at"`
	Status     string     `gorm:"size:20;not null;default:'BORROWED';index:idx_loans_status_due" json:"status"`
	RenewCount int        `gorm:"not null;default:0" json:"renew_count"`
	WasLate    bool       `gorm:"default:false" json:"was_late"`
	CreatedBy  *uint      `json:"created_by"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	// OpenFlag is 1 while the loan is open and NULL once RETURNED, so
	// the unique index only ever collides on open loans.
	OpenFlag *uint8 `gorm:"->;type:tinyint GENERATED ALWAYS AS (CASE WHEN status <> 'RETURNED' THEN 1 END) STORED;uniqueIndex:uq_loans_open_user_book,priority:3" json:"-"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Book *Book `gorm:"foreignKey:BookID" json:"book,omitempty"`
}

func (Loan) TableName() string {
	return "loans"
}

// IsReturned reports whether the loan reached its terminal state.
func (l *Loan) IsReturned() bool {
	return l.Status == string(domain.LoanReturned)
}

// IsOpen reports whether the loan still holds a copy.
func (l *Loan) IsOpen() bool {
	return domain.LoanStatus(l.Status).IsOpen()
}

// LoanResponse DTO
type LoanResponse struct {
	ID         uint       `json:"id"`
	UserID     uint       `json:"user_id"`
	UserName   string     `json:"user_name,omitempty"`
	BookID     uint       `json:"book_id"`
	BookTitle  string     `json:"book_title,omitempty"`
	BookCode   string     `json:"book_code,omitempty"`
	BorrowedAt time.Time  `json:"borrowed_at"`
	DueAt      time.Time  `json:"due_at"`
	ReturnedAt *time.Time `json:"returned_at"`
	Status     string     `json:"status"`
	RenewCount int        `json:"renew_count"`
	WasLate    bool       `json:"was_late"`
}

func (l *Loan) ToResponse() *LoanResponse {
	resp := &LoanResponse{
		ID:         l.ID,
		UserID:     l.UserID,
		BookID:     l.BookID,
		BorrowedAt: l.BorrowedAt,
		DueAt:      l.DueAt,
		ReturnedAt: l.ReturnedAt,
		Status:     l.Status,
		RenewCount: l.RenewCount,
		WasLate:    l.WasLate,
	}
	if l.User != nil {
		resp.UserName = l.User.FullName
	}
	if l.Book != nil {
		resp.BookTitle = l.Book.Title
		resp.BookCode = l.Book.Code
	}
	return resp
}

// ============================================================
// Policy & Audit Tables
// ============================================================

// SettingsID is the primary key of the single policy row.
const SettingsID = 1

// Setting represents the settings table (single row, id = 1)
type Setting struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	MaxLoansPerStudent int       `gorm:"not null;default:3" json:"max_loans_per_student"`
	DefaultLoanDays    int       `gorm:"not null;default:14" json:"default_loan_days"`
	FinePerDay         float64   `gorm:"type:decimal(8,2);not null;default:0" json:"fine_per_day"`
	AllowRenewals      bool      `gorm:"default:true" json:"allow_renewals"`
	MaxRenewals        int       `gorm:"not null;default:1" json:"max_renewals"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Setting) TableName() string {
	return "settings"
}

// AuditLog represents admin_audit_logs table. Append-only: rows are
// never updated or deleted by the application.
type AuditLog struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	AdminID   uint           `gorm:"index;not null" json:"admin_id"`
	Action    string         `gorm:"size:50;not null;index" json:"action"`
	Metadata  datatypes.JSON `gorm:"type:json" json:"metadata"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`

	Admin *User `gorm:"foreignKey:AdminID" json:"admin,omitempty"`
}

func (AuditLog) TableName() string {
	return "admin_audit_logs"
}

// Audit actions
const (
	AuditBookCreate      = "BOOK_CREATE"
	AuditBookUpdate      = "BOOK_UPDATE"
	AuditBookDelete      = "BOOK_DELETE"
	AuditBookAdjustTotal = "BOOK_ADJUST_TOTAL"
	AuditBulkUpload      = "BULK_UPLOAD"
	AuditSettingsUpdate  = "SETTINGS_UPDATE"
	AuditStudentUpdate   = "STUDENT_UPDATE"
	AuditLoanExtend      = "LOAN_EXTEND"
	AuditLoanOverride    = "LOAN_OVERRIDE_RETURN"
)

// ============================================================
// Auto Migration
// ============================================================

// AutoMigrate runs auto migration for all tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Department{},
		&User{},
		&RefreshToken{},
		&Book{},
		&Loan{},
		&Setting{},
		&AuditLog{},
	)
}
