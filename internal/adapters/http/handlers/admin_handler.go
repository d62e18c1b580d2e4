package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"liblend/internal/adapters/persistence/models"
	"liblend/internal/adapters/persistence/repositories"
	"liblend/internal/core/domain"
	"liblend/internal/core/services"
	"liblend/internal/pkg/pagination"
	"liblend/internal/pkg/response"
)

// AdminHandler handles admin-only endpoints
type AdminHandler struct {
	catalogService  *services.CatalogService
	lendingService  *services.LendingService
	settingsService *services.SettingsService
	statsService    *services.StatsService
	userService     *services.UserService
	auditService    *services.AuditService
	overdueService  *services.OverdueService
	loanRepo        *repositories.LoanRepository
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(
	catalogService *services.CatalogService,
	lendingService *services.LendingService,
	settingsService *services.SettingsService,
	statsService *services.StatsService,
	userService *services.UserService,
	auditService *services.AuditService,
	overdueService *services.OverdueService,
	loanRepo *repositories.LoanRepository,
) *AdminHandler {
	return &AdminHandler{
		catalogService:  catalogService,
		lendingService:  lendingService,
		settingsService: settingsService,
		statsService:    statsService,
		userService:     userService,
		auditService:    auditService,
		overdueService:  overdueService,
		loanRepo:        loanRepo,
	}
}

// adminID extracts the authenticated admin's user ID
func adminID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals("userID").(uint)
	return id, ok
}

// ============================================================
// Catalog management
// ============================================================

// CreateBook creates a catalog entry
// @Summary Create book
// @Description Add a new title to the catalog
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.CreateBookInput true "Book data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /admin/books [post]
func (h *AdminHandler) CreateBook(c *fiber.Ctx) error {
	id, ok := adminID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var input services.CreateBookInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	book, err := h.catalogService.Create(c.Context(), &input, id)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrDuplicateCode):
			return response.Conflict(c, response.CodeValidationError, "A book with this code already exists")
		case errors.Is(err, domain.ErrValidation):
			return response.BadRequest(c, "Code and title are required")
		default:
			return mapLendingError(c, err)
		}
	}

	return response.Created(c, "Book created successfully", book)
}

// UpdateBook edits a catalog entry
// @Summary Update book
// @Description Edit catalog metadata or adjust total copies
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Param body body services.UpdateBookInput true "Fields to update"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /admin/books/{id} [put]
func (h *AdminHandler) UpdateBook(c *fiber.Ctx) error {
	id, ok := adminID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	bookID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid book ID")
	}

	var input services.UpdateBookInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	book, err := h.catalogService.Update(c.Context(), bookID, &input, id)
	if err != nil {
		return mapLendingError(c, err)
	}

	return response.Success(c, "Book updated successfully", book)
}

// DeleteBook removes a catalog entry
// @Summary Delete book
// @Description Remove a title that has no open loans
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /admin/books/{id} [delete]
func (h *AdminHandler) DeleteBook(c *fiber.Ctx) error {
	id, ok := adminID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	bookID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid book ID")
	}

	if err := h.catalogService.Delete(c.Context(), bookID, id); err != nil {
		if errors.Is(err, services.ErrBookHasLoans) {
			return response.Conflict(c, response.CodeValidationError, "Book still has open loans")
		}
		return mapLendingError(c, err)
	}

	return response.Success(c, "Book deleted successfully", nil)
}

// BulkUpsertRequest represents bulk upload request body
type BulkUpsertRequest struct {
	Rows []services.BulkUpsertRow `json:"rows"`
}

// BulkUpsertBooks inserts or updates catalog rows in bulk
// @Summary Bulk upload books
// @Description Insert or update catalog entries in bulk
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body BulkUpsertRequest true "Catalog rows"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /admin/books/bulk [post]
func (h *AdminHandler) BulkUpsertBooks(c *fiber.Ctx) error {
	id, ok := adminID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req BulkUpsertRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if len(req.Rows) == 0 {
		return response.BadRequest(c, "No rows to upload")
	}

	result, err := h.catalogService.BulkUpsert(c.Context(), req.Rows, id)
	if err != nil {
		return mapLendingError(c, err)
	}

	return response.Success(c, "Bulk upload completed", result)
}

// AdjustTotalRequest represents a total-copies adjustment body
type AdjustTotalRequest struct {
	TotalCopies int `json:"total_copies"`
}

// AdjustBookTotal changes a book's total copy count
// @Summary Adjust total copies
// @Description Change a book's total copies, keeping the availability invariant
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Param body body AdjustTotalRequest true "New total"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /admin/books/{id}/total [patch]
func (h *AdminHandler) AdjustBookTotal(c *fiber.Ctx) error {
	id, ok := adminID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	bookID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid book ID")
	}

	var req AdjustTotalRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.lendingService.AdjustCatalogTotal(c.Context(), bookID, req.TotalCopies, id); err != nil {
		return mapLendingError(c, err)
	}

	return response.Success(c, "Total copies adjusted successfully", nil)
}

// ============================================================
// Loan management
// ============================================================

// ListLoans lists loans with optional status filter
// @Summary List loans
// @Description List all loans, optionally filtered by status
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "Loan status (BORROWED, OVERDUE, RETURNED)"
// @Success 200 {object} response.Response
// @Router /admin/loans [get]
func (h *AdminHandler) ListLoans(c *fiber.Ctx) error {
	params := pagination.GetParams(c)
	status := c.Query("status")
	if status != "" && !domain.LoanStatus(status).Valid() {
		return response.BadRequest(c, "Invalid loan status")
	}

	loans, total, err := h.loanRepo.List(c.Context(), status, params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list loans")
	}

	responses := make([]*models.LoanResponse, 0, len(loans))
	for _, loan := range loans {
		responses = append(responses, loan.ToResponse())
	}
	return response.Success(c, "Loans retrieved successfully", pagination.NewResponse(responses, params, total))
}

// OverrideReturn force-returns a loan on the patron's behalf
// @Summary Override return
// @Description Force-return a loan on behalf of the patron
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /admin/loans/{id}/return [post]
func (h *AdminHandler) OverrideReturn(c *fiber.Ctx) error {
	id, ok := adminID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	loanID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid loan ID")
	}

	result, err := h.lendingService.Return(c.Context(), loanID, id, true)
	if err != nil {
		return mapLendingError(c, err)
	}

	return response.Success(c, "Loan returned successfully", result)
}

// ExtendDueDateRequest represents a due date extension body
type ExtendDueDateRequest struct {
	DueAt time.Time `json:"due_at"`
}

// ExtendDueDate pushes a loan's due date forward
// @Summary Extend due date
// @Description Set a new future due date on an open loan
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Param body body ExtendDueDateRequest true "New due date"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /admin/loans/{id}/extend [post]
func (h *AdminHandler) ExtendDueDate(c *fiber.Ctx) error {
	id, ok := adminID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	loanID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid loan ID")
	}

	var req ExtendDueDateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.lendingService.ExtendDueDate(c.Context(), loanID, req.DueAt, id); err != nil {
		return mapLendingError(c, err)
	}

	return response.Success(c, "Due date extended successfully", nil)
}

// RunOverdueSweep triggers an overdue sweep immediately
// @Summary Run overdue sweep
// @Description Mark all past-due open loans as overdue
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /admin/loans/sweep [post]
func (h *AdminHandler) RunOverdueSweep(c *fiber.Ctx) error {
	marked, err := h.overdueService.Sweep(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Overdue sweep failed")
	}

	return response.Success(c, "Overdue sweep completed", fiber.Map{
		"marked": marked,
	})
}

// ============================================================
// Policy, stats, students, audit
// ============================================================

// GetSettings returns the lending policy
// @Summary Get settings
// @Description Get the current lending policy
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /admin/settings [get]
func (h *AdminHandler) GetSettings(c *fiber.Ctx) error {
	setting, err := h.settingsService.Get(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to get settings")
	}
	return response.Success(c, "Settings retrieved successfully", setting)
}

// UpdateSettings edits the lending policy
// @Summary Update settings
// @Description Update lending policy fields
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.UpdateSettingsInput true "Policy fields"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /admin/settings [put]
func (h *AdminHandler) UpdateSettings(c *fiber.Ctx) error {
	id, ok := adminID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var input services.UpdateSettingsInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	setting, err := h.settingsService.Update(c.Context(), &input, id)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return response.BadRequest(c, "Invalid policy values")
		}
		return mapLendingError(c, err)
	}

	return response.Success(c, "Settings updated successfully", setting)
}

// GetStats returns library-wide statistics
// @Summary Get statistics
// @Description Get a consistent snapshot of library-wide counters
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /admin/stats [get]
func (h *AdminHandler) GetStats(c *fiber.Ctx) error {
	snap, err := h.statsService.Snapshot(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to get statistics")
	}
	return response.Success(c, "Statistics retrieved successfully", snap)
}

// ListStudents lists accounts
// @Summary List students
// @Description List accounts with optional search
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param search query string false "Search by name, email or registration number"
// @Success 200 {object} response.Response
// @Router /admin/students [get]
func (h *AdminHandler) ListStudents(c *fiber.Ctx) error {
	id, ok := adminID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	params := pagination.GetParams(c)
	result, err := h.userService.List(c.Context(), c.Query("search"), params, id)
	if err != nil {
		return mapLendingError(c, err)
	}

	return response.Success(c, "Students retrieved successfully", result)
}

// UpdateStudent edits an account
// @Summary Update student
// @Description Edit an account, including role and activation
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param body body services.UpdateStudentInput true "Fields to update"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /admin/students/{id} [put]
func (h *AdminHandler) UpdateStudent(c *fiber.Ctx) error {
	id, ok := adminID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	userID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}

	var input services.UpdateStudentInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	user, err := h.userService.UpdateStudent(c.Context(), userID, &input, id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			return response.NotFound(c, "User not found")
		case errors.Is(err, domain.ErrDuplicateRegNumber):
			return response.Conflict(c, response.CodeValidationError, "Registration number already in use")
		case errors.Is(err, domain.ErrLastAdmin):
			return response.Conflict(c, response.CodeValidationError, "Cannot demote or deactivate the last admin")
		default:
			return mapLendingError(c, err)
		}
	}

	return response.Success(c, "Student updated successfully", user.ToResponse())
}

// ListAuditLogs lists audit log entries
// @Summary List audit logs
// @Description List admin audit entries, optionally filtered by action
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param action query string false "Filter by action"
// @Success 200 {object} response.Response
// @Router /admin/audit-logs [get]
func (h *AdminHandler) ListAuditLogs(c *fiber.Ctx) error {
	params := pagination.GetParams(c)
	result, err := h.auditService.List(c.Context(), c.Query("action"), params)
	if err != nil {
		return response.InternalServerError(c, "Failed to list audit logs")
	}

	return response.Success(c, "Audit logs retrieved successfully", result)
}
