package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"liblend/internal/adapters/persistence/models"
	"liblend/internal/adapters/persistence/repositories"
	"liblend/internal/core/domain"
	"liblend/internal/core/services"
	"liblend/internal/pkg/response"
)

// LoanHandler handles borrow, return and renew endpoints
type LoanHandler struct {
	lendingService *services.LendingService
	loanRepo       *repositories.LoanRepository
}

// NewLoanHandler creates a new loan handler
func NewLoanHandler(lendingService *services.LendingService, loanRepo *repositories.LoanRepository) *LoanHandler {
	return &LoanHandler{
		lendingService: lendingService,
		loanRepo:       loanRepo,
	}
}

// BorrowRequest represents borrow request body
type BorrowRequest struct {
	BookID uint `json:"book_id"`
}

// Borrow checks out a copy for the current user
// @Summary Borrow a book
// @Description Check out one copy of a book for the authenticated student
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body BorrowRequest true "Book to borrow"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Failure 503 {object} response.Response
// @Router /loans/borrow [post]
func (h *LoanHandler) Borrow(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req BorrowRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.BookID == 0 {
		return response.BadRequest(c, "Book ID is required")
	}

	result, err := h.lendingService.Borrow(c.Context(), userID, req.BookID, nil)
	if err != nil {
		return mapLendingError(c, err)
	}

	return response.Created(c, "Book borrowed successfully", result)
}

// Return closes the caller's own loan
// @Summary Return a book
// @Description Return a borrowed copy and free it up for others
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /loans/{id}/return [post]
func (h *LoanHandler) Return(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	loanID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid loan ID")
	}

	result, err := h.lendingService.Return(c.Context(), loanID, userID, false)
	if err != nil {
		return mapLendingError(c, err)
	}

	return response.Success(c, "Book returned successfully", result)
}

// Renew extends the caller's own loan
// @Summary Renew a loan
// @Description Extend the due date of an open loan if policy allows
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /loans/{id}/renew [post]
func (h *LoanHandler) Renew(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	loanID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid loan ID")
	}

	result, err := h.lendingService.Renew(c.Context(), loanID, userID)
	if err != nil {
		return mapLendingError(c, err)
	}

	return response.Success(c, "Loan renewed successfully", result)
}

// MyLoans lists the caller's loans
// @Summary List my loans
// @Description List all loans belonging to the authenticated student
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /loans/me [get]
func (h *LoanHandler) MyLoans(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	loans, err := h.loanRepo.ListByUser(c.Context(), userID)
	if err != nil {
		return response.InternalServerError(c, "Failed to list loans")
	}

	responses := make([]*models.LoanResponse, 0, len(loans))
	for _, loan := range loans {
		responses = append(responses, loan.ToResponse())
	}
	return response.Success(c, "Loans retrieved successfully", responses)
}

// mapLendingError translates lending domain errors into API responses
// with their stable error codes.
func mapLendingError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return response.Unauthorized(c, "Authentication required")
	case errors.Is(err, domain.ErrNotOwner), errors.Is(err, domain.ErrForbidden):
		return response.Forbidden(c, "You don't have permission for this loan")
	case errors.Is(err, domain.ErrBookNotFound):
		return response.NotFound(c, "Book not found")
	case errors.Is(err, domain.ErrLoanNotFound):
		return response.NotFound(c, "Loan not found")
	case errors.Is(err, domain.ErrBookInactive):
		return response.Fail(c, fiber.StatusConflict, response.CodeInactive, "Book is not available for lending")
	case errors.Is(err, domain.ErrNotAvailable):
		return response.Fail(c, fiber.StatusConflict, response.CodeNotAvailable, "No copies available")
	case errors.Is(err, domain.ErrLimitReached):
		return response.Fail(c, fiber.StatusConflict, response.CodeLimitReached, "Borrow limit reached")
	case errors.Is(err, domain.ErrDuplicateLoan):
		return response.Fail(c, fiber.StatusConflict, response.CodeDuplicateLoan, "You already have this book on loan")
	case errors.Is(err, domain.ErrAlreadyReturned):
		return response.Fail(c, fiber.StatusConflict, response.CodeAlreadyReturned, "Loan has already been returned")
	case errors.Is(err, domain.ErrRenewalDenied):
		return response.Fail(c, fiber.StatusConflict, response.CodeRenewalDenied, "Renewal is not allowed for this loan")
	case errors.Is(err, domain.ErrBelowBorrowed):
		return response.Fail(c, fiber.StatusConflict, response.CodeBelowBorrowed, "Total copies cannot go below the borrowed count")
	case errors.Is(err, domain.ErrValidation):
		return response.BadRequest(c, "Invalid input")
	case errors.Is(err, domain.ErrConsistencyFault):
		return response.Fail(c, fiber.StatusInternalServerError, response.CodeConsistencyFault, "Inventory state is inconsistent, please contact support")
	case errors.Is(err, domain.ErrUnavailable):
		return response.ServiceUnavailable(c, "Service is busy, please try again")
	default:
		return response.InternalServerError(c, "Operation failed")
	}
}
