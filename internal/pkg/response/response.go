package response

import "github.com/gofiber/fiber/v2"

// Error codes surfaced to API consumers. Stable: clients switch on the
// code, the message is for humans only.
const (
	CodeUnauthenticated  = "UNAUTHENTICATED"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeNotFound         = "NOT_FOUND"
	CodeNotAvailable     = "NOT_AVAILABLE"
	CodeInactive         = "INACTIVE"
	CodeLimitReached     = "LIMIT_REACHED"
	CodeDuplicateLoan    = "DUPLICATE_LOAN"
	CodeAlreadyReturned  = "ALREADY_RETURNED"
	CodeRenewalDenied    = "RENEWAL_DENIED"
	CodeBelowBorrowed    = "BELOW_BORROWED"
	CodeValidationError  = "VALIDATION_ERROR"
	CodeConsistencyFault = "CONSISTENCY_FAULT"
	CodeUnavailable      = "UNAVAILABLE"
	CodeInternal         = "INTERNAL"
)

// Response represents a standard API response
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Code    string      `json:"code,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Success sends a success response
func Success(c *fiber.Ctx, message string, data interface{}) error {
	return c.JSON(Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Created sends a 201 created response
func Created(c *fiber.Ctx, message string, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Fail sends an error response with a stable error code
func Fail(c *fiber.Ctx, statusCode int, code, message string) error {
	return c.Status(statusCode).JSON(Response{
		Success: false,
		Code:    code,
		Error:   message,
	})
}

// BadRequest sends a 400 validation error response
func BadRequest(c *fiber.Ctx, message string) error {
	return Fail(c, fiber.StatusBadRequest, CodeValidationError, message)
}

// Unauthorized sends a 401 unauthenticated response
func Unauthorized(c *fiber.Ctx, message string) error {
	return Fail(c, fiber.StatusUnauthorized, CodeUnauthenticated, message)
}

// Forbidden sends a 403 forbidden response
func Forbidden(c *fiber.Ctx, message string) error {
	return Fail(c, fiber.StatusForbidden, CodeUnauthorized, message)
}

// NotFound sends a 404 not found response
func NotFound(c *fiber.Ctx, message string) error {
	return Fail(c, fiber.StatusNotFound, CodeNotFound, message)
}

// Conflict sends a 409 conflict response with the given code
func Conflict(c *fiber.Ctx, code, message string) error {
	return Fail(c, fiber.StatusConflict, code, message)
}

// ServiceUnavailable sends a 503 response for storage contention
func ServiceUnavailable(c *fiber.Ctx, message string) error {
	return Fail(c, fiber.StatusServiceUnavailable, CodeUnavailable, message)
}

// InternalServerError sends a 500 internal server error response
func InternalServerError(c *fiber.Ctx, message string) error {
	return Fail(c, fiber.StatusInternalServerError, CodeInternal, message)
}
