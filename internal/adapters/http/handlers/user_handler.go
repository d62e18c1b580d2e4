package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"liblend/internal/core/domain"
	"liblend/internal/core/services"
	"liblend/internal/pkg/response"
)

// UserHandler handles profile endpoints
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// UpdateProfile edits the caller's own profile
// @Summary Update profile
// @Description Update the authenticated user's own profile
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.UpdateProfileInput true "Fields to update"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /users/me [put]
func (h *UserHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var input services.UpdateProfileInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	user, err := h.userService.UpdateProfile(c.Context(), userID, &input)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return response.NotFound(c, "User not found")
		}
		return response.InternalServerError(c, "Failed to update profile")
	}

	return response.Success(c, "Profile updated successfully", user.ToResponse())
}

// ListDepartments lists all departments
// @Summary List departments
// @Description List all departments for registration and profiles
// @Tags Users
// @Produce json
// @Success 200 {object} response.Response
// @Router /departments [get]
func (h *UserHandler) ListDepartments(c *fiber.Ctx) error {
	departments, err := h.userService.ListDepartments(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to list departments")
	}
	return response.Success(c, "Departments retrieved successfully", departments)
}
