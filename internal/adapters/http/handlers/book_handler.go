package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"liblend/internal/core/domain"
	"liblend/internal/core/services"
	"liblend/internal/pkg/pagination"
	"liblend/internal/pkg/response"
)

// BookHandler handles catalog browse endpoints
type BookHandler struct {
	catalogService *services.CatalogService
}

// NewBookHandler creates a new book handler
func NewBookHandler(catalogService *services.CatalogService) *BookHandler {
	return &BookHandler{catalogService: catalogService}
}

// List lists catalog entries
// @Summary List books
// @Description List catalog entries with optional search and category filter
// @Tags Books
// @Produce json
// @Param search query string false "Search by title, author or code"
// @Param category query string false "Filter by category"
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Router /books [get]
func (h *BookHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)
	search := c.Query("search")
	category := c.Query("category")

	// Only admins may see inactive titles
	role, _ := c.Locals("role").(string)
	includeInactive := role == string(domain.RoleAdmin) && c.QueryBool("include_inactive")

	result, err := h.catalogService.List(c.Context(), search, category, includeInactive, params)
	if err != nil {
		return response.InternalServerError(c, "Failed to list books")
	}

	return response.Success(c, "Books retrieved successfully", result)
}

// Get returns one catalog entry
// @Summary Get book
// @Description Get a single catalog entry by ID
// @Tags Books
// @Produce json
// @Param id path int true "Book ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /books/{id} [get]
func (h *BookHandler) Get(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid book ID")
	}

	book, err := h.catalogService.GetByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrBookNotFound) {
			return response.NotFound(c, "Book not found")
		}
		return response.InternalServerError(c, "Failed to get book")
	}

	return response.Success(c, "Book retrieved successfully", book)
}

// Categories lists distinct catalog categories
// @Summary List categories
// @Description List the distinct catalog categories
// @Tags Books
// @Produce json
// @Success 200 {object} response.Response
// @Router /books/categories [get]
func (h *BookHandler) Categories(c *fiber.Ctx) error {
	categories, err := h.catalogService.Categories(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to list categories")
	}
	return response.Success(c, "Categories retrieved successfully", categories)
}

// parseIDParam parses a positive integer path parameter
func parseIDParam(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.Atoi(c.Params(name))
	if err != nil || id < 1 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}
