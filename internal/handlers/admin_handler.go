package handlers

import (
	"net/http"

	"rentals_backend/internal/middleware"
	"rentals_backend/internal/models"
	"rentals_backend/internal/services"
	"rentals_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	*BaseHandler
	userService      services.UserService
	apartmentService services.ApartmentService
	searchService    services.SearchService
}

func NewAdminHandler(
	base *BaseHandler,
	userService services.UserService,
	apartmentService services.ApartmentService,
	searchService services.SearchService,
) *AdminHandler {
	return &AdminHandler{
		BaseHandler:      base,
		userService:      userService,
		apartmentService: apartmentService,
		searchService:    searchService,
	}
}

func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup) {
	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(), middleware.RequireRoles(models.UserRoleAdmin))
	{
		admin.GET("/users", h.ListUsers)
		admin.DELETE("/users/:id", h.DeleteUser)
		admin.GET("/stats", h.GetStats)
		admin.POST("/apartments/expire-featured", h.ExpireFeatured)
		admin.POST("/search/reindex", h.Reindex)
	}
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	var page dto.Pagination
	if !h.BindAndValidate_Query(c, &page) {
		return
	}

	response, err := h.userService.ListUsers(h.GetDB(c), &page)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *AdminHandler) DeleteUser(c *gin.Context) {
	actor, ok := h.GetAndAuthorizeActor(c)
	if !ok {
		return
	}
	userID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.userService.DeleteUser(h.GetDB(c), actor, userID); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) GetStats(c *gin.Context) {
	stats, err := h.userService.GetPlatformStats(h.GetDB(c))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ExpireFeatured - ручной запуск того же прохода, что выполняет воркер
func (h *AdminHandler) ExpireFeatured(c *gin.Context) {
	expired, err := h.apartmentService.ExpireFeatured(h.GetDB(c))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ExpireFeaturedResponse{Expired: expired})
}

func (h *AdminHandler) Reindex(c *gin.Context) {
	response, err := h.searchService.Reindex(h.GetDB(c))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}
