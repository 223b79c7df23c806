package handlers

import (
	"net/http"

	"rentals_backend/internal/auth"
	"rentals_backend/internal/middleware"
	"rentals_backend/internal/models"
	"rentals_backend/internal/services"
	"rentals_backend/internal/services/dto"
	"rentals_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	imagesFormField      = "images"
	defaultFeaturedLimit = 10
)

type ApartmentHandler struct {
	*BaseHandler
	apartmentService services.ApartmentService
}

func NewApartmentHandler(base *BaseHandler, apartmentService services.ApartmentService) *ApartmentHandler {
	return &ApartmentHandler{
		BaseHandler:      base,
		apartmentService: apartmentService,
	}
}

func (h *ApartmentHandler) RegisterRoutes(r *gin.RouterGroup) {
	// Публичные
	public := r.Group("/apartments")
	public.Use(middleware.OptionalAuthMiddleware())
	{
		public.GET("", h.ListPublished)
		public.GET("/featured", h.GetFeatured)
		public.GET("/:id", h.GetApartment)
		public.POST("/:id/view", h.RecordView)
	}

	// Арендодатель или администратор
	renter := r.Group("")
	renter.Use(middleware.AuthMiddleware(), middleware.RequireRoles(models.UserRoleRenter, models.UserRoleAdmin))
	{
		renter.GET("/my-apartments", h.ListMine)
		renter.POST("/apartments", h.CreateApartment)
		renter.POST("/apartments/bulk", h.BulkApply)
		renter.PUT("/apartments/:id", h.UpdateApartment)
		renter.DELETE("/apartments/:id", h.DeleteApartment)
		renter.POST("/apartments/:id/publish", h.Publish)
		renter.POST("/apartments/:id/archive", h.Archive)
		renter.POST("/apartments/:id/feature", h.Feature)
		renter.DELETE("/apartments/:id/feature", h.Unfeature)
		renter.POST("/apartments/:id/duplicate", h.Duplicate)
	}
}

// --- Public ---

func (h *ApartmentHandler) ListPublished(c *gin.Context) {
	var query dto.ListApartmentsQuery
	if !h.BindAndValidate_Query(c, &query) {
		return
	}

	response, err := h.apartmentService.ListPublished(h.GetDB(c), &query)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *ApartmentHandler) GetFeatured(c *gin.Context) {
	limit := ParseQueryInt(c, "limit", defaultFeaturedLimit)
	if limit <= 0 || limit > 100 {
		limit = defaultFeaturedLimit
	}

	apartments, err := h.apartmentService.GetFeatured(h.GetDB(c), limit)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"apartments": apartments, "total": len(apartments)})
}

func (h *ApartmentHandler) GetApartment(c *gin.Context) {
	apartmentID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	apartment, err := h.apartmentService.GetApartment(h.GetDB(c), apartmentID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, apartment)
}

func (h *ApartmentHandler) RecordView(c *gin.Context) {
	apartmentID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	apartment, err := h.apartmentService.RecordView(h.GetDB(c), apartmentID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":             apartment.ID,
		"view_count":     apartment.ViewCount,
		"last_viewed_at": apartment.LastViewedAt,
	})
}

// --- Owner ---

func (h *ApartmentHandler) ListMine(c *gin.Context) {
	actor, ok := h.GetAndAuthorizeActor(c)
	if !ok {
		return
	}

	var page dto.Pagination
	if !h.BindAndValidate_Query(c, &page) {
		return
	}

	response, err := h.apartmentService.ListMine(h.GetDB(c), actor, &page)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// CreateApartment принимает JSON со ссылками на изображения или multipart с файлами
func (h *ApartmentHandler) CreateApartment(c *gin.Context) {
	actor, ok := h.GetAndAuthorizeActor(c)
	if !ok {
		return
	}

	var req dto.CreateApartmentRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	if c.ContentType() == gin.MIMEMultipartPOSTForm {
		form, err := c.MultipartForm()
		if err != nil {
			h.HandleServiceError(c, apperrors.NewBadRequestError("Invalid multipart form: "+err.Error()))
			return
		}
		req.Files = form.File[imagesFormField]
		req.Keywords = dto.NormalizeKeywords(req.Keywords)
	}

	apartment, err := h.apartmentService.CreateApartment(h.GetDB(c), actor, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, apartment)
}

func (h *ApartmentHandler) UpdateApartment(c *gin.Context) {
	actor, ok := h.GetAndAuthorizeActor(c)
	if !ok {
		return
	}
	apartmentID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateApartmentRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	apartment, err := h.apartmentService.UpdateApartment(h.GetDB(c), actor, apartmentID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, apartment)
}

func (h *ApartmentHandler) DeleteApartment(c *gin.Context) {
	actor, ok := h.GetAndAuthorizeActor(c)
	if !ok {
		return
	}
	apartmentID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.apartmentService.DeleteApartment(h.GetDB(c), actor, apartmentID); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// --- Lifecycle ---

func (h *ApartmentHandler) Publish(c *gin.Context) {
	h.transition(c, h.apartmentService.Publish)
}

func (h *ApartmentHandler) Archive(c *gin.Context) {
	h.transition(c, h.apartmentService.Archive)
}

func (h *ApartmentHandler) Unfeature(c *gin.Context) {
	h.transition(c, h.apartmentService.Unfeature)
}

type transitionFunc func(db *gorm.DB, actor auth.Actor, apartmentID string) (*dto.ApartmentResponse, error)

func (h *ApartmentHandler) transition(c *gin.Context, apply transitionFunc) {
	actor, ok := h.GetAndAuthorizeActor(c)
	if !ok {
		return
	}
	apartmentID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	apartment, err := apply(h.GetDB(c), actor, apartmentID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, apartment)
}

func (h *ApartmentHandler) Feature(c *gin.Context) {
	actor, ok := h.GetAndAuthorizeActor(c)
	if !ok {
		return
	}
	apartmentID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.FeatureRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	apartment, err := h.apartmentService.Feature(h.GetDB(c), actor, apartmentID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, apartment)
}

// Duplicate - тело необязательно; new_owner_id доступен только администратору
func (h *ApartmentHandler) Duplicate(c *gin.Context) {
	actor, ok := h.GetAndAuthorizeActor(c)
	if !ok {
		return
	}
	apartmentID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.DuplicateRequest
	if c.Request.ContentLength > 0 && !h.BindAndValidate_JSON(c, &req) {
		return
	}

	apartment, err := h.apartmentService.Duplicate(h.GetDB(c), actor, apartmentID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, apartment)
}

func (h *ApartmentHandler) BulkApply(c *gin.Context) {
	actor, ok := h.GetAndAuthorizeActor(c)
	if !ok {
		return
	}

	var req dto.BulkOperationRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	response, err := h.apartmentService.BulkApply(h.GetDB(c), actor, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}
