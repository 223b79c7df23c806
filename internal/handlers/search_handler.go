package handlers

import (
	"net/http"

	"rentals_backend/internal/services"
	"rentals_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type SearchHandler struct {
	*BaseHandler
	searchService services.SearchService
}

func NewSearchHandler(base *BaseHandler, searchService services.SearchService) *SearchHandler {
	return &SearchHandler{
		BaseHandler:   base,
		searchService: searchService,
	}
}

// RegisterRoutes - поиск публичный
func (h *SearchHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/search/apartments", h.SearchApartments)
	r.GET("/search/suggestions", h.Suggestions)
	r.POST("/filter/apartments", h.FilterApartments)
	r.GET("/autocomplete", h.Autocomplete)
}

func (h *SearchHandler) SearchApartments(c *gin.Context) {
	var query dto.SearchQuery
	if !h.BindAndValidate_Query(c, &query) {
		return
	}

	response, err := h.searchService.Search(c.Request.Context(), &query)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *SearchHandler) FilterApartments(c *gin.Context) {
	var req dto.FilterRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	response, err := h.searchService.Filter(c.Request.Context(), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *SearchHandler) Suggestions(c *gin.Context) {
	var query dto.SuggestionsQuery
	if !h.BindAndValidate_Query(c, &query) {
		return
	}

	c.JSON(http.StatusOK, h.searchService.Suggestions(c.Request.Context(), &query))
}

func (h *SearchHandler) Autocomplete(c *gin.Context) {
	var query dto.AutocompleteQuery
	if !h.BindAndValidate_Query(c, &query) {
		return
	}

	c.JSON(http.StatusOK, h.searchService.Autocomplete(c.Request.Context(), &query))
}
