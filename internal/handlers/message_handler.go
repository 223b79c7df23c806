package handlers

import (
	"net/http"

	"rentals_backend/internal/middleware"
	"rentals_backend/internal/services"
	"rentals_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	*BaseHandler
	messageService services.MessageService
}

func NewMessageHandler(base *BaseHandler, messageService services.MessageService) *MessageHandler {
	return &MessageHandler{
		BaseHandler:    base,
		messageService: messageService,
	}
}

func (h *MessageHandler) RegisterRoutes(r *gin.RouterGroup) {
	messages := r.Group("/messages")
	messages.Use(middleware.AuthMiddleware())
	{
		messages.POST("/send", h.SendMessage)
		messages.GET("/conversations", h.GetConversations)
		messages.GET("/unread-count", h.GetUnreadCount)
		messages.GET("/thread/:userId", h.GetThread)
		messages.PUT("/thread/:userId/read", h.MarkThreadAsRead)
		messages.PUT("/:id/read", h.MarkAsRead)
		messages.DELETE("/:id", h.DeleteMessage)
	}
}

func (h *MessageHandler) SendMessage(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.SendMessageRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	message, err := h.messageService.SendMessage(h.GetDB(c), userID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, message)
}

func (h *MessageHandler) GetConversations(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	conversations, err := h.messageService.GetConversations(h.GetDB(c), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversations": conversations, "total": len(conversations)})
}

func (h *MessageHandler) GetThread(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	otherUserID, ok := h.ParseIDParam(c, "userId")
	if !ok {
		return
	}

	var page dto.Pagination
	if !h.BindAndValidate_Query(c, &page) {
		return
	}

	thread, err := h.messageService.GetThread(h.GetDB(c), userID, otherUserID, &page)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, thread)
}

func (h *MessageHandler) MarkAsRead(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	messageID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.messageService.MarkAsRead(h.GetDB(c), userID, messageID); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Message marked as read"})
}

func (h *MessageHandler) MarkThreadAsRead(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	otherUserID, ok := h.ParseIDParam(c, "userId")
	if !ok {
		return
	}

	updated, err := h.messageService.MarkThreadAsRead(h.GetDB(c), userID, otherUserID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	messageID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.messageService.DeleteMessage(h.GetDB(c), userID, messageID); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *MessageHandler) GetUnreadCount(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	count, err := h.messageService.GetUnreadCount(h.GetDB(c), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}
