package dto

import "time"

type SendMessageRequest struct {
	ReceiverID  string  `json:"receiver_id" validate:"required"`
	Content     string  `json:"content" validate:"required,min=1,max=5000"`
	ApartmentID *string `json:"apartment_id"`
}

type ChatMessageResponse struct {
	ID           string     `json:"id"`
	SenderID     string     `json:"sender_id"`
	ReceiverID   string     `json:"receiver_id"`
	ApartmentID  *string    `json:"apartment_id"`
	Content      string     `json:"content"`
	IsRead       bool       `json:"is_read"`
	ReadAt       *time.Time `json:"read_at"`
	CreatedAt    time.Time  `json:"created_at"`
	SenderName   string     `json:"sender_name,omitempty"`
	ReceiverName string     `json:"receiver_name,omitempty"`
}

// ConversationPreview - последний обмен с собеседником
type ConversationPreview struct {
	UserID          string    `json:"user_id"`
	UserName        string    `json:"user_name"`
	LastMessage     string    `json:"last_message"`
	LastMessageTime time.Time `json:"last_message_time"`
	UnreadCount     int64     `json:"unread_count"`
}

type ConversationThread struct {
	OtherUserID   string                 `json:"other_user_id"`
	OtherUserName string                 `json:"other_user_name"`
	Messages      []*ChatMessageResponse `json:"messages"`
	TotalMessages int64                  `json:"total_messages"`
}
