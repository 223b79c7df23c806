package services

import (
	"unicode/utf8"

	"rentals_backend/internal/models"
	"rentals_backend/internal/repositories"
	"rentals_backend/internal/services/dto"
	"rentals_backend/pkg/apperrors"

	"gorm.io/gorm"
)

const (
	previewLength      = 100
	defaultThreadLimit = 50
)

type MessageService interface {
	SendMessage(db *gorm.DB, senderID string, req *dto.SendMessageRequest) (*dto.ChatMessageResponse, error)
	GetConversations(db *gorm.DB, userID string) ([]*dto.ConversationPreview, error)
	GetThread(db *gorm.DB, userID, otherUserID string, page *dto.Pagination) (*dto.ConversationThread, error)
	MarkAsRead(db *gorm.DB, userID, messageID string) error
	MarkThreadAsRead(db *gorm.DB, userID, otherUserID string) (int64, error)
	DeleteMessage(db *gorm.DB, userID, messageID string) error
	GetUnreadCount(db *gorm.DB, userID string) (int64, error)
}

type messageService struct {
	messageRepo   repositories.MessageRepository
	userRepo      repositories.UserRepository
	apartmentRepo repositories.ApartmentRepository
	notifications NotificationService
	clock         Clock
}

func NewMessageService(
	messageRepo repositories.MessageRepository,
	userRepo repositories.UserRepository,
	apartmentRepo repositories.ApartmentRepository,
	notifications NotificationService,
	clock Clock,
) MessageService {
	return &messageService{
		messageRepo:   messageRepo,
		userRepo:      userRepo,
		apartmentRepo: apartmentRepo,
		notifications: notifications,
		clock:         clock,
	}
}

// SendMessage - уведомления создаются в той же транзакции, что и сообщение
func (s *messageService) SendMessage(db *gorm.DB, senderID string, req *dto.SendMessageRequest) (*dto.ChatMessageResponse, error) {
	if req.ReceiverID == senderID {
		return nil, apperrors.ErrMessageToSelf
	}

	tx := db.Begin()
	if tx.Error != nil {
		return nil, apperrors.InternalError(tx.Error)
	}
	defer tx.Rollback()

	users, err := s.userRepo.FindByIDs(tx, []string{senderID, req.ReceiverID})
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	sender, ok := users[senderID]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	receiver, ok := users[req.ReceiverID]
	if !ok {
		return nil, apperrors.ErrReceiverNotFound
	}

	var apartment *models.Apartment
	if req.ApartmentID != nil && *req.ApartmentID != "" {
		apartment, err = s.apartmentRepo.FindByID(tx, *req.ApartmentID)
		if err != nil {
			return nil, handleApartmentError(err)
		}
	}

	message := &models.Message{
		SenderID:   sender.ID,
		ReceiverID: receiver.ID,
		Content:    req.Content,
	}
	if apartment != nil {
		message.ApartmentID = &apartment.ID
	}
	if err := s.messageRepo.Create(tx, message); err != nil {
		return nil, handleMessageError(err)
	}

	if err := s.notifications.NotifyNewMessage(tx, receiver.ID, sender.FullName(), message.ID, sender.ID); err != nil {
		return nil, err
	}
	if apartment != nil && apartment.RenterID == receiver.ID {
		if err := s.notifications.NotifyApartmentInquiry(tx, receiver.ID, apartment.Title, apartment.ID, sender.FullName()); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	resp := newChatMessageResponse(message)
	resp.SenderName = sender.FullName()
	resp.ReceiverName = receiver.FullName()
	return resp, nil
}

// GetConversations - по одному превью на собеседника, свежие сверху
func (s *messageService) GetConversations(db *gorm.DB, userID string) ([]*dto.ConversationPreview, error) {
	rows, err := s.messageRepo.FindConversations(db, userID)
	if err != nil {
		return nil, handleMessageError(err)
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.OtherUserID)
	}
	users, err := s.userRepo.FindByIDs(db, ids)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	unread, err := s.messageRepo.CountUnreadBySender(db, userID)
	if err != nil {
		return nil, handleMessageError(err)
	}

	previews := make([]*dto.ConversationPreview, 0, len(rows))
	for _, row := range rows {
		name := "Unknown user"
		if u, ok := users[row.OtherUserID]; ok {
			name = u.FullName()
		}
		previews = append(previews, &dto.ConversationPreview{
			UserID:          row.OtherUserID,
			UserName:        name,
			LastMessage:     truncate(row.LastMessage.Content, previewLength),
			LastMessageTime: row.LastMessage.CreatedAt,
			UnreadCount:     unread[row.OtherUserID],
		})
	}
	return previews, nil
}

func (s *messageService) GetThread(db *gorm.DB, userID, otherUserID string, page *dto.Pagination) (*dto.ConversationThread, error) {
	skip, limit := normalizePage(page.Skip, page.Limit, defaultThreadLimit)

	users, err := s.userRepo.FindByIDs(db, []string{userID, otherUserID})
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	other, ok := users[otherUserID]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}

	messages, total, err := s.messageRepo.FindThread(db, userID, otherUserID, skip, limit)
	if err != nil {
		return nil, handleMessageError(err)
	}

	items := make([]*dto.ChatMessageResponse, 0, len(messages))
	for i := range messages {
		resp := newChatMessageResponse(&messages[i])
		if u, ok := users[messages[i].SenderID]; ok {
			resp.SenderName = u.FullName()
		}
		if u, ok := users[messages[i].ReceiverID]; ok {
			resp.ReceiverName = u.FullName()
		}
		items = append(items, resp)
	}

	return &dto.ConversationThread{
		OtherUserID:   other.ID,
		OtherUserName: other.FullName(),
		Messages:      items,
		TotalMessages: total,
	}, nil
}

// MarkAsRead - только получатель
func (s *messageService) MarkAsRead(db *gorm.DB, userID, messageID string) error {
	return handleMessageError(s.messageRepo.MarkAsRead(db, messageID, userID, s.clock.now()))
}

func (s *messageService) MarkThreadAsRead(db *gorm.DB, userID, otherUserID string) (int64, error) {
	updated, err := s.messageRepo.MarkThreadAsRead(db, userID, otherUserID, s.clock.now())
	if err != nil {
		return 0, handleMessageError(err)
	}
	return updated, nil
}

// DeleteMessage - отправитель или получатель; иначе сообщение "не найдено"
func (s *messageService) DeleteMessage(db *gorm.DB, userID, messageID string) error {
	message, err := s.messageRepo.FindByID(db, messageID)
	if err != nil {
		return handleMessageError(err)
	}
	if message.SenderID != userID && message.ReceiverID != userID {
		return apperrors.ErrMessageNotFound
	}
	return handleMessageError(s.messageRepo.Delete(db, messageID))
}

func (s *messageService) GetUnreadCount(db *gorm.DB, userID string) (int64, error) {
	count, err := s.messageRepo.CountUnread(db, userID)
	if err != nil {
		return 0, handleMessageError(err)
	}
	return count, nil
}

func newChatMessageResponse(m *models.Message) *dto.ChatMessageResponse {
	return &dto.ChatMessageResponse{
		ID:          m.ID,
		SenderID:    m.SenderID,
		ReceiverID:  m.ReceiverID,
		ApartmentID: m.ApartmentID,
		Content:     m.Content,
		IsRead:      m.IsRead,
		ReadAt:      m.ReadAt,
		CreatedAt:   m.CreatedAt,
	}
}

// truncate обрезает по рунам, а не по байтам
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}
