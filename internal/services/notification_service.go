package services

import (
	"encoding/json"
	"fmt"

	"rentals_backend/internal/models"
	"rentals_backend/internal/repositories"
	"rentals_backend/internal/services/dto"
	"rentals_backend/pkg/apperrors"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type NotificationService interface {
	GetUserNotifications(db *gorm.DB, userID string, query *dto.NotificationListQuery) (*dto.NotificationListResponse, error)
	GetNotification(db *gorm.DB, userID, notificationID string) (*dto.NotificationResponse, error)
	GetUnreadCount(db *gorm.DB, userID string) (int64, error)
	MarkAsRead(db *gorm.DB, userID, notificationID string) error
	MarkMultipleAsRead(db *gorm.DB, userID string, notificationIDs []string) (int64, error)
	MarkAllAsRead(db *gorm.DB, userID string) (int64, error)
	DeleteNotification(db *gorm.DB, userID, notificationID string) error
	DeleteAllNotifications(db *gorm.DB, userID string) (int64, error)

	// Фабрики; клиент не создает уведомления напрямую
	NotifyNewMessage(db *gorm.DB, recipientID, senderName, messageID, senderID string) error
	NotifyApartmentInquiry(db *gorm.DB, ownerID, apartmentTitle, apartmentID, inquirerName string) error
	NotifyFeaturedExpired(db *gorm.DB, ownerID, apartmentTitle, apartmentID string) error
}

type notificationService struct {
	notificationRepo repositories.NotificationRepository
	clock            Clock
}

func NewNotificationService(notificationRepo repositories.NotificationRepository, clock Clock) NotificationService {
	return &notificationService{notificationRepo: notificationRepo, clock: clock}
}

func (s *notificationService) GetUserNotifications(db *gorm.DB, userID string, query *dto.NotificationListQuery) (*dto.NotificationListResponse, error) {
	skip, limit := normalizePage(query.Skip, query.Limit, 50)

	notifications, total, err := s.notificationRepo.FindUserNotifications(db, userID, repositories.NotificationCriteria{
		UnreadOnly: query.UnreadOnly,
		Skip:       skip,
		Limit:      limit,
	})
	if err != nil {
		return nil, handleNotificationError(err)
	}

	unread, err := s.notificationRepo.GetUnreadCount(db, userID)
	if err != nil {
		return nil, handleNotificationError(err)
	}

	items := make([]*dto.NotificationResponse, 0, len(notifications))
	for i := range notifications {
		items = append(items, dto.NewNotificationResponse(&notifications[i]))
	}
	return &dto.NotificationListResponse{Notifications: items, Total: total, UnreadCount: unread}, nil
}

// GetNotification - чужое уведомление выглядит как отсутствующее
func (s *notificationService) GetNotification(db *gorm.DB, userID, notificationID string) (*dto.NotificationResponse, error) {
	notification, err := s.notificationRepo.FindByID(db, notificationID)
	if err != nil {
		return nil, handleNotificationError(err)
	}
	if notification.UserID != userID {
		return nil, apperrors.ErrNotificationNotFound
	}
	return dto.NewNotificationResponse(notification), nil
}

func (s *notificationService) GetUnreadCount(db *gorm.DB, userID string) (int64, error) {
	count, err := s.notificationRepo.GetUnreadCount(db, userID)
	if err != nil {
		return 0, handleNotificationError(err)
	}
	return count, nil
}

func (s *notificationService) MarkAsRead(db *gorm.DB, userID, notificationID string) error {
	return handleNotificationError(s.notificationRepo.MarkAsRead(db, notificationID, userID, s.clock.now()))
}

func (s *notificationService) MarkMultipleAsRead(db *gorm.DB, userID string, notificationIDs []string) (int64, error) {
	updated, err := s.notificationRepo.MarkMultipleAsRead(db, notificationIDs, userID, s.clock.now())
	if err != nil {
		return 0, handleNotificationError(err)
	}
	return updated, nil
}

func (s *notificationService) MarkAllAsRead(db *gorm.DB, userID string) (int64, error) {
	updated, err := s.notificationRepo.MarkAllAsRead(db, userID, s.clock.now())
	if err != nil {
		return 0, handleNotificationError(err)
	}
	return updated, nil
}

func (s *notificationService) DeleteNotification(db *gorm.DB, userID, notificationID string) error {
	return handleNotificationError(s.notificationRepo.Delete(db, notificationID, userID))
}

func (s *notificationService) DeleteAllNotifications(db *gorm.DB, userID string) (int64, error) {
	deleted, err := s.notificationRepo.DeleteUserNotifications(db, userID)
	if err != nil {
		return 0, handleNotificationError(err)
	}
	return deleted, nil
}

// ---------------- Фабрики ----------------

func (s *notificationService) NotifyNewMessage(db *gorm.DB, recipientID, senderName, messageID, senderID string) error {
	return s.create(db, &models.Notification{
		UserID:    recipientID,
		Type:      models.NotificationTypeNewMessage,
		Title:     "New message",
		Message:   fmt.Sprintf("You have a new message from %s", senderName),
		RelatedID: &messageID,
	}, map[string]string{"sender_id": senderID, "message_id": messageID})
}

func (s *notificationService) NotifyApartmentInquiry(db *gorm.DB, ownerID, apartmentTitle, apartmentID, inquirerName string) error {
	return s.create(db, &models.Notification{
		UserID:    ownerID,
		Type:      models.NotificationTypeApartmentInquiry,
		Title:     "New inquiry",
		Message:   fmt.Sprintf("%s is interested in your apartment \"%s\"", inquirerName, apartmentTitle),
		RelatedID: &apartmentID,
	}, map[string]string{"apartment_id": apartmentID})
}

func (s *notificationService) NotifyFeaturedExpired(db *gorm.DB, ownerID, apartmentTitle, apartmentID string) error {
	return s.create(db, &models.Notification{
		UserID:    ownerID,
		Type:      models.NotificationTypeFeaturedExpired,
		Title:     "Featured listing expired",
		Message:   fmt.Sprintf("Your apartment \"%s\" is no longer featured", apartmentTitle),
		RelatedID: &apartmentID,
	}, map[string]string{"apartment_id": apartmentID})
}

func (s *notificationService) create(db *gorm.DB, notification *models.Notification, data map[string]string) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return apperrors.InternalError(err)
	}
	notification.Data = datatypes.JSON(raw)
	return handleNotificationError(s.notificationRepo.Create(db, notification))
}
