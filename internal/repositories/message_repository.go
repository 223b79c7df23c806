package repositories

import (
	"errors"
	"time"

	"rentals_backend/internal/models"

	"gorm.io/gorm"
)

var ErrMessageNotFound = errors.New("message not found")

type MessageRepository interface {
	Create(db *gorm.DB, message *models.Message) error
	FindByID(db *gorm.DB, id string) (*models.Message, error)
	// FindThread - переписка двух пользователей по возрастанию времени
	FindThread(db *gorm.DB, userID, otherUserID string, skip, limit int) ([]models.Message, int64, error)
	// FindConversations - последнее сообщение с каждым собеседником, свежие первыми
	FindConversations(db *gorm.DB, userID string) ([]ConversationRow, error)
	MarkAsRead(db *gorm.DB, messageID, receiverID string, now time.Time) error
	MarkThreadAsRead(db *gorm.DB, receiverID, senderID string, now time.Time) (int64, error)
	Delete(db *gorm.DB, id string) error
	DeleteByUserID(db *gorm.DB, userID string) error
	CountUnread(db *gorm.DB, userID string) (int64, error)
	CountUnreadBySender(db *gorm.DB, userID string) (map[string]int64, error)
}

// ConversationRow - последнее сообщение в диалоге с собеседником
type ConversationRow struct {
	OtherUserID string
	LastMessage models.Message
}

type messageRepository struct{}

func NewMessageRepository() MessageRepository {
	return &messageRepository{}
}

func (r *messageRepository) Create(db *gorm.DB, message *models.Message) error {
	return db.Create(message).Error
}

func (r *messageRepository) FindByID(db *gorm.DB, id string) (*models.Message, error) {
	var message models.Message
	if err := db.Where("id = ?", id).First(&message).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	return &message, nil
}

func (r *messageRepository) FindThread(db *gorm.DB, userID, otherUserID string, skip, limit int) ([]models.Message, int64, error) {
	var messages []models.Message
	var total int64

	query := db.Model(&models.Message{}).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userID, otherUserID, otherUserID, userID).
		Session(&gorm.Session{})

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("created_at ASC").Offset(skip).Limit(limit).Find(&messages).Error
	return messages, total, err
}

func (r *messageRepository) FindConversations(db *gorm.DB, userID string) ([]ConversationRow, error) {
	var messages []models.Message
	err := db.Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Order("created_at DESC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	// Сообщения уже отсортированы, первое для каждого собеседника - последнее по времени
	seen := make(map[string]bool)
	var rows []ConversationRow
	for _, m := range messages {
		other := m.ReceiverID
		if m.ReceiverID == userID {
			other = m.SenderID
		}
		if seen[other] {
			continue
		}
		seen[other] = true
		rows = append(rows, ConversationRow{OtherUserID: other, LastMessage: m})
	}
	return rows, nil
}

func (r *messageRepository) MarkAsRead(db *gorm.DB, messageID, receiverID string, now time.Time) error {
	result := db.Model(&models.Message{}).
		Where("id = ? AND receiver_id = ?", messageID, receiverID).
		Updates(map[string]interface{}{"is_read": true, "read_at": now})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMessageNotFound
	}
	return nil
}

func (r *messageRepository) MarkThreadAsRead(db *gorm.DB, receiverID, senderID string, now time.Time) (int64, error) {
	result := db.Model(&models.Message{}).
		Where("receiver_id = ? AND sender_id = ? AND is_read = ?", receiverID, senderID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": now})
	return result.RowsAffected, result.Error
}

func (r *messageRepository) Delete(db *gorm.DB, id string) error {
	result := db.Where("id = ?", id).Delete(&models.Message{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMessageNotFound
	}
	return nil
}

func (r *messageRepository) DeleteByUserID(db *gorm.DB, userID string) error {
	return db.Where("sender_id = ? OR receiver_id = ?", userID, userID).Delete(&models.Message{}).Error
}

func (r *messageRepository) CountUnread(db *gorm.DB, userID string) (int64, error) {
	var count int64
	err := db.Model(&models.Message{}).
		Where("receiver_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

func (r *messageRepository) CountUnreadBySender(db *gorm.DB, userID string) (map[string]int64, error) {
	type row struct {
		SenderID string
		Count    int64
	}
	var rows []row
	err := db.Model(&models.Message{}).
		Select("sender_id, COUNT(*) AS count").
		Where("receiver_id = ? AND is_read = ?", userID, false).
		Group("sender_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make(map[string]int64, len(rows))
	for _, rw := range rows {
		result[rw.SenderID] = rw.Count
	}
	return result, nil
}
