package auth

import "rentals_backend/internal/models"

// Actor - кто выполняет операцию
type Actor struct {
	UserID string
	Role   models.UserRole
}

func NewActor(userID, role string) Actor {
	return Actor{UserID: userID, Role: models.UserRole(role)}
}

// IsAdmin проверяет является ли пользователь администратором
func (a Actor) IsAdmin() bool {
	return a.Role == models.UserRoleAdmin
}

// CanModify - владелец или администратор
func (a Actor) CanModify(ownerID string) bool {
	return a.UserID == ownerID || a.IsAdmin()
}

// CanCreateListings - только арендодатели и администраторы публикуют объявления
func (a Actor) CanCreateListings() bool {
	return a.Role == models.UserRoleRenter || a.Role == models.UserRoleAdmin
}
