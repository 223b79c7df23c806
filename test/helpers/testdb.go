package helpers

import (
	"encoding/json"
	"net/http"
	"testing"

	"rentals_backend/internal/auth"
	"rentals_backend/internal/models"
	"rentals_backend/internal/services/dto"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const DefaultPassword = "Str0ng!Pass"

// NewTestDB - sqlite в памяти со всеми таблицами.
// Одно соединение: иначе каждое соединение видит свою пустую БД.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err, "failed to open test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(models.All()...), "failed to migrate test database")
	return db
}

// CreateUser создает активного пользователя с паролем DefaultPassword
func CreateUser(t *testing.T, db *gorm.DB, email string, role models.UserRole) *models.User {
	t.Helper()
	hash, err := auth.HashPassword(DefaultPassword)
	require.NoError(t, err)

	user := &models.User{
		FirstName:    "Test",
		LastName:     "User",
		Email:        email,
		PasswordHash: hash,
		Location:     "Sydney",
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, db.Create(user).Error, "failed to create user %s", email)
	return user
}

// CreateAndLoginUser создает пользователя и логинится через API, возвращает access token
func CreateAndLoginUser(t *testing.T, ts *TestServer, email string, role models.UserRole) (string, *models.User) {
	t.Helper()
	user := CreateUser(t, ts.DB, email, role)

	res, body := ts.SendRequest(t, http.MethodPost, "/api/v1/auth/login", "", map[string]interface{}{
		"email":    email,
		"password": DefaultPassword,
	})
	require.Equal(t, http.StatusOK, res.StatusCode, "login must succeed: %s", body)

	var resp dto.AuthResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken, user
}
