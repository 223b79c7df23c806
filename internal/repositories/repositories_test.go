package repositories

import (
	"testing"
	"time"

	"rentals_backend/internal/models"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

// newMockDB - gorm поверх sqlmock с postgres-диалектом, для проверки формы запросов
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return db, mock
}

func seedApartment(t *testing.T, db *gorm.DB, mutate func(a *models.Apartment)) *models.Apartment {
	t.Helper()
	apartment := &models.Apartment{
		RenterID:      uuid.NewString(),
		Title:         "Room in Glebe",
		Description:   "Quiet street",
		Location:      "Glebe, Sydney",
		ApartmentType: "room",
		RentPerWeek:   300,
		StartDate:     time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		Images:        []string{"1.jpg", "2.jpg", "3.jpg", "4.jpg"},
		Status:        models.ApartmentStatusPublished,
		IsActive:      true,
	}
	if mutate != nil {
		mutate(apartment)
	}
	require.NoError(t, NewApartmentRepository().Create(db, apartment))
	return apartment
}
