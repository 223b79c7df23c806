package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"rentals_backend/internal/events"
	"rentals_backend/internal/models"
	"rentals_backend/internal/repositories"
	"rentals_backend/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
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

// stubApartments - ApartmentService, в котором реализован только ExpireFeatured
type stubApartments struct {
	services.ApartmentService
	calls   int
	expired int64
	err     error
}

func (s *stubApartments) ExpireFeatured(db *gorm.DB) (int64, error) {
	s.calls++
	return s.expired, s.err
}

type stubAuth struct {
	services.AuthService
	reset, refresh int64
	err            error
}

func (s *stubAuth) CleanupExpiredResetTokens(db *gorm.DB) (int64, error) {
	return s.reset, s.err
}

func (s *stubAuth) CleanupExpiredRefreshTokens(db *gorm.DB) (int64, error) {
	return s.refresh, nil
}

func TestOutboxRelay_PublishesInOrder(t *testing.T) {
	db := newTestDB(t)
	repo := repositories.NewOutboxRepository()
	require.NoError(t, repo.Add(db, "a1", models.OutboxOperationUpsert))
	require.NoError(t, repo.Add(db, "a2", models.OutboxOperationDelete))

	var got []events.ApartmentChanged
	publisher := events.NewInProcessPublisher(func(ctx context.Context, evt events.ApartmentChanged) error {
		got = append(got, evt)
		return nil
	})
	relay := NewOutboxRelay(db, repo, publisher, 10, time.Second)

	n, err := relay.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, got, 2)
	assert.Equal(t, "a1", got[0].ApartmentID)
	assert.Equal(t, models.OutboxOperationDelete, got[1].Operation)

	pending, err := repo.CountPending(db)
	require.NoError(t, err)
	assert.Zero(t, pending)

	n, err = relay.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOutboxRelay_FailureIsRetried(t *testing.T) {
	db := newTestDB(t)
	repo := repositories.NewOutboxRepository()
	require.NoError(t, repo.Add(db, "bad", models.OutboxOperationUpsert))
	require.NoError(t, repo.Add(db, "good", models.OutboxOperationUpsert))

	failing := true
	publisher := events.NewInProcessPublisher(func(ctx context.Context, evt events.ApartmentChanged) error {
		if evt.ApartmentID == "bad" && failing {
			return errors.New("index unavailable")
		}
		return nil
	})
	relay := NewOutboxRelay(db, repo, publisher, 10, time.Second)

	n, err := relay.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var row models.SearchOutbox
	require.NoError(t, db.Where("apartment_id = ?", "bad").First(&row).Error)
	assert.Equal(t, 1, row.Attempts)
	assert.Equal(t, "index unavailable", row.LastError)
	assert.Nil(t, row.ProcessedAt)

	failing = false
	n, err = relay.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestFeaturedWorker_RunOnce(t *testing.T) {
	apartments := &stubApartments{expired: 3}
	worker := NewFeaturedWorker(newTestDB(t), apartments, 0)
	assert.Equal(t, time.Hour, worker.interval)

	n, err := worker.RunOnce(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	apartments.err = errors.New("db gone")
	_, err = worker.RunOnce(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 2, apartments.calls)
}

func TestCleanupWorker_RunOnce(t *testing.T) {
	db := newTestDB(t)
	repo := repositories.NewOutboxRepository()
	require.NoError(t, repo.AddMany(db, []string{"old", "recent"}, models.OutboxOperationUpsert))
	rows, err := repo.FetchPending(db, 10)
	require.NoError(t, err)
	require.NoError(t, repo.MarkProcessed(db, []uint64{rows[0].ID}, time.Now().Add(-8*24*time.Hour)))
	require.NoError(t, repo.MarkProcessed(db, []uint64{rows[1].ID}, time.Now()))

	worker := NewCleanupWorker(db, &stubAuth{reset: 2, refresh: 5, err: errors.New("partial")}, repo, 0)
	result := worker.RunOnce(context.Background())

	assert.Equal(t, &CleanupResult{ResetTokens: 2, RefreshTokens: 5, OutboxRows: 1}, result)
}
