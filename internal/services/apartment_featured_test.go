package services

import (
	"testing"
	"time"

	"rentals_backend/internal/models"
	"rentals_backend/internal/repositories"
	"rentals_backend/internal/services/dto"
	"rentals_backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestFeature_SetsWindowAndPriority(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner@test.com", models.UserRoleRenter)
	apartment := env.createApartment(t, owner, nil)

	resp, err := env.services.ApartmentService.Feature(env.db, actorOf(owner), apartment.ID, &dto.FeatureRequest{
		DurationDays: 7,
		Priority:     3,
	})
	require.NoError(t, err)

	assert.True(t, resp.IsFeatured)
	assert.Equal(t, 3, resp.FeaturedPriority)
	require.NotNil(t, resp.FeaturedUntil)
	assert.True(t, resp.FeaturedUntil.Equal(testNow.Add(7*24*time.Hour)))

	stored := env.reload(t, apartment.ID)
	assert.True(t, stored.IsFeatured)
	assert.Equal(t, 3, stored.FeaturedPriority)
}

func TestFeature_RejectsOutOfRangeParams(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner@test.com", models.UserRoleRenter)
	apartment := env.createApartment(t, owner, nil)

	for _, req := range []dto.FeatureRequest{
		{DurationDays: 0, Priority: 5},
		{DurationDays: 91, Priority: 5},
		{DurationDays: 10, Priority: 0},
		{DurationDays: 10, Priority: 11},
	} {
		req := req
		_, err := env.services.ApartmentService.Feature(env.db, actorOf(owner), apartment.ID, &req)
		assert.ErrorIs(t, err, apperrors.ErrInvalidFeatureParams, "duration=%d priority=%d", req.DurationDays, req.Priority)
	}

	for _, req := range []dto.FeatureRequest{
		{DurationDays: 1, Priority: 1},
		{DurationDays: 90, Priority: 10},
	} {
		req := req
		_, err := env.services.ApartmentService.Feature(env.db, actorOf(owner), apartment.ID, &req)
		assert.NoError(t, err)
	}
}

func TestFeature_ForbiddenForStranger(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner@test.com", models.UserRoleRenter)
	stranger := env.createUser(t, "stranger@test.com", models.UserRoleRenter)
	apartment := env.createApartment(t, owner, nil)

	_, err := env.services.ApartmentService.Feature(env.db, actorOf(stranger), apartment.ID, &dto.FeatureRequest{
		DurationDays: 7,
		Priority:     3,
	})
	assert.ErrorIs(t, err, apperrors.ErrApartmentForbidden)
	assert.False(t, env.reload(t, apartment.ID).IsFeatured)
}

func TestUnfeature_CanonicalForm(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner@test.com", models.UserRoleRenter)
	until := testNow.Add(72 * time.Hour)
	apartment := env.createApartment(t, owner, func(a *models.Apartment) {
		a.IsFeatured = true
		a.FeaturedPriority = 9
		a.FeaturedUntil = &until
	})

	resp, err := env.services.ApartmentService.Unfeature(env.db, actorOf(owner), apartment.ID)
	require.NoError(t, err)
	assert.False(t, resp.IsFeatured)
	assert.Zero(t, resp.FeaturedPriority)
	assert.Nil(t, resp.FeaturedUntil)

	stored := env.reload(t, apartment.ID)
	assert.False(t, stored.IsFeatured)
	assert.Zero(t, stored.FeaturedPriority)
	assert.Nil(t, stored.FeaturedUntil)
}

func TestGetFeatured_FiltersAndOrders(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner@test.com", models.UserRoleRenter)
	future := testNow.Add(24 * time.Hour)
	past := testNow.Add(-time.Hour)

	featured := func(priority int, until *time.Time, created time.Time, extra func(a *models.Apartment)) *models.Apartment {
		return env.createApartment(t, owner, func(a *models.Apartment) {
			a.Status = models.ApartmentStatusPublished
			a.IsFeatured = true
			a.FeaturedPriority = priority
			a.FeaturedUntil = until
			a.CreatedAt = created
			if extra != nil {
				extra(a)
			}
		})
	}

	low := featured(2, &future, testNow.Add(-5*time.Hour), nil)
	highOld := featured(8, &future, testNow.Add(-4*time.Hour), nil)
	highNew := featured(8, nil, testNow.Add(-3*time.Hour), nil)
	featured(9, &past, testNow.Add(-2*time.Hour), nil)
	featured(9, &future, testNow, func(a *models.Apartment) { a.Status = models.ApartmentStatusDraft })
	featured(9, &future, testNow, func(a *models.Apartment) { a.IsActive = false })
	env.createApartment(t, owner, func(a *models.Apartment) { a.Status = models.ApartmentStatusPublished })

	resp, err := env.services.ApartmentService.GetFeatured(env.db, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{highNew.ID, highOld.ID, low.ID}, apartmentIDs(resp))

	limited, err := env.services.ApartmentService.GetFeatured(env.db, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{highNew.ID}, apartmentIDs(limited))
}

func TestExpireFeatured_IdempotentAndKeepsUntil(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner@test.com", models.UserRoleRenter)
	past := testNow.Add(-time.Hour)
	future := testNow.Add(time.Hour)

	expired := env.createApartment(t, owner, func(a *models.Apartment) {
		a.Status = models.ApartmentStatusPublished
		a.IsFeatured = true
		a.FeaturedPriority = 4
		a.FeaturedUntil = &past
	})
	active := env.createApartment(t, owner, func(a *models.Apartment) {
		a.Status = models.ApartmentStatusPublished
		a.IsFeatured = true
		a.FeaturedPriority = 4
		a.FeaturedUntil = &future
	})
	open := env.createApartment(t, owner, func(a *models.Apartment) {
		a.Status = models.ApartmentStatusPublished
		a.IsFeatured = true
		a.FeaturedPriority = 4
	})

	count, err := env.services.ApartmentService.ExpireFeatured(env.db)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	stored := env.reload(t, expired.ID)
	assert.False(t, stored.IsFeatured)
	assert.Zero(t, stored.FeaturedPriority)
	require.NotNil(t, stored.FeaturedUntil)
	assert.True(t, stored.FeaturedUntil.Equal(past))

	assert.True(t, env.reload(t, active.ID).IsFeatured)
	assert.True(t, env.reload(t, open.ID).IsFeatured)

	rows := env.outboxRows(t, expired.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, models.OutboxOperationUpsert, rows[0].Operation)

	notifications, err := env.services.NotificationService.GetUserNotifications(env.db, owner.ID, &dto.NotificationListQuery{})
	require.NoError(t, err)
	require.Len(t, notifications.Notifications, 1)
	assert.Equal(t, models.NotificationTypeFeaturedExpired, notifications.Notifications[0].Type)
	require.NotNil(t, notifications.Notifications[0].RelatedID)
	assert.Equal(t, expired.ID, *notifications.Notifications[0].RelatedID)

	again, err := env.services.ApartmentService.ExpireFeatured(env.db)
	require.NoError(t, err)
	assert.Zero(t, again)
	assert.Len(t, env.outboxRows(t, expired.ID), 1)

	// срок второго объявления истекает позже
	env.clock.Advance(2 * time.Hour)
	count, err = env.services.ApartmentService.ExpireFeatured(env.db)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
	assert.False(t, env.reload(t, active.ID).IsFeatured)
	assert.True(t, env.reload(t, open.ID).IsFeatured)
}

// overlappingSweepRepo - перед своим UPDATE выполняет конкурирующий проход,
// как если бы другой воркер успел снять те же строки раньше
type overlappingSweepRepo struct {
	repositories.ApartmentRepository
}

func (r overlappingSweepRepo) ExpireFeatured(db *gorm.DB, now time.Time) ([]models.Apartment, error) {
	if _, err := r.ApartmentRepository.ExpireFeatured(db, now); err != nil {
		return nil, err
	}
	return r.ApartmentRepository.ExpireFeatured(db, now)
}

func TestExpireFeatured_OverlappingSweepHasNoSideEffects(t *testing.T) {
	env := newTestEnv(t)
	env.repos.Apartment = overlappingSweepRepo{env.repos.Apartment}
	env.rebuild()

	owner := env.createUser(t, "owner@test.com", models.UserRoleRenter)
	past := testNow.Add(-time.Hour)
	apartment := env.createApartment(t, owner, func(a *models.Apartment) {
		a.IsFeatured = true
		a.FeaturedPriority = 4
		a.FeaturedUntil = &past
	})

	count, err := env.services.ApartmentService.ExpireFeatured(env.db)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.False(t, env.reload(t, apartment.ID).IsFeatured)

	assert.Empty(t, env.outboxRows(t, apartment.ID))
	unread, err := env.services.NotificationService.GetUnreadCount(env.db, owner.ID)
	require.NoError(t, err)
	assert.Zero(t, unread)
}
