package services

import (
	"testing"
	"time"

	"rentals_backend/internal/models"
	"rentals_backend/internal/services/dto"
	"rentals_backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCreateRequest() *dto.CreateApartmentRequest {
	return &dto.CreateApartmentRequest{
		Title:         "Room in Surry Hills",
		Description:   "Large double room",
		Location:      "Surry Hills, Sydney",
		ApartmentType: "room",
		RentPerWeek:   420,
		StartDate:     "2026-05-01",
		DurationLen:   intPtr(24),
		Keywords:      dto.KeywordList{"pets", "balcony"},
		Images: []string{
			"https://cdn.example.com/a.jpg",
			"https://cdn.example.com/b.jpg",
			"https://cdn.example.com/c.jpg",
			"https://cdn.example.com/d.jpg",
		},
	}
}

func countApartments(t *testing.T, env *testEnv) int64 {
	t.Helper()
	var count int64
	require.NoError(t, env.db.Model(&models.Apartment{}).Count(&count).Error)
	return count
}

func TestCreateApartment_StartsAsDraft(t *testing.T) {
	env := newTestEnv(t)
	renter := env.createUser(t, "renter@test.com", models.UserRoleRenter)

	resp, err := env.services.ApartmentService.CreateApartment(env.db, actorOf(renter), validCreateRequest())
	require.NoError(t, err)

	assert.Equal(t, models.ApartmentStatusDraft, resp.Status)
	assert.True(t, resp.IsActive)
	assert.Zero(t, resp.ViewCount)
	assert.False(t, resp.IsFeatured)
	assert.Equal(t, renter.ID, resp.RenterID)
	assert.Equal(t, []string{"pets", "balcony"}, resp.Keywords)
	assert.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), resp.StartDate)

	rows := env.outboxRows(t, resp.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, models.OutboxOperationUpsert, rows[0].Operation)
}

func TestCreateApartment_AcceptsRFC3339StartDate(t *testing.T) {
	env := newTestEnv(t)
	renter := env.createUser(t, "renter@test.com", models.UserRoleRenter)

	req := validCreateRequest()
	req.StartDate = "2026-05-01T10:00:00Z"
	req.IsActive = boolPtr(false)

	resp, err := env.services.ApartmentService.CreateApartment(env.db, actorOf(renter), req)
	require.NoError(t, err)
	assert.Equal(t, 10, resp.StartDate.Hour())
	assert.False(t, resp.IsActive)
}

func TestCreateApartment_ValidationHappensBeforeWrite(t *testing.T) {
	tests := []struct {
		name    string
		role    models.UserRole
		mutate  func(r *dto.CreateApartmentRequest)
		wantErr error
	}{
		{
			name:    "three images",
			role:    models.UserRoleRenter,
			mutate:  func(r *dto.CreateApartmentRequest) { r.Images = r.Images[:3] },
			wantErr: apperrors.ErrNotEnoughImages,
		},
		{
			name:    "zero rent",
			role:    models.UserRoleRenter,
			mutate:  func(r *dto.CreateApartmentRequest) { r.RentPerWeek = 0 },
			wantErr: apperrors.ErrInvalidRent,
		},
		{
			name:    "negative rent",
			role:    models.UserRoleRenter,
			mutate:  func(r *dto.CreateApartmentRequest) { r.RentPerWeek = -10 },
			wantErr: apperrors.ErrInvalidRent,
		},
		{
			name:    "seeker cannot list",
			role:    models.UserRoleSeeker,
			mutate:  func(r *dto.CreateApartmentRequest) {},
			wantErr: apperrors.ErrInsufficientPermissions,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			user := env.createUser(t, "user@test.com", tt.role)
			req := validCreateRequest()
			tt.mutate(req)

			_, err := env.services.ApartmentService.CreateApartment(env.db, actorOf(user), req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, countApartments(t, env))
		})
	}
}

func TestCreateApartment_RejectsMalformedStartDate(t *testing.T) {
	env := newTestEnv(t)
	renter := env.createUser(t, "renter@test.com", models.UserRoleRenter)

	req := validCreateRequest()
	req.StartDate = "01/05/2026"

	_, err := env.services.ApartmentService.CreateApartment(env.db, actorOf(renter), req)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeValidationFailed, appErr.Code)
	assert.Zero(t, countApartments(t, env))
}

func TestCreateApartment_StoresUploadedFiles(t *testing.T) {
	env := newTestEnv(t)
	renter := env.createUser(t, "renter@test.com", models.UserRoleRenter)

	req := validCreateRequest()
	req.Images = req.Images[:2]
	req.Files = multipartImages(t, "kitchen.jpg", "bedroom.jpg")

	resp, err := env.services.ApartmentService.CreateApartment(env.db, actorOf(renter), req)
	require.NoError(t, err)

	require.Len(t, resp.Images, 4)
	assert.Equal(t, "https://cdn.example.com/a.jpg", resp.Images[0])
	assert.Contains(t, resp.Images[2], "/uploads/apartments/")
	assert.Equal(t, 2, env.storage.count())
}

func TestCreateApartment_InvalidUploadStoresNothing(t *testing.T) {
	env := newTestEnv(t)
	renter := env.createUser(t, "renter@test.com", models.UserRoleRenter)

	req := validCreateRequest()
	req.Images = req.Images[:2]
	req.Files = multipartImages(t, "kitchen.jpg", "notes.txt")

	_, err := env.services.ApartmentService.CreateApartment(env.db, actorOf(renter), req)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrInvalidFileType.HTTPCode, appErr.HTTPCode)
	assert.Zero(t, env.storage.count())
	assert.Zero(t, countApartments(t, env))
}

func TestPublish_DraftThenConflict(t *testing.T) {
	env := newTestEnv(t)
	renter := env.createUser(t, "renter@test.com", models.UserRoleRenter)
	apartment := env.createApartment(t, renter, nil)

	resp, err := env.services.ApartmentService.Publish(env.db, actorOf(renter), apartment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApartmentStatusPublished, resp.Status)

	_, err = env.services.ApartmentService.Publish(env.db, actorOf(renter), apartment.ID)
	assert.ErrorIs(t, err, apperrors.ErrApartmentAlreadyPublished)

	assert.Equal(t, models.ApartmentStatusPublished, env.reload(t, apartment.ID).Status)
	assert.Len(t, env.outboxRows(t, apartment.ID), 1)
}

func TestPublish_FromArchived(t *testing.T) {
	env := newTestEnv(t)
	renter := env.createUser(t, "renter@test.com", models.UserRoleRenter)
	apartment := env.createApartment(t, renter, func(a *models.Apartment) {
		a.Status = models.ApartmentStatusArchived
	})

	resp, err := env.services.ApartmentService.Publish(env.db, actorOf(renter), apartment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApartmentStatusPublished, resp.Status)
}

func TestArchive_FromAnyStatus(t *testing.T) {
	for _, status := range []models.ApartmentStatus{
		models.ApartmentStatusDraft,
		models.ApartmentStatusPublished,
		models.ApartmentStatusArchived,
	} {
		t.Run(string(status), func(t *testing.T) {
			env := newTestEnv(t)
			renter := env.createUser(t, "renter@test.com", models.UserRoleRenter)
			apartment := env.createApartment(t, renter, func(a *models.Apartment) { a.Status = status })

			resp, err := env.services.ApartmentService.Archive(env.db, actorOf(renter), apartment.ID)
			require.NoError(t, err)
			assert.Equal(t, models.ApartmentStatusArchived, resp.Status)
			assert.Equal(t, models.ApartmentStatusArchived, env.reload(t, apartment.ID).Status)
		})
	}
}

func TestLifecycle_OwnerOrAdminOnly(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner@test.com", models.UserRoleRenter)
	stranger := env.createUser(t, "stranger@test.com", models.UserRoleRenter)
	admin := env.createUser(t, "admin@test.com", models.UserRoleAdmin)
	apartment := env.createApartment(t, owner, nil)

	_, err := env.services.ApartmentService.Publish(env.db, actorOf(stranger), apartment.ID)
	assert.ErrorIs(t, err, apperrors.ErrApartmentForbidden)
	assert.Equal(t, models.ApartmentStatusDraft, env.reload(t, apartment.ID).Status)

	resp, err := env.services.ApartmentService.Publish(env.db, actorOf(admin), apartment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApartmentStatusPublished, resp.Status)
}

func TestLifecycle_MissingApartment(t *testing.T) {
	env := newTestEnv(t)
	renter := env.createUser(t, "renter@test.com", models.UserRoleRenter)

	_, err := env.services.ApartmentService.Archive(env.db, actorOf(renter), "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, apperrors.ErrApartmentNotFound)
}

func TestRecordView_IncrementsAtomically(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner@test.com", models.UserRoleRenter)
	apartment := env.createApartment(t, owner, nil)

	for i := 0; i < 3; i++ {
		_, err := env.services.ApartmentService.RecordView(env.db, apartment.ID)
		require.NoError(t, err)
	}

	env.clock.Advance(time.Hour)
	resp, err := env.services.ApartmentService.RecordView(env.db, apartment.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, resp.ViewCount)
	require.NotNil(t, resp.LastViewedAt)
	assert.True(t, resp.LastViewedAt.Equal(testNow.Add(time.Hour)))

	// просмотры не попадают в outbox
	assert.Empty(t, env.outboxRows(t, apartment.ID))
}

func TestRecordView_NotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.services.ApartmentService.RecordView(env.db, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, apperrors.ErrApartmentNotFound)
}

func TestListPublished_Ordering(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner@test.com", models.UserRoleRenter)
	until := testNow.Add(48 * time.Hour)

	old := env.createApartment(t, owner, func(a *models.Apartment) {
		a.Title = "old"
		a.Status = models.ApartmentStatusPublished
		a.CreatedAt = testNow.Add(-3 * time.Hour)
	})
	featured := env.createApartment(t, owner, func(a *models.Apartment) {
		a.Title = "featured"
		a.Status = models.ApartmentStatusPublished
		a.IsFeatured = true
		a.FeaturedPriority = 5
		a.FeaturedUntil = &until
		a.CreatedAt = testNow.Add(-2 * time.Hour)
	})
	newest := env.createApartment(t, owner, func(a *models.Apartment) {
		a.Title = "newest"
		a.Status = models.ApartmentStatusPublished
		a.CreatedAt = testNow.Add(-1 * time.Hour)
	})
	env.createApartment(t, owner, func(a *models.Apartment) { a.Title = "draft" })
	env.createApartment(t, owner, func(a *models.Apartment) {
		a.Title = "inactive"
		a.Status = models.ApartmentStatusPublished
		a.IsActive = false
	})

	byDate, err := env.services.ApartmentService.ListPublished(env.db, &dto.ListApartmentsQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, byDate.Total)
	assert.Equal(t, []string{newest.ID, featured.ID, old.ID}, apartmentIDs(byDate.Apartments))

	featuredFirst, err := env.services.ApartmentService.ListPublished(env.db, &dto.ListApartmentsQuery{FeaturedFirst: true})
	require.NoError(t, err)
	assert.Equal(t, []string{featured.ID, newest.ID, old.ID}, apartmentIDs(featuredFirst.Apartments))

	page, err := env.services.ApartmentService.ListPublished(env.db, &dto.ListApartmentsQuery{Skip: 1, Limit: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)
	assert.Equal(t, []string{featured.ID}, apartmentIDs(page.Apartments))
}

func TestListMine_AllStatuses(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner@test.com", models.UserRoleRenter)
	other := env.createUser(t, "other@test.com", models.UserRoleRenter)

	env.createApartment(t, owner, nil)
	env.createApartment(t, owner, func(a *models.Apartment) { a.Status = models.ApartmentStatusArchived })
	env.createApartment(t, other, nil)

	resp, err := env.services.ApartmentService.ListMine(env.db, actorOf(owner), &dto.Pagination{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, resp.Total)
	for _, a := range resp.Apartments {
		assert.Equal(t, owner.ID, a.RenterID)
	}
}

func TestUpdateApartment_PartialUpdateAndImageCleanup(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner@test.com", models.UserRoleRenter)
	apartment := env.createApartment(t, owner, nil)
	for _, url := range apartment.Images {
		path, _ := env.storage.PathFromURL(url)
		env.storage.files[path] = []byte("img")
	}

	images := []string{
		apartment.Images[0], apartment.Images[1], apartment.Images[2],
		"https://cdn.example.com/new.jpg",
	}
	resp, err := env.services.ApartmentService.UpdateApartment(env.db, actorOf(owner), apartment.ID, &dto.UpdateApartmentRequest{
		Title:       strPtr("Renovated room"),
		RentPerWeek: intPtr(500),
		Images:      &images,
	})
	require.NoError(t, err)

	assert.Equal(t, "Renovated room", resp.Title)
	assert.Equal(t, 500, resp.RentPerWeek)
	assert.Equal(t, apartment.Description, resp.Description)
	assert.Equal(t, images, resp.Images)
	assert.Equal(t, 3, env.storage.count())
	assert.Len(t, env.outboxRows(t, apartment.ID), 1)
}

func TestUpdateApartment_RejectsInvalidValues(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner@test.com", models.UserRoleRenter)
	apartment := env.createApartment(t, owner, nil)

	_, err := env.services.ApartmentService.UpdateApartment(env.db, actorOf(owner), apartment.ID, &dto.UpdateApartmentRequest{
		RentPerWeek: intPtr(0),
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidRent)

	_, err = env.services.ApartmentService.UpdateApartment(env.db, actorOf(owner), apartment.ID, &dto.UpdateApartmentRequest{
		StartDate: strPtr("next monday"),
	})
	require.Error(t, err)
	assert.Equal(t, 350, env.reload(t, apartment.ID).RentPerWeek)
}

func TestUpdateApartment_StatusOverride(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner@test.com", models.UserRoleRenter)
	apartment := env.createApartment(t, owner, nil)

	status := models.ApartmentStatusPublished
	resp, err := env.services.ApartmentService.UpdateApartment(env.db, actorOf(owner), apartment.ID, &dto.UpdateApartmentRequest{
		Status: &status,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ApartmentStatusPublished, resp.Status)
}

func TestDeleteApartment(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner@test.com", models.UserRoleRenter)
	stranger := env.createUser(t, "stranger@test.com", models.UserRoleRenter)
	apartment := env.createApartment(t, owner, nil)
	for _, url := range apartment.Images {
		path, _ := env.storage.PathFromURL(url)
		env.storage.files[path] = []byte("img")
	}

	err := env.services.ApartmentService.DeleteApartment(env.db, actorOf(stranger), apartment.ID)
	assert.ErrorIs(t, err, apperrors.ErrApartmentForbidden)

	require.NoError(t, env.services.ApartmentService.DeleteApartment(env.db, actorOf(owner), apartment.ID))

	_, err = env.repos.Apartment.FindByID(env.db, apartment.ID)
	assert.Error(t, err)
	assert.Zero(t, env.storage.count())

	rows := env.outboxRows(t, apartment.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, models.OutboxOperationDelete, rows[0].Operation)
}

func TestDuplicate_CreatesIndependentDraft(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner@test.com", models.UserRoleRenter)
	until := testNow.Add(24 * time.Hour)
	source := env.createApartment(t, owner, func(a *models.Apartment) {
		a.Status = models.ApartmentStatusPublished
		a.ViewCount = 42
		a.IsFeatured = true
		a.FeaturedPriority = 7
		a.FeaturedUntil = &until
		a.IsActive = false
	})

	resp, err := env.services.ApartmentService.Duplicate(env.db, actorOf(owner), source.ID, nil)
	require.NoError(t, err)

	assert.NotEqual(t, source.ID, resp.ID)
	assert.Equal(t, source.Title+" (Copy)", resp.Title)
	assert.Equal(t, models.ApartmentStatusDraft, resp.Status)
	assert.True(t, resp.IsActive)
	assert.Zero(t, resp.ViewCount)
	assert.False(t, resp.IsFeatured)
	assert.Zero(t, resp.FeaturedPriority)
	assert.Nil(t, resp.FeaturedUntil)
	assert.Equal(t, owner.ID, resp.RenterID)
	assert.Equal(t, []string(source.Images), resp.Images)
	assert.Equal(t, []string(source.Keywords), resp.Keywords)

	// правка копии не трогает оригинал
	copied := env.reload(t, resp.ID)
	copied.Keywords[0] = "changed"
	copied.Images[0] = "changed"
	require.NoError(t, env.repos.Apartment.Update(env.db, copied))
	original := env.reload(t, source.ID)
	assert.Equal(t, "quiet", original.Keywords[0])
	assert.Equal(t, "/uploads/apartments/1.jpg", original.Images[0])

	assert.Len(t, env.outboxRows(t, resp.ID), 1)
}

func TestDuplicate_NewOwner(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner@test.com", models.UserRoleRenter)
	other := env.createUser(t, "other@test.com", models.UserRoleRenter)
	admin := env.createUser(t, "admin@test.com", models.UserRoleAdmin)
	source := env.createApartment(t, owner, nil)

	_, err := env.services.ApartmentService.Duplicate(env.db, actorOf(owner), source.ID, &dto.DuplicateRequest{NewOwnerID: &other.ID})
	assert.ErrorIs(t, err, apperrors.ErrInsufficientPermissions)

	_, err = env.services.ApartmentService.Duplicate(env.db, actorOf(admin), source.ID, &dto.DuplicateRequest{
		NewOwnerID: strPtr("00000000-0000-0000-0000-000000000000"),
	})
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)

	resp, err := env.services.ApartmentService.Duplicate(env.db, actorOf(admin), source.ID, &dto.DuplicateRequest{NewOwnerID: &other.ID})
	require.NoError(t, err)
	assert.Equal(t, other.ID, resp.RenterID)

	// тот же владелец явно - не смена владельца
	resp, err = env.services.ApartmentService.Duplicate(env.db, actorOf(owner), source.ID, &dto.DuplicateRequest{NewOwnerID: &owner.ID})
	require.NoError(t, err)
	assert.Equal(t, owner.ID, resp.RenterID)

	assert.EqualValues(t, 3, countApartments(t, env))
}

func TestDuplicate_ForbiddenForStranger(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner@test.com", models.UserRoleRenter)
	stranger := env.createUser(t, "stranger@test.com", models.UserRoleRenter)
	source := env.createApartment(t, owner, nil)

	_, err := env.services.ApartmentService.Duplicate(env.db, actorOf(stranger), source.ID, nil)
	assert.ErrorIs(t, err, apperrors.ErrApartmentForbidden)
}

func apartmentIDs(items []*dto.ApartmentResponse) []string {
	ids := make([]string, 0, len(items))
	for _, a := range items {
		ids = append(ids, a.ID)
	}
	return ids
}
