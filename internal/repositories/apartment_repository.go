package repositories

import (
	"errors"
	"time"

	"rentals_backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrApartmentNotFound = errors.New("apartment not found")

type ApartmentRepository interface {
	Create(db *gorm.DB, apartment *models.Apartment) error
	FindByID(db *gorm.DB, id string) (*models.Apartment, error)
	FindByIDs(db *gorm.DB, ids []string) (map[string]*models.Apartment, error)
	Update(db *gorm.DB, apartment *models.Apartment) error
	Delete(db *gorm.DB, id string) error

	// Выборки
	ListPublished(db *gorm.DB, skip, limit int, featuredFirst bool) ([]models.Apartment, int64, error)
	FindByRenter(db *gorm.DB, renterID string, skip, limit int) ([]models.Apartment, int64, error)
	FindAllByRenter(db *gorm.DB, renterID string) ([]models.Apartment, error)
	FindBatch(db *gorm.DB, offset, limit int) ([]models.Apartment, error)

	// Просмотры
	IncrementViews(db *gorm.DB, id string, now time.Time) error

	// Продвижение
	FindFeatured(db *gorm.DB, now time.Time, limit int) ([]models.Apartment, error)
	ExpireFeatured(db *gorm.DB, now time.Time) ([]models.Apartment, error)

	// Статистика
	GetStats(db *gorm.DB, now time.Time) (*ApartmentStats, error)
}

type ApartmentStats struct {
	Total     int64
	Active    int64
	Published int64
	Featured  int64
}

type apartmentRepository struct{}

func NewApartmentRepository() ApartmentRepository {
	return &apartmentRepository{}
}

func (r *apartmentRepository) Create(db *gorm.DB, apartment *models.Apartment) error {
	return db.Create(apartment).Error
}

func (r *apartmentRepository) FindByID(db *gorm.DB, id string) (*models.Apartment, error) {
	var apartment models.Apartment
	if err := db.Where("id = ?", id).First(&apartment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrApartmentNotFound
		}
		return nil, err
	}
	return &apartment, nil
}

func (r *apartmentRepository) FindByIDs(db *gorm.DB, ids []string) (map[string]*models.Apartment, error) {
	result := make(map[string]*models.Apartment, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var apartments []models.Apartment
	if err := db.Where("id IN ?", ids).Find(&apartments).Error; err != nil {
		return nil, err
	}
	for i := range apartments {
		result[apartments[i].ID] = &apartments[i]
	}
	return result, nil
}

// Update сохраняет все поля, updated_at обновляется автоматически
func (r *apartmentRepository) Update(db *gorm.DB, apartment *models.Apartment) error {
	return db.Save(apartment).Error
}

func (r *apartmentRepository) Delete(db *gorm.DB, id string) error {
	result := db.Where("id = ?", id).Delete(&models.Apartment{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrApartmentNotFound
	}
	return nil
}

func (r *apartmentRepository) ListPublished(db *gorm.DB, skip, limit int, featuredFirst bool) ([]models.Apartment, int64, error) {
	var apartments []models.Apartment
	var total int64

	query := db.Model(&models.Apartment{}).
		Where("status = ? AND is_active = ?", models.ApartmentStatusPublished, true).
		Session(&gorm.Session{})

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if featuredFirst {
		query = query.Order("is_featured DESC").Order("featured_priority DESC")
	}
	err := query.Order("created_at DESC").Offset(skip).Limit(limit).Find(&apartments).Error
	return apartments, total, err
}

func (r *apartmentRepository) FindByRenter(db *gorm.DB, renterID string, skip, limit int) ([]models.Apartment, int64, error) {
	var apartments []models.Apartment
	var total int64

	query := db.Model(&models.Apartment{}).Where("renter_id = ?", renterID).Session(&gorm.Session{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("created_at DESC").Offset(skip).Limit(limit).Find(&apartments).Error
	return apartments, total, err
}

func (r *apartmentRepository) FindAllByRenter(db *gorm.DB, renterID string) ([]models.Apartment, error) {
	var apartments []models.Apartment
	err := db.Where("renter_id = ?", renterID).Find(&apartments).Error
	return apartments, err
}

// FindBatch - постраничный обход всех объявлений (переиндексация)
func (r *apartmentRepository) FindBatch(db *gorm.DB, offset, limit int) ([]models.Apartment, error) {
	var apartments []models.Apartment
	err := db.Order("created_at ASC").Order("id ASC").Offset(offset).Limit(limit).Find(&apartments).Error
	return apartments, err
}

// IncrementViews - атомарный инкремент на стороне БД, без read-modify-write
func (r *apartmentRepository) IncrementViews(db *gorm.DB, id string, now time.Time) error {
	result := db.Model(&models.Apartment{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"view_count":     gorm.Expr("view_count + ?", 1),
			"last_viewed_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrApartmentNotFound
	}
	return nil
}

func (r *apartmentRepository) FindFeatured(db *gorm.DB, now time.Time, limit int) ([]models.Apartment, error) {
	var apartments []models.Apartment
	err := db.
		Where("is_featured = ? AND status = ? AND is_active = ?", true, models.ApartmentStatusPublished, true).
		Where("featured_until IS NULL OR featured_until > ?", now).
		Order("featured_priority DESC").
		Order("created_at DESC").
		Limit(limit).
		Find(&apartments).Error
	return apartments, err
}

// ExpireFeatured - условный UPDATE с RETURNING; повторный запуск ничего не меняет.
// Возвращаются только строки, измененные этим запросом (id, renter_id, title).
// featured_until сохраняется, чтобы было видно, когда истек срок.
func (r *apartmentRepository) ExpireFeatured(db *gorm.DB, now time.Time) ([]models.Apartment, error) {
	var expired []models.Apartment
	err := db.Model(&expired).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "id"}, {Name: "renter_id"}, {Name: "title"}}}).
		Where("is_featured = ? AND featured_until IS NOT NULL AND featured_until <= ?", true, now).
		Updates(map[string]interface{}{
			"is_featured":       false,
			"featured_priority": 0,
		}).Error
	return expired, err
}

func (r *apartmentRepository) GetStats(db *gorm.DB, now time.Time) (*ApartmentStats, error) {
	stats := &ApartmentStats{}
	base := func() *gorm.DB { return db.Model(&models.Apartment{}) }

	if err := base().Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := base().Where("is_active = ?", true).Count(&stats.Active).Error; err != nil {
		return nil, err
	}
	if err := base().Where("status = ?", models.ApartmentStatusPublished).Count(&stats.Published).Error; err != nil {
		return nil, err
	}
	err := base().
		Where("is_featured = ?", true).
		Where("featured_until IS NULL OR featured_until > ?", now).
		Count(&stats.Featured).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}
