package models

type UserRole string
type ApartmentStatus string
type BulkAction string
type NotificationType string
type OutboxOperation string

const (
	UserRoleSeeker UserRole = "seeker"
	UserRoleRenter UserRole = "renter"
	UserRoleAdmin  UserRole = "admin"

	ApartmentStatusDraft     ApartmentStatus = "DRAFT"
	ApartmentStatusPublished ApartmentStatus = "PUBLISHED"
	ApartmentStatusArchived  ApartmentStatus = "ARCHIVED"

	BulkActionPublish    BulkAction = "PUBLISH"
	BulkActionArchive    BulkAction = "ARCHIVE"
	BulkActionDelete     BulkAction = "DELETE"
	BulkActionActivate   BulkAction = "ACTIVATE"
	BulkActionDeactivate BulkAction = "DEACTIVATE"
	BulkActionFeature    BulkAction = "FEATURE"
	BulkActionUnfeature  BulkAction = "UNFEATURE"

	NotificationTypeNewMessage       NotificationType = "new_message"
	NotificationTypeApartmentInquiry NotificationType = "apartment_inquiry"
	NotificationTypeFeaturedExpired  NotificationType = "featured_expired"
	NotificationTypeSystem           NotificationType = "system"

	OutboxOperationUpsert OutboxOperation = "upsert"
	OutboxOperationDelete OutboxOperation = "delete"
)

func (r UserRole) IsValid() bool {
	switch r {
	case UserRoleSeeker, UserRoleRenter, UserRoleAdmin:
		return true
	}
	return false
}

// CanRegister - роли, доступные при самостоятельной регистрации
func (r UserRole) CanRegister() bool {
	return r == UserRoleSeeker || r == UserRoleRenter
}

func (s ApartmentStatus) IsValid() bool {
	switch s {
	case ApartmentStatusDraft, ApartmentStatusPublished, ApartmentStatusArchived:
		return true
	}
	return false
}

func (a BulkAction) IsValid() bool {
	switch a {
	case BulkActionPublish, BulkActionArchive, BulkActionDelete,
		BulkActionActivate, BulkActionDeactivate, BulkActionFeature, BulkActionUnfeature:
		return true
	}
	return false
}

// SortOption - порядок выдачи поиска
type SortOption string

const (
	SortRelevance SortOption = "relevance"
	SortPriceAsc  SortOption = "price_asc"
	SortPriceDesc SortOption = "price_desc"
	SortDateDesc  SortOption = "date_desc"
	SortDateAsc   SortOption = "date_asc"
	SortViewsDesc SortOption = "views_desc"
	SortFeatured  SortOption = "featured"
)

func (s SortOption) IsValid() bool {
	switch s {
	case SortRelevance, SortPriceAsc, SortPriceDesc, SortDateDesc, SortDateAsc, SortViewsDesc, SortFeatured:
		return true
	}
	return false
}
