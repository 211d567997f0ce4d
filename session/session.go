// Package session holds the persisted conversation state. One row per
// conversation: which flow it is in, everything collected so far, and when
// it expires. At most one non-terminal session exists per channel identity.
package session

import "time"

// Status identifies the exact step a conversation is waiting at. The value
// is persisted, so renaming an existing constant is a schema change.
type Status string

// Listing creation flow.
const (
	StatusAwaitingListingType  Status = "awaiting_listing_type"
	StatusAwaitingPropertyType Status = "awaiting_property_type"
	StatusAwaitingOwnership    Status = "awaiting_ownership"
	StatusAwaitingPhotos       Status = "awaiting_photos"
	StatusCollectingPhotos     Status = "collecting_photos"
	StatusAwaitingMorePhotos   Status = "awaiting_more_photos"
	StatusAwaitingLocation     Status = "awaiting_location"
	StatusAwaitingPrice        Status = "awaiting_price"
	StatusAwaitingBedrooms     Status = "awaiting_bedrooms"
	StatusAwaitingBathrooms    Status = "awaiting_bathrooms"
	StatusProcessing           Status = "processing"
	StatusAwaitingConfirmation Status = "awaiting_confirmation"
)

// Owner-contact update flow.
const (
	StatusOwnerSelectProperty     Status = "owner_select_property"
	StatusOwnerConfirmProperty    Status = "owner_confirm_property"
	StatusOwnerAwaitingName       Status = "owner_awaiting_name"
	StatusOwnerAwaitingPhone      Status = "owner_awaiting_phone"
	StatusOwnerAwaitingCompany    Status = "owner_awaiting_company"
	StatusOwnerAwaitingCommission Status = "owner_awaiting_commission"
)

// Directory search flow.
const (
	StatusSearchAwaitingQuery  Status = "search_awaiting_query"
	StatusSearchShowingResults Status = "search_showing_results"
)

// Photo maintenance flow.
const (
	StatusPhotoSelectProperty  Status = "photo_select_property"
	StatusPhotoConfirmProperty Status = "photo_confirm_property"
	StatusPhotoViewCurrent     Status = "photo_view_current"
	StatusPhotoSelectAction    Status = "photo_select_action"
	StatusPhotoCollecting      Status = "photo_collecting"
	StatusPhotoReplaceSelect   Status = "photo_replace_select"
	StatusPhotoDeleteSelect    Status = "photo_delete_select"
	StatusPhotoConfirmDelete   Status = "photo_confirm_delete"
)

// Regulatory accommodation registration flow. Phone comes first so the
// owner-recognition shortcut can skip the identity-document steps for
// numbers already on file.
const (
	StatusAwaitingRegPhone          Status = "awaiting_reg_phone"
	StatusAwaitingIDDocument        Status = "awaiting_id_document"
	StatusConfirmIDData             Status = "confirm_id_data"
	StatusAwaitingAddressDocument   Status = "awaiting_address_document"
	StatusConfirmAddressData        Status = "confirm_address_data"
	StatusAwaitingAccommodationName Status = "awaiting_accommodation_name"
	StatusConfirmRegistration       Status = "confirm_registration"
	StatusExternalProcessing        Status = "external_processing"
)

// Terminal states.
const (
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusError     Status = "error"
)

func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusError:
		return true
	}
	return false
}

// Flow groups statuses by the handler that owns them.
type Flow string

const (
	FlowListing      Flow = "listing"
	FlowOwnerUpdate  Flow = "owner_update"
	FlowSearch       Flow = "search"
	FlowPhotos       Flow = "photos"
	FlowRegistration Flow = "registration"
	FlowNone         Flow = ""
)

func (s Status) Flow() Flow {
	switch s {
	case StatusAwaitingListingType, StatusAwaitingPropertyType, StatusAwaitingOwnership,
		StatusAwaitingPhotos, StatusCollectingPhotos, StatusAwaitingMorePhotos,
		StatusAwaitingLocation, StatusAwaitingPrice, StatusAwaitingBedrooms,
		StatusAwaitingBathrooms, StatusProcessing, StatusAwaitingConfirmation:
		return FlowListing
	case StatusOwnerSelectProperty, StatusOwnerConfirmProperty, StatusOwnerAwaitingName,
		StatusOwnerAwaitingPhone, StatusOwnerAwaitingCompany, StatusOwnerAwaitingCommission:
		return FlowOwnerUpdate
	case StatusSearchAwaitingQuery, StatusSearchShowingResults:
		return FlowSearch
	case StatusPhotoSelectProperty, StatusPhotoConfirmProperty, StatusPhotoViewCurrent,
		StatusPhotoSelectAction, StatusPhotoCollecting, StatusPhotoReplaceSelect,
		StatusPhotoDeleteSelect, StatusPhotoConfirmDelete:
		return FlowPhotos
	case StatusAwaitingRegPhone, StatusAwaitingIDDocument, StatusConfirmIDData,
		StatusAwaitingAddressDocument, StatusConfirmAddressData,
		StatusAwaitingAccommodationName, StatusConfirmRegistration, StatusExternalProcessing:
		return FlowRegistration
	}
	return FlowNone
}

// ListingDraft is the listing-creation scratch record. Each flow keeps its
// temporary data in its own typed sub-record rather than overloading shared
// columns.
type ListingDraft struct {
	ListingType  string   `json:"listing_type,omitempty"`  // sale|rent
	PropertyType string   `json:"property_type,omitempty"` // villa|condo|townhouse|land|apartment
	Ownership    string   `json:"ownership,omitempty"`     // freehold|leasehold
	PhotoURLs    []string `json:"photo_urls,omitempty"`

	HasLocation bool    `json:"has_location,omitempty"`
	Lat         float64 `json:"lat,omitempty"`
	Lng         float64 `json:"lng,omitempty"`
	Address     string  `json:"address,omitempty"`
	District    string  `json:"district,omitempty"`

	Price     int64 `json:"price,omitempty"`
	Bedrooms  int   `json:"bedrooms,omitempty"`
	Bathrooms int   `json:"bathrooms,omitempty"`

	Title          string             `json:"title,omitempty"`
	Description    string             `json:"description,omitempty"`
	HTMLBody       string             `json:"html_body,omitempty"`
	SuggestedPrice int64              `json:"suggested_price,omitempty"`
	Amenities      []string           `json:"amenities,omitempty"`
	Scores         map[string]float64 `json:"scores,omitempty"`

	PropertyID    string `json:"property_id,omitempty"`
	ListingNumber string `json:"listing_number,omitempty"`
}

func (d ListingDraft) PhotoCount() int { return len(d.PhotoURLs) }

// OwnerDraft is the owner-contact update scratch record.
type OwnerDraft struct {
	PropertyID    string  `json:"property_id,omitempty"`
	ListingNumber string  `json:"listing_number,omitempty"`
	Name          string  `json:"name,omitempty"`
	Phone         string  `json:"phone,omitempty"`
	Company       string  `json:"company,omitempty"`
	Commission    float64 `json:"commission,omitempty"`
}

// SearchState is the directory-search scratch record.
type SearchState struct {
	Query string `json:"query,omitempty"`
	Page  int    `json:"page,omitempty"`
}

// PhotoDraft is the photo-maintenance scratch record.
type PhotoDraft struct {
	PropertyID    string   `json:"property_id,omitempty"`
	ListingNumber string   `json:"listing_number,omitempty"`
	Action        string   `json:"action,omitempty"` // add|replace|delete
	Position      int      `json:"position,omitempty"`
	AddedURLs     []string `json:"added_urls,omitempty"`
}

// RegistrationDraft is the regulatory-registration scratch record.
type RegistrationDraft struct {
	Phone             string `json:"phone,omitempty"`
	IDDocumentURL     string `json:"id_document_url,omitempty"`
	AddressDocURL     string `json:"address_doc_url,omitempty"`
	FirstName         string `json:"first_name,omitempty"`
	LastName          string `json:"last_name,omitempty"`
	NationalID        string `json:"national_id,omitempty"`
	Address           string `json:"address,omitempty"`
	PostalCode        string `json:"postal_code,omitempty"`
	AccommodationName string `json:"accommodation_name,omitempty"`
	ReusedIdentity    bool   `json:"reused_identity,omitempty"`
	RequestID         string `json:"request_id,omitempty"`
	ExternalID        string `json:"external_id,omitempty"`
}

// Session is the persisted conversation row.
type Session struct {
	ID              string `gorm:"primaryKey"`
	ChannelIdentity string `gorm:"not null;index:idx_channel_identity"`
	InitiatorName   string `gorm:"default:''"`
	Status          Status `gorm:"not null;index:idx_status"`
	ErrorMessage    string `gorm:"default:''"`

	Listing      ListingDraft      `gorm:"serializer:json"`
	Owner        OwnerDraft        `gorm:"serializer:json"`
	Search       SearchState       `gorm:"serializer:json"`
	Photos       PhotoDraft        `gorm:"serializer:json"`
	Registration RegistrationDraft `gorm:"serializer:json"`

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time `gorm:"default:null"`
	ExpiresAt   time.Time  `gorm:"not null;index:idx_expires_at"`
}

func (Session) TableName() string { return "sessions" }

func (s *Session) Active() bool { return !s.Status.Terminal() }

func (s *Session) Expired(now time.Time) bool {
	return s.Active() && now.After(s.ExpiresAt)
}
