// Package property persists listing artifacts, their images, owner contact
// fields, proximity scores, and regulatory registration requests.
package property

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	ErrNotFound  = errors.New("property not found")
	ErrLastImage = errors.New("property must keep at least one image")
)

// ListingNumberPrefix precedes the zero-padded numeric part of every
// listing number, e.g. PP-000412.
const ListingNumberPrefix = "PP-"

const listingNumberWidth = 6

var listingNumberDigits = regexp.MustCompile(`^\d{1,6}$`)

// CanonicalListingNumber normalizes a user-supplied listing-number token to
// the fixed-width form. Accepts "412", "PP-412", "pp000412".
func CanonicalListingNumber(token string) (string, error) {
	t := strings.ToUpper(strings.TrimSpace(token))
	t = strings.TrimPrefix(t, ListingNumberPrefix)
	t = strings.TrimPrefix(t, "PP")
	t = strings.TrimPrefix(t, "-")
	if !listingNumberDigits.MatchString(t) {
		return "", fmt.Errorf("invalid listing number %q", token)
	}
	return fmt.Sprintf("%s%0*s", ListingNumberPrefix, listingNumberWidth, t), nil
}

// Property is a published listing.
type Property struct {
	ID            string `gorm:"primaryKey"`
	ListingNumber string `gorm:"uniqueIndex;not null"`
	Slug          string `gorm:"uniqueIndex;not null"`

	Title       string `gorm:"not null"`
	Description string `gorm:"default:''"`
	HTMLBody    string `gorm:"default:''"`

	ListingType  string `gorm:"not null"` // sale|rent
	PropertyType string `gorm:"not null"` // villa|condo|townhouse|apartment|land
	Ownership    string `gorm:"default:''"`

	Price     int64 `gorm:"not null;default:0"`
	Bedrooms  int   `gorm:"not null;default:0"`
	Bathrooms int   `gorm:"not null;default:0"`

	Lat          float64 `gorm:"not null;default:0"`
	Lng          float64 `gorm:"not null;default:0"`
	Address      string  `gorm:"default:''"`
	District     string  `gorm:"default:''"`
	RegionSlug   string  `gorm:"default:'';index"`
	DistrictSlug string  `gorm:"default:''"`

	OwnerName       string  `gorm:"default:''"`
	OwnerPhone      string  `gorm:"default:''"`
	OwnerCompany    string  `gorm:"default:''"`
	OwnerCommission float64 `gorm:"default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Property) TableName() string { return "properties" }

// Image is one ordered listing photo. Positions are contiguous starting at
// 1; position 1 is the cover image.
type Image struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	PropertyID string `gorm:"not null;index:idx_property_position"`
	Position   int    `gorm:"not null;index:idx_property_position"`
	URL        string `gorm:"not null"`
	AltText    string `gorm:"default:''"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (Image) TableName() string { return "property_images" }

// ProximityScore is one computed distance/score pair for a listing, e.g.
// kind "beach" at 0.8 km scoring 9.5.
type ProximityScore struct {
	ID         uint    `gorm:"primaryKey;autoIncrement"`
	PropertyID string  `gorm:"not null;index"`
	Kind       string  `gorm:"not null"`
	Name       string  `gorm:"default:''"`
	DistanceKm float64 `gorm:"not null;default:0"`
	Score      float64 `gorm:"not null;default:0"`
	CreatedAt  time.Time
}

func (ProximityScore) TableName() string { return "property_scores" }

// Registration request lifecycle.
const (
	RegistrationPending    = "pending"
	RegistrationDispatched = "dispatched"
	RegistrationFailed     = "failed"
	RegistrationCompleted  = "completed"
)

// RegistrationRequest records one regulatory accommodation registration.
// The phone key also serves the owner-recognition shortcut: a completed or
// dispatched request with an id document on file lets later registrations
// for the same phone skip the identity-document steps.
type RegistrationRequest struct {
	ID                string `gorm:"primaryKey"`
	SessionID         string `gorm:"default:''"`
	ChannelIdentity   string `gorm:"default:'';index"`
	Phone             string `gorm:"not null;index"`
	FirstName         string `gorm:"default:''"`
	LastName          string `gorm:"default:''"`
	NationalID        string `gorm:"default:''"`
	Address           string `gorm:"default:''"`
	PostalCode        string `gorm:"default:''"`
	AccommodationName string `gorm:"default:''"`
	IDDocumentURL     string `gorm:"default:''"`
	AddressDocURL     string `gorm:"default:''"`
	Status            string `gorm:"not null;default:'pending'"`
	ExternalID        string `gorm:"default:'';index"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (RegistrationRequest) TableName() string { return "registration_requests" }
