// Package external declares the contracts of the services the bot talks
// to: vision analysis, document OCR, geocoding, content generation, the
// registration workflow trigger, and the outbound messaging gateway. The
// engine depends only on these interfaces; the providers implement them.
package external

import "context"

// VisionAnalysis is the structured read of a photo set.
type VisionAnalysis struct {
	PropertyType   string   `json:"property_type"`
	Beds           int      `json:"beds"`
	Baths          int      `json:"baths"`
	Amenities      []string `json:"amenities"`
	HasPool        bool     `json:"has_pool"`
	HasGarden      bool     `json:"has_garden"`
	HasSeaView     bool     `json:"has_sea_view"`
	Style          string   `json:"style"`
	Condition      string   `json:"condition"`
	Highlights     []string `json:"highlights"`
	SuggestedTitle string   `json:"suggested_title"`
}

// ConservativeAnalysis is what vision degrades to when the upstream model
// is unavailable: nothing claimed that a human did not supply.
func ConservativeAnalysis() VisionAnalysis {
	return VisionAnalysis{
		PropertyType: "property",
		Condition:    "good",
	}
}

// AddressGuess is the result of reading a location from a screenshot.
// At most one of the three resolution paths is usually present.
type AddressGuess struct {
	HasCoords    bool    `json:"has_coords"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	LocationCode string  `json:"location_code"`
	AddressText  string  `json:"address_text"`
}

type VisionAnalyzer interface {
	// Analyze never fails hard: implementations return
	// ConservativeAnalysis() instead of an error when the upstream
	// service is down.
	Analyze(ctx context.Context, imageURLs []string, locationContext string) (VisionAnalysis, error)
	ExtractAddress(ctx context.Context, imageURL string) (AddressGuess, error)
}

// DocumentKind selects the extraction schema.
type DocumentKind string

const (
	DocumentID      DocumentKind = "id"
	DocumentAddress DocumentKind = "address"
)

// DocumentFields is the union of both document schemas; the kind decides
// which fields are expected to be filled.
type DocumentFields struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	NationalID string `json:"national_id"`
	Address    string `json:"address"`
	PostalCode string `json:"postal_code"`
}

type DocumentExtractor interface {
	Extract(ctx context.Context, imageURL string, kind DocumentKind) (DocumentFields, error)
}

// Place is a reverse-geocoded human-readable location.
type Place struct {
	Address  string
	District string
}

type Coordinates struct {
	Lat float64
	Lng float64
}

type Geocoder interface {
	Reverse(ctx context.Context, lat, lng float64) (Place, error)
	Forward(ctx context.Context, text string) (Coordinates, error)
	ResolveLocationCode(ctx context.Context, code string) (Coordinates, error)
}

// ContentInput carries everything the generator may use. User-supplied
// values override AI-detected ones before the input is built.
type ContentInput struct {
	ListingType  string
	PropertyType string
	Ownership    string
	Bedrooms     int
	Bathrooms    int
	Price        int64
	Address      string
	District     string
	Analysis     VisionAnalysis
	ImageURLs    []string
}

type ListingContent struct {
	Title            string `json:"title"`
	ShortDescription string `json:"short_description"`
	HTML             string `json:"html"`
	SuggestedPrice   int64  `json:"suggested_price"`
}

type ContentGenerator interface {
	Generate(ctx context.Context, input ContentInput) (ListingContent, error)
}

// RegistrationPayload is dispatched to the regulatory workflow backend.
type RegistrationPayload struct {
	RequestID         string `json:"request_id"`
	Phone             string `json:"phone"`
	FirstName         string `json:"first_name"`
	LastName          string `json:"last_name"`
	NationalID        string `json:"national_id"`
	Address           string `json:"address"`
	PostalCode        string `json:"postal_code"`
	AccommodationName string `json:"accommodation_name"`
	IDDocumentURL     string `json:"id_document_url"`
	AddressDocURL     string `json:"address_doc_url"`
}

type WorkflowReceipt struct {
	Accepted   bool   `json:"accepted"`
	ExternalID string `json:"external_id"`
}

type WorkflowTrigger interface {
	Dispatch(ctx context.Context, payload RegistrationPayload) (WorkflowReceipt, error)
}

// Gateway sends outbound messages and fetches channel media. It is the
// only component that talks to the chat channel's APIs.
type Gateway interface {
	SendText(ctx context.Context, identity, text string) error
	SendImage(ctx context.Context, identity, imageURL, caption string) error
	DownloadMedia(ctx context.Context, mediaRef string) (data []byte, contentType string, err error)
}
