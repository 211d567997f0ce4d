// Package finalize turns a confirmed listing-creation session into a
// durable property record with ordered images and proximity scores.
package finalize

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/wasgeurtjeNL/prop-pulse-sub000/property"
	"github.com/wasgeurtjeNL/prop-pulse-sub000/scoring"
	"github.com/wasgeurtjeNL/prop-pulse-sub000/session"
)

// MaxImages caps how many session photos are persisted on the listing.
const MaxImages = 20

type Finalizer struct {
	properties *property.Store
	scorer     *scoring.Scorer
	logger     *slog.Logger
}

func New(properties *property.Store, scorer *scoring.Scorer, logger *slog.Logger) *Finalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Finalizer{properties: properties, scorer: scorer, logger: logger}
}

// Finalize creates the listing artifact. The listing plus its images are
// one unit of work; scoring runs after and its failure is logged, not
// surfaced, because the listing is already durably created.
func (f *Finalizer) Finalize(ctx context.Context, sess *session.Session) (*property.Property, error) {
	draft := sess.Listing
	if strings.TrimSpace(draft.Title) == "" {
		return nil, fmt.Errorf("finalize: session %s has no generated title", sess.ID)
	}
	if len(draft.PhotoURLs) == 0 {
		return nil, fmt.Errorf("finalize: session %s has no photos", sess.ID)
	}

	number, err := f.properties.NextListingNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("allocate listing number: %w", err)
	}
	slug, err := f.uniqueSlug(ctx, draft.Title)
	if err != nil {
		return nil, err
	}

	p := &property.Property{
		ID:            uuid.NewString(),
		ListingNumber: number,
		Slug:          slug,
		Title:         draft.Title,
		Description:   draft.Description,
		HTMLBody:      draft.HTMLBody,
		ListingType:   draft.ListingType,
		PropertyType:  draft.PropertyType,
		Ownership:     draft.Ownership,
		Price:         draft.Price,
		Bedrooms:      draft.Bedrooms,
		Bathrooms:     draft.Bathrooms,
		Lat:           draft.Lat,
		Lng:           draft.Lng,
		Address:       draft.Address,
		District:      draft.District,
		RegionSlug:    Slugify(regionFor(draft.District)),
		DistrictSlug:  Slugify(draft.District),
	}

	photoURLs := draft.PhotoURLs
	if len(photoURLs) > MaxImages {
		photoURLs = photoURLs[:MaxImages]
	}
	images := make([]property.Image, 0, len(photoURLs))
	for i, url := range photoURLs {
		images = append(images, property.Image{
			URL:     url,
			AltText: altText(draft, i+1, len(photoURLs)),
		})
	}

	if err := f.properties.Create(ctx, p, images); err != nil {
		return nil, err
	}
	f.logger.Info("listing_created",
		"property_id", p.ID,
		"listing_number", p.ListingNumber,
		"slug", p.Slug,
		"images", len(images),
	)

	f.persistScores(ctx, p)
	return p, nil
}

// persistScores computes and saves proximity scores. Non-fatal: the
// listing already exists.
func (f *Finalizer) persistScores(ctx context.Context, p *property.Property) {
	if p.Lat == 0 && p.Lng == 0 {
		return
	}
	proximities := f.scorer.Score(p.Lat, p.Lng)
	scores := make([]property.ProximityScore, 0, len(proximities))
	for _, pr := range proximities {
		scores = append(scores, property.ProximityScore{
			Kind:       pr.Kind,
			Name:       pr.Name,
			DistanceKm: pr.DistanceKm,
			Score:      pr.Score,
		})
	}
	if err := f.properties.SaveScores(ctx, p.ID, scores); err != nil {
		f.logger.Warn("listing_scores_failed", "property_id", p.ID, "error", err.Error())
	}
}

func (f *Finalizer) uniqueSlug(ctx context.Context, title string) (string, error) {
	base := Slugify(title)
	if base == "" {
		base = "listing"
	}
	exists, err := f.properties.SlugExists(ctx, base)
	if err != nil {
		return "", err
	}
	if !exists {
		return base, nil
	}
	return base + "-" + uuid.NewString()[:8], nil
}

func altText(draft session.ListingDraft, position, total int) string {
	subject := strings.TrimSpace(draft.PropertyType)
	if subject == "" {
		subject = "property"
	}
	where := strings.TrimSpace(draft.District)
	if where == "" {
		where = "Phuket"
	}
	if position == 1 {
		return fmt.Sprintf("Cover photo of %s in %s", subject, where)
	}
	return fmt.Sprintf("Photo %d of %d of %s in %s", position, total, subject, where)
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases and hyphenates; non-latin text collapses away, which
// is fine because titles are generated in English.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = nonSlugChars.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// regionFor maps a district to its parent region slug source. Everything
// the agency lists today is on Phuket.
func regionFor(district string) string {
	if strings.TrimSpace(district) == "" {
		return "phuket"
	}
	return "phuket"
}
