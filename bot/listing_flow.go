package bot

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/wasgeurtjeNL/prop-pulse-sub000/normalize"
	"github.com/wasgeurtjeNL/prop-pulse-sub000/session"
)

// Listing-creation flow: type → photos → location → price → rooms →
// background analysis → confirmation.

var propertyTypes = []string{"villa", "condo", "townhouse", "apartment", "land"}

func (e *Engine) handleListingType(ctx context.Context, sess *session.Session, cmd normalize.Command) (Response, error) {
	var listingType string
	switch {
	case cmd.HasNumber && cmd.Number == 1, containsAny(cmd.Text, "sale", "sell", "ขาย"):
		listingType = "sale"
	case cmd.HasNumber && cmd.Number == 2, containsAny(cmd.Text, "rent", "เช่า"):
		listingType = "rent"
	default:
		return Text("Please pick 1 (for sale) or 2 (for rent)."), nil
	}

	sess.Listing.ListingType = listingType
	if err := e.sessions.SaveListingDraft(ctx, sess.ID, sess.Listing); err != nil {
		return Response{}, err
	}
	if err := e.sessions.SetStatus(ctx, sess.ID, session.StatusAwaitingPropertyType, ""); err != nil {
		return Response{}, err
	}
	return Text("Got it. What type of property is it?\n" +
		"1. Villa\n2. Condo\n3. Townhouse\n4. Apartment\n5. Land"), nil
}

func (e *Engine) handlePropertyType(ctx context.Context, sess *session.Session, cmd normalize.Command) (Response, error) {
	propertyType := ""
	if cmd.HasNumber && cmd.Number >= 1 && cmd.Number <= int64(len(propertyTypes)) {
		propertyType = propertyTypes[cmd.Number-1]
	} else {
		for _, t := range propertyTypes {
			if containsAny(cmd.Text, t) {
				propertyType = t
				break
			}
		}
	}
	if propertyType == "" {
		return Text("Please pick a number from 1 to 5 for the property type."), nil
	}

	sess.Listing.PropertyType = propertyType
	if err := e.sessions.SaveListingDraft(ctx, sess.ID, sess.Listing); err != nil {
		return Response{}, err
	}

	// Ownership structure only matters when the property is being sold.
	if sess.Listing.ListingType == "sale" {
		if err := e.sessions.SetStatus(ctx, sess.ID, session.StatusAwaitingOwnership, ""); err != nil {
			return Response{}, err
		}
		return Text("Is the ownership freehold or leasehold?\n1. Freehold\n2. Leasehold"), nil
	}
	if err := e.sessions.SetStatus(ctx, sess.ID, session.StatusAwaitingPhotos, ""); err != nil {
		return Response{}, err
	}
	return Text(e.askPhotosPrompt()), nil
}

func (e *Engine) handleOwnership(ctx context.Context, sess *session.Session, cmd normalize.Command) (Response, error) {
	var ownership string
	switch {
	case cmd.HasNumber && cmd.Number == 1, containsAny(cmd.Text, "freehold"):
		ownership = "freehold"
	case cmd.HasNumber && cmd.Number == 2, containsAny(cmd.Text, "leasehold", "lease"):
		ownership = "leasehold"
	default:
		return Text("Please pick 1 (freehold) or 2 (leasehold)."), nil
	}

	sess.Listing.Ownership = ownership
	if err := e.sessions.SaveListingDraft(ctx, sess.ID, sess.Listing); err != nil {
		return Response{}, err
	}
	if err := e.sessions.SetStatus(ctx, sess.ID, session.StatusAwaitingPhotos, ""); err != nil {
		return Response{}, err
	}
	return Text(e.askPhotosPrompt()), nil
}

func (e *Engine) askPhotosPrompt() string {
	return fmt.Sprintf("Now send me the photos, one by one. I need at least %d "+
		"(up to %d). Start with the shot you want as the cover image.",
		e.cfg.MinPhotos, e.cfg.MaxPhotos)
}

func (e *Engine) handleFirstPhoto(ctx context.Context, sess *session.Session, cmd normalize.Command) (Response, error) {
	if !cmd.HasPhoto {
		return Text("I'm waiting for photos. " + e.askPhotosPrompt()), nil
	}
	if err := e.acceptListingPhoto(ctx, sess, cmd.PhotoRef); err != nil {
		return Text(msgPhotoFailed), nil
	}
	if err := e.sessions.SetStatus(ctx, sess.ID, session.StatusCollectingPhotos, ""); err != nil {
		return Response{}, err
	}
	return Textf("Cover photo saved! 📸 %d more to go.", e.cfg.MinPhotos-1), nil
}

func (e *Engine) handleCollectingPhotos(ctx context.Context, sess *session.Session, cmd normalize.Command) (Response, error) {
	if cmd.Is(normalize.IntentDone) {
		missing := e.cfg.MinPhotos - sess.Listing.PhotoCount()
		return Textf("I need at least %d more photo(s) before we can continue.", missing), nil
	}
	if !cmd.HasPhoto {
		return Textf("Keep the photos coming — %d received, %d more needed.",
			sess.Listing.PhotoCount(), e.cfg.MinPhotos-sess.Listing.PhotoCount()), nil
	}

	if err := e.acceptListingPhoto(ctx, sess, cmd.PhotoRef); err != nil {
		return Text(msgPhotoFailed), nil
	}
	count := sess.Listing.PhotoCount()
	if count < e.cfg.MinPhotos {
		return Textf("Photo %d saved. %d more needed.", count, e.cfg.MinPhotos-count), nil
	}

	if err := e.sessions.SetStatus(ctx, sess.ID, session.StatusAwaitingMorePhotos, ""); err != nil {
		return Response{}, err
	}
	return Textf("That's %d photos — enough to publish! Send more (up to %d total) "+
		"or type *done* to continue.", count, e.cfg.MaxPhotos), nil
}

func (e *Engine) handleMorePhotos(ctx context.Context, sess *session.Session, cmd normalize.Command) (Response, error) {
	if cmd.Is(normalize.IntentDone) {
		if err := e.sessions.SetStatus(ctx, sess.ID, session.StatusAwaitingLocation, ""); err != nil {
			return Response{}, err
		}
		return Text(msgAskLocation), nil
	}
	if !cmd.HasPhoto {
		return Textf("Send more photos (%d of %d so far) or type *done* to continue.",
			sess.Listing.PhotoCount(), e.cfg.MaxPhotos), nil
	}

	if err := e.acceptListingPhoto(ctx, sess, cmd.PhotoRef); err != nil {
		return Text(msgPhotoFailed), nil
	}
	count := sess.Listing.PhotoCount()
	if count >= e.cfg.MaxPhotos {
		if err := e.sessions.SetStatus(ctx, sess.ID, session.StatusAwaitingLocation, ""); err != nil {
			return Response{}, err
		}
		return Textf("That's the maximum of %d photos, so let's move on.\n\n%s",
			e.cfg.MaxPhotos, msgAskLocation), nil
	}
	return Textf("Photo %d of %d saved. More, or type *done*.", count, e.cfg.MaxPhotos), nil
}

const msgPhotoFailed = "I couldn't save that photo — it may have expired. Please send it again."

const msgAskLocation = "Where is the property? You can:\n" +
	"• share your location via the 📎 attachment menu,\n" +
	"• paste a Google Maps link, or\n" +
	"• send a screenshot of the map."

func (e *Engine) acceptListingPhoto(ctx context.Context, sess *session.Session, photoRef string) error {
	url, err := e.media.Rehost(ctx, photoRef)
	if err != nil {
		e.logger.Warn("listing_photo_rehost_failed", "session_id", sess.ID, "error", err.Error())
		return err
	}
	sess.Listing.PhotoURLs = append(sess.Listing.PhotoURLs, url)
	return e.sessions.SaveListingDraft(ctx, sess.ID, sess.Listing)
}

func (e *Engine) handleLocation(ctx context.Context, sess *session.Session, cmd normalize.Command) (Response, error) {
	switch {
	case cmd.HasLocation:
		if err := e.applyLocation(ctx, sess, cmd.Lat, cmd.Lng, cmd.LocationAddr); err != nil {
			return Response{}, err
		}
	case cmd.HasPhoto:
		resolved, err := e.locationFromScreenshot(ctx, sess, cmd.PhotoRef)
		if err != nil {
			return Response{}, err
		}
		if !resolved {
			return Text("I couldn't read a location from that screenshot. " +
				"Try sharing your location directly or pasting a maps link."), nil
		}
	default:
		return Text(msgAskLocation), nil
	}

	if err := e.sessions.SetStatus(ctx, sess.ID, session.StatusAwaitingPrice, ""); err != nil {
		return Response{}, err
	}
	confirm := "Location saved"
	if sess.Listing.Address != "" {
		confirm = "Location saved: " + sess.Listing.Address
	}
	return Text(confirm + ".\n\n" + e.askPricePrompt(sess)), nil
}

func (e *Engine) askPricePrompt(sess *session.Session) string {
	if sess.Listing.ListingType == "rent" {
		return "What's the monthly rent in THB? Just the number, e.g. 45000."
	}
	return "What's the asking price in THB? Just the number, e.g. 15000000."
}

// locationFromScreenshot reads a map screenshot and resolves it through
// whichever clue vision found: raw coordinates, a plus code, or address
// text. Returns false when nothing could be resolved.
func (e *Engine) locationFromScreenshot(ctx context.Context, sess *session.Session, photoRef string) (bool, error) {
	url, err := e.media.Rehost(ctx, photoRef)
	if err != nil {
		e.logger.Warn("location_screenshot_rehost_failed", "session_id", sess.ID, "error", err.Error())
		return false, nil
	}
	guess, err := e.vision.ExtractAddress(ctx, url)
	if err != nil {
		e.logger.Warn("location_screenshot_extract_failed", "session_id", sess.ID, "error", err.Error())
		return false, nil
	}

	switch {
	case guess.HasCoords:
		return true, e.applyLocation(ctx, sess, guess.Lat, guess.Lng, guess.AddressText)
	case guess.LocationCode != "":
		coords, err := e.geocoder.ResolveLocationCode(ctx, guess.LocationCode)
		if err != nil {
			e.logger.Warn("location_code_resolve_failed", "session_id", sess.ID, "error", err.Error())
			return false, nil
		}
		return true, e.applyLocation(ctx, sess, coords.Lat, coords.Lng, guess.AddressText)
	case guess.AddressText != "":
		coords, err := e.geocoder.Forward(ctx, guess.AddressText)
		if err != nil {
			e.logger.Warn("location_forward_geocode_failed", "session_id", sess.ID, "error", err.Error())
			return false, nil
		}
		return true, e.applyLocation(ctx, sess, coords.Lat, coords.Lng, guess.AddressText)
	}
	return false, nil
}

// applyLocation stores the coordinates and fills address/district via
// reverse geocoding when the channel did not provide them. Geocoder
// failures are tolerated: coordinates alone are enough to publish.
func (e *Engine) applyLocation(ctx context.Context, sess *session.Session, lat, lng float64, address string) error {
	sess.Listing.HasLocation = true
	sess.Listing.Lat = lat
	sess.Listing.Lng = lng
	sess.Listing.Address = strings.TrimSpace(address)

	if e.geocoder != nil {
		place, err := e.geocoder.Reverse(ctx, lat, lng)
		if err != nil {
			e.logger.Warn("reverse_geocode_failed", "session_id", sess.ID, "error", err.Error())
		} else {
			if sess.Listing.Address == "" {
				sess.Listing.Address = place.Address
			}
			sess.Listing.District = place.District
		}
	}
	return e.sessions.SaveListingDraft(ctx, sess.ID, sess.Listing)
}

func (e *Engine) handlePrice(ctx context.Context, sess *session.Session, cmd normalize.Command) (Response, error) {
	if !cmd.HasNumber || cmd.Number <= 0 {
		return Text("That doesn't look like a price. " + e.askPricePrompt(sess)), nil
	}
	sess.Listing.Price = cmd.Number
	if err := e.sessions.SaveListingDraft(ctx, sess.ID, sess.Listing); err != nil {
		return Response{}, err
	}
	if err := e.sessions.SetStatus(ctx, sess.ID, session.StatusAwaitingBedrooms, ""); err != nil {
		return Response{}, err
	}
	return Text("How many bedrooms? (0–20)"), nil
}

func (e *Engine) handleBedrooms(ctx context.Context, sess *session.Session, cmd normalize.Command) (Response, error) {
	if !cmd.HasNumber || cmd.Number < 0 || cmd.Number > 20 {
		return Text("Please send the number of bedrooms as a number from 0 to 20."), nil
	}
	sess.Listing.Bedrooms = int(cmd.Number)
	if err := e.sessions.SaveListingDraft(ctx, sess.ID, sess.Listing); err != nil {
		return Response{}, err
	}
	if err := e.sessions.SetStatus(ctx, sess.ID, session.StatusAwaitingBathrooms, ""); err != nil {
		return Response{}, err
	}
	return Text("And how many bathrooms? (0–20)"), nil
}

func (e *Engine) handleBathrooms(ctx context.Context, sess *session.Session, cmd normalize.Command) (Response, error) {
	if !cmd.HasNumber || cmd.Number < 0 || cmd.Number > 20 {
		return Text("Please send the number of bathrooms as a number from 0 to 20."), nil
	}
	sess.Listing.Bathrooms = int(cmd.Number)
	if err := e.sessions.SaveListingDraft(ctx, sess.ID, sess.Listing); err != nil {
		return Response{}, err
	}
	if err := e.sessions.SetStatus(ctx, sess.ID, session.StatusProcessing, ""); err != nil {
		return Response{}, err
	}

	e.startAnalysis(sess.ID, sess.ChannelIdentity)
	return Text("Perfect, that's everything I need! 🤖\n\n" +
		"I'm analyzing the photos and writing the listing now. " +
		"This takes a minute or two — I'll message you when it's ready."), nil
}

func (e *Engine) handleProcessing(ctx context.Context, sess *session.Session, cmd normalize.Command) (Response, error) {
	return Text("Still working on your listing — I'll message you the moment it's ready."), nil
}

func (e *Engine) handleConfirmation(ctx context.Context, sess *session.Session, cmd normalize.Command) (Response, error) {
	if !cmd.Is(normalize.IntentConfirm) && !cmd.Is(normalize.IntentYes) {
		return Text(listingSummary(sess.Listing) + "\n\n" + msgConfirmHint), nil
	}

	p, err := e.finalizer.Finalize(ctx, sess)
	if err != nil {
		e.logger.Error("listing_finalize_failed", "session_id", sess.ID, "error", err.Error())
		if serr := e.sessions.SetStatus(ctx, sess.ID, session.StatusError, err.Error()); serr != nil {
			return Response{}, serr
		}
		return Text("I couldn't publish the listing — the draft is closed. " +
			"Please start again with *new*; sorry about that."), nil
	}

	sess.Listing.PropertyID = p.ID
	sess.Listing.ListingNumber = p.ListingNumber
	if err := e.sessions.SaveListingDraft(ctx, sess.ID, sess.Listing); err != nil {
		return Response{}, err
	}
	if err := e.sessions.SetStatus(ctx, sess.ID, session.StatusCompleted, ""); err != nil {
		return Response{}, err
	}
	return Textf("Published! 🎉 Your listing is live as *%s*.\n\n"+
		"Type *menu* whenever you need me again.", p.ListingNumber), nil
}

const msgConfirmHint = "Reply *confirm* to publish, or *cancel* to discard the draft."

// listingSummary renders the post-analysis review card.
func listingSummary(d session.ListingDraft) string {
	var b strings.Builder
	b.WriteString("Here's your listing draft:\n\n")
	b.WriteString("*" + d.Title + "*\n")
	if d.Description != "" {
		b.WriteString(d.Description + "\n")
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "• %s, %s", titleCase(d.PropertyType), forLabel(d.ListingType))
	if d.Ownership != "" {
		b.WriteString(", " + d.Ownership)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "• %d bed / %d bath\n", d.Bedrooms, d.Bathrooms)
	fmt.Fprintf(&b, "• Price: ฿%s", formatTHB(d.Price))
	if d.SuggestedPrice > 0 && d.SuggestedPrice != d.Price {
		fmt.Fprintf(&b, " (suggested: ฿%s)", formatTHB(d.SuggestedPrice))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "• %d photos\n", d.PhotoCount())
	if d.Address != "" {
		fmt.Fprintf(&b, "• %s\n", d.Address)
	}
	if len(d.Amenities) > 0 {
		fmt.Fprintf(&b, "• Amenities: %s\n", strings.Join(d.Amenities, ", "))
	}
	if len(d.Scores) > 0 {
		b.WriteString("• Nearby: " + scoreLine(d.Scores) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func scoreLine(scores map[string]float64) string {
	kinds := make([]string, 0, len(scores))
	for k := range scores {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	parts := make([]string, 0, len(kinds))
	for _, k := range kinds {
		parts = append(parts, fmt.Sprintf("%s %.1f/10", k, scores[k]))
	}
	return strings.Join(parts, ", ")
}

func forLabel(listingType string) string {
	if listingType == "rent" {
		return "for rent"
	}
	return "for sale"
}

func titleCase(s string) string {
	if s == "" {
		return "Property"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// formatTHB groups an amount with thousands separators.
func formatTHB(amount int64) string {
	s := fmt.Sprintf("%d", amount)
	if len(s) <= 3 {
		return s
	}
	var out []byte
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}
	return string(out)
}

// containsAny reports whether the lowered text contains any needle.
func containsAny(text string, needles ...string) bool {
	lowered := strings.ToLower(text)
	for _, n := range needles {
		if n != "" && strings.Contains(lowered, n) {
			return true
		}
	}
	return false
}
