package bot

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wasgeurtjeNL/prop-pulse-sub000/external"
	"github.com/wasgeurtjeNL/prop-pulse-sub000/session"
)

// walkToPhotos drives a fresh session to the photo-collection step.
func walkToPhotos(t *testing.T, env *testEnv) {
	t.Helper()
	env.say(t, "start")
	env.say(t, "1") // for sale
	env.say(t, "1") // villa
	env.say(t, "1") // freehold
}

func sendPhotos(t *testing.T, env *testEnv, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		env.sendPhoto(t, fmt.Sprintf("photo-%d", i+1))
	}
}

func TestListingCreationEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	walkToPhotos(t, env)
	assert.Equal(t, session.StatusAwaitingPhotos, env.activeStatus(t))

	sendPhotos(t, env, 8)
	assert.Equal(t, session.StatusAwaitingMorePhotos, env.activeStatus(t))

	env.say(t, "done")
	assert.Equal(t, session.StatusAwaitingLocation, env.activeStatus(t))

	env.sendLocation(t, 7.8204, 98.2988)
	assert.Equal(t, session.StatusAwaitingPrice, env.activeStatus(t))

	env.say(t, "15000000")
	env.say(t, "3") // bedrooms
	resp := env.say(t, "2")
	assert.Contains(t, firstText(resp), "analyzing")

	// Analysis runs synchronously in tests, so the session is already
	// waiting for confirmation and the summary was pushed.
	assert.Equal(t, session.StatusAwaitingConfirmation, env.activeStatus(t))
	assert.Contains(t, env.gateway.lastSent(), "Stunning 3-Bedroom Villa in Kata")

	sess, err := env.sessions.GetActive(ctx, testIdentity)
	require.NoError(t, err)
	assert.Equal(t, 3, sess.Listing.Bedrooms)
	assert.Equal(t, 2, sess.Listing.Bathrooms)
	assert.Equal(t, int64(15000000), sess.Listing.Price)
	assert.Equal(t, "Kata", sess.Listing.District)
	assert.NotEmpty(t, sess.Listing.Scores)

	resp = env.say(t, "confirm")
	assert.Contains(t, firstText(resp), "PP-000001")

	p, err := env.properties.GetByListingNumber(ctx, "PP-000001")
	require.NoError(t, err)
	assert.Equal(t, "sale", p.ListingType)
	images, err := env.properties.Images(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, images, 8)
}

func TestConfirmAfterCompletionIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	walkToPhotos(t, env)
	sendPhotos(t, env, 8)
	env.say(t, "done")
	env.sendLocation(t, 7.8204, 98.2988)
	env.say(t, "15000000")
	env.say(t, "3")
	env.say(t, "2")
	env.say(t, "confirm")

	resp := env.say(t, "confirm")
	assert.Contains(t, firstText(resp), "already published")
	assert.Contains(t, firstText(resp), "PP-000001")

	// No second listing was created.
	_, err := env.properties.GetByListingNumber(context.Background(), "PP-000002")
	assert.Error(t, err)
}

func TestDoneBeforeMinimumPhotosIsRefused(t *testing.T) {
	env := newTestEnv(t)
	walkToPhotos(t, env)
	sendPhotos(t, env, 5)

	resp := env.say(t, "done")
	assert.Contains(t, firstText(resp), "at least 3 more")
	assert.Equal(t, session.StatusCollectingPhotos, env.activeStatus(t))
}

func TestPhotoCapAdvancesToLocation(t *testing.T) {
	env := newTestEnv(t)
	walkToPhotos(t, env)
	sendPhotos(t, env, 19)

	resp := env.sendPhoto(t, "photo-20")
	assert.Contains(t, firstText(resp), "maximum of 20")
	assert.Equal(t, session.StatusAwaitingLocation, env.activeStatus(t))
}

func TestRentSkipsOwnershipQuestion(t *testing.T) {
	env := newTestEnv(t)
	env.say(t, "start")
	env.say(t, "2") // for rent
	resp := env.say(t, "2")
	assert.Contains(t, firstText(resp), "photos")
	assert.Equal(t, session.StatusAwaitingPhotos, env.activeStatus(t))
}

func TestMapScreenshotResolvesLocation(t *testing.T) {
	env := newTestEnv(t)
	env.vision.guess = external.AddressGuess{AddressText: "Kata Road, Phuket"}

	walkToPhotos(t, env)
	sendPhotos(t, env, 8)
	env.say(t, "done")

	resp := env.sendPhoto(t, "map-screenshot")
	assert.Contains(t, firstText(resp), "Location saved")
	assert.Equal(t, session.StatusAwaitingPrice, env.activeStatus(t))

	sess, err := env.sessions.GetActive(context.Background(), testIdentity)
	require.NoError(t, err)
	assert.InDelta(t, 7.82, sess.Listing.Lat, 0.001)
}

func TestUnreadableScreenshotReprompts(t *testing.T) {
	env := newTestEnv(t)
	env.vision.guess = external.AddressGuess{}

	walkToPhotos(t, env)
	sendPhotos(t, env, 8)
	env.say(t, "done")

	resp := env.sendPhoto(t, "blurry")
	assert.Contains(t, firstText(resp), "couldn't read a location")
	assert.Equal(t, session.StatusAwaitingLocation, env.activeStatus(t))
}

func TestInvalidPriceReprompts(t *testing.T) {
	env := newTestEnv(t)
	walkToPhotos(t, env)
	sendPhotos(t, env, 8)
	env.say(t, "done")
	env.sendLocation(t, 7.8204, 98.2988)

	resp := env.say(t, "cheap")
	assert.Contains(t, firstText(resp), "doesn't look like a price")
	assert.Equal(t, session.StatusAwaitingPrice, env.activeStatus(t))
}

func TestBedroomsOutOfRangeReprompts(t *testing.T) {
	env := newTestEnv(t)
	walkToPhotos(t, env)
	sendPhotos(t, env, 8)
	env.say(t, "done")
	env.sendLocation(t, 7.8204, 98.2988)
	env.say(t, "15000000")

	resp := env.say(t, "25")
	assert.Contains(t, firstText(resp), "0 to 20")
	assert.Equal(t, session.StatusAwaitingBedrooms, env.activeStatus(t))
}

func TestAnalysisFailureParksSessionInError(t *testing.T) {
	env := newTestEnv(t)
	env.engine.content = &fakeContent{err: fmt.Errorf("model unavailable")}

	walkToPhotos(t, env)
	sendPhotos(t, env, 8)
	env.say(t, "done")
	env.sendLocation(t, 7.8204, 98.2988)
	env.say(t, "15000000")
	env.say(t, "3")
	env.say(t, "2")

	assert.Contains(t, env.gateway.lastSent(), "ran into a problem")
	_, err := env.sessions.GetActive(context.Background(), testIdentity)
	assert.ErrorIs(t, err, session.ErrNotFound)

	latest, err := env.sessions.GetLatest(context.Background(), testIdentity)
	require.NoError(t, err)
	assert.Equal(t, session.StatusError, latest.Status)
}

func TestCommaSeparatedPriceAccepted(t *testing.T) {
	env := newTestEnv(t)
	walkToPhotos(t, env)
	sendPhotos(t, env, 8)
	env.say(t, "done")
	env.sendLocation(t, 7.8204, 98.2988)

	env.say(t, "15,000,000")
	sess, err := env.sessions.GetActive(context.Background(), testIdentity)
	require.NoError(t, err)
	assert.Equal(t, int64(15000000), sess.Listing.Price)
}
