package bot

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wasgeurtjeNL/prop-pulse-sub000/external"
	"github.com/wasgeurtjeNL/prop-pulse-sub000/finalize"
	"github.com/wasgeurtjeNL/prop-pulse-sub000/normalize"
	"github.com/wasgeurtjeNL/prop-pulse-sub000/property"
	"github.com/wasgeurtjeNL/prop-pulse-sub000/scoring"
	"github.com/wasgeurtjeNL/prop-pulse-sub000/session"
)

// --- fakes ---

type fakeGateway struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeGateway) SendText(ctx context.Context, identity, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeGateway) SendImage(ctx context.Context, identity, url, caption string) error {
	return nil
}

func (f *fakeGateway) DownloadMedia(ctx context.Context, ref string) ([]byte, string, error) {
	return []byte("bytes"), "image/jpeg", nil
}

func (f *fakeGateway) lastSent() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1]
}

type fakeRehoster struct {
	count int
	err   error
}

func (f *fakeRehoster) Rehost(ctx context.Context, ref string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.count++
	return fmt.Sprintf("https://media.example.com/media/%s-%d.jpg", ref, f.count), nil
}

type fakeVision struct {
	guess    external.AddressGuess
	guessErr error
}

func (f *fakeVision) Analyze(ctx context.Context, urls []string, locationCtx string) (external.VisionAnalysis, error) {
	return external.VisionAnalysis{
		PropertyType: "villa",
		Beds:         4,
		Baths:        4,
		Amenities:    []string{"private pool", "parking"},
		HasPool:      true,
	}, nil
}

func (f *fakeVision) ExtractAddress(ctx context.Context, url string) (external.AddressGuess, error) {
	return f.guess, f.guessErr
}

type fakeDocuments struct {
	fields external.DocumentFields
	err    error
}

func (f *fakeDocuments) Extract(ctx context.Context, url string, kind external.DocumentKind) (external.DocumentFields, error) {
	return f.fields, f.err
}

type fakeGeocoder struct{}

func (fakeGeocoder) Reverse(ctx context.Context, lat, lng float64) (external.Place, error) {
	return external.Place{Address: "99/9 Kata Road, Mueang Phuket", District: "Kata"}, nil
}

func (fakeGeocoder) Forward(ctx context.Context, text string) (external.Coordinates, error) {
	return external.Coordinates{Lat: 7.82, Lng: 98.3}, nil
}

func (fakeGeocoder) ResolveLocationCode(ctx context.Context, code string) (external.Coordinates, error) {
	return external.Coordinates{Lat: 7.82, Lng: 98.3}, nil
}

type fakeContent struct{ err error }

func (f *fakeContent) Generate(ctx context.Context, in external.ContentInput) (external.ListingContent, error) {
	if f.err != nil {
		return external.ListingContent{}, f.err
	}
	return external.ListingContent{
		Title:            fmt.Sprintf("Stunning %d-Bedroom %s in %s", in.Bedrooms, titleCase(in.PropertyType), in.District),
		ShortDescription: "A lovely property.",
		HTML:             "<h2>A lovely property</h2>",
		SuggestedPrice:   in.Price,
	}, nil
}

type fakeWorkflow struct {
	receipt  external.WorkflowReceipt
	err      error
	payloads []external.RegistrationPayload
}

func (f *fakeWorkflow) Dispatch(ctx context.Context, p external.RegistrationPayload) (external.WorkflowReceipt, error) {
	f.payloads = append(f.payloads, p)
	return f.receipt, f.err
}

// --- harness ---

type testEnv struct {
	engine     *Engine
	gdb        *gorm.DB
	sessions   *session.Store
	properties *property.Store
	gateway    *fakeGateway
	workflow   *fakeWorkflow
	vision     *fakeVision
	documents  *fakeDocuments
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.sqlite")
	gdb, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sessions, err := session.NewStore(gdb, 24*time.Hour)
	require.NoError(t, err)
	properties, err := property.NewStore(gdb)
	require.NoError(t, err)
	scorer, err := scoring.NewScorer()
	require.NoError(t, err)

	gateway := &fakeGateway{}
	workflow := &fakeWorkflow{receipt: external.WorkflowReceipt{Accepted: true, ExternalID: "wf-001"}}
	vision := &fakeVision{}
	documents := &fakeDocuments{fields: external.DocumentFields{
		FirstName:  "Somchai",
		LastName:   "Jaidee",
		NationalID: "1103700123456",
		Address:    "123/4 Moo 5, Rawai",
		PostalCode: "83130",
	}}

	engine, err := New(Options{
		Sessions:   sessions,
		Properties: properties,
		Finalizer:  finalize.New(properties, scorer, slog.Default()),
		Media:      &fakeRehoster{},
		Vision:     vision,
		Documents:  documents,
		Geocoder:   fakeGeocoder{},
		Content:    &fakeContent{},
		Workflow:   workflow,
		Gateway:    gateway,
		Scorer:     scorer,
	})
	require.NoError(t, err)
	engine.syncAnalysis = true

	return &testEnv{
		engine:     engine,
		gdb:        gdb,
		sessions:   sessions,
		properties: properties,
		gateway:    gateway,
		workflow:   workflow,
		vision:     vision,
		documents:  documents,
	}
}

const testIdentity = "66899990000"

func (env *testEnv) say(t *testing.T, text string) Response {
	t.Helper()
	resp, err := env.engine.HandleEvent(context.Background(), normalize.InboundEvent{
		Type: normalize.EventText, From: testIdentity, SenderName: "Nok", Text: text,
	})
	require.NoError(t, err)
	return resp
}

func (env *testEnv) sendPhoto(t *testing.T, ref string) Response {
	t.Helper()
	resp, err := env.engine.HandleEvent(context.Background(), normalize.InboundEvent{
		Type: normalize.EventPhoto, From: testIdentity, PhotoRef: ref,
	})
	require.NoError(t, err)
	return resp
}

func (env *testEnv) sendLocation(t *testing.T, lat, lng float64) Response {
	t.Helper()
	resp, err := env.engine.HandleEvent(context.Background(), normalize.InboundEvent{
		Type: normalize.EventLocation, From: testIdentity, Lat: lat, Lng: lng,
	})
	require.NoError(t, err)
	return resp
}

func (env *testEnv) activeStatus(t *testing.T) session.Status {
	t.Helper()
	sess, err := env.sessions.GetActive(context.Background(), testIdentity)
	require.NoError(t, err)
	return sess.Status
}

func firstText(r Response) string {
	if len(r.Messages) == 0 {
		return ""
	}
	return r.Messages[0].Text
}

// seedProperty creates a published listing directly through the store.
func (env *testEnv) seedProperty(t *testing.T, title string, photos int) *property.Property {
	t.Helper()
	ctx := context.Background()
	number, err := env.properties.NextListingNumber(ctx)
	require.NoError(t, err)
	p := &property.Property{
		ID:            fmt.Sprintf("prop-%s", number),
		ListingNumber: number,
		Slug:          finalize.Slugify(title) + "-" + number,
		Title:         title,
		ListingType:   "sale",
		PropertyType:  "villa",
		Price:         12000000,
		Bedrooms:      3,
		Bathrooms:     2,
		District:      "Rawai",
	}
	images := make([]property.Image, 0, photos)
	for i := 0; i < photos; i++ {
		images = append(images, property.Image{
			URL: fmt.Sprintf("https://media.example.com/%s-%d.jpg", number, i+1),
		})
	}
	require.NoError(t, env.properties.Create(ctx, p, images))
	return p
}

// --- dispatcher tests ---

func TestGreetingWhenIdle(t *testing.T) {
	env := newTestEnv(t)
	resp := env.say(t, "hi there")
	assert.Contains(t, firstText(resp), "Hello Nok!")
	assert.Contains(t, firstText(resp), "1. Create a new listing")
}

func TestNumberedMenuEntryWhenIdle(t *testing.T) {
	env := newTestEnv(t)
	resp := env.say(t, "3")
	assert.Contains(t, firstText(resp), "What should I search for?")
	assert.Equal(t, session.StatusSearchAwaitingQuery, env.activeStatus(t))
}

func TestNumbersInsideFlowAreNotMenuEntries(t *testing.T) {
	env := newTestEnv(t)
	env.say(t, "start")
	resp := env.say(t, "2") // answers the listing-type question, not menu entry 2
	assert.Contains(t, firstText(resp), "What type of property")
	sess, err := env.sessions.GetActive(context.Background(), testIdentity)
	require.NoError(t, err)
	assert.Equal(t, "rent", sess.Listing.ListingType)
}

func TestCancelMidFlowReturnsToMenu(t *testing.T) {
	env := newTestEnv(t)
	env.say(t, "start")
	resp := env.say(t, "cancel")
	assert.Contains(t, firstText(resp), "cancelled")
	assert.Contains(t, firstText(resp), "1. Create a new listing")

	_, err := env.sessions.GetActive(context.Background(), testIdentity)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestStartingNewFlowCancelsPrevious(t *testing.T) {
	env := newTestEnv(t)
	env.say(t, "start")
	env.seedProperty(t, "Rawai Pool Villa", 2)
	env.say(t, "owner")

	sess, err := env.sessions.GetActive(context.Background(), testIdentity)
	require.NoError(t, err)
	assert.Equal(t, session.StatusOwnerSelectProperty, sess.Status)
}

func TestExpiredSessionIsClosedWithNotice(t *testing.T) {
	env := newTestEnv(t)
	env.say(t, "start")
	env.engine.now = func() time.Time { return time.Now().Add(25 * time.Hour) }

	resp := env.say(t, "1")
	assert.Contains(t, firstText(resp), "expired")

	_, err := env.sessions.GetActive(context.Background(), testIdentity)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestMenuCancelsActiveSession(t *testing.T) {
	env := newTestEnv(t)
	env.say(t, "start")
	resp := env.say(t, "menu")
	assert.Contains(t, firstText(resp), "Main menu, Nok:")

	_, err := env.sessions.GetActive(context.Background(), testIdentity)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestMenuGreetsByNameWhenIdle(t *testing.T) {
	env := newTestEnv(t)
	resp := env.say(t, "menu")
	assert.Contains(t, firstText(resp), "Main menu, Nok:")
	assert.Contains(t, firstText(resp), "1. Create a new listing")
}

func TestMenuSurfacesStoreFailure(t *testing.T) {
	env := newTestEnv(t)
	env.say(t, "start")

	sqlDB, err := env.gdb.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	resp, err := env.engine.HandleEvent(context.Background(), normalize.InboundEvent{
		Type: normalize.EventText, From: testIdentity, SenderName: "Nok", Text: "menu",
	})
	require.Error(t, err)
	assert.Equal(t, msgInternalError, firstText(resp))
}

func TestHelpDoesNotTouchSession(t *testing.T) {
	env := newTestEnv(t)
	env.say(t, "start")
	resp := env.say(t, "help")
	assert.Contains(t, firstText(resp), "create a property listing")
	assert.Equal(t, session.StatusAwaitingListingType, env.activeStatus(t))
}
