package property

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.sqlite")
	gdb, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	store, err := NewStore(gdb)
	require.NoError(t, err)
	return store
}

func seedProperty(t *testing.T, store *Store, title string, imageCount int) *Property {
	t.Helper()
	ctx := context.Background()
	number, err := store.NextListingNumber(ctx)
	require.NoError(t, err)
	p := &Property{
		ID:            uuid.NewString(),
		ListingNumber: number,
		Slug:          fmt.Sprintf("%s-%s", title, uuid.NewString()[:8]),
		Title:         title,
		ListingType:   "sale",
		PropertyType:  "villa",
	}
	images := make([]Image, 0, imageCount)
	for i := 0; i < imageCount; i++ {
		images = append(images, Image{URL: fmt.Sprintf("https://cdn.example.com/%s-%d.jpg", title, i+1)})
	}
	require.NoError(t, store.Create(ctx, p, images))
	return p
}

func TestCanonicalListingNumber(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"412", "PP-000412"},
		{"PP-412", "PP-000412"},
		{"pp000412", "PP-000412"},
		{"000412", "PP-000412"},
	}
	for _, tt := range tests {
		got, err := CanonicalListingNumber(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got)
	}

	for _, bad := range []string{"", "abc", "12345678", "PP-"} {
		_, err := CanonicalListingNumber(bad)
		assert.Error(t, err, bad)
	}
}

func TestCreateAssignsContiguousPositions(t *testing.T) {
	store := newTestStore(t)
	p := seedProperty(t, store, "villa-one", 3)

	images, err := store.Images(context.Background(), p.ID)
	require.NoError(t, err)
	require.Len(t, images, 3)
	for i, img := range images {
		assert.Equal(t, i+1, img.Position)
	}
}

func TestDeleteImageKeepsContiguityAndPromotesCover(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	p := seedProperty(t, store, "villa-two", 3)

	before, err := store.Images(ctx, p.ID)
	require.NoError(t, err)
	secondURL := before[1].URL

	require.NoError(t, store.DeleteImage(ctx, p.ID, 1))

	after, err := store.Images(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, after, 2)
	assert.Equal(t, 1, after[0].Position)
	assert.Equal(t, 2, after[1].Position)
	assert.Equal(t, secondURL, after[0].URL)

	cover, err := store.CoverImageURL(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, secondURL, cover)
}

func TestDeleteLastImageRefused(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	p := seedProperty(t, store, "villa-three", 1)

	err := store.DeleteImage(ctx, p.ID, 1)
	assert.ErrorIs(t, err, ErrLastImage)

	images, err := store.Images(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, images, 1)
}

func TestAddImageAppends(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	p := seedProperty(t, store, "villa-four", 2)

	pos, err := store.AddImage(ctx, p.ID, "https://cdn.example.com/new.jpg", "pool area")
	require.NoError(t, err)
	assert.Equal(t, 3, pos)
}

func TestReplaceImageKeepsPosition(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	p := seedProperty(t, store, "villa-five", 2)

	require.NoError(t, store.ReplaceImage(ctx, p.ID, 2, "https://cdn.example.com/replacement.jpg", "garden"))

	images, err := store.Images(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, "https://cdn.example.com/replacement.jpg", images[1].URL)
	assert.Equal(t, 2, images[1].Position)
}

func TestUpdateOwner(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	p := seedProperty(t, store, "villa-six", 1)

	require.NoError(t, store.UpdateOwner(ctx, p.ID, OwnerFields{
		Name:       "Somchai P.",
		Phone:      "66812345678",
		Company:    "Coastal Estates",
		Commission: 3.5,
	}))

	got, err := store.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Somchai P.", got.OwnerName)
	assert.Equal(t, "66812345678", got.OwnerPhone)
	assert.Equal(t, 3.5, got.OwnerCommission)
}

func TestSearchPagination(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < 7; i++ {
		seedProperty(t, store, fmt.Sprintf("beachfront-%d", i), 1)
	}
	seedProperty(t, store, "mountain-retreat", 1)

	page, err := store.Search(ctx, "BEACHFRONT", 1, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(7), page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Results, 5)
	assert.NotEmpty(t, page.Results[0].CoverURL)

	page2, err := store.Search(ctx, "beachfront", 2, 5)
	require.NoError(t, err)
	assert.Len(t, page2.Results, 2)
}

func TestSearchMatchesOwnerFields(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	p := seedProperty(t, store, "plain-condo", 1)
	require.NoError(t, store.UpdateOwner(ctx, p.ID, OwnerFields{Name: "Natcha K", Company: "Island Homes"}))

	byName, err := store.Search(ctx, "natcha", 1, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(1), byName.Total)

	byCompany, err := store.Search(ctx, "island homes", 1, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(1), byCompany.Total)
}

func TestRegistrationIdentityLookup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	req := &RegistrationRequest{
		ID:            uuid.NewString(),
		Phone:         "66812345678",
		FirstName:     "Somchai",
		LastName:      "Prasert",
		IDDocumentURL: "https://cdn.example.com/id.jpg",
		Status:        RegistrationDispatched,
		ExternalID:    "wf-123",
	}
	require.NoError(t, store.CreateRegistration(ctx, req))

	found, err := store.FindIdentityByPhone(ctx, "66812345678")
	require.NoError(t, err)
	assert.Equal(t, "Somchai", found.FirstName)

	_, err = store.FindIdentityByPhone(ctx, "66899999999")
	assert.ErrorIs(t, err, ErrNotFound)

	byExt, err := store.GetRegistrationByExternalID(ctx, "wf-123")
	require.NoError(t, err)
	assert.Equal(t, req.ID, byExt.ID)

	require.NoError(t, store.SetRegistrationStatus(ctx, req.ID, RegistrationCompleted, ""))
	got, err := store.GetRegistrationByExternalID(ctx, "wf-123")
	require.NoError(t, err)
	assert.Equal(t, RegistrationCompleted, got.Status)
}

func TestFindIdentityIgnoresFailedAndDoclessRows(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateRegistration(ctx, &RegistrationRequest{
		ID:     uuid.NewString(),
		Phone:  "66811111111",
		Status: RegistrationFailed,

		IDDocumentURL: "https://cdn.example.com/failed-id.jpg",
	}))
	require.NoError(t, store.CreateRegistration(ctx, &RegistrationRequest{
		ID:     uuid.NewString(),
		Phone:  "66811111111",
		Status: RegistrationPending,
	}))

	_, err := store.FindIdentityByPhone(ctx, "66811111111")
	assert.ErrorIs(t, err, ErrNotFound)
}
