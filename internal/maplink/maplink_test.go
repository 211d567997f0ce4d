package maplink

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMapURL(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"https://maps.app.goo.gl/abc123", true},
		{"https://www.google.com/maps/place/Villa/@7.8804,98.3923,17z", true},
		{"https://maps.apple.com/?ll=7.88,98.39", true},
		{"https://www.openstreetmap.org/?mlat=7.88&mlon=98.39", true},
		{"hello there", false},
		{"https://example.com/photos", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsMapURL(tt.input), tt.input)
	}
}

func TestMatchCoords(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantLat float64
		wantLng float64
	}{
		{"pin encoding", "https://www.google.com/maps/place/x/@7.0,98.0,17z/data=!3m1!4b1!4m6!3m5!3d7.880448!4d98.392345", 7.880448, 98.392345},
		{"query param", "https://maps.google.com/?q=7.880448,98.392345", 7.880448, 98.392345},
		{"ll param", "https://maps.apple.com/?ll=7.880448,98.392345", 7.880448, 98.392345},
		{"at sign viewport", "https://www.google.com/maps/@7.880448,98.392345,15z", 7.880448, 98.392345},
		{"osm marker", "https://www.openstreetmap.org/?mlat=7.88&mlon=98.39", 7.88, 98.39},
		{"url encoded comma", "https://maps.google.com/?q=7.880448%2C98.392345", 7.880448, 98.392345},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := matchCoords(tt.input)
			require.True(t, ok)
			assert.InDelta(t, tt.wantLat, c.Lat, 1e-9)
			assert.InDelta(t, tt.wantLng, c.Lng, 1e-9)
		})
	}
}

func TestMatchCoordsRejectsOutOfRange(t *testing.T) {
	_, ok := matchCoords("https://maps.google.com/?q=97.0,198.0")
	assert.False(t, ok)
}

func TestExtractFollowsShortLink(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()

	short := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target.URL+"/maps/place/x/@7.880448,98.392345,17z", http.StatusFound)
	}))
	defer short.Close()

	r := NewResolver(short.Client())

	// The resolver only follows redirects for known short-link hosts, so
	// exercise the resolve step directly against the test server.
	resolved, err := r.resolve(context.Background(), short.URL+"/abc")
	require.NoError(t, err)
	c, ok := matchCoords(resolved)
	require.True(t, ok)
	assert.InDelta(t, 7.880448, c.Lat, 1e-9)
	assert.InDelta(t, 98.392345, c.Lng, 1e-9)
}

func TestExtractDirect(t *testing.T) {
	r := NewResolver(nil)
	c, err := r.Extract(context.Background(), "https://maps.google.com/?q=7.88,98.39")
	require.NoError(t, err)
	assert.InDelta(t, 7.88, c.Lat, 1e-9)
	assert.InDelta(t, 98.39, c.Lng, 1e-9)
}
