package normalize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeIntents(t *testing.T) {
	n := New(nil, nil)
	tests := []struct {
		input string
		want  Intent
	}{
		{"/start", IntentStart},
		{"START", IntentStart},
		{"new listing", IntentStart},
		{"Cancel", IntentCancel},
		{"ยกเลิก", IntentCancel},
		{"menu", IntentMenu},
		{"help", IntentHelp},
		{"yes", IntentYes},
		{"ใช่", IntentYes},
		{"confirm", IntentConfirm},
		{"done", IntentDone},
		{"next", IntentNext},
		{"prev", IntentPrev},
		{"search", IntentSearch},
		{"owner", IntentOwnerUpdate},
		{"photos", IntentPhotos},
		{"register", IntentRegistration},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			cmd := n.Normalize(context.Background(), InboundEvent{Type: EventText, Text: tt.input})
			require.NotNil(t, cmd.Intent)
			assert.Equal(t, tt.want, *cmd.Intent)
		})
	}
}

func TestNormalizeUnknownTextHasNilIntent(t *testing.T) {
	n := New(nil, nil)
	cmd := n.Normalize(context.Background(), InboundEvent{Type: EventText, Text: "lovely sea view villa"})
	assert.Nil(t, cmd.Intent)
	assert.False(t, cmd.HasNumber)
	assert.Equal(t, "lovely sea view villa", cmd.Text)
}

func TestNormalizeInteger(t *testing.T) {
	n := New(nil, nil)

	cmd := n.Normalize(context.Background(), InboundEvent{Type: EventText, Text: "15000000"})
	assert.Nil(t, cmd.Intent)
	require.True(t, cmd.HasNumber)
	assert.Equal(t, int64(15000000), cmd.Number)

	withSeparators := n.Normalize(context.Background(), InboundEvent{Type: EventText, Text: "15,000,000"})
	require.True(t, withSeparators.HasNumber)
	assert.Equal(t, int64(15000000), withSeparators.Number)
}

func TestNormalizePhotoEvent(t *testing.T) {
	n := New(nil, nil)
	cmd := n.Normalize(context.Background(), InboundEvent{Type: EventPhoto, PhotoRef: "media-123"})
	assert.True(t, cmd.HasPhoto)
	assert.Equal(t, "media-123", cmd.PhotoRef)
	assert.Nil(t, cmd.Intent)
}

func TestNormalizeNativeLocation(t *testing.T) {
	n := New(nil, nil)
	cmd := n.Normalize(context.Background(), InboundEvent{
		Type: EventLocation, Lat: 7.88, Lng: 98.39, LocationAddr: "Rawai, Phuket",
	})
	require.True(t, cmd.HasLocation)
	assert.Equal(t, 7.88, cmd.Lat)
	assert.Equal(t, "Rawai, Phuket", cmd.LocationAddr)
}

func TestNormalizeMapLink(t *testing.T) {
	n := New(nil, nil)
	cmd := n.Normalize(context.Background(), InboundEvent{
		Type: EventText, Text: "https://maps.google.com/?q=7.880448,98.392345",
	})
	require.True(t, cmd.HasLocation)
	assert.InDelta(t, 7.880448, cmd.Lat, 1e-9)
	assert.InDelta(t, 98.392345, cmd.Lng, 1e-9)
}

func TestNormalizeButtonPayload(t *testing.T) {
	n := New(nil, nil)
	cmd := n.Normalize(context.Background(), InboundEvent{
		Type: EventButton, ButtonPayload: "confirm",
	})
	require.NotNil(t, cmd.Intent)
	assert.Equal(t, IntentConfirm, *cmd.Intent)
}
