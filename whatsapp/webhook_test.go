package whatsapp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wasgeurtjeNL/prop-pulse-sub000/normalize"
)

func TestParseWebhookText(t *testing.T) {
	body := []byte(`{"entry":[{"changes":[{"value":{
		"contacts":[{"wa_id":"66812345678","profile":{"name":"Somchai"}}],
		"messages":[{"from":"66812345678","type":"text","text":{"body":"start"}}]
	}}]}]}`)

	events, err := ParseWebhook(body)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, normalize.EventText, events[0].Type)
	assert.Equal(t, "66812345678", events[0].From)
	assert.Equal(t, "Somchai", events[0].SenderName)
	assert.Equal(t, "start", events[0].Text)
}

func TestParseWebhookImageAndLocation(t *testing.T) {
	body := []byte(`{"entry":[{"changes":[{"value":{"messages":[
		{"from":"66812345678","type":"image","image":{"id":"media-1","caption":"front"}},
		{"from":"66812345678","type":"location","location":{"latitude":7.88,"longitude":98.39,"address":"Rawai"}}
	]}}]}]}`)

	events, err := ParseWebhook(body)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, normalize.EventPhoto, events[0].Type)
	assert.Equal(t, "media-1", events[0].PhotoRef)

	assert.Equal(t, normalize.EventLocation, events[1].Type)
	assert.Equal(t, 7.88, events[1].Lat)
	assert.Equal(t, "Rawai", events[1].LocationAddr)
}

func TestParseWebhookInteractiveReply(t *testing.T) {
	body := []byte(`{"entry":[{"changes":[{"value":{"messages":[
		{"from":"66812345678","type":"interactive","interactive":{"type":"button_reply","button_reply":{"id":"confirm","title":"Confirm"}}}
	]}}]}]}`)

	events, err := ParseWebhook(body)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, normalize.EventInteractive, events[0].Type)
	assert.Equal(t, "confirm", events[0].ButtonPayload)
}

func TestParseWebhookSkipsUnsupported(t *testing.T) {
	body := []byte(`{"entry":[{"changes":[{"value":{"messages":[
		{"from":"66812345678","type":"sticker"}
	]}}]}]}`)

	events, err := ParseWebhook(body)
	require.NoError(t, err)
	assert.Empty(t, events)
}
