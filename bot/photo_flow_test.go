package bot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wasgeurtjeNL/prop-pulse-sub000/session"
)

func TestPhotoAddEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.seedProperty(t, "Rawai Pool Villa", 3)

	env.say(t, "photos")
	env.say(t, "1")
	resp := env.say(t, "yes")
	// Header + 3 photos + action menu.
	require.Len(t, resp.Messages, 5)
	assert.Contains(t, resp.Messages[1].Caption, "(cover)")

	env.say(t, "add")
	env.sendPhoto(t, "new-photo-1")
	resp = env.sendPhoto(t, "new-photo-2")
	assert.Contains(t, firstText(resp), "position 5")

	resp = env.say(t, "done")
	assert.Contains(t, firstText(resp), "Added 2 photo(s)")

	images, err := env.properties.Images(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, images, 5)
	assert.Equal(t, 5, images[4].Position)
}

func TestPhotoReplaceKeepsPosition(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.seedProperty(t, "Rawai Pool Villa", 3)

	env.say(t, "photos")
	env.say(t, "1")
	env.say(t, "yes")
	env.say(t, "replace")
	resp := env.say(t, "2")
	assert.Contains(t, firstText(resp), "position 2")

	resp = env.sendPhoto(t, "replacement")
	assert.Contains(t, firstText(resp), "replaced")

	images, err := env.properties.Images(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, images, 3)
	assert.Equal(t, 2, images[1].Position)
	assert.Contains(t, images[1].URL, "replacement")
}

func TestPhotoDeleteCoverPromotesNext(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.seedProperty(t, "Rawai Pool Villa", 3)

	images, err := env.properties.Images(ctx, p.ID)
	require.NoError(t, err)
	second := images[1].URL

	env.say(t, "photos")
	env.say(t, "1")
	env.say(t, "yes")
	env.say(t, "delete")
	resp := env.say(t, "1")
	assert.Contains(t, firstText(resp), "cover")

	resp = env.say(t, "yes")
	assert.Contains(t, firstText(resp), "deleted")
	assert.Contains(t, firstText(resp), "new cover")

	images, err = env.properties.Images(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, 1, images[0].Position)
	assert.Equal(t, second, images[0].URL)
}

func TestPhotoDeleteLastIsRefusedUpfront(t *testing.T) {
	env := newTestEnv(t)
	env.seedProperty(t, "Rawai Pool Villa", 1)

	env.say(t, "photos")
	env.say(t, "1")
	env.say(t, "yes")
	resp := env.say(t, "delete")
	assert.Contains(t, firstText(resp), "at least one photo")
	assert.Equal(t, session.StatusPhotoViewCurrent, env.activeStatus(t))
}

func TestPhotoDeleteDeclinedKeepsPhoto(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.seedProperty(t, "Rawai Pool Villa", 3)

	env.say(t, "photos")
	env.say(t, "1")
	env.say(t, "yes")
	env.say(t, "delete")
	env.say(t, "2")
	resp := env.say(t, "no")
	assert.Contains(t, firstText(resp), "Nothing deleted")

	images, err := env.properties.Images(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, images, 3)
	assert.Equal(t, session.StatusPhotoSelectAction, env.activeStatus(t))
}

func TestPhotoPositionOutOfRangeReprompts(t *testing.T) {
	env := newTestEnv(t)
	env.seedProperty(t, "Rawai Pool Villa", 3)

	env.say(t, "photos")
	env.say(t, "1")
	env.say(t, "yes")
	env.say(t, "replace")
	resp := env.say(t, "9")
	assert.Contains(t, firstText(resp), "1 to 3")
	assert.Equal(t, session.StatusPhotoReplaceSelect, env.activeStatus(t))
}

func TestPhotoAddRespectsCap(t *testing.T) {
	env := newTestEnv(t)
	env.seedProperty(t, "Rawai Pool Villa", 20)

	env.say(t, "photos")
	env.say(t, "1")
	env.say(t, "yes")
	resp := env.say(t, "add")
	assert.Contains(t, firstText(resp), "maximum of 20")
	assert.Equal(t, session.StatusPhotoViewCurrent, env.activeStatus(t))
}
