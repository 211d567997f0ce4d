package bot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wasgeurtjeNL/prop-pulse-sub000/session"
)

func TestOwnerUpdateEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.seedProperty(t, "Rawai Pool Villa", 2)

	resp := env.say(t, "owner")
	assert.Contains(t, firstText(resp), p.ListingNumber)

	env.say(t, "1")
	resp = env.say(t, "yes")
	assert.Contains(t, firstText(resp), "full name")

	env.say(t, "Somchai Jaidee")
	resp = env.say(t, "0812345678")
	assert.Contains(t, firstText(resp), "company")

	env.say(t, "Phuket Dream Homes")
	resp = env.say(t, "3.5")
	assert.Contains(t, firstText(resp), "saved")

	updated, err := env.properties.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Somchai Jaidee", updated.OwnerName)
	assert.Equal(t, "66812345678", updated.OwnerPhone) // trunk zero replaced
	assert.Equal(t, "Phuket Dream Homes", updated.OwnerCompany)
	assert.Equal(t, 3.5, updated.OwnerCommission)

	latest, err := env.sessions.GetLatest(ctx, testIdentity)
	require.NoError(t, err)
	assert.Equal(t, session.StatusCompleted, latest.Status)
}

func TestOwnerSelectByListingNumber(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProperty(t, "Kata Hillside Condo", 1)

	env.say(t, "owner")
	resp := env.say(t, "pp-1")
	assert.Contains(t, firstText(resp), p.Title)
	assert.Equal(t, session.StatusOwnerConfirmProperty, env.activeStatus(t))
}

func TestOwnerSelectUnknownListingReprompts(t *testing.T) {
	env := newTestEnv(t)
	env.seedProperty(t, "Kata Hillside Condo", 1)

	env.say(t, "owner")
	resp := env.say(t, "PP-999999")
	assert.Contains(t, firstText(resp), "couldn't find")
	assert.Equal(t, session.StatusOwnerSelectProperty, env.activeStatus(t))
}

func TestOwnerRejectConfirmationRestartsSelection(t *testing.T) {
	env := newTestEnv(t)
	env.seedProperty(t, "Kata Hillside Condo", 1)

	env.say(t, "owner")
	env.say(t, "1")
	resp := env.say(t, "no")
	assert.Contains(t, firstText(resp), "pick another")
	assert.Equal(t, session.StatusOwnerSelectProperty, env.activeStatus(t))
}

func TestOwnerInvalidPhoneReprompts(t *testing.T) {
	env := newTestEnv(t)
	env.seedProperty(t, "Kata Hillside Condo", 1)

	env.say(t, "owner")
	env.say(t, "1")
	env.say(t, "yes")
	env.say(t, "Somchai Jaidee")

	resp := env.say(t, "1234")
	assert.Contains(t, firstText(resp), "doesn't look right")
	assert.Equal(t, session.StatusOwnerAwaitingPhone, env.activeStatus(t))
}

func TestOwnerCommissionBounds(t *testing.T) {
	env := newTestEnv(t)
	env.seedProperty(t, "Kata Hillside Condo", 1)

	env.say(t, "owner")
	env.say(t, "1")
	env.say(t, "yes")
	env.say(t, "Somchai Jaidee")
	env.say(t, "0812345678")
	env.say(t, "skip")

	resp := env.say(t, "150")
	assert.Contains(t, firstText(resp), "between 0 and 100")
	assert.Equal(t, session.StatusOwnerAwaitingCommission, env.activeStatus(t))

	resp = env.say(t, "3%")
	assert.Contains(t, firstText(resp), "saved")
}

func TestOwnerSkipCompanyLeavesItEmpty(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.seedProperty(t, "Kata Hillside Condo", 1)

	env.say(t, "owner")
	env.say(t, "1")
	env.say(t, "yes")
	env.say(t, "Somchai Jaidee")
	env.say(t, "0812345678")
	env.say(t, "skip")
	env.say(t, "3")

	updated, err := env.properties.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, updated.OwnerCompany)
}
