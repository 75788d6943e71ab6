package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytmanager-backend-go/internal/models"
)

func channelFixture() (*ChannelService, *memStore, *recordingNotifier) {
	st := newMemStore()
	st.addStaff(boss, member("lead", "Lead", models.RoleLeader, ""), member("u1", "U1", models.RoleUser, "lead"), member("x", "X", models.RoleUser, ""))
	st.addChannel(channel("mine", "u1", "100", true))
	st.addChannel(channel("theirs", "x", "100", true))
	st.addChannel(channel("orphan", "", "100", false))
	notifier := &recordingNotifier{}
	return &ChannelService{Channels: st, Staff: st, Revenue: st, System: st, Notifier: notifier}, st, notifier
}

func TestChannelListVisibility(t *testing.T) {
	svc, st, _ := channelFixture()
	ctx := context.Background()

	all, _, err := svc.List(ctx, boss)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	lead, _ := st.GetStaff(ctx, "lead")
	visible, _, err := svc.List(ctx, lead)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "mine", visible[0].ID)
}

func TestSaveChannelDefaults(t *testing.T) {
	svc, st, notifier := channelFixture()
	ctx := context.Background()

	saved, err := svc.Save(ctx, boss, ChannelInput{ID: " UCnew ", Name: "New", AssignedStaffID: strPtr(" ")})
	require.NoError(t, err)
	assert.Equal(t, "UCnew", saved.ID)
	assert.Equal(t, "General", saved.Niche)
	assert.Equal(t, "OAuth", saved.Gmail)
	assert.Equal(t, models.OriginCold, saved.ChannelOrigin)
	assert.Equal(t, models.ChannelLive, saved.Status)
	assert.True(t, hundredPercent.Equal(saved.RevenueSharePercent))
	assert.Nil(t, saved.AssignedStaffID)
	assert.Contains(t, notifier.events, "channel:UCnew")

	_, err = st.GetChannel(ctx, "UCnew")
	assert.NoError(t, err)
}

func TestSaveChannelValidation(t *testing.T) {
	svc, st, _ := channelFixture()
	ctx := context.Background()
	over := dec("150")

	_, err := svc.Save(ctx, boss, ChannelInput{ID: "a", Name: "A", RevenueSharePercent: &over})
	assert.Error(t, err)
	_, err = svc.Save(ctx, boss, ChannelInput{ID: "a", Name: "A", ChannelOrigin: "warm"})
	assert.Error(t, err)
	_, err = svc.Save(ctx, boss, ChannelInput{ID: "a", Name: "A", AssignedStaffID: strPtr("ghost")})
	assert.Error(t, err)
	_, err = svc.Save(ctx, boss, ChannelInput{Name: "A"})
	assert.Error(t, err)

	lead, _ := st.GetStaff(ctx, "lead")
	_, err = svc.Save(ctx, lead, ChannelInput{ID: "a", Name: "A"})
	status, _ := StatusOf(err)
	assert.Equal(t, 403, status)
}

func TestAssignAndUnassign(t *testing.T) {
	svc, st, _ := channelFixture()
	ctx := context.Background()

	require.NoError(t, svc.Assign(ctx, boss, "lead", []string{"orphan", "theirs"}))
	ch, _ := st.GetChannel(ctx, "orphan")
	assert.Equal(t, "lead", ch.Assignee())

	require.NoError(t, svc.Assign(ctx, boss, "", []string{"orphan"}))
	ch, _ = st.GetChannel(ctx, "orphan")
	assert.Empty(t, ch.Assignee())

	assert.Error(t, svc.Assign(ctx, boss, "ghost", []string{"orphan"}))
	assert.Error(t, svc.Assign(ctx, boss, "lead", nil))
}

func TestDeleteChannel(t *testing.T) {
	svc, st, _ := channelFixture()
	ctx := context.Background()

	err := svc.Delete(ctx, boss, "ghost")
	status, _ := StatusOf(err)
	assert.Equal(t, 404, status)
	require.NoError(t, svc.Delete(ctx, boss, "theirs"))
	_, err = st.GetChannel(ctx, "theirs")
	assert.True(t, isNotFound(err))
}

func TestManualRevenueWrites(t *testing.T) {
	svc, st, notifier := channelFixture()
	ctx := context.Background()
	lead, _ := st.GetStaff(ctx, "lead")

	monthly := make([]decimal.Decimal, 12)
	for i := range monthly {
		monthly[i] = decimal.NewFromInt(int64(i))
	}
	require.NoError(t, svc.SetManualRevenue(ctx, lead, "mine", 2025, monthly))
	require.NoError(t, svc.SetManualRevenueMonth(ctx, lead, "mine", 2025, 3, dec("99.5")))

	entries, err := svc.ManualRevenue(ctx, lead, 2025, "")
	require.NoError(t, err)
	require.Len(t, entries, 12)
	assert.True(t, dec("99.5").Equal(entries[2].Amount))
	assert.Contains(t, notifier.events, "revenue:mine")
	assert.Contains(t, st.logLevels(), "INFO")

	err = svc.SetManualRevenueMonth(ctx, lead, "theirs", 2025, 1, dec("1"))
	status, _ := StatusOf(err)
	assert.Equal(t, 404, status)
	assert.Error(t, svc.SetManualRevenueMonth(ctx, lead, "mine", 2025, 13, dec("1")))
	assert.Error(t, svc.SetManualRevenueMonth(ctx, lead, "mine", 2025, 1, dec("-1")))
	assert.Error(t, svc.SetManualRevenue(ctx, lead, "mine", 2025, monthly[:11]))
	assert.Error(t, svc.SetManualRevenue(ctx, boss, "mine", 1999, monthly))

	_, err = svc.ManualRevenue(ctx, lead, 2025, "theirs")
	assert.Error(t, err)
}
