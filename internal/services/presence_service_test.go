package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"shophub-realtime/internal/events"
)

type presenceFixture struct {
	svc       *PresenceService
	presence  *fakePresenceRepo
	users     *fakeUserRepo
	publisher *recordingPublisher
}

func newPresenceFixture(t *testing.T) *presenceFixture {
	t.Helper()

	presence := newFakePresenceRepo()
	users := newFakeUserRepo()
	publisher := &recordingPublisher{subscribers: 1}
	svc := NewPresenceService(presence, users, nil, publisher, testLogger())

	return &presenceFixture{svc: svc, presence: presence, users: users, publisher: publisher}
}

func TestFirstConnectionAnnouncesOnlineToOperators(t *testing.T) {
	f := newPresenceFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Connected(ctx, "shopper-1", "Ada", "ada@example.com", "conn-1"))

	calls := f.publisher.published(events.EventChatUserOnline)
	require.Len(t, calls, 1)
	require.Equal(t, events.ChannelOperators, calls[0].channel)

	rec, ok := f.presence.record("shopper-1")
	require.True(t, ok)
	require.True(t, rec.IsActive)
	require.Equal(t, "conn-1", rec.ConnectionTag)

	profile, err := f.users.GetByID(ctx, "shopper-1")
	require.NoError(t, err)
	require.Equal(t, "Ada", profile.DisplayName)
}

func TestSecondConnectionIsSilent(t *testing.T) {
	f := newPresenceFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Connected(ctx, "shopper-1", "Ada", "", "conn-1"))
	require.NoError(t, f.svc.Connected(ctx, "shopper-1", "Ada", "", "conn-2"))

	require.Equal(t, 1, f.publisher.count(events.EventChatUserOnline))
	require.Equal(t, 2, f.svc.Connections("shopper-1"))
}

func TestOfflineOnlyAfterLastConnectionDrops(t *testing.T) {
	f := newPresenceFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Connected(ctx, "shopper-1", "Ada", "", "conn-1"))
	require.NoError(t, f.svc.Connected(ctx, "shopper-1", "Ada", "", "conn-2"))

	require.NoError(t, f.svc.Disconnected(ctx, "shopper-1"))
	require.Zero(t, f.publisher.count(events.EventChatUserOffline), "one tab is still open")

	rec, ok := f.presence.record("shopper-1")
	require.True(t, ok)
	require.True(t, rec.IsActive)

	require.NoError(t, f.svc.Disconnected(ctx, "shopper-1"))
	require.Equal(t, 1, f.publisher.count(events.EventChatUserOffline))

	rec, _ = f.presence.record("shopper-1")
	require.False(t, rec.IsActive)
	require.Zero(t, f.svc.Connections("shopper-1"))
}

func TestDisconnectWithoutConnectionIsNoop(t *testing.T) {
	f := newPresenceFixture(t)

	require.NoError(t, f.svc.Disconnected(context.Background(), "ghost"))
	require.Zero(t, f.publisher.count(events.EventChatUserOffline))
}

func TestAnonymousConnectionIsIgnored(t *testing.T) {
	f := newPresenceFixture(t)

	require.NoError(t, f.svc.Connected(context.Background(), "", "", "", "conn-1"))
	require.Zero(t, f.publisher.count(events.EventChatUserOnline))
}

func TestListOnlineReturnsActiveUsers(t *testing.T) {
	f := newPresenceFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Connected(ctx, "shopper-1", "Ada", "", "conn-1"))
	require.NoError(t, f.svc.Connected(ctx, "shopper-2", "Grace", "", "conn-2"))
	require.NoError(t, f.svc.Disconnected(ctx, "shopper-2"))

	online, err := f.svc.ListOnline(ctx)
	require.NoError(t, err)
	require.Len(t, online, 1)
	require.Equal(t, "shopper-1", online[0].UserID)
}
