package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-blackswan/afkbot/internal/presence"
	"github.com/p-blackswan/afkbot/internal/telegram"
)

func TestBRB_ThenAnyMessage_AnnouncesReturnOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.send(groupMessage(alice, "brb lunch"))

	rec, away, err := e.tracker.QueryAway(ctx, alice.ID)
	require.NoError(t, err)
	require.True(t, away)
	assert.Equal(t, "lunch", rec.Reason)
	assert.Equal(t, presence.KindText, rec.Kind)
	require.Len(t, containing(e.client.Sent(), "is now AFK"), 1)

	e.client.Reset()
	e.clock.Advance(90 * time.Minute)
	e.send(groupMessage(alice, "hello again"))

	_, away, err = e.tracker.QueryAway(ctx, alice.ID)
	require.NoError(t, err)
	assert.False(t, away)

	back := containing(e.client.Sent(), "is back online")
	require.Len(t, back, 1)
	assert.Contains(t, back[0].text, "lunch")
	assert.Contains(t, back[0].text, "1h 30m 0s")
	assert.Len(t, e.client.Sent(), 1)

	// Nothing further once the record is gone.
	e.send(groupMessage(alice, "still here"))
	assert.Len(t, e.client.Sent(), 1)
}

func TestAFKCommand_Toggles(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.send(groupMessage(alice, "/afk"))
	_, away, err := e.tracker.QueryAway(ctx, alice.ID)
	require.NoError(t, err)
	require.True(t, away)

	e.client.Reset()
	e.send(groupMessage(alice, "/afk"))
	_, away, err = e.tracker.QueryAway(ctx, alice.ID)
	require.NoError(t, err)
	assert.False(t, away)
	assert.Len(t, containing(e.client.Sent(), "is back online"), 1)
}

func TestAFKCommand_AddressedToOtherBotIgnored(t *testing.T) {
	e := newEnv(t)

	e.send(groupMessage(alice, "/afk@some_other_bot"))

	_, away, err := e.tracker.QueryAway(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.False(t, away)
	assert.Empty(t, e.client.Sent())
}

func TestWatch_ReplyToAwayUser(t *testing.T) {
	e := newEnv(t)

	e.send(groupMessage(alice, "/afk sleeping"))
	e.client.Reset()
	e.clock.Advance(5 * time.Minute)

	msg := groupMessage(bob, "are you there?")
	msg.ReplyToMessage = groupMessage(alice, "earlier")
	e.send(msg)

	notices := containing(e.client.Sent(), "is AFK since 5m 0s")
	require.Len(t, notices, 1)
	assert.Contains(t, notices[0].text, "sleeping")
	assert.Equal(t, msg.MessageID, notices[0].opts.ReplyTo)
}

func TestWatch_MentionAndReplyNotifyOnce(t *testing.T) {
	e := newEnv(t)

	e.send(groupMessage(alice, "/afk"))
	e.client.Reset()

	msg := groupMessage(bob, "@alice ping @ALICE")
	msg.Entities = []telegram.MessageEntity{
		{Type: telegram.EntityMention, Offset: 0, Length: 6},
		{Type: telegram.EntityMention, Offset: 12, Length: 6},
	}
	msg.ReplyToMessage = groupMessage(alice, "earlier")
	e.send(msg)

	assert.Len(t, containing(e.client.Sent(), "is AFK since"), 1)
}

func TestWatch_TextMention(t *testing.T) {
	e := newEnv(t)

	e.send(groupMessage(alice, "/afk"))
	e.client.Reset()

	msg := groupMessage(bob, "Alice look")
	msg.Entities = []telegram.MessageEntity{
		{Type: telegram.EntityTextMention, Offset: 0, Length: 5, User: &alice},
	}
	e.send(msg)

	assert.Len(t, containing(e.client.Sent(), "<b>Alice</b> is AFK since"), 1)
}

func TestWatch_UnknownMentionIgnored(t *testing.T) {
	e := newEnv(t)

	msg := groupMessage(bob, "@ghost hi")
	msg.Entities = []telegram.MessageEntity{{Type: telegram.EntityMention, Offset: 0, Length: 6}}
	e.send(msg)

	assert.Empty(t, e.client.Sent())
}

func TestWatch_PrivateChatDoesNotClearAway(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.send(groupMessage(alice, "/afk"))
	e.send(privateMessage(alice, "hi bot"))

	_, away, err := e.tracker.QueryAway(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, away)
}

func TestAFK_AnimationMedia(t *testing.T) {
	e := newEnv(t)

	msg := groupMessage(alice, "")
	msg.Caption = "/afk gaming"
	msg.Animation = &telegram.Animation{FileID: "gif-1"}
	e.send(msg)

	rec, away, err := e.tracker.QueryAway(context.Background(), alice.ID)
	require.NoError(t, err)
	require.True(t, away)
	assert.Equal(t, presence.KindAnimation, rec.Kind)
	assert.Equal(t, "gif-1", rec.MediaRef)
	assert.Equal(t, "gaming", rec.Reason)

	e.client.Reset()
	e.send(groupMessage(alice, "back"))
	back := e.client.Sent()
	require.Len(t, back, 1)
	assert.Equal(t, "sendAnimation", back[0].method)
}

func TestAFK_RepliedPhotoIsDownloaded(t *testing.T) {
	e := newEnv(t)
	e.client.files["photo-big"] = []byte("jpeg bytes")

	cmd := groupMessage(alice, "/afk")
	cmd.ReplyToMessage = groupMessage(bob, "")
	cmd.ReplyToMessage.Photo = []telegram.PhotoSize{
		{FileID: "photo-small", Width: 90, Height: 90},
		{FileID: "photo-big", Width: 800, Height: 600},
	}
	e.send(cmd)

	rec, away, err := e.tracker.QueryAway(context.Background(), alice.ID)
	require.NoError(t, err)
	require.True(t, away)
	assert.Equal(t, presence.KindPhoto, rec.Kind)
	assert.True(t, e.media.Exists(alice.ID))

	e.client.Reset()
	e.send(groupMessage(alice, "back"))
	back := e.client.Sent()
	require.Len(t, back, 1)
	assert.Equal(t, "sendPhotoFile", back[0].method)
}

func TestAFK_FailedDownloadFallsBackToText(t *testing.T) {
	e := newEnv(t)

	cmd := groupMessage(alice, "/afk")
	cmd.ReplyToMessage = groupMessage(bob, "")
	cmd.ReplyToMessage.Sticker = &telegram.Sticker{FileID: "missing"}
	e.send(cmd)

	rec, away, err := e.tracker.QueryAway(context.Background(), alice.ID)
	require.NoError(t, err)
	require.True(t, away)
	assert.Equal(t, presence.KindText, rec.Kind)
	assert.Len(t, containing(e.client.Sent(), mediaFallbackText), 1)
	assert.Len(t, containing(e.client.Sent(), "is now AFK"), 1)
}

func TestReturnNotice_FallsBackToPlain(t *testing.T) {
	e := newEnv(t)

	msg := groupMessage(alice, "/afk")
	msg.Animation = &telegram.Animation{FileID: "gif-1"}
	e.send(msg)

	e.client.errs["sendAnimation"] = errors.New("boom")
	e.client.Reset()
	e.send(groupMessage(alice, "back"))

	back := e.client.Sent()
	require.Len(t, back, 1)
	assert.Equal(t, backOnlinePlain("Alice"), back[0].text)
}

func TestHandleUpdate_TracksUsersAndGroups(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.send(groupMessage(alice, "hello"))
	e.send(groupMessage(bob, "hi"))

	users, err := e.store.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, users)

	groups, err := e.store.CountGroups(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, groups)

	policy, err := e.policies.GetOrInit(ctx, testGroup)
	require.NoError(t, err)
	assert.False(t, policy.Enabled)
}

func TestHandleUpdate_RecoversFromPanic(t *testing.T) {
	e := newEnv(t)
	e.client.panicOn = "sendMessage"

	assert.NotPanics(t, func() {
		e.send(groupMessage(alice, "/stats"))
	})
}

func TestHandleUpdate_ServiceMessagesIgnored(t *testing.T) {
	e := newEnv(t)

	e.send(groupMessage(alice, "/afk"))
	e.client.Reset()

	msg := groupMessage(alice, "")
	msg.NewChatTitle = "Renamed"
	e.send(msg)

	_, away, err := e.tracker.QueryAway(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.True(t, away)
	assert.Empty(t, e.client.Sent())
}

func TestCommands_RateLimited(t *testing.T) {
	e := newEnv(t, func(c *Config) { c.CommandLimit = 1 })

	e.send(groupMessage(bob, "/stats"))
	e.send(groupMessage(bob, "/stats"))

	assert.Len(t, containing(e.client.Sent(), "Bot Statistics"), 1)
}

func TestRun_StopsWhenChannelCloses(t *testing.T) {
	e := newEnv(t)
	updates := make(chan telegram.Update, 1)
	updates <- telegram.Update{UpdateID: 1, Message: groupMessage(alice, "hi")}
	close(updates)

	done := make(chan struct{})
	go func() {
		e.handler.Run(context.Background(), updates)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not stop")
	}
}
