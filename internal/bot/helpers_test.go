package bot

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/p-blackswan/afkbot/internal/autodelete"
	"github.com/p-blackswan/afkbot/internal/broadcast"
	perrors "github.com/p-blackswan/afkbot/internal/errors"
	"github.com/p-blackswan/afkbot/internal/presence"
	"github.com/p-blackswan/afkbot/internal/store"
	"github.com/p-blackswan/afkbot/internal/telegram"
)

const (
	testGroup   int64 = -1001234
	testOwner   int64 = 999
	testBotName       = "afk_test_bot"
)

// sent is one outgoing call recorded by fakeClient.
type sent struct {
	method string
	chatID int64
	msgID  int
	text   string
	opts   telegram.SendOptions
}

type answer struct {
	id    string
	text  string
	alert bool
}

// fakeClient records Bot API calls. errs[method] is returned from that method.
type fakeClient struct {
	mu      sync.Mutex
	nextID  int
	sent    []sent
	edits   []sent
	answers []answer
	deleted []int
	pinned  []int
	lookups int
	members map[int64]string
	errs    map[string]error
	files   map[string][]byte
	panicOn string
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		nextID:  100,
		members: map[int64]string{},
		errs:    map[string]error{},
		files:   map[string][]byte{},
	}
}

func (c *fakeClient) record(method string, chatID int64, text string, opts telegram.SendOptions) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.panicOn == method {
		panic("fake client panic")
	}
	if err := c.errs[method]; err != nil {
		return 0, err
	}
	c.nextID++
	c.sent = append(c.sent, sent{method: method, chatID: chatID, msgID: c.nextID, text: text, opts: opts})
	return c.nextID, nil
}

func (c *fakeClient) message(method string, chatID int64, text string, opts telegram.SendOptions) (*telegram.Message, error) {
	id, err := c.record(method, chatID, text, opts)
	if err != nil {
		return nil, err
	}
	return &telegram.Message{MessageID: id, Chat: telegram.Chat{ID: chatID}}, nil
}

func (c *fakeClient) SendMessage(_ context.Context, chatID int64, text string, opts telegram.SendOptions) (*telegram.Message, error) {
	return c.message("sendMessage", chatID, text, opts)
}

func (c *fakeClient) SendPhoto(_ context.Context, chatID int64, _, caption string, opts telegram.SendOptions) (*telegram.Message, error) {
	return c.message("sendPhoto", chatID, caption, opts)
}

func (c *fakeClient) SendPhotoFile(_ context.Context, chatID int64, _ string, photo io.Reader, caption string, opts telegram.SendOptions) (*telegram.Message, error) {
	if _, err := io.ReadAll(photo); err != nil {
		return nil, err
	}
	return c.message("sendPhotoFile", chatID, caption, opts)
}

func (c *fakeClient) SendAnimation(_ context.Context, chatID int64, _, caption string, opts telegram.SendOptions) (*telegram.Message, error) {
	return c.message("sendAnimation", chatID, caption, opts)
}

func (c *fakeClient) CopyMessage(_ context.Context, chatID, _ int64, _ int) (int, error) {
	return c.record("copyMessage", chatID, "", telegram.SendOptions{})
}

func (c *fakeClient) ForwardMessage(_ context.Context, chatID, _ int64, _ int) (int, error) {
	return c.record("forwardMessage", chatID, "", telegram.SendOptions{})
}

func (c *fakeClient) edit(method string, chatID int64, msgID int, text string, opts telegram.SendOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.errs[method]; err != nil {
		return err
	}
	c.edits = append(c.edits, sent{method: method, chatID: chatID, msgID: msgID, text: text, opts: opts})
	return nil
}

func (c *fakeClient) EditMessageText(_ context.Context, chatID int64, msgID int, text string, opts telegram.SendOptions) error {
	return c.edit("editMessageText", chatID, msgID, text, opts)
}

func (c *fakeClient) EditMessageCaption(_ context.Context, chatID int64, msgID int, caption string, opts telegram.SendOptions) error {
	return c.edit("editMessageCaption", chatID, msgID, caption, opts)
}

func (c *fakeClient) DeleteMessage(_ context.Context, _ int64, msgID int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.errs["deleteMessage"]; err != nil {
		return err
	}
	c.deleted = append(c.deleted, msgID)
	return nil
}

func (c *fakeClient) PinChatMessage(_ context.Context, _ int64, msgID int, _ bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pinned = append(c.pinned, msgID)
	return nil
}

func (c *fakeClient) AnswerCallbackQuery(_ context.Context, id, text string, alert bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.answers = append(c.answers, answer{id: id, text: text, alert: alert})
	return nil
}

func (c *fakeClient) GetChatMember(_ context.Context, _, userID int64) (*telegram.ChatMember, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lookups++
	if err := c.errs["getChatMember"]; err != nil {
		return nil, err
	}
	status, ok := c.members[userID]
	if !ok {
		status = telegram.MemberMember
	}
	return &telegram.ChatMember{Status: status, User: telegram.User{ID: userID}}, nil
}

func (c *fakeClient) GetFile(_ context.Context, fileID string) (*telegram.File, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.files[fileID]; !ok {
		return nil, perrors.NewAPIError("getFile", 400, "Bad Request: invalid file_id")
	}
	return &telegram.File{FileID: fileID, FilePath: "photos/" + fileID}, nil
}

func (c *fakeClient) DownloadFile(_ context.Context, filePath string) (io.ReadCloser, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data := c.files[strings.TrimPrefix(filePath, "photos/")]
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (c *fakeClient) Sent() []sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sent(nil), c.sent...)
}

func (c *fakeClient) Edits() []sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sent(nil), c.edits...)
}

func (c *fakeClient) Answers() []answer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]answer(nil), c.answers...)
}

func (c *fakeClient) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent, c.edits, c.answers, c.deleted = nil, nil, nil, nil
}

// containing returns the recorded sends whose text contains substr.
func containing(calls []sent, substr string) []sent {
	var out []sent
	for _, s := range calls {
		if strings.Contains(s.text, substr) {
			out = append(out, s)
		}
	}
	return out
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type env struct {
	store    *store.Store
	client   *fakeClient
	clock    *testClock
	tracker  *presence.Tracker
	media    *presence.MediaStore
	policies *autodelete.PolicyStore
	tasks    *autodelete.TaskStore
	handler  *Handler
}

func newEnv(t *testing.T, mutate ...func(*Config)) *env {
	t.Helper()
	dir := t.TempDir()
	st, err := store.New(filepath.Join(dir, "bot.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	media, err := presence.NewMediaStore(filepath.Join(dir, "downloads"))
	require.NoError(t, err)

	clock := &testClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	client := newFakeClient()
	policies := autodelete.NewPolicyStore(st.DB())
	tasks := autodelete.NewTaskStore(st.DB())
	scheduler := autodelete.NewScheduler(policies, tasks, zerolog.Nop(), autodelete.WithClock(clock.Now))
	outbox := NewOutbox(client, scheduler, zerolog.Nop())
	tracker := presence.NewTracker(st, zerolog.Nop(), presence.WithClock(clock.Now))
	broadcaster := broadcast.NewBroadcaster(outbox.Broadcaster(), st, 1000, zerolog.Nop())

	cfg := Config{
		BotID:       1,
		BotUsername: testBotName,
		OwnerID:     testOwner,
		StartedAt:   clock.Now(),
	}
	for _, m := range mutate {
		m(&cfg)
	}

	h := NewHandler(cfg, Deps{
		Client:     client,
		Outbox:     outbox,
		Tracker:    tracker,
		Media:      media,
		Directory:  st,
		Policies:   policies,
		Tasks:      tasks,
		Broadcasts: broadcast.NewService(st, broadcaster, zerolog.Nop()),
	}, zerolog.Nop())
	h.now = clock.Now

	return &env{
		store:    st,
		client:   client,
		clock:    clock,
		tracker:  tracker,
		media:    media,
		policies: policies,
		tasks:    tasks,
		handler:  h,
	}
}

var nextMessageID = 1

func groupMessage(from telegram.User, text string) *telegram.Message {
	nextMessageID++
	return &telegram.Message{
		MessageID: nextMessageID,
		From:      &from,
		Chat:      telegram.Chat{ID: testGroup, Type: telegram.ChatSupergroup, Title: "Test Group"},
		Text:      text,
	}
}

func privateMessage(from telegram.User, text string) *telegram.Message {
	msg := groupMessage(from, text)
	msg.Chat = telegram.Chat{ID: from.ID, Type: telegram.ChatPrivate}
	return msg
}

func (e *env) send(msg *telegram.Message) {
	e.handler.HandleUpdate(context.Background(), telegram.Update{UpdateID: msg.MessageID, Message: msg})
}

func (e *env) press(from telegram.User, on *telegram.Message, data string) {
	e.handler.HandleUpdate(context.Background(), telegram.Update{
		CallbackQuery: &telegram.CallbackQuery{ID: "cq-" + data, From: from, Message: on, Data: data},
	})
}

var (
	alice = telegram.User{ID: 10, FirstName: "Alice", Username: "alice"}
	bob   = telegram.User{ID: 20, FirstName: "Bob", Username: "bob"}
	owner = telegram.User{ID: testOwner, FirstName: "Owner"}
)
