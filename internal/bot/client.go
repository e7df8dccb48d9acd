// Package bot routes Telegram updates to the AFK, settings, stats and
// broadcast features.
package bot

import (
	"context"
	"io"

	"github.com/p-blackswan/afkbot/internal/telegram"
)

// Client is the subset of the Bot API the handler uses. *telegram.Client
// implements it.
type Client interface {
	SendMessage(ctx context.Context, chatID int64, text string, opts telegram.SendOptions) (*telegram.Message, error)
	SendPhoto(ctx context.Context, chatID int64, photo, caption string, opts telegram.SendOptions) (*telegram.Message, error)
	SendPhotoFile(ctx context.Context, chatID int64, name string, photo io.Reader, caption string, opts telegram.SendOptions) (*telegram.Message, error)
	SendAnimation(ctx context.Context, chatID int64, animation, caption string, opts telegram.SendOptions) (*telegram.Message, error)
	CopyMessage(ctx context.Context, chatID, fromChatID int64, msgID int) (int, error)
	ForwardMessage(ctx context.Context, chatID, fromChatID int64, msgID int) (int, error)
	EditMessageText(ctx context.Context, chatID int64, msgID int, text string, opts telegram.SendOptions) error
	EditMessageCaption(ctx context.Context, chatID int64, msgID int, caption string, opts telegram.SendOptions) error
	DeleteMessage(ctx context.Context, chatID int64, msgID int) error
	PinChatMessage(ctx context.Context, chatID int64, msgID int, silent bool) error
	AnswerCallbackQuery(ctx context.Context, id, text string, alert bool) error
	GetChatMember(ctx context.Context, chatID, userID int64) (*telegram.ChatMember, error)
	GetFile(ctx context.Context, fileID string) (*telegram.File, error)
	DownloadFile(ctx context.Context, filePath string) (io.ReadCloser, error)
}

var _ Client = (*telegram.Client)(nil)

// Recorder receives bot activity counters. *metrics.Metrics implements it.
type Recorder interface {
	RecordUpdate(kind string)
	RecordCommand(command, status string)
	RecordPresence(direction string)
	RecordError(module, errType string)
}

type nopRecorder struct{}

func (nopRecorder) RecordUpdate(string)          {}
func (nopRecorder) RecordCommand(string, string) {}
func (nopRecorder) RecordPresence(string)        {}
func (nopRecorder) RecordError(string, string)   {}
