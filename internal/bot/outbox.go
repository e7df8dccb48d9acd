package bot

import (
	"context"
	"io"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/afkbot/internal/autodelete"
	"github.com/p-blackswan/afkbot/internal/broadcast"
	"github.com/p-blackswan/afkbot/internal/telegram"
)

// Registrar schedules deletion of a bot-authored message.
type Registrar interface {
	Register(ctx context.Context, chatID int64, messageID int) autodelete.Result
}

// Outbox sends new messages and registers each one for auto-deletion.
// Registration is best effort and never changes a send's result. Edits are
// not new messages and go straight to the client.
type Outbox struct {
	client    Client
	registrar Registrar
	logger    zerolog.Logger
}

// NewOutbox creates an Outbox.
func NewOutbox(client Client, registrar Registrar, logger zerolog.Logger) *Outbox {
	return &Outbox{
		client:    client,
		registrar: registrar,
		logger:    logger.With().Str("component", "outbox").Logger(),
	}
}

// SendText sends an HTML text message.
func (o *Outbox) SendText(ctx context.Context, chatID int64, text string, opts telegram.SendOptions) (*telegram.Message, error) {
	if opts.ParseMode == "" {
		opts.ParseMode = telegram.ParseModeHTML
	}
	msg, err := o.client.SendMessage(ctx, chatID, text, opts)
	if err != nil {
		return nil, err
	}
	o.register(ctx, chatID, msg.MessageID)
	return msg, nil
}

// SendPhoto sends a photo by URL or file_id.
func (o *Outbox) SendPhoto(ctx context.Context, chatID int64, photo, caption string, opts telegram.SendOptions) (*telegram.Message, error) {
	if opts.ParseMode == "" {
		opts.ParseMode = telegram.ParseModeHTML
	}
	msg, err := o.client.SendPhoto(ctx, chatID, photo, caption, opts)
	if err != nil {
		return nil, err
	}
	o.register(ctx, chatID, msg.MessageID)
	return msg, nil
}

// SendPhotoFile uploads a local photo.
func (o *Outbox) SendPhotoFile(ctx context.Context, chatID int64, name string, photo io.Reader, caption string, opts telegram.SendOptions) (*telegram.Message, error) {
	if opts.ParseMode == "" {
		opts.ParseMode = telegram.ParseModeHTML
	}
	msg, err := o.client.SendPhotoFile(ctx, chatID, name, photo, caption, opts)
	if err != nil {
		return nil, err
	}
	o.register(ctx, chatID, msg.MessageID)
	return msg, nil
}

// SendAnimation sends a GIF by file_id.
func (o *Outbox) SendAnimation(ctx context.Context, chatID int64, animation, caption string, opts telegram.SendOptions) (*telegram.Message, error) {
	if opts.ParseMode == "" {
		opts.ParseMode = telegram.ParseModeHTML
	}
	msg, err := o.client.SendAnimation(ctx, chatID, animation, caption, opts)
	if err != nil {
		return nil, err
	}
	o.register(ctx, chatID, msg.MessageID)
	return msg, nil
}

// Copy copies a message into chatID.
func (o *Outbox) Copy(ctx context.Context, chatID, fromChatID int64, msgID int) (int, error) {
	id, err := o.client.CopyMessage(ctx, chatID, fromChatID, msgID)
	if err != nil {
		return 0, err
	}
	o.register(ctx, chatID, id)
	return id, nil
}

// Forward forwards a message into chatID.
func (o *Outbox) Forward(ctx context.Context, chatID, fromChatID int64, msgID int) (int, error) {
	id, err := o.client.ForwardMessage(ctx, chatID, fromChatID, msgID)
	if err != nil {
		return 0, err
	}
	o.register(ctx, chatID, id)
	return id, nil
}

// register hands the message to the scheduler. Private chats (positive
// ids) never have auto-delete enabled and are skipped.
func (o *Outbox) register(ctx context.Context, chatID int64, msgID int) {
	if chatID > 0 || msgID == 0 {
		return
	}
	res := o.registrar.Register(ctx, chatID, msgID)
	o.logger.Debug().
		Int64("chat_id", chatID).
		Int("message_id", msgID).
		Str("outcome", string(res.Outcome)).
		Err(res.Err).
		Msg("auto-delete registration")
}

// Broadcaster adapts the outbox for broadcast fan-out.
func (o *Outbox) Broadcaster() broadcast.Sender {
	return broadcastSender{o}
}

type broadcastSender struct {
	o *Outbox
}

func (b broadcastSender) SendText(ctx context.Context, chatID int64, text string) (int, error) {
	// Broadcast text is sent verbatim.
	msg, err := b.o.client.SendMessage(ctx, chatID, text, telegram.SendOptions{})
	if err != nil {
		return 0, err
	}
	b.o.register(ctx, chatID, msg.MessageID)
	return msg.MessageID, nil
}

func (b broadcastSender) Copy(ctx context.Context, chatID, fromChatID int64, msgID int) (int, error) {
	return b.o.Copy(ctx, chatID, fromChatID, msgID)
}

func (b broadcastSender) Forward(ctx context.Context, chatID, fromChatID int64, msgID int) (int, error) {
	return b.o.Forward(ctx, chatID, fromChatID, msgID)
}

func (b broadcastSender) Pin(ctx context.Context, chatID int64, msgID int) error {
	return b.o.client.PinChatMessage(ctx, chatID, msgID, false)
}
