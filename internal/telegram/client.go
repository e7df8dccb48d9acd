package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	perrors "github.com/p-blackswan/afkbot/internal/errors"
)

const (
	// DefaultBaseURL is the public Bot API endpoint.
	DefaultBaseURL = "https://api.telegram.org"

	defaultCallTimeout = 30 * time.Second
)

// Client calls Bot API methods over HTTPS.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL points the client at a different API server (local Bot API server, tests).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// NewClient creates a Bot API client for token.
func NewClient(token string, logger zerolog.Logger, opts ...ClientOption) *Client {
	c := &Client{
		token:   token,
		baseURL: DefaultBaseURL,
		http:    &http.Client{},
		logger:  logger.With().Str("component", "telegram").Logger(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
}

// call posts params as JSON and decodes the result into out (when non-nil).
func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal %s params: %w", method, err)
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultCallTimeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, method, out)
}

// upload posts a multipart form carrying one file field.
func (c *Client) upload(ctx context.Context, method string, fields map[string]string, fileField, fileName string, file io.Reader, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return err
		}
	}
	part, err := w.CreateFormFile(fileField, fileName)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("read %s: %w", fileName, err)
	}
	if err := w.Close(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 2*defaultCallTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.do(req, method, out)
}

func (c *Client) do(req *http.Request, method string, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(req.Context().Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%s: %w", method, perrors.ErrTimeout)
		}
		return fmt.Errorf("%s: %w: %v", method, perrors.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read body: %w", method, err)
	}

	var env apiResponse
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 500 {
			return perrors.NewAPIError(method, resp.StatusCode, http.StatusText(resp.StatusCode))
		}
		return fmt.Errorf("%s: unmarshal response: %w", method, err)
	}
	if !env.OK {
		status := env.ErrorCode
		if status == 0 {
			status = resp.StatusCode
		}
		apiErr := perrors.NewAPIError(method, status, env.Description)
		if env.Parameters != nil && env.Parameters.RetryAfter > 0 {
			apiErr.RetryAfter = time.Duration(env.Parameters.RetryAfter) * time.Second
		}
		c.logger.Debug().Str("method", method).Int("status", status).Str("description", env.Description).Msg("api call failed")
		return apiErr
	}
	if out == nil || len(env.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("%s: unmarshal result: %w", method, err)
	}
	return nil
}

// GetMe returns the bot's own user.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var u User
	if err := c.call(ctx, "getMe", struct{}{}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// SendOptions are the optional parts of a send call.
type SendOptions struct {
	ParseMode   string
	ReplyTo     int
	ReplyMarkup *InlineKeyboardMarkup
}

type sendMessageParams struct {
	ChatID             int64                 `json:"chat_id"`
	Text               string                `json:"text"`
	ParseMode          string                `json:"parse_mode,omitempty"`
	ReplyParameters    *replyParameters      `json:"reply_parameters,omitempty"`
	ReplyMarkup        *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
	LinkPreviewOptions *linkPreviewOptions   `json:"link_preview_options,omitempty"`
}

func replyTo(id int) *replyParameters {
	if id == 0 {
		return nil
	}
	return &replyParameters{MessageID: id, AllowSendingWithoutReply: true}
}

// SendMessage sends a text message.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, opts SendOptions) (*Message, error) {
	var m Message
	err := c.call(ctx, "sendMessage", sendMessageParams{
		ChatID:             chatID,
		Text:               text,
		ParseMode:          opts.ParseMode,
		ReplyParameters:    replyTo(opts.ReplyTo),
		ReplyMarkup:        opts.ReplyMarkup,
		LinkPreviewOptions: &linkPreviewOptions{IsDisabled: true},
	}, &m)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

type sendMediaParams struct {
	ChatID          int64                 `json:"chat_id"`
	Photo           string                `json:"photo,omitempty"`
	Animation       string                `json:"animation,omitempty"`
	Caption         string                `json:"caption,omitempty"`
	ParseMode       string                `json:"parse_mode,omitempty"`
	ReplyParameters *replyParameters      `json:"reply_parameters,omitempty"`
	ReplyMarkup     *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

// SendPhoto sends a photo by file_id or URL.
func (c *Client) SendPhoto(ctx context.Context, chatID int64, photo, caption string, opts SendOptions) (*Message, error) {
	var m Message
	err := c.call(ctx, "sendPhoto", sendMediaParams{
		ChatID:          chatID,
		Photo:           photo,
		Caption:         caption,
		ParseMode:       opts.ParseMode,
		ReplyParameters: replyTo(opts.ReplyTo),
		ReplyMarkup:     opts.ReplyMarkup,
	}, &m)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// SendPhotoFile uploads a local photo.
func (c *Client) SendPhotoFile(ctx context.Context, chatID int64, name string, photo io.Reader, caption string, opts SendOptions) (*Message, error) {
	fields := map[string]string{
		"chat_id": strconv.FormatInt(chatID, 10),
		"caption": caption,
	}
	if opts.ParseMode != "" {
		fields["parse_mode"] = opts.ParseMode
	}
	if rp := replyTo(opts.ReplyTo); rp != nil {
		b, _ := json.Marshal(rp)
		fields["reply_parameters"] = string(b)
	}
	if opts.ReplyMarkup != nil {
		b, _ := json.Marshal(opts.ReplyMarkup)
		fields["reply_markup"] = string(b)
	}
	var m Message
	if err := c.upload(ctx, "sendPhoto", fields, "photo", name, photo, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// SendAnimation sends a GIF by file_id or URL.
func (c *Client) SendAnimation(ctx context.Context, chatID int64, animation, caption string, opts SendOptions) (*Message, error) {
	var m Message
	err := c.call(ctx, "sendAnimation", sendMediaParams{
		ChatID:          chatID,
		Animation:       animation,
		Caption:         caption,
		ParseMode:       opts.ParseMode,
		ReplyParameters: replyTo(opts.ReplyTo),
		ReplyMarkup:     opts.ReplyMarkup,
	}, &m)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

type relayParams struct {
	ChatID     int64 `json:"chat_id"`
	FromChatID int64 `json:"from_chat_id"`
	MessageID  int   `json:"message_id"`
}

// CopyMessage copies a message without the forward header and returns the new id.
func (c *Client) CopyMessage(ctx context.Context, chatID, fromChatID int64, msgID int) (int, error) {
	var id messageID
	if err := c.call(ctx, "copyMessage", relayParams{ChatID: chatID, FromChatID: fromChatID, MessageID: msgID}, &id); err != nil {
		return 0, err
	}
	return id.MessageID, nil
}

// ForwardMessage forwards a message with its forward header.
func (c *Client) ForwardMessage(ctx context.Context, chatID, fromChatID int64, msgID int) (int, error) {
	var m Message
	if err := c.call(ctx, "forwardMessage", relayParams{ChatID: chatID, FromChatID: fromChatID, MessageID: msgID}, &m); err != nil {
		return 0, err
	}
	return m.MessageID, nil
}

type editParams struct {
	ChatID      int64                 `json:"chat_id"`
	MessageID   int                   `json:"message_id"`
	Text        string                `json:"text,omitempty"`
	Caption     string                `json:"caption,omitempty"`
	ParseMode   string                `json:"parse_mode,omitempty"`
	ReplyMarkup *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

// EditMessageText replaces the text of a message. Editing to identical
// content is not an error.
func (c *Client) EditMessageText(ctx context.Context, chatID int64, msgID int, text string, opts SendOptions) error {
	err := c.call(ctx, "editMessageText", editParams{
		ChatID:      chatID,
		MessageID:   msgID,
		Text:        text,
		ParseMode:   opts.ParseMode,
		ReplyMarkup: opts.ReplyMarkup,
	}, nil)
	return ignoreNotModified(err)
}

// EditMessageCaption replaces the caption of a media message.
func (c *Client) EditMessageCaption(ctx context.Context, chatID int64, msgID int, caption string, opts SendOptions) error {
	err := c.call(ctx, "editMessageCaption", editParams{
		ChatID:      chatID,
		MessageID:   msgID,
		Caption:     caption,
		ParseMode:   opts.ParseMode,
		ReplyMarkup: opts.ReplyMarkup,
	}, nil)
	return ignoreNotModified(err)
}

func ignoreNotModified(err error) error {
	var apiErr *perrors.APIError
	if errors.As(err, &apiErr) && strings.Contains(apiErr.Description, "message is not modified") {
		return nil
	}
	return err
}

type chatMessageParams struct {
	ChatID              int64 `json:"chat_id"`
	MessageID           int   `json:"message_id"`
	DisableNotification bool  `json:"disable_notification,omitempty"`
}

// DeleteMessage deletes a message.
func (c *Client) DeleteMessage(ctx context.Context, chatID int64, msgID int) error {
	return c.call(ctx, "deleteMessage", chatMessageParams{ChatID: chatID, MessageID: msgID}, nil)
}

// PinChatMessage pins a message in a chat.
func (c *Client) PinChatMessage(ctx context.Context, chatID int64, msgID int, silent bool) error {
	return c.call(ctx, "pinChatMessage", chatMessageParams{ChatID: chatID, MessageID: msgID, DisableNotification: silent}, nil)
}

type answerCallbackParams struct {
	CallbackQueryID string `json:"callback_query_id"`
	Text            string `json:"text,omitempty"`
	ShowAlert       bool   `json:"show_alert,omitempty"`
}

// AnswerCallbackQuery acknowledges a button press, optionally with a toast.
func (c *Client) AnswerCallbackQuery(ctx context.Context, id, text string, alert bool) error {
	return c.call(ctx, "answerCallbackQuery", answerCallbackParams{CallbackQueryID: id, Text: text, ShowAlert: alert}, nil)
}

type chatMemberParams struct {
	ChatID int64 `json:"chat_id"`
	UserID int64 `json:"user_id"`
}

// GetChatMember returns a user's membership in a chat.
func (c *Client) GetChatMember(ctx context.Context, chatID, userID int64) (*ChatMember, error) {
	var m ChatMember
	if err := c.call(ctx, "getChatMember", chatMemberParams{ChatID: chatID, UserID: userID}, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// GetFile prepares a file for download.
func (c *Client) GetFile(ctx context.Context, fileID string) (*File, error) {
	var f File
	if err := c.call(ctx, "getFile", struct {
		FileID string `json:"file_id"`
	}{fileID}, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// DownloadFile streams a file previously returned by GetFile. The caller
// closes the reader.
func (c *Client) DownloadFile(ctx context.Context, filePath string) (io.ReadCloser, error) {
	u := fmt.Sprintf("%s/file/bot%s/%s", c.baseURL, c.token, strings.TrimLeft(filePath, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w: %v", perrors.ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, perrors.NewAPIError("downloadFile", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return resp.Body, nil
}

type getUpdatesParams struct {
	Offset         int      `json:"offset"`
	Timeout        int      `json:"timeout"`
	AllowedUpdates []string `json:"allowed_updates"`
}

// GetUpdates long-polls for updates starting at offset.
func (c *Client) GetUpdates(ctx context.Context, offset, timeoutSecs int, allowed []string) ([]Update, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSecs)*time.Second+15*time.Second)
	defer cancel()
	var updates []Update
	err := c.call(ctx, "getUpdates", getUpdatesParams{Offset: offset, Timeout: timeoutSecs, AllowedUpdates: allowed}, &updates)
	return updates, err
}
