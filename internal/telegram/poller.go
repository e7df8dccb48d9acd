package telegram

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// AllowedUpdates are the update kinds the bot subscribes to.
var AllowedUpdates = []string{"message", "callback_query"}

// Poller long-polls getUpdates and emits each update on a channel.
// The offset advances past every received update, so an update is
// delivered at most once per process.
type Poller struct {
	client     *Client
	offset     int
	timeout    int // long-poll timeout in seconds
	retryDelay time.Duration
	logger     zerolog.Logger
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithPollTimeout sets the long-poll timeout in seconds.
func WithPollTimeout(secs int) PollerOption {
	return func(p *Poller) { p.timeout = secs }
}

// WithRetryDelay sets the pause after a failed getUpdates call.
func WithRetryDelay(d time.Duration) PollerOption {
	return func(p *Poller) { p.retryDelay = d }
}

// NewPoller creates a long-polling update source.
func NewPoller(client *Client, logger zerolog.Logger, opts ...PollerOption) *Poller {
	p := &Poller{
		client:     client,
		timeout:    30,
		retryDelay: 5 * time.Second,
		logger:     logger.With().Str("component", "poller").Logger(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run polls until ctx is cancelled. It blocks.
func (p *Poller) Run(ctx context.Context, out chan<- Update) {
	p.logger.Info().Int("timeout", p.timeout).Msg("polling started")
	defer p.logger.Info().Msg("polling stopped")

	for {
		if ctx.Err() != nil {
			return
		}

		updates, err := p.client.GetUpdates(ctx, p.offset, p.timeout, AllowedUpdates)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Error().Err(err).Msg("getUpdates failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.retryDelay):
				continue
			}
		}

		for _, upd := range updates {
			p.offset = max(p.offset, upd.UpdateID+1)
			select {
			case out <- upd:
			case <-ctx.Done():
				return
			}
		}
	}
}
