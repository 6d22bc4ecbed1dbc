// ABOUTME: Live-chat transport that streams updates and falls back to polling
// ABOUTME: One authoritative mode; transitions from superseded runs are ignored

package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/markalston/fntc-portal/internal/client"
)

// Mode is the transport state
type Mode int

const (
	ModeStopped Mode = iota
	ModeConnecting
	ModeStreaming
	ModePolling
)

func (m Mode) String() string {
	switch m {
	case ModeStopped:
		return "stopped"
	case ModeConnecting:
		return "connecting"
	case ModeStreaming:
		return "streaming"
	case ModePolling:
		return "polling"
	default:
		return "unknown"
	}
}

// ErrAlreadyStarted is returned by Start on a running transport
var ErrAlreadyStarted = errors.New("chat transport already started")

// Update is the full chat state delivered by the stream or a poll
type Update struct {
	Messages []client.ChatMessage
	IsTyping bool
	Source   Mode
}

// Options tunes a Transport. Callbacks run on transport goroutines and must
// not call Stop.
type Options struct {
	// OpenTimeout is how long to wait for the stream to confirm. Defaults to 8s.
	OpenTimeout time.Duration
	// PollInterval is the fetch period while polling. Defaults to 4s.
	PollInterval time.Duration

	OnUpdate     func(Update)
	OnModeChange func(Mode)
	OnError      func(error)
}

// Transport delivers near-real-time updates for one chat
type Transport struct {
	feed   Feed
	chatID string
	opts   Options

	mu     sync.Mutex
	mode   Mode
	gen    uint64
	cancel context.CancelFunc
	stream Stream

	wg sync.WaitGroup
}

// NewTransport creates a stopped transport for chatID
func NewTransport(feed Feed, chatID string, opts Options) *Transport {
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = 8 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 4 * time.Second
	}
	return &Transport{feed: feed, chatID: chatID, opts: opts}
}

// Mode returns the current mode
func (t *Transport) Mode() Mode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mode
}

// Start enters connecting and arms the open timeout
func (t *Transport) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.mode != ModeStopped {
		t.mu.Unlock()
		return ErrAlreadyStarted
	}
	t.gen++
	gen := t.gen
	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.mode = ModeConnecting
	t.mu.Unlock()

	slog.Debug("Chat transport starting", "chat_id", t.chatID)
	t.modeChanged(ModeConnecting)

	t.wg.Add(1)
	go t.connect(runCtx, gen)
	return nil
}

// Stop closes the stream or cancels polling. It returns after every
// transport goroutine has exited, so no fetch happens afterwards.
func (t *Transport) Stop() {
	t.mu.Lock()
	if t.mode == ModeStopped {
		t.mu.Unlock()
		t.wg.Wait()
		return
	}
	t.gen++
	t.mode = ModeStopped
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	if t.stream != nil {
		t.stream.Close()
		t.stream = nil
	}
	t.mu.Unlock()

	t.wg.Wait()
	slog.Debug("Chat transport stopped", "chat_id", t.chatID)
	t.modeChanged(ModeStopped)
}

// transition moves from one mode to another if gen is still current. The
// losing side of a race gets false and must do nothing.
func (t *Transport) transition(gen uint64, from, to Mode, stream Stream) bool {
	t.mu.Lock()
	if t.gen != gen || t.mode != from {
		t.mu.Unlock()
		return false
	}
	t.mode = to
	t.stream = stream
	t.mu.Unlock()

	slog.Info("Chat transport mode changed", "chat_id", t.chatID, "mode", to.String())
	t.modeChanged(to)
	return true
}

func (t *Transport) current(gen uint64, mode Mode) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gen == gen && t.mode == mode
}

type openResult struct {
	stream Stream
	err    error
}

func (t *Transport) connect(ctx context.Context, gen uint64) {
	defer t.wg.Done()

	listenCtx, cancelListen := context.WithCancel(ctx)
	defer cancelListen()

	results := make(chan openResult, 1)
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		s, err := t.feed.Listen(listenCtx, t.chatID)
		results <- openResult{stream: s, err: err}
	}()

	timer := time.NewTimer(t.opts.OpenTimeout)
	defer timer.Stop()

	select {
	case res := <-results:
		if res.err != nil {
			if ctx.Err() != nil {
				return
			}
			t.reportError(fmt.Errorf("chat stream failed to open: %w", res.err))
			if t.transition(gen, ModeConnecting, ModePolling, nil) {
				t.poll(ctx, gen)
			}
			return
		}
		if !t.transition(gen, ModeConnecting, ModeStreaming, res.stream) {
			res.stream.Close()
			return
		}
		t.read(ctx, gen, res.stream)

	case <-timer.C:
		cancelListen()
		t.discardLate(results)
		slog.Debug("Chat stream open timed out", "chat_id", t.chatID, "timeout", t.opts.OpenTimeout)
		if t.transition(gen, ModeConnecting, ModePolling, nil) {
			t.poll(ctx, gen)
		}

	case <-ctx.Done():
		cancelListen()
		t.discardLate(results)
	}
}

// discardLate closes a stream whose open confirmation lost the race
func (t *Transport) discardLate(results <-chan openResult) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		if res := <-results; res.stream != nil {
			slog.Debug("Closing late chat stream", "chat_id", t.chatID)
			res.stream.Close()
		}
	}()
}

// read delivers stream events until the stream ends, then falls back to polling
func (t *Transport) read(ctx context.Context, gen uint64, stream Stream) {
	for {
		ev, err := stream.Next()
		if err != nil {
			stream.Close()
			if ctx.Err() != nil || !t.current(gen, ModeStreaming) {
				return
			}
			t.reportError(fmt.Errorf("chat stream closed: %w", err))
			if t.transition(gen, ModeStreaming, ModePolling, nil) {
				t.poll(ctx, gen)
			}
			return
		}
		if !t.current(gen, ModeStreaming) {
			return
		}
		t.deliver(Update{Messages: ev.Messages, IsTyping: ev.IsTyping, Source: ModeStreaming})
	}
}

// poll fetches at once and then every PollInterval until cancelled
func (t *Transport) poll(ctx context.Context, gen uint64) {
	ticker := time.NewTicker(t.opts.PollInterval)
	defer ticker.Stop()

	for {
		if !t.current(gen, ModePolling) {
			return
		}
		chat, err := t.feed.LiveChat(ctx, t.chatID)
		switch {
		case err != nil && ctx.Err() != nil:
			return
		case err != nil:
			t.reportError(err)
		case t.current(gen, ModePolling):
			t.deliver(Update{Messages: chat.Messages, IsTyping: chat.IsTyping, Source: ModePolling})
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (t *Transport) deliver(u Update) {
	if t.opts.OnUpdate != nil {
		t.opts.OnUpdate(u)
	}
}

func (t *Transport) modeChanged(m Mode) {
	if t.opts.OnModeChange != nil {
		t.opts.OnModeChange(m)
	}
}

func (t *Transport) reportError(err error) {
	slog.Warn("Chat transport error", "chat_id", t.chatID, "error", err)
	if t.opts.OnError != nil {
		t.opts.OnError(err)
	}
}
