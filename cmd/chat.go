// ABOUTME: Live support chat from the command line
// ABOUTME: Prints the conversation and follows it through the chat transport

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/markalston/fntc-portal/internal/chat"
	"github.com/markalston/fntc-portal/internal/client"
)

type chatOptions struct {
	send   string
	follow bool
}

var chatOpts chatOptions

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to FNTC support",
	Long: `Opens your live support chat, prints the conversation and keeps following
new messages until interrupted. Updates are pushed by the server when
possible and polled otherwise.`,
	Run: func(cmd *cobra.Command, args []string) {
		run(func(ctx context.Context, w io.Writer) int {
			return runChat(ctx, w, chatOpts)
		})
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVar(&chatOpts.send, "send", "", "Send a message")
	chatCmd.Flags().BoolVarP(&chatOpts.follow, "follow", "f", true, "Keep following new messages")
}

func runChat(ctx context.Context, w io.Writer, opts chatOptions) int {
	return withSession(ctx, w, func(a *app) int {
		me, err := a.api.Me(ctx)
		if err != nil {
			return reportError(w, err)
		}
		live, err := a.api.StartLiveChat(ctx)
		if err != nil {
			return reportError(w, err)
		}

		conv := chat.NewConversation(a.api, live.ID, me.ID)
		conv.Replace(live.Messages, live.IsTyping)
		p := newChatPrinter(w, me.ID)
		p.print(conv)

		if opts.send != "" {
			if _, err := conv.SendOptimistic(ctx, opts.send); err != nil {
				return reportError(w, err)
			}
			p.print(conv)
		}

		if !opts.follow {
			return exitOK
		}
		return a.followChat(ctx, w, conv, p)
	})
}

// followChat prints updates until ctx ends or the session expires
func (a *app) followChat(ctx context.Context, w io.Writer, conv *chat.Conversation, p *chatPrinter) int {
	updates := make(chan chat.Update, 1)
	modes := make(chan chat.Mode, 8)
	expired := make(chan error, 1)

	t := chat.NewTransport(chat.ClientFeed{API: a.api}, conv.ChatID(), chat.Options{
		OpenTimeout:  a.cfg.Chat.OpenTimeout,
		PollInterval: a.cfg.Chat.PollInterval,
		OnUpdate: func(u chat.Update) {
			offerLatest(updates, u)
		},
		OnModeChange: func(m chat.Mode) {
			select {
			case modes <- m:
			default:
			}
		},
		OnError: func(err error) {
			if errors.Is(err, client.ErrSessionExpired) {
				select {
				case expired <- err:
				default:
				}
				return
			}
			slog.Debug("Chat update failed", "error", err)
		},
	})
	if err := t.Start(ctx); err != nil {
		return reportError(w, err)
	}
	defer t.Stop()

	fmt.Fprintln(w, "Following the chat, press Ctrl+C to leave.")
	for {
		select {
		case <-ctx.Done():
			return exitOK
		case err := <-expired:
			t.Stop()
			return reportError(w, err)
		case m := <-modes:
			switch m {
			case chat.ModeStreaming:
				fmt.Fprintln(w, "(live)")
			case chat.ModePolling:
				fmt.Fprintf(w, "(live updates unavailable, checking every %s)\n", a.cfg.Chat.PollInterval)
			}
		case u := <-updates:
			conv.Apply(u)
			p.print(conv)
		}
	}
}

// offerLatest puts u in a one-slot mailbox, replacing an unread update.
// It never blocks, so transport callbacks stay fast.
func offerLatest(ch chan chat.Update, u chat.Update) {
	for {
		select {
		case ch <- u:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// chatPrinter writes each confirmed message once
type chatPrinter struct {
	w      io.Writer
	selfID string
	seen   map[string]bool
	typing bool
}

func newChatPrinter(w io.Writer, selfID string) *chatPrinter {
	return &chatPrinter{w: w, selfID: selfID, seen: make(map[string]bool)}
}

func (p *chatPrinter) print(conv *chat.Conversation) {
	for _, m := range conv.Messages() {
		if m.Pending || p.seen[m.ID] {
			continue
		}
		p.seen[m.ID] = true
		fmt.Fprintln(p.w, formatChatLine(m, p.selfID))
	}
	if typing := conv.AgentTyping(); typing != p.typing {
		p.typing = typing
		if typing {
			fmt.Fprintln(p.w, "Support is typing...")
		}
	}
}

func formatChatLine(m client.ChatMessage, selfID string) string {
	who := "Support"
	if m.SenderID == selfID {
		who = "You"
	}
	return fmt.Sprintf("[%s] %s: %s", m.Timestamp.Local().Format("15:04"), who, m.Text)
}
