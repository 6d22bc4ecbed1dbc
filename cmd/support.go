// ABOUTME: Feedback and support ticket commands
// ABOUTME: List, create, update, and delete entries for the signed-in user

package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/markalston/fntc-portal/internal/client"
)

var (
	feedbackIn client.Feedback
	ticketIn   client.Ticket
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Rate the service",
}

var ticketsCmd = &cobra.Command{
	Use:   "tickets",
	Short: "Support tickets",
}

func init() {
	rootCmd.AddCommand(feedbackCmd, ticketsCmd)

	feedbackList := &cobra.Command{
		Use:   "list",
		Short: "List your feedback",
		Run: func(cmd *cobra.Command, args []string) {
			run(runFeedbackList)
		},
	}
	feedbackCreate := &cobra.Command{
		Use:   "create",
		Short: "Leave feedback",
		Run: func(cmd *cobra.Command, args []string) {
			run(func(ctx context.Context, w io.Writer) int {
				return runFeedbackSave(ctx, w, feedbackIn)
			})
		},
	}
	feedbackUpdate := &cobra.Command{
		Use:   "update <id>",
		Short: "Change existing feedback",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			fb := feedbackIn
			fb.ID = args[0]
			run(func(ctx context.Context, w io.Writer) int {
				return runFeedbackSave(ctx, w, fb)
			})
		},
	}
	feedbackDelete := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete feedback",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			run(func(ctx context.Context, w io.Writer) int {
				return runFeedbackDelete(ctx, w, args[0])
			})
		},
	}
	for _, c := range []*cobra.Command{feedbackCreate, feedbackUpdate} {
		c.Flags().IntVar(&feedbackIn.Rating, "rating", 0, "Rating from 1 to 5")
		c.Flags().StringVar(&feedbackIn.Comment, "comment", "", "Comment")
	}
	feedbackCmd.AddCommand(feedbackList, feedbackCreate, feedbackUpdate, feedbackDelete)

	ticketsList := &cobra.Command{
		Use:   "list",
		Short: "List your support tickets",
		Run: func(cmd *cobra.Command, args []string) {
			run(runTicketsList)
		},
	}
	ticketsCreate := &cobra.Command{
		Use:   "create",
		Short: "Open a support ticket",
		Run: func(cmd *cobra.Command, args []string) {
			run(func(ctx context.Context, w io.Writer) int {
				return runTicketCreate(ctx, w, ticketIn)
			})
		},
	}
	ticketsCreate.Flags().StringVar(&ticketIn.Subject, "subject", "", "Short summary")
	ticketsCreate.Flags().StringVar(&ticketIn.Description, "description", "", "What happened")
	ticketsCmd.AddCommand(ticketsList, ticketsCreate)
}

func runFeedbackList(ctx context.Context, w io.Writer) int {
	return withSession(ctx, w, func(a *app) int {
		items, err := a.api.ListFeedback(ctx)
		if err != nil {
			return reportError(w, err)
		}
		if IsJSONOutput() {
			fmt.Fprintln(w, formatJSON(items))
			return exitOK
		}
		if len(items) == 0 {
			fmt.Fprintln(w, "No feedback yet.")
			return exitOK
		}
		for _, fb := range items {
			fmt.Fprintln(w, formatFeedbackLine(fb))
		}
		return exitOK
	})
}

func runFeedbackSave(ctx context.Context, w io.Writer, fb client.Feedback) int {
	return withSession(ctx, w, func(a *app) int {
		var (
			saved *client.Feedback
			err   error
		)
		if fb.ID == "" {
			saved, err = a.api.CreateFeedback(ctx, fb)
		} else {
			saved, err = a.api.UpdateFeedback(ctx, fb)
		}
		if err != nil {
			return reportError(w, err)
		}
		if IsJSONOutput() {
			fmt.Fprintln(w, formatJSON(saved))
		} else {
			fmt.Fprintln(w, "Saved: "+formatFeedbackLine(*saved))
		}
		return exitOK
	})
}

func runFeedbackDelete(ctx context.Context, w io.Writer, id string) int {
	return withSession(ctx, w, func(a *app) int {
		if err := a.api.DeleteFeedback(ctx, id); err != nil {
			return reportError(w, err)
		}
		fmt.Fprintf(w, "Deleted feedback %s.\n", id)
		return exitOK
	})
}

func formatFeedbackLine(fb client.Feedback) string {
	r := max(0, min(fb.Rating, 5))
	stars := strings.Repeat("*", r) + strings.Repeat(".", 5-r)
	line := fmt.Sprintf("%s  %s", fb.ID, stars)
	if fb.Comment != "" {
		line += "  " + fb.Comment
	}
	return line
}

func runTicketsList(ctx context.Context, w io.Writer) int {
	return withSession(ctx, w, func(a *app) int {
		items, err := a.api.ListTickets(ctx)
		if err != nil {
			return reportError(w, err)
		}
		if IsJSONOutput() {
			fmt.Fprintln(w, formatJSON(items))
			return exitOK
		}
		if len(items) == 0 {
			fmt.Fprintln(w, "No support tickets.")
			return exitOK
		}
		for _, t := range items {
			fmt.Fprintf(w, "%s  [%s]  %s\n", t.ID, t.Status, t.Subject)
		}
		return exitOK
	})
}

func runTicketCreate(ctx context.Context, w io.Writer, t client.Ticket) int {
	if strings.TrimSpace(t.Subject) == "" {
		fmt.Fprintln(w, "Error: --subject is required")
		return exitError
	}
	return withSession(ctx, w, func(a *app) int {
		created, err := a.api.CreateTicket(ctx, t)
		if err != nil {
			return reportError(w, err)
		}
		if IsJSONOutput() {
			fmt.Fprintln(w, formatJSON(created))
		} else {
			fmt.Fprintf(w, "Opened ticket %s: %s\n", created.ID, created.Subject)
		}
		return exitOK
	})
}
