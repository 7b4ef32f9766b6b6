package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/companion/internal/client/models"
	"github.com/dmitrijs2005/companion/internal/client/streak"
	"github.com/spf13/cobra"
)

func newJournalCommand(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Journal entries",
	}
	cmd.AddCommand(newJournalAddCommand(s), newJournalListCommand(s))
	return cmd
}

func newJournalAddCommand(s *session) *cobra.Command {
	var body, mood string
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a journal entry; the body is read from stdin unless --body is given",
		Args:  cobra.MinimumNArgs(1),
		RunE: s.run(func(ctx context.Context, cmd *cobra.Command, args []string, app *App) error {
			if body == "" {
				var err error
				body, err = newPrompter(cmd).Multiline("Entry")
				if err != nil {
					return err
				}
			}

			now := app.clock.Now()
			entry := models.JournalEntry{
				ID:        models.NewID(),
				Title:     strings.Join(args, " "),
				Body:      body,
				Mood:      mood,
				CreatedAt: now,
				UpdatedAt: now,
			}
			entries := append(app.orch.LoadJournalEntries(ctx), entry)
			if err := app.orch.SaveJournalEntries(ctx, entries); err != nil {
				return err
			}
			st, err := app.orch.RecordActivity(ctx, streak.SourceJournal)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s (streak %d)\n", entry.ID, st.Current)
			return nil
		}),
	}
	cmd.Flags().StringVar(&body, "body", "", "entry text")
	cmd.Flags().StringVar(&mood, "mood", "", "mood label")
	return cmd
}

func newJournalListCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List journal entries",
		Args:  cobra.NoArgs,
		RunE: s.run(func(ctx context.Context, cmd *cobra.Command, _ []string, app *App) error {
			entries := app.orch.LoadJournalEntries(ctx)
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no entries")
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s\n", e.CreatedAt.Format("2006-01-02"), e.ID, e.Title)
			}
			return nil
		}),
	}
}
