package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/companion/internal/client/streak"
	"github.com/spf13/cobra"
)

func newInsightCommand(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "insight",
		Short: "Queued insights",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "push <text>",
			Short: "Queue an insight unless a similar one is already queued",
			Args:  cobra.MinimumNArgs(1),
			RunE: s.run(func(ctx context.Context, cmd *cobra.Command, args []string, app *App) error {
				added, err := app.orch.PushInsight(ctx, strings.Join(args, " "))
				if err != nil {
					return err
				}
				if added {
					fmt.Fprintln(cmd.OutOrStdout(), "queued")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "not queued: duplicate or blank")
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   "pop",
			Short: "Take the oldest unexpired insight",
			Args:  cobra.NoArgs,
			RunE: s.run(func(ctx context.Context, cmd *cobra.Command, _ []string, app *App) error {
				e, ok, err := app.orch.PopInsight(ctx)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "queue empty")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), e.Text)
				return nil
			}),
		},
	)
	return cmd
}

func newStreakCommand(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "streak",
		Short: "Activity streak",
	}
	cmd.AddCommand(&cobra.Command{
		Use:       "record <chat|journal>",
		Short:     "Record activity for today",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(streak.SourceChat), string(streak.SourceJournal)},
		RunE: s.run(func(ctx context.Context, cmd *cobra.Command, args []string, app *App) error {
			src, ok := streak.ParseSource(args[0])
			if !ok {
				return fmt.Errorf("unknown activity %q: want chat or journal", args[0])
			}
			st, err := app.orch.RecordActivity(ctx, src)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "streak: %d (longest %d)\n", st.Current, st.Longest)
			return nil
		}),
	})
	return cmd
}

func newNotifyCommand(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Weekly notification budget",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "check",
			Short: "Report whether a notification may be sent this week",
			Args:  cobra.NoArgs,
			RunE: s.run(func(ctx context.Context, cmd *cobra.Command, _ []string, app *App) error {
				ok, err := app.limiter.CanSend(ctx)
				if err != nil {
					return err
				}
				remaining, err := app.limiter.Remaining(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "can send: %t (%d left)\n", ok, remaining)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "allow",
			Short: "Consume one notification from this week's budget",
			Args:  cobra.NoArgs,
			RunE: s.run(func(ctx context.Context, cmd *cobra.Command, _ []string, app *App) error {
				ok, err := app.limiter.Allow(ctx)
				if err != nil {
					return err
				}
				if ok {
					fmt.Fprintln(cmd.OutOrStdout(), "allowed")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "budget exhausted")
				}
				return nil
			}),
		},
	)
	return cmd
}

func newConversationCommand(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conversation",
		Short: "Conversations",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a conversation locally and remotely; requires connectivity",
		Args:  cobra.ExactArgs(1),
		RunE: s.run(func(ctx context.Context, cmd *cobra.Command, args []string, app *App) error {
			if !app.orch.DeleteConversation(ctx, args[0]) {
				return fmt.Errorf("conversation %s not deleted: gateway unreachable (%s)", args[0], app.monitor.Mode())
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted")
			return nil
		}),
	})
	return cmd
}
