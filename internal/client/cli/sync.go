package cli

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/cobra"
)

func newStatusCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show connectivity, pending changes and today's counters",
		Args:  cobra.NoArgs,
		RunE: s.run(func(ctx context.Context, cmd *cobra.Command, _ []string, app *App) error {
			remaining, err := app.limiter.Remaining(ctx)
			if err != nil {
				return err
			}
			st := app.orch.LoadStreak(ctx)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "mode: %s\n", app.monitor.Mode())
			fmt.Fprintf(out, "pending changes: %t\n", app.orch.HasPendingChanges())
			fmt.Fprintf(out, "streak: %d (longest %d)\n", st.Current, st.Longest)
			fmt.Fprintf(out, "messages today: %d\n", app.orch.LoadUsage(ctx).MessageCount)
			fmt.Fprintf(out, "queued insights: %d\n", len(app.orch.LoadInsights(ctx)))
			fmt.Fprintf(out, "notifications left this week: %d\n", remaining)
			return nil
		}),
	}
}

func newSyncCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Pull every collection from the gateway and merge it locally",
		Args:  cobra.NoArgs,
		RunE: s.run(func(ctx context.Context, cmd *cobra.Command, _ []string, app *App) error {
			ran, err := app.orch.SyncFromCloud(ctx)
			if err != nil {
				return err
			}
			if !ran {
				fmt.Fprintln(cmd.OutOrStdout(), "sync already running")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "synced")
			return nil
		}),
	}
}

func newPushCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Push every local collection to the gateway",
		Args:  cobra.NoArgs,
		RunE: s.run(func(ctx context.Context, cmd *cobra.Command, _ []string, app *App) error {
			if err := app.orch.PushAllToCloud(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "pushed")
			return nil
		}),
	}
}

func newWipeCommand(s *session) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "wipe",
		Short: "Delete all local data and, when online, its remote copy",
		Args:  cobra.NoArgs,
		RunE: s.run(func(ctx context.Context, cmd *cobra.Command, _ []string, app *App) error {
			if !yes {
				ok, err := newPrompter(cmd).Confirm("Delete all data?", "wipe")
				if err != nil {
					return err
				}
				if !ok {
					return errors.New("aborted")
				}
			}
			if err := app.orch.ClearAll(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "wiped")
			return nil
		}),
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newWatchCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stay running: pull once, then push pending changes on every reconnect",
		Args:  cobra.NoArgs,
		RunE: s.run(func(ctx context.Context, cmd *cobra.Command, _ []string, app *App) error {
			if app.monitor.Online() {
				if _, err := app.orch.SyncFromCloud(ctx); err != nil {
					app.logger.Warn(ctx, "initial sync incomplete", "error", err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "watching (%s), interrupt to stop\n", app.monitor.Mode())

			var wg sync.WaitGroup
			wg.Add(2)
			go func() {
				defer wg.Done()
				app.monitor.Run(ctx)
			}()
			go func() {
				defer wg.Done()
				app.orch.Run(ctx)
			}()
			wg.Wait()
			return nil
		}),
	}
}
