package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
)

type session struct {
	open Opener
}

type runFunc func(ctx context.Context, cmd *cobra.Command, args []string, app *App) error

// run opens the app, probes connectivity once and closes the app after fn.
func (s *session) run(fn runFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		ctx := cmd.Context()
		app, err := s.open(ctx)
		if err != nil {
			return err
		}
		defer func() {
			err = errors.Join(err, app.Close())
		}()

		app.monitor.Check(ctx)
		return fn(ctx, cmd, args, app)
	}
}

// NewRootCommand creates the root command of the companion CLI.
func NewRootCommand(open Opener) *cobra.Command {
	s := &session{open: open}

	cmd := &cobra.Command{
		Use:   "companion",
		Short: "Local-first companion data with cloud sync",
		Long: `Reads and writes the companion's local store and keeps it in sync with the
gateway. Works offline; changes made offline are pushed on the next run
that finds the gateway reachable, or by "watch" as soon as it reconnects.

Config flags (-a -i -f -t -u -m -w -n -e -c) may be given anywhere.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(
		newStatusCommand(s),
		newSyncCommand(s),
		newPushCommand(s),
		newWipeCommand(s),
		newWatchCommand(s),
		newJournalCommand(s),
		newInsightCommand(s),
		newStreakCommand(s),
		newNotifyCommand(s),
		newConversationCommand(s),
	)
	return cmd
}
