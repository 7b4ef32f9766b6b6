package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/companion/internal/client/client"
	"github.com/dmitrijs2005/companion/internal/client/config"
	"github.com/dmitrijs2005/companion/internal/client/connectivity"
	"github.com/dmitrijs2005/companion/internal/client/notify"
	"github.com/dmitrijs2005/companion/internal/client/remote"
	"github.com/dmitrijs2005/companion/internal/client/store"
	"github.com/dmitrijs2005/companion/internal/client/syncer"
	"github.com/dmitrijs2005/companion/internal/client/unlock"
	"github.com/dmitrijs2005/companion/internal/common"
	"github.com/dmitrijs2005/companion/internal/logging"
	"github.com/dmitrijs2005/companion/internal/timex"
)

// App is one opened client: local store, gateway, connectivity monitor and
// the orchestrator on top of them.
type App struct {
	cfg     *config.Config
	db      *sql.DB
	store   *store.Store
	gateway remote.Gateway
	monitor *connectivity.Monitor
	orch    *syncer.Orchestrator
	limiter *notify.Limiter
	clock   timex.Clock
	logger  logging.Logger
}

// Opener builds an App on demand so that help and usage errors never touch
// the database or the terminal.
type Opener func(ctx context.Context) (*App, error)

// NewOpener returns the production Opener for cfg. When cfg.Encrypt is set
// the passphrase is read from the terminal, with prompts written to prompt.
func NewOpener(cfg *config.Config, logger logging.Logger, prompt io.Writer) Opener {
	return func(ctx context.Context) (*App, error) {
		db, err := client.InitDatabase(ctx, cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}

		var opts []store.Option
		if cfg.Encrypt {
			pw, err := GetPassphrase(prompt)
			if err != nil {
				_ = db.Close()
				return nil, err
			}
			sealer, err := unlock.Open(ctx, db, pw)
			common.WipeByteArray(pw)
			if err != nil {
				_ = db.Close()
				return nil, err
			}
			opts = append(opts, store.WithSealer(sealer))
		}

		var gw remote.Gateway = remote.Offline{}
		if cfg.ServerEndpointAddr != "" {
			g, err := remote.NewGRPCGateway(cfg.ServerEndpointAddr, cfg.AccessToken)
			if err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("gateway: %w", err)
			}
			gw = g
		}

		return newApp(cfg, db, gw, timex.SystemClock{}, logger, opts...), nil
	}
}

func newApp(cfg *config.Config, db *sql.DB, gw remote.Gateway, clock timex.Clock, logger logging.Logger, opts ...store.Option) *App {
	opts = append(opts, store.WithLogger(logger))
	s := store.New(db, opts...)
	monitor := connectivity.New(gw, cfg.OnlineCheckInterval, connectivity.WithLogger(logger))

	return &App{
		cfg:     cfg,
		db:      db,
		store:   s,
		gateway: gw,
		monitor: monitor,
		orch: syncer.New(s, gw, monitor,
			syncer.WithLogger(logger),
			syncer.WithClock(clock),
			syncer.WithUserID(cfg.UserID),
			syncer.WithImageDir(cfg.ImageDir),
			syncer.WithPushConcurrency(cfg.PushConcurrency),
		),
		limiter: notify.New(s,
			notify.WithClock(clock),
			notify.WithBudget(cfg.NotificationBudget),
			notify.WithWeekStart(cfg.WeekStart),
			notify.WithLogger(logger),
		),
		clock:  clock,
		logger: logger,
	}
}

// Close waits for background pushes, then releases the gateway and the
// database.
func (a *App) Close() error {
	a.orch.Wait()
	a.store.Close()

	var errs []error
	if c, ok := a.gateway.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	errs = append(errs, a.db.Close())
	return errors.Join(errs...)
}
