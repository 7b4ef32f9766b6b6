// Package server wires the reference gateway together: it opens PostgreSQL,
// applies migrations, builds the record and blob services, and runs the
// gRPC endpoint until the process is signalled.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/companion/internal/logging"
	"github.com/dmitrijs2005/companion/internal/server/auth"
	"github.com/dmitrijs2005/companion/internal/server/config"
	"github.com/dmitrijs2005/companion/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/companion/internal/server/services"

	gs "github.com/dmitrijs2005/companion/internal/server/grpc"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	records *services.RecordService
	blobs   *services.BlobService
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	db, err := repomanager.OpenPostgres(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	blobs, err := services.NewBlobService(ctx, c)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &App{
		config:  c,
		logger:  logger,
		db:      db,
		records: services.NewRecordService(db, rm),
		blobs:   blobs,
	}, nil
}

// Mint writes a fresh access token for userID to w.
func Mint(w io.Writer, c *config.Config, userID string) error {
	token, err := auth.GenerateToken(userID, []byte(c.SecretKey), c.AccessTokenValidityDuration)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, token)
	return err
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// closes the database.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.records, app.blobs, app.config.SecretKey)
	err := s.Run(ctx)
	if err != nil {
		app.logger.Error(ctx, "gRPC server failed", "error", err)
	}

	if cerr := app.db.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
