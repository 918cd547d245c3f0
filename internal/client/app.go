// Package client wires configuration, local storage, the Google backends and
// the REPL into the TailorBook command-line application.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/tailorbook/internal/client/auth"
	"github.com/dmitrijs2005/tailorbook/internal/client/cli"
	"github.com/dmitrijs2005/tailorbook/internal/client/config"
	"github.com/dmitrijs2005/tailorbook/internal/client/remote"
	"github.com/dmitrijs2005/tailorbook/internal/client/services"
	"github.com/dmitrijs2005/tailorbook/internal/client/storage"
	"github.com/dmitrijs2005/tailorbook/internal/filex"
	"github.com/dmitrijs2005/tailorbook/internal/logging"
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	logCloser io.Closer
	repos     *storage.Repositories
	ui        *cli.App
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if _, err := filex.EnsureParentDir(c.DataPath); err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}

	logger, logCloser, err := logging.New(c.LogLevel, c.LogFile)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	repos, err := storage.Open(ctx, c.DataPath)
	if err != nil {
		logCloser.Close()
		return nil, fmt.Errorf("db init error: %w", err)
	}

	httpClient := &http.Client{Timeout: c.RequestTimeout}

	provider := auth.NewDeviceProvider(auth.Options{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Scopes:       c.Scopes,
		RevokeURL:    c.RevokeURL,
		HTTPClient:   httpClient,
	}, logger)

	table := remote.NewTable(remote.Options{
		SheetName:         c.SheetName,
		SheetsEndpoint:    c.SheetsEndpoint,
		DriveEndpoint:     c.DriveEndpoint,
		HTTPClient:        httpClient,
		RequestsPerSecond: c.RequestsPerSecond,
		MaxRetries:        c.MaxRetries,
	}, logger)

	session := services.NewSessionManager(repos.Metadata, provider, logger)
	ctl := services.NewController(session, table, repos.Records, c.DocumentName, logger)

	ui := cli.NewApp(ctl, logger)
	provider.SetPrompt(ui.DevicePrompt)

	return &App{config: c, logger: logger, logCloser: logCloser, repos: repos, ui: ui}, nil
}

// initSignalHandler cancels the application context on the first interrupt.
// A running sign-in or remote call fails, and the REPL exits instead of
// reading the next command. A second interrupt kills the process.
func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		signal.Stop(sigs)
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "data", app.config.DataPath, "document", app.config.DocumentName)
	app.initSignalHandler(cancelFunc)

	app.ui.Run(ctx)
	app.logger.Info(ctx, "app stopped")
}

// Close releases the database and the log file.
func (app *App) Close() error {
	return errors.Join(app.repos.Close(), app.logCloser.Close())
}
