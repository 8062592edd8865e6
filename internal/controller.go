package internal

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/splashsrv/splashsrv/internal/core"
	"github.com/splashsrv/splashsrv/internal/core/data"
	"github.com/splashsrv/splashsrv/internal/core/debug"
	"github.com/splashsrv/splashsrv/internal/game"
	"github.com/splashsrv/splashsrv/internal/login"
)

// Controller is the main entrypoint for splashsrv. It's responsible for
// initializing any shared resources (such as database and logging), defining
// the servers, and launching everything.
type Controller struct {
	Config *core.Config

	logger *logrus.Logger
	wg     sync.WaitGroup
	db     *gorm.DB

	servers []*frontend
}

func (c *Controller) Start(ctx context.Context) error {
	defer c.Shutdown()

	var err error
	// Set up the logger, which will be used by all sub-servers.
	c.logger, err = core.NewLogger(c.Config)
	if err != nil {
		return fmt.Errorf("error initializing logger: %w", err)
	}

	// Start any debug utilities if we're configured to do so.
	if c.Config.Debugging.PprofEnabled {
		debug.StartPprofServer(c.logger, c.Config.Debugging.PprofPort)
	}

	c.db, err = data.Initialize(c.Config.Database.Path, c.Config.Debugging.DatabaseLoggingEnabled)
	if err != nil {
		return fmt.Errorf("error initializing database: %w", err)
	}

	// Configure and run all of our servers.
	c.declareServers()
	return c.run(ctx)
}

// Set up all of the servers we want to run.
func (c *Controller) declareServers() {
	gameServer := &game.Server{
		Name:   "GAME",
		Config: c.Config,
		Logger: c.logger,
		DB:     c.db,
	}
	loginServer := &login.Server{
		Name:      "LOGIN",
		Config:    c.Config,
		Logger:    c.logger,
		DB:        c.db,
		Occupancy: gameServer,
	}

	c.servers = []*frontend{
		{
			Address: c.buildAddress(c.Config.LoginServer.Port),
			Backend: loginServer,
		},
		{
			Address: c.buildAddress(c.Config.GameServer.Port),
			Backend: gameServer,
		},
	}
}

func (c *Controller) run(ctx context.Context) error {
	// Start all of our servers. Failure to initialize one of the registered
	// servers is considered terminal and shuts the rest down.
	eg, egCtx := errgroup.WithContext(ctx)
	for _, server := range c.servers {
		server := server
		server.Config = c.Config
		server.Logger = c.logger

		eg.Go(func() error {
			return server.Start(egCtx, &c.wg)
		})
	}

	if err := eg.Wait(); err != nil {
		return err
	}

	c.wg.Wait()
	return nil
}

func (c *Controller) buildAddress(port int) string {
	return fmt.Sprintf("%s:%v", c.Config.Hostname, port)
}

func (c *Controller) Shutdown() {
	c.wg.Wait()

	if c.db != nil {
		if err := data.Shutdown(c.db); err != nil {
			c.logger.Warnf("error closing database: %v", err)
		}
	}
}
