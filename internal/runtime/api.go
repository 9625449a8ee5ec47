package runtime

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
)

// ServiceCtx runs the api role: REST endpoints, webhooks and admin queries behind one HTTP server.
type ServiceCtx struct {
	deps *Dependencies

	shutdownChannel chan os.Signal

	serverCtx      context.Context
	serverStopFunc context.CancelFunc

	serverReady chan struct{}
}

func New(opt ...ServiceOption) *ServiceCtx {
	sCtx := &ServiceCtx{
		shutdownChannel: make(chan os.Signal, 1),
	}

	for i := range opt {
		opt[i](sCtx)
	}

	return sCtx
}

func (c *ServiceCtx) Run() {
	c.build()
	c.startService()
	watchConfig(c.serverCtx, c.deps.configLoader, c.deps.logger)
	notifyShutdown(c.shutdownChannel)
	c.shutdown()
}

func (c *ServiceCtx) build() {
	c.serverCtx, c.serverStopFunc = context.WithCancel(context.Background())

	deps, err := initializeDependencies(c.serverCtx, WithHTTPServer())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	c.deps = deps
}

// startService binds the listener before reporting ready, so WaitForServer returns
// only once requests can be accepted.
func (c *ServiceCtx) startService() {
	server := c.deps.Infra.HTTPServer
	app := c.deps.cfg.AppConfig

	listener, err := net.Listen("tcp", server.Addr)
	if err != nil {
		c.deps.logger.Error().Err(err).Str("address", server.Addr).Msg("unable to bind http listener")
		c.serverStopFunc()
		c.signalReady()

		return
	}

	c.deps.logger.Info().
		Str("address", listener.Addr().String()).
		Str("version", app.ServiceVersion).
		Str("commit", app.CommitSHA).
		Str("api_version", app.APIVersion).
		Msg("visa processing api listening")

	c.signalReady()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.deps.logger.Error().Err(err).Msg("http server stopped unexpectedly")
			c.serverStopFunc()
		}
	}()
}

func (c *ServiceCtx) signalReady() {
	if c.serverReady != nil {
		c.serverReady <- struct{}{}
	}
}

func (c *ServiceCtx) shutdown() {
	select {
	case <-c.serverCtx.Done():
	case <-c.shutdownChannel:
		defer close(c.shutdownChannel)
	}

	c.deps.logger.Info().Msg("api shutting down")

	c.serverStopFunc()

	// serverCtx is already cancelled, the grace period needs its own context.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), c.deps.cfg.HTTPServer.ShutdownTimeout)
	defer cancel()

	go func() {
		<-shutdownCtx.Done()

		if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
			c.deps.logger.Error().
				Dur("timeout", c.deps.cfg.HTTPServer.ShutdownTimeout).
				Msg("in-flight requests did not finish in time, forcing exit")
			os.Exit(1)
		}
	}()

	if err := c.deps.Infra.HTTPServer.Shutdown(shutdownCtx); err != nil {
		c.deps.logger.Error().Err(err).Msg("unable to drain http server")
	}

	c.deps.release(shutdownCtx)

	c.deps.logger.Info().Msg("api stopped")
}

// WaitForServer blocks until the listener is bound, or binding failed. Without
// WithWaitingForServer it returns immediately.
//
//	srv := runtime.New(runtime.WithWaitingForServer())
//	go srv.Run()
//	srv.WaitForServer()
func (c *ServiceCtx) WaitForServer() {
	if c.serverReady != nil {
		<-c.serverReady
		close(c.serverReady)
	}
}
