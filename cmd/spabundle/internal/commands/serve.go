package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	httpmiddleware "github.com/wolfeidau/spabundle/internal/http"
	"github.com/wolfeidau/spabundle/internal/logger"
)

type ServeCmd struct {
	Dir    string `arg:"" optional:"" help:"directory to serve" default:"public" type:"existingdir"`
	Host   string `help:"hostname to bind" default:"localhost" env:"HOST"`
	Port   int    `help:"port to bind" default:"5000" env:"PORT"`
	Dev    bool   `help:"development mode, disables caching and logs requests" default:"false"`
	CORS   bool   `name:"cors" help:"allow cross-origin requests" default:"false"`
	Single bool   `help:"serve index.html for unknown routes" default:"false"`
}

func (c *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug || c.Dev)

	handler := httpmiddleware.NewStaticHandler(httpmiddleware.StaticOptions{
		Dir:    c.Dir,
		Dev:    c.Dev,
		CORS:   c.CORS,
		Single: c.Single,
		Logger: log,
	})

	addr := net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	srv := configureHTTPServer(addr, handler)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Failed to shutdown server")
		}
	}()

	log.Info().
		Str("addr", addr).
		Str("dir", c.Dir).
		Bool("dev", c.Dev).
		Bool("cors", c.CORS).
		Msg("Starting HTTP server")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve %s: %w", c.Dir, err)
	}

	return nil
}
