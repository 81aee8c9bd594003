package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/minhancr123/Task-Management-sub000/internal/config"
	"github.com/minhancr123/Task-Management-sub000/internal/remote"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the record store over HTTP",
	Long:  "Exposes the configured sqlite or redis record store over HTTP so other boards can use the http backend.",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Address to listen on (default: configured listen)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Backend == config.BackendHTTP {
		return fmt.Errorf("serve needs a local backend, not %s", cfg.Backend)
	}

	b, err := openBackend(cmd.Context(), cfg, log.StandardLogger())
	if err != nil {
		return err
	}
	defer b.Close()

	addr := cfg.Listen
	if serveListen != "" {
		addr = serveListen
	}

	logger := log.WithField("component", "server")
	e := remote.NewServer(b, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(log.Fields{"addr": addr, "backend": cfg.Backend}).Info("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-quit:
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
