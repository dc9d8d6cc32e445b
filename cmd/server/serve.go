package main

import (
	"context"
	"net/http"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/jrsteele09/go-par-server/clients"
	fakeclientrepo "github.com/jrsteele09/go-par-server/clients/fakerepo"
	"github.com/jrsteele09/go-par-server/internal/config"
	"github.com/jrsteele09/go-par-server/par"
	"github.com/jrsteele09/go-par-server/server"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the PAR server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	file, err := loadConfigFile(cmd)
	if err != nil {
		return err
	}
	c := config.New(file)
	configureLogging(c.GetEnv())
	displayAppname(c.GetAppName())

	if file != nil {
		if err := file.Watch(ctx); err != nil {
			log.Warn().Err(err).Str("path", file.Path()).Msg("config file will not be reloaded")
		}
	}

	store, err := openStore(ctx, c)
	if err != nil {
		return err
	}
	defer store.Close()

	clientRepo := fakeclientrepo.NewFakeClientRepo()
	if file != nil {
		syncClients(clientRepo, file.Clients())
		file.OnReload(func(settings config.FileSettings) {
			syncClients(clientRepo, settings.Clients)
		})
	} else {
		log.Warn().Msg("no config file, no clients are registered")
	}

	service, err := par.NewService(store.Repo, c)
	if err != nil {
		return err
	}

	handler, err := server.New(c, service, clientRepo, server.WithHealthCheck(store.Ping))
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", httpServer.Addr).Str("store", c.GetStoreDriver()).Msg("server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- errors.Wrap(err, "server.ListenAndServe")
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "server.Shutdown")
	}
	log.Info().Msg("server stopped")
	return nil
}

func loadConfigFile(cmd *cobra.Command) (*config.FileConfig, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.EnvVars{}.GetConfigFile()
	}
	if path == "" {
		return nil, nil
	}
	return config.LoadFile(path)
}

// syncClients makes the repo hold exactly the given clients
func syncClients(repo clients.Repo, configured []clients.Client) {
	keep := make(map[string]struct{}, len(configured))
	for i := range configured {
		client := configured[i]
		if client.ID == "" {
			log.Warn().Msg("skipping client without an id")
			continue
		}
		if client.Type == "" {
			client.Type = clients.ClientTypeConfidential
		}
		if err := repo.Upsert(&client); err != nil {
			log.Err(err).Str("client_id", client.ID).Msg("failed to register client")
			continue
		}
		keep[client.ID] = struct{}{}
	}

	existing, err := repo.List(0, 0)
	if err != nil {
		log.Err(err).Msg("failed to list clients")
		return
	}
	for _, client := range existing {
		if _, ok := keep[client.ID]; !ok {
			_ = repo.Delete(client.ID)
		}
	}
	log.Info().Int("clients", len(keep)).Msg("clients registered")
}
