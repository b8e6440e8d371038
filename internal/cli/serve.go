package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Keekuun/nexus-studio-sub001/internal/api"
	"github.com/Keekuun/nexus-studio-sub001/internal/metrics"
	"github.com/Keekuun/nexus-studio-sub001/internal/storage"
	"github.com/Keekuun/nexus-studio-sub001/internal/thread"
	"github.com/Keekuun/nexus-studio-sub001/internal/ws"
)

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the comment API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ln, err := net.Listen("tcp", a.cfg.HTTP.Addr())
			if err != nil {
				return fmt.Errorf("listen on %s: %w", a.cfg.HTTP.Addr(), err)
			}

			return a.serve(cmd.Context(), ln)
		},
	}
}

// serve runs the API on ln until ctx is canceled, then shuts down gracefully.
func (a *app) serve(ctx context.Context, ln net.Listener) error {
	log := a.logger

	store, err := storage.Open(a.cfg.Storage.Options())
	if err != nil {
		_ = ln.Close()

		return fmt.Errorf("open store: %w", err)
	}

	m := metrics.New()
	hub := ws.NewHub()
	writer := thread.NewWriter(store, a.cfg.Comments.QueueSize)

	service := thread.NewService(thread.ServiceConfig{
		Store:         store,
		Writer:        writer,
		Notifier:      hub,
		Metrics:       m,
		Logger:        log,
		StrictReads:   a.cfg.Comments.StrictReads,
		DegradeWrites: a.cfg.Comments.DegradeWrites,
	})

	server := api.NewServer(api.ServerConfig{
		Service:           service,
		Hub:               hub,
		Metrics:           m,
		Logger:            log,
		CORSOrigin:        a.cfg.HTTP.CORSOrigin,
		HeartbeatInterval: a.cfg.SSE.Interval,
	})

	httpServer := &http.Server{
		Handler:           server.Handler(),
		ReadHeaderTimeout: a.cfg.HTTP.ReadHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	log.Info("starting comment service",
		zap.String("env", a.cfg.Env),
		zap.String("addr", ln.Addr().String()),
		zap.String("storage", a.cfg.Storage.Driver))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		log.Info("shutdown requested")
		server.SetReady(false)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown incomplete", zap.Error(err))

			_ = httpServer.Close()
		}

		if err := server.CloseStreams(shutdownCtx); err != nil {
			log.Warn("live feed clients still running", zap.Error(err))
		}

		return nil
	})

	err = g.Wait()

	if cerr := writer.Close(); cerr != nil {
		log.Warn("comment writer close failed", zap.Error(cerr))
	}

	hub.Flush()

	if cerr := store.Close(); cerr != nil {
		log.Warn("comment store close failed", zap.Error(cerr))
	}

	log.Info("comment service stopped")

	return err
}
