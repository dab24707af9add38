package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/mediagc/internal/logger"
	"github.com/marmos91/mediagc/pkg/config"
	"github.com/marmos91/mediagc/pkg/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the admin API, the metrics endpoint and periodic sweeps",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rt, err := buildRuntime(ctx, false)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Error("Close error: %v", err)
		}
	}()

	cfg := rt.Config
	logger.Info("mediagc starting: catalog=%s files=%s leases=%s",
		cfg.Catalog.Path, cfg.Files.Type, cfg.Leases.Type)

	srv, err := newServer(rt)
	if err != nil {
		return err
	}

	if err := srv.Serve(ctx); err != nil {
		return err
	}

	logger.Info("mediagc stopped")
	return nil
}

// newServer registers every enabled long-running component of rt.
func newServer(rt *config.Runtime) (*server.Server, error) {
	srv := server.New(rt.Config.Server.ShutdownTimeout)

	var services []server.Service

	if rt.Metrics.Server != nil {
		services = append(services, server.NewService("metrics", rt.Metrics.Server.Start, rt.Metrics.Server.Stop))
	}
	if rt.API != nil {
		services = append(services, server.NewService("api", rt.API.Start, rt.API.Stop))
	}

	// The collector goes last so it is stopped first.
	collector := rt.Collector
	services = append(services, server.NewService("collector",
		func(ctx context.Context) error {
			collector.Start()
			<-ctx.Done()
			return nil
		},
		collector.Stop,
	))

	for _, svc := range services {
		if err := srv.AddService(svc); err != nil {
			return nil, err
		}
	}
	return srv, nil
}
