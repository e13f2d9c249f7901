package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ELBIXishere/aidd/internal/eps"
	"github.com/ELBIXishere/aidd/internal/pipeline"
	"github.com/ELBIXishere/aidd/internal/server"
	"github.com/ELBIXishere/aidd/internal/wfs"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the design HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		fetcher := wfs.NewClient(cfg, wfs.WithLogger(logger))
		tracer := eps.New(cfg.EPSURL, cfg.HTTPTimeout)
		engine := pipeline.NewEngine(cfg, fetcher,
			pipeline.WithFeederTracer(tracer),
			pipeline.WithLogger(logger),
		)

		srv := server.New(cfg, engine, fetcher)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().String("listen", "", "Listen address (default :8080)")
	if err := viper.BindPFlag("listen_addr", serveCmd.Flags().Lookup("listen")); err != nil {
		panic(err)
	}
	rootCmd.AddCommand(serveCmd)
}
