package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/watchtower/internal/alerting"
	"github.com/sells-group/watchtower/internal/collect"
	"github.com/sells-group/watchtower/internal/engine"
	"github.com/sells-group/watchtower/internal/server"
	"github.com/sells-group/watchtower/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the watch loop with the HTTP status API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort > 0 {
			cfg.Server.Port = servePort
		}

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		eval, err := engine.New(cfg)
		if err != nil {
			return err
		}
		seedPhaseFromStore(ctx, eval, st)

		sources := collect.FromConfig(cfg.Collect)
		alerter := alerting.New(cfg.Alert)
		srv := server.New(*cfg, eval)

		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			return srv.ListenAndServe(gctx)
		})

		g.Go(func() error {
			interval := time.Duration(cfg.Watch.IntervalSecs) * time.Second
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			runWatchCycle(gctx, eval, st, sources, alerter)
			for {
				select {
				case <-gctx.Done():
					zap.L().Info("serve: watch loop stopping")
					return nil
				case <-ticker.C:
					runWatchCycle(gctx, eval, st, sources, alerter)
				}
			}
		})

		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
