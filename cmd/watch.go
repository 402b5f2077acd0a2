package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/watchtower/internal/alerting"
	"github.com/sells-group/watchtower/internal/collect"
	"github.com/sells-group/watchtower/internal/engine"
	"github.com/sells-group/watchtower/internal/store"
)

var watchInterval int

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll sources on an interval and evaluate continuously",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

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

		interval := time.Duration(watchInterval) * time.Second
		if watchInterval <= 0 {
			interval = time.Duration(cfg.Watch.IntervalSecs) * time.Second
		}

		zap.L().Info("watch: starting",
			zap.Duration("interval", interval),
			zap.Int("sources", len(sources)),
		)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		// Evaluate once immediately rather than waiting a full interval.
		runWatchCycle(ctx, eval, st, sources, alerter)

		for {
			select {
			case <-ctx.Done():
				zap.L().Info("watch: stopping")
				return nil
			case <-ticker.C:
				runWatchCycle(ctx, eval, st, sources, alerter)
			}
		}
	},
}

// runWatchCycle performs one gather-evaluate-persist-alert pass. Errors
// are logged, never fatal: the loop must survive flaky sources and hold
// the phase on failed cycles.
func runWatchCycle(ctx context.Context, eval *engine.Evaluator, st store.Store, sources []collect.Source, alerter *alerting.Alerter) {
	readings := collect.Gather(ctx, sources)

	result, err := eval.EvaluateCycle(readings)
	if err != nil {
		zap.L().Error("watch: cycle failed", zap.Error(err))
		return
	}

	if err := st.SaveCycle(ctx, result); err != nil {
		zap.L().Error("watch: save cycle failed", zap.Error(err))
	}
	if result.PhaseChanged {
		if trs := eval.Transitions(); len(trs) > 0 {
			if err := st.SaveTransition(ctx, trs[len(trs)-1]); err != nil {
				zap.L().Error("watch: save transition failed", zap.Error(err))
			}
		}
	}

	alerter.SendAlerts(ctx, alerter.Evaluate(result))
}

func init() {
	watchCmd.Flags().IntVar(&watchInterval, "interval", 0, "poll interval in seconds (default from config)")
	rootCmd.AddCommand(watchCmd)
}
