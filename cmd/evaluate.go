package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/watchtower/internal/collect"
	"github.com/sells-group/watchtower/internal/engine"
	"github.com/sells-group/watchtower/internal/store"
)

var (
	evaluateReadings string
	evaluateSave     bool
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Run a single evaluation cycle from a readings file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		path := evaluateReadings
		if path == "" {
			path = cfg.Collect.File
		}
		if path == "" {
			return eris.New("evaluate: no readings file given (use --readings or collect.file)")
		}

		readings, err := collect.NewFileSource(path).Fetch(ctx)
		if err != nil {
			return err
		}

		eval, err := engine.New(cfg)
		if err != nil {
			return err
		}

		var st store.Store
		if evaluateSave {
			st, err = store.Open(ctx, cfg.Store)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
			if err := st.Migrate(ctx); err != nil {
				return err
			}
			seedPhaseFromStore(ctx, eval, st)
		}

		result, err := eval.EvaluateCycle(readings)
		if err != nil {
			return err
		}

		if evaluateSave {
			if err := st.SaveCycle(ctx, result); err != nil {
				return err
			}
			if result.PhaseChanged {
				if trs := eval.Transitions(); len(trs) > 0 {
					if err := st.SaveTransition(ctx, trs[len(trs)-1]); err != nil {
						return err
					}
				}
			}
		}

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return eris.Wrap(err, "evaluate: marshal result")
		}
		fmt.Println(string(out))
		return nil
	},
}

// seedPhaseFromStore restores the phase machine from the most recent
// persisted cycle so restarts do not reset the escalation state.
func seedPhaseFromStore(ctx context.Context, eval *engine.Evaluator, st store.Store) {
	last, err := st.LatestCycle(ctx)
	if err != nil {
		if !eris.Is(err, store.ErrNotFound) {
			zap.L().Warn("could not load last cycle, starting at phase 0", zap.Error(err))
		}
		return
	}
	eval.SeedPhase(last.Phase.Phase, last.Timestamp)
	zap.L().Info("seeded phase from store",
		zap.Float64("phase", last.Phase.Phase),
		zap.Time("as_of", last.Timestamp),
	)
}

func init() {
	evaluateCmd.Flags().StringVar(&evaluateReadings, "readings", "", "path to readings JSON (default from collect.file)")
	evaluateCmd.Flags().BoolVar(&evaluateSave, "save", false, "persist the cycle result to the store")
	rootCmd.AddCommand(evaluateCmd)
}
