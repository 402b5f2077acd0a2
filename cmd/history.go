package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/watchtower/internal/history"
	"github.com/sells-group/watchtower/internal/store"
)

var (
	historyLimit int
	historyHours int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Summarize stored cycles and phase transitions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		since := time.Now().UTC().Add(-time.Duration(historyHours) * time.Hour)
		summary, err := history.Summarize(ctx, st, historyLimit, since)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return eris.Wrap(err, "history: marshal summary")
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 100, "max cycles to summarize")
	historyCmd.Flags().IntVar(&historyHours, "hours", 24*30, "transition lookback in hours")
	rootCmd.AddCommand(historyCmd)
}
