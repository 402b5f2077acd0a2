package main

import (
	"fmt"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/watchtower/internal/config"
)

var actionsCmd = &cobra.Command{
	Use:   "actions [phase]",
	Short: "Print the recommended actions for a phase",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var phase float64
		if len(args) == 1 {
			p, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return eris.Wrapf(err, "actions: invalid phase %q", args[0])
			}
			phase = p
		}

		band, ok := cfg.BandFor(phase)
		if !ok {
			return eris.Errorf("actions: no band configured for phase %s", config.PhaseKey(phase))
		}

		fmt.Printf("Phase %s — %s\n%s\n\n", config.PhaseKey(phase), band.Name, band.Headline)
		for _, a := range cfg.ActionsFor(phase) {
			fmt.Printf("  - %s\n", a)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(actionsCmd)
}
