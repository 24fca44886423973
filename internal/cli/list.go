package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/a2mainz/simblaster/internal/sim/decay"
	"github.com/a2mainz/simblaster/internal/sim/filescan"
	"github.com/a2mainz/simblaster/internal/validation"
)

func newListCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the number of existing files per channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := GetLogger()

			cfg, _, err := loadSettings(log)
			if err != nil {
				return err
			}
			if output != "" {
				cfg.OutputPath = output
			}
			if err := cfg.ResolvePaths(); err != nil {
				return err
			}
			for _, dir := range []string{cfg.MCGenData, cfg.GeantData} {
				if _, err := validation.CheckDirectory(dir, false, false); err != nil {
					return err
				}
			}

			generated, err := filescan.ScanChannels(cfg.MCGenData, filescan.GeneratedPrefix)
			if err != nil {
				return err
			}
			simulated, err := filescan.ScanChannels(cfg.GeantData, filescan.SimulatedPrefix)
			if err != nil {
				return err
			}
			printFileCounts(cmd.OutOrStdout(), generated, simulated)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output directory (overrides output_path)")
	return cmd
}

// printFileCounts prints the cocktail and particle gun totals followed by the
// highest file number of every reaction channel.
func printFileCounts(w io.Writer, generated, simulated filescan.ScanResult) {
	if generated.CocktailFiles > 0 {
		fmt.Fprintf(w, "Cocktail: %d files\n", generated.CocktailFiles)
	}
	if generated.GunFiles > 0 {
		fmt.Fprintf(w, "Particle gun: %d files\n", generated.GunFiles)
	}
	if len(generated.Channels) == 0 {
		return
	}

	simMax := make(map[string]int, len(simulated.Channels))
	for _, c := range simulated.Channels {
		simMax[c.Channel] = c.MaxSequence
	}

	fmt.Fprintln(w, "Amount of simulated files per channel:")
	for _, c := range generated.Channels {
		maximum := max(c.MaxSequence, simMax[c.Channel])
		if maximum == 0 {
			continue
		}
		fmt.Fprintf(w, " %-20s -- %4d files\n", decay.Pretty(c.Channel, true), maximum)
	}
}
