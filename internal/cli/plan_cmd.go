package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/a2mainz/simblaster/internal/sim"
	"github.com/a2mainz/simblaster/internal/sim/plan"
)

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show which files would be produced without running or submitting anything",
		Long: `Resolve the requested channels and print the file numbers a submission
would produce. No binaries are checked, no test job is run and nothing is
submitted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := GetLogger()

			s, err := prepare(log)
			if err != nil {
				return err
			}
			if len(s.channels) == 0 {
				return fmt.Errorf("%w: no channels specified", sim.ErrEmptyBatch)
			}

			result, err := s.planner(log).Build(s.channels)
			if err != nil {
				return err
			}
			warnAdvisories(log, plan.KindAdvisories(result.Plans, s.kind))
			printPlan(cmd.OutOrStdout(), s.cfg, result.Plans)
			return nil
		},
	}
	addRunFlags(cmd)
	return cmd
}
