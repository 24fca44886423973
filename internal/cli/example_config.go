package cli

import (
	"github.com/spf13/cobra"

	"github.com/a2mainz/simblaster/internal/config"
)

func newExampleConfigCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "example-config [file]",
		Short: "Export the default settings with example channels",
		Long: `Write the default settings and a few example channels to file,
"example_settings" if no file is given. Copy it to ./sim_settings or
~/.sim_settings and adjust it to your needs.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "example_settings"
			if len(args) == 1 {
				path = args[0]
			}
			GetLogger().Info().Str("file", path).Msg("Writing example settings")
			return config.ExportExample(path, force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	return cmd
}
