package commands

import (
	"github.com/flaskblog/assetflow/internal/app"
	"github.com/spf13/cobra"
)

func (c *CLI) newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [tasks...]",
		Short: "Run tasks and their prerequisites",
		Long:  "Run tasks and their prerequisites. Without arguments the default task runs.",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{app.DefaultTask}
			}
			dir, _ := cmd.Flags().GetString("dir")
			parallelism, _ := cmd.Flags().GetInt("parallelism")
			outputMode, _ := cmd.Flags().GetString("output")
			ci, _ := cmd.Flags().GetBool("ci")

			// If --ci is set, override output to "linear"
			if ci {
				outputMode = app.OutputLinear
			}

			return c.app.Run(cmd.Context(), args, app.RunOptions{
				Dir:         dir,
				Parallelism: parallelism,
				Output:      outputMode,
			})
		},
	}

	cmd.Flags().StringP("dir", "C", "", "Directory to search for the project configuration")
	cmd.Flags().IntP("parallelism", "j", 0, "Maximum number of tasks running at once (0 means one per CPU)")
	cmd.Flags().StringP("output", "o", app.OutputAuto, "Progress output: auto, tui or linear")
	cmd.Flags().Bool("ci", false, "Use linear output regardless of the terminal")

	return cmd
}
