package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func (c *CLI) newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the available tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			tasks, err := c.app.Tasks(dir)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, t := range tasks {
				line := t.Name + "\t" + t.Description
				if len(t.Dependencies) > 0 {
					line += "\t(" + strings.Join(t.Dependencies, ", ") + ")"
				}
				_, _ = fmt.Fprintln(tw, line)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringP("dir", "C", "", "Directory to search for the project configuration")

	return cmd
}
