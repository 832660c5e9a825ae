package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zhuj/datacollector/internal/parser"
)

func newFormatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List the parsing modes",
		Long: `List the values accepted by source.log_mode and --mode.

Modes with a fixed layout come with default field mappings; set
source.field_mappings to rename or drop fields.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "MODE\tDESCRIPTION")
			for _, m := range parser.Modes() {
				fmt.Fprintf(w, "%s\t%s\n", m, parser.DefaultRegistry.Describe(m))
			}
			return w.Flush()
		},
	}
}
