package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/phrazzld/annotator-api/internal/dataset/formats"
	"github.com/spf13/cobra"
)

func newFormatsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "formats",
		Short: "List the registered dataset importers and exporters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list := formats.NewDefaultRegistry().Formats()

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(list)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "KIND\tNAME\tEXT\tVERSION")
			for _, f := range list.Exporters {
				_, _ = fmt.Fprintf(tw, "export\t%s\t%s\t%s\n", f.Name, f.Ext, f.Version)
			}
			for _, f := range list.Importers {
				_, _ = fmt.Fprintf(tw, "import\t%s\t%s\t%s\n", f.Name, f.Ext, f.Version)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}
