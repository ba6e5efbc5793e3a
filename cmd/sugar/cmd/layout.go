package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/miraland-labs/sugar/pkg/candymachine"
	"github.com/miraland-labs/sugar/pkg/candymachine/layout"
)

func newLayoutCmd() *cobra.Command {
	var (
		schema = layout.DefaultSchema()
		items  int
		hidden bool
	)

	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Print the candy machine account layout and the space needed for a collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			l, err := layout.Compute(schema)
			if err != nil {
				return err
			}
			if items < 0 {
				return fmt.Errorf("--items must not be negative, got %d", items)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%sCandy machine account layout\n\n", candymachine.LookingGlassEmoji)

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FIELD\tOFFSET")
			for _, f := range layout.Fields() {
				offset, _ := l.Offset(f.Name)
				fmt.Fprintf(w, "%s\t%d\n", f.Name, offset)
			}
			fmt.Fprintf(w, "config_lines\t%d\n", l.ConfigArrayStart)
			if err = w.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(out, "\nconfig line size:  %d (name at +%d, uri at +%d)\n", l.ConfigLineSize, l.ConfigNameOffset, l.ConfigURIOffset)
			fmt.Fprintf(out, "max items:         %d\n", l.MaxItems())
			if items > 0 || hidden {
				size := l.AccountSize(items, hidden)
				if size > layout.MaxAccountSize {
					return fmt.Errorf("%d items need %d bytes, more than the %d byte account limit", items, size, layout.MaxAccountSize)
				}
				fmt.Fprintf(out, "account size:      %d bytes for %d items\n", size, items)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&items, "items", 0, "number of items to size the account for")
	f.BoolVar(&hidden, "hidden-settings", false, "size the account for a machine using hidden settings")
	f.IntVar(&schema.MaxNameLength, "max-name-length", schema.MaxNameLength, "maximum config line name length")
	f.IntVar(&schema.MaxSymbolLength, "max-symbol-length", schema.MaxSymbolLength, "maximum symbol length")
	f.IntVar(&schema.MaxURILength, "max-uri-length", schema.MaxURILength, "maximum config line uri length")
	f.IntVar(&schema.MaxCreatorLimit, "max-creator-limit", schema.MaxCreatorLimit, "maximum number of creators")

	return cmd
}
