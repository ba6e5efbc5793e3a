package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/miraland-labs/sugar/pkg/candymachine"
	"github.com/miraland-labs/sugar/pkg/candymachine/cache"
	"github.com/miraland-labs/sugar/pkg/candymachine/layout"
	"github.com/miraland-labs/sugar/pkg/candymachine/verify"
)

func newVerifyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Verify that the candy machine on chain matches the cache file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lggr, err := opts.logger()
			if err != nil {
				return err
			}

			c, err := cache.Load(opts.cachePath)
			if err != nil {
				return err
			}
			addr, err := c.CandyMachine()
			if err != nil {
				return err
			}
			lines, err := c.ConfigLines()
			if err != nil {
				return err
			}

			conn, _, err := opts.connect(lggr)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%sVerifying candy machine %s\n", candymachine.LookingGlassEmoji, addr)

			report, err := verify.NewVerifier(conn, layout.Default, lggr).Verify(cmd.Context(), addr, verify.Expectation{
				ItemsAvailable: uint64(len(lines)),
				Authority:      conn.Authority(),
				Lines:          lines,
			})
			if err != nil {
				return err
			}

			for _, m := range report.Mismatches {
				fmt.Fprintf(out, "%s%s\n", candymachine.ErrorEmoji, m)
			}
			if err = report.Err(); err != nil {
				return fmt.Errorf("candy machine %s does not match %s: %d mismatches", addr, c.Path(), len(report.Mismatches))
			}

			fmt.Fprintf(out, "%sVerification successful, %d config lines checked\n", candymachine.CompleteEmoji, report.LinesChecked)
			return nil
		},
	}
}
