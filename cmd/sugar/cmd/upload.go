package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/miraland-labs/sugar/pkg/candymachine"
	"github.com/miraland-labs/sugar/pkg/candymachine/cache"
	"github.com/miraland-labs/sugar/pkg/candymachine/layout"
	"github.com/miraland-labs/sugar/pkg/candymachine/upload"
)

func newUploadCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "upload",
		Short: "Write the cached items into the candy machine as config lines",
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

			conn, cfg, err := opts.connect(lggr)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%sWriting %d config lines to %s (%d pending)\n", candymachine.PaperEmoji, len(lines), addr, c.Pending())

			res, uploadErr := upload.NewUploader(conn, layout.Default, cfg, lggr).Upload(cmd.Context(), addr, lines, c.OnChain)

			// keep whatever made it on chain, even when some chunks failed
			c.MarkOnChain(res.Written)
			if err = c.Save(); err != nil {
				return errors.Join(uploadErr, err)
			}
			if uploadErr != nil {
				return fmt.Errorf("%d config lines were not written, run the command again to retry: %w", c.Pending(), uploadErr)
			}

			fmt.Fprintf(out, "%s%d config lines written, %d already on chain\n", candymachine.CompleteEmoji, len(res.Written), res.Skipped)
			return nil
		},
	}
}
