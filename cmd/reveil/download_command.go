package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "download <type> <id>",
		Short: "Download a purchased or free sound or event",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseKey(args)
			if err != nil {
				return err
			}
			sess, err := ctx.newSession()
			if err != nil {
				return err
			}
			defer sess.Close()

			c := contextOrBackground(cmd.Context())
			if err := sess.Start(c, nil); err != nil {
				return userError(err)
			}
			content, err := sess.Catalog.Lookup(c, key)
			if err != nil {
				return userError(err)
			}

			var bar *progressbar.ProgressBar
			var received int64
			progress := func(loaded, total int64) {
				received = loaded
				if !stdoutIsTerminal() {
					return
				}
				if bar == nil {
					bar = progressbar.DefaultBytes(total, content.Title)
				}
				_ = bar.Set64(loaded)
			}

			path, err := sess.Downloads.Download(c, *content, progress)
			if bar != nil {
				_ = bar.Finish()
				fmt.Fprintln(cmd.OutOrStdout())
			}
			if err != nil {
				return userError(err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s) to %s\n", content.Title, humanize.Bytes(uint64(received)), path)
			return nil
		},
	}
}
