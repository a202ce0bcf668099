package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eliote-geeks/reveilartist/internal/domain"
)

func newPurchasesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "purchases",
		Short: "List everything you own",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := ctx.newSession()
			if err != nil {
				return err
			}
			defer sess.Close()

			id := sess.Identity()
			if !id.SignedIn() {
				return userError(domain.ErrUnauthenticated)
			}

			c := contextOrBackground(cmd.Context())
			if err := sess.Start(c, nil); err != nil {
				return userError(err)
			}

			keys := sess.Purchases.Keys()
			out := cmd.OutOrStdout()
			if len(keys) == 0 {
				fmt.Fprintln(out, "No purchases yet.")
				return nil
			}

			rows := make([][]string, 0, len(keys))
			for _, k := range keys {
				title := "(no longer listed)"
				if content, ok := sess.Catalog.Find(k); ok {
					title = content.Title
				}
				rows = append(rows, []string{string(k.Type), k.ID, title})
			}
			fmt.Fprintln(out, renderTable([]string{"Type", "ID", "Title"}, rows, nil))
			return nil
		},
	}
}
