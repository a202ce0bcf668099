package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/eliote-geeks/reveilartist/internal/domain"
	"github.com/eliote-geeks/reveilartist/internal/session"
)

func newCartCommand(ctx *commandContext) *cobra.Command {
	cartCmd := &cobra.Command{
		Use:   "cart",
		Short: "Inspect and manage the cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCart(ctx, func(sess *session.Session) error {
				printCart(cmd, sess)
				return nil
			})
		},
	}

	cartCmd.AddCommand(&cobra.Command{
		Use:   "add <type> <id>",
		Short: "Add a sound or event to the cart",
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
			if err := sess.AddToCart(*content); err != nil {
				return userError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", content.Title, content.FormattedPrice())
			return nil
		},
	})

	cartCmd.AddCommand(&cobra.Command{
		Use:     "remove <type> <id>",
		Aliases: []string{"rm"},
		Short:   "Remove an item from the cart",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseKey(args)
			if err != nil {
				return err
			}
			return withCart(ctx, func(sess *session.Session) error {
				if !sess.Cart.Contains(key.ID, key.Type) {
					fmt.Fprintf(cmd.OutOrStdout(), "%s is not in the cart\n", key)
					return nil
				}
				if err := sess.Cart.Remove(key.ID, key.Type); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", key)
				return nil
			})
		},
	})

	cartCmd.AddCommand(&cobra.Command{
		Use:   "quantity <type> <id> <n>",
		Short: "Set the quantity of a cart item",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseKey(args)
			if err != nil {
				return err
			}
			n, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid quantity %q", args[2])
			}
			return withCart(ctx, func(sess *session.Session) error {
				if err := sess.Cart.SetQuantity(key, n); err != nil {
					return userError(err)
				}
				printCart(cmd, sess)
				return nil
			})
		},
	})

	cartCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCart(ctx, func(sess *session.Session) error {
				sess.Cart.Clear()
				fmt.Fprintln(cmd.OutOrStdout(), "Cart cleared.")
				return nil
			})
		},
	})

	return cartCmd
}

// withCart opens the persisted cart for the configured identity. No network
// is used.
func withCart(ctx *commandContext, fn func(*session.Session) error) error {
	sess, err := ctx.newSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := sess.Cart.Open(sess.Identity().Owner()); err != nil {
		return err
	}
	return fn(sess)
}

func printCart(cmd *cobra.Command, sess *session.Session) {
	out := cmd.OutOrStdout()
	items := sess.Cart.Items()
	if len(items) == 0 {
		fmt.Fprintln(out, "Your cart is empty.")
		return
	}

	currency := ""
	rows := make([][]string, 0, len(items)+1)
	for _, it := range items {
		if currency == "" {
			currency = it.Metadata["currency"]
		}
		rows = append(rows, []string{
			string(it.ContentType),
			it.ContentID,
			it.Title,
			strconv.Itoa(it.Quantity),
			domain.FormatPrice(it.UnitPrice, it.Metadata["currency"]),
			domain.FormatPrice(it.Subtotal(), it.Metadata["currency"]),
		})
	}
	rows = append(rows, []string{"", "", "Total", "", "", domain.FormatPrice(sess.Cart.Total(), currency)})

	fmt.Fprintln(out, renderTable(
		[]string{"Type", "ID", "Title", "Qty", "Price", "Subtotal"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
	))
}
