package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/eliote-geeks/reveilartist/internal/domain"
	"github.com/eliote-geeks/reveilartist/internal/search"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var typeFlag string
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search sounds and events by title or artist",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := ctx.newSession()
			if err != nil {
				return err
			}
			defer sess.Close()

			types := []domain.ContentType{domain.ContentTypeSound, domain.ContentTypeEvent}
			if typeFlag != "" {
				t, err := domain.ParseContentType(typeFlag)
				if err != nil {
					return err
				}
				types = []domain.ContentType{t}
			}

			var items []*domain.Content
			for _, t := range types {
				if _, err := sess.Catalog.Sync(contextOrBackground(cmd.Context()), t, nil); err != nil {
					return userError(err)
				}
				cached, _ := sess.Catalog.Cached(t)
				items = append(items, cached...)
			}

			query := strings.Join(args, " ")
			results := search.NewIndex(items).Filter(query)
			out := cmd.OutOrStdout()

			if len(results) == 0 {
				titles := make([]string, 0, len(items))
				for _, c := range items {
					titles = append(titles, c.Title)
				}
				fmt.Fprintf(out, "No matches for %q.\n", query)
				if s := search.Suggest(query, titles, 3); len(s) > 0 {
					fmt.Fprintf(out, "Did you mean: %s?\n", strings.Join(s, ", "))
				}
				return nil
			}

			if limit > 0 && len(results) > limit {
				results = results[:limit]
			}

			rows := make([][]string, 0, len(results))
			for _, r := range results {
				c := r.Content
				rows = append(rows, []string{
					string(c.Type),
					c.ID,
					c.Title,
					c.Artist,
					c.FormattedPrice(),
					humanize.Comma(int64(c.LikeCount)),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Type", "ID", "Title", "Artist", "Price", "Likes"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().StringVarP(&typeFlag, "type", "t", "", "Only search one type (sound or event)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum results to show")
	return cmd
}
