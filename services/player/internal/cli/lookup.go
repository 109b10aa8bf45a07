package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/example/anime-relay/services/player/internal/domain"
)

func newServersCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "servers <episode-id>",
		Short: "List the servers offering an episode, per category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := a.api.ListServers(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("list servers: %w", err)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CATEGORY\tSERVER\tID")
			for _, cat := range domain.Categories {
				list := catalog.For(cat)
				if len(list) == 0 {
					fmt.Fprintf(tw, "%s\t-\t-\n", cat)
					continue
				}
				for _, s := range list {
					fmt.Fprintf(tw, "%s\t%s\t%d\n", cat, s.Name, s.ID)
				}
			}
			return tw.Flush()
		},
	}
}

func newSearchCommand(a *app) *cobra.Command {
	var page int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the catalog by title",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hits, err := a.api.Search(cmd.Context(), strings.Join(args, " "), page)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			if len(hits) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No results.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tTYPE\tSUB\tDUB")
			for _, h := range hits {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n", h.ID, h.Name, h.Type, h.Episodes.Sub, h.Episodes.Dub)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "Result page")
	return cmd
}
