package main

import (
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/airwaves-fm/stationsearch/internal/domain"
	"github.com/airwaves-fm/stationsearch/internal/service"
	"github.com/airwaves-fm/stationsearch/internal/urlstate"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var (
		state     string
		types     []string
		genres    []string
		locations []string
		hosts     []string
		takeovers []string
		page      int
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search station content",
		Example: `  stationsearch search "jazz night"
  stationsearch search --genre jazz --type episodes
  stationsearch search --state "q=peterson&genre=jazz"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := url.ParseQuery(strings.TrimPrefix(state, "?"))
			if err != nil {
				return fmt.Errorf("invalid --state: %w", err)
			}
			if len(args) > 0 {
				values.Set(urlstate.KeySearch, strings.Join(args, " "))
			}
			addAll(values, urlstate.KeyType, types)
			addAll(values, urlstate.KeyGenre, genres)
			addAll(values, urlstate.KeyLocation, locations)
			addAll(values, urlstate.KeyHost, hosts)
			addAll(values, urlstate.KeyTakeover, takeovers)
			filters := urlstate.Parse(values)

			engine, err := ctx.searchEngine(cmd.Context())
			if err != nil {
				return err
			}
			resp := engine.Service.Search(cmd.Context(), filters, service.Options{Page: page, Limit: limit})
			if ctx.json() {
				return writeJSON(cmd, resp)
			}
			printResponse(cmd.OutOrStdout(), resp)
			return nil
		},
	}

	cmd.Flags().StringVar(&state, "state", "", "Filters as a shareable query string")
	cmd.Flags().StringSliceVarP(&types, "type", "t", nil, "Content types (episodes, posts, videos, events, takeovers, hosts-series)")
	cmd.Flags().StringSliceVarP(&genres, "genre", "g", nil, "Genre slugs")
	cmd.Flags().StringSliceVarP(&locations, "location", "l", nil, "Location slugs")
	cmd.Flags().StringSliceVar(&hosts, "host", nil, "Host slugs")
	cmd.Flags().StringSliceVar(&takeovers, "takeover", nil, "Takeover slugs")
	cmd.Flags().IntVarP(&page, "page", "p", 1, "Page number")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Page size (0 uses the configured default)")

	return cmd
}

func newFiltersCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "filters",
		Short: "List every filter value with its item count",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := ctx.searchEngine(cmd.Context())
			if err != nil {
				return err
			}
			facets := engine.Service.GetAvailableFilters(cmd.Context())
			if ctx.json() {
				return writeJSON(cmd, facets)
			}

			var rows [][]string
			for _, category := range []string{domain.FacetContentType, domain.FacetGenre, domain.FacetLocation, domain.FacetHost, domain.FacetTakeover} {
				for _, f := range facets.Category(category) {
					rows = append(rows, []string{category, f.Slug, f.Title, strconv.Itoa(f.CountValue())})
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Facet", "Slug", "Title", "Count"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
}

func newSuggestCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "suggest <prefix>",
		Short: "Suggest titles for a partial query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := ctx.searchEngine(cmd.Context())
			if err != nil {
				return err
			}
			suggestions := engine.Service.Suggest(cmd.Context(), strings.Join(args, " "), limit)
			if ctx.json() {
				return writeJSON(cmd, suggestions)
			}
			out := cmd.OutOrStdout()
			if len(suggestions) == 0 {
				fmt.Fprintln(out, "No suggestions")
				return nil
			}
			for _, s := range suggestions {
				fmt.Fprintf(out, "%s (%s/%s)\n", s.Title, s.ContentType, s.Slug)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum suggestions")
	return cmd
}

func addAll(values url.Values, key string, in []string) {
	for _, v := range in {
		values.Add(key, v)
	}
}

func printResponse(out io.Writer, resp *service.Response) {
	if resp.Error != "" {
		fmt.Fprintf(out, "Warning: %s\n", resp.Error)
	}
	if len(resp.Partial) > 0 {
		fmt.Fprintf(out, "Warning: some content failed to load: %v\n", resp.Partial)
	}
	if len(resp.Items) == 0 {
		fmt.Fprintln(out, "No results")
		return
	}

	rows := make([][]string, 0, len(resp.Items))
	for i, item := range resp.Items {
		rows = append(rows, []string{
			strconv.Itoa((resp.Page-1)*resp.Limit + i + 1),
			item.Title,
			string(item.ContentType),
			item.Date,
			joinTitles(item.Genres),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"#", "Title", "Type", "Date", "Genres"},
		rows,
		[]columnAlignment{alignRight},
	))

	more := ""
	if resp.HasMore {
		more = fmt.Sprintf(", next: --page %d", resp.Page+1)
	}
	fmt.Fprintf(out, "Showing %d of %d (page %d%s)\n", len(resp.Items), resp.Total, resp.Page, more)
	if resp.Query != "" {
		fmt.Fprintf(out, "State: %s\n", resp.Query)
	}
}

func joinTitles(items []domain.FilterItem) string {
	titles := make([]string, 0, len(items))
	for _, it := range items {
		titles = append(titles, it.Title)
	}
	return strings.Join(titles, ", ")
}
