package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/directorstracker/tracker-server/internal/chart"
	"github.com/directorstracker/tracker-server/internal/dataset"
	"github.com/directorstracker/tracker-server/internal/domain"
	"github.com/directorstracker/tracker-server/internal/errors"
)

// sourceFlags locate the dataset for every subcommand.
type sourceFlags struct {
	path   string
	schema string
	table  string
}

func (f *sourceFlags) load(ctx context.Context) (*domain.Dataset, error) {
	schema, err := dataset.LoadSchema(f.schema)
	if err != nil {
		return nil, err
	}
	if f.table != "" {
		schema.Table = f.table
	}

	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	return dataset.Load(ctx, f.path, schema)
}

func newRootCmd() *cobra.Command {
	src := &sourceFlags{}

	cmd := &cobra.Command{
		Use:          "datacheck",
		Short:        "Inspect the Directors Production Tracker dataset",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&src.path, "data", "d", "data/clean/movies_clean_df.csv", "Dataset path (.csv or SQLite)")
	cmd.PersistentFlags().StringVar(&src.schema, "schema", "", "YAML column schema (optional)")
	cmd.PersistentFlags().StringVar(&src.table, "table", "", "SQLite table (default: movies)")

	cmd.AddCommand(validateCmd(src), facetsCmd(src), chartCmd(src))
	return cmd
}

func validateCmd(src *sourceFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load the dataset and report its shape",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ds, err := src.load(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "source:    %s\n", ds.Source)
			fmt.Fprintf(out, "movies:    %d\n", ds.Len())
			fmt.Fprintf(out, "genres:    %d\n", len(dataset.Genres(ds)))
			fmt.Fprintf(out, "directors: %d\n", len(dataset.Directors(ds)))
			fmt.Fprintf(out, "titles:    %t\n", ds.HasTitle)
			fmt.Fprintf(out, "years:     %t\n", ds.HasYear)
			fmt.Fprintln(out, "OK")
			return nil
		},
	}
}

func facetsCmd(src *sourceFlags) *cobra.Command {
	var column string
	var genre string

	c := &cobra.Command{
		Use:   "facets",
		Short: "List distinct genres or directors with movie counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ds, err := src.load(cmd.Context())
			if err != nil {
				return err
			}
			if genre != "" {
				ds = &domain.Dataset{Source: ds.Source, Records: ds.InGenre(genre)}
			}

			counts, err := dataset.Counts(ds, domain.Column(column))
			if err != nil {
				return err
			}
			return printCounts(cmd.OutOrStdout(), column, counts)
		},
	}

	c.Flags().StringVarP(&column, "column", "c", string(domain.ColumnGenre), "Column to list: genre or director")
	c.Flags().StringVarP(&genre, "genre", "g", "", "Only count movies of this genre")
	return c
}

func printCounts(w io.Writer, column string, counts []dataset.FacetCount) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\tMOVIES\n", strings.ToUpper(column))
	for _, c := range counts {
		fmt.Fprintf(tw, "%s\t%d\n", c.Value, c.Movies)
	}
	return tw.Flush()
}

func chartCmd(src *sourceFlags) *cobra.Command {
	var genre string
	var directors []string

	c := &cobra.Command{
		Use:   "chart",
		Short: "Print the chart for a selection as Markdown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ds, err := src.load(cmd.Context())
			if err != nil {
				return err
			}

			doc, err := chart.Build(ds, genre, directors)
			if err != nil {
				return err
			}
			md, err := chart.Markdown(cmd.Context(), doc)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), md)
			return err
		},
	}

	c.Flags().StringVarP(&genre, "genre", "g", domain.DefaultGenre, "Genre to chart")
	c.Flags().StringSliceVar(&directors, "director", nil, "Restrict the secondary view to these directors (repeatable)")
	return c
}

// exitCode distinguishes unreadable data from a schema mismatch for scripts.
func exitCode(err error) int {
	switch errors.CodeOf(err) {
	case errors.CodeDataLoad:
		return 2
	case errors.CodeSchema:
		return 3
	default:
		return 1
	}
}
