package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/sadopc/assertify/internal/core/history"
	"github.com/sadopc/assertify/internal/diff"
	"github.com/sadopc/assertify/internal/export"
)

func (c *cli) newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "history",
		Aliases: []string{"h"},
		Short:   "Browse recorded requests",
	}
	cmd.AddCommand(c.newHistoryListCmd(), c.newHistoryShowCmd(), c.newHistoryCurlCmd(), c.newHistoryDiffCmd())
	return cmd
}

func (c *cli) newHistoryListCmd() *cobra.Command {
	var (
		filter  string
		limit   int
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List recorded requests, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := c.open(false)
			if err != nil {
				return err
			}
			defer env.Close()

			items := history.Filter(env.settle().History, filter)
			if limit > 0 && len(items) > limit {
				items = items[:limit]
			}
			if jsonOut {
				return printJSON(cmd.OutOrStdout(), items)
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No requests recorded yet.")
				return nil
			}

			w := table(cmd.OutOrStdout())
			fmt.Fprintln(w, "ID\tMETHOD\tURL\tSIZE\tWHEN")
			for _, it := range items {
				when := "-"
				if !it.CreatedAt.IsZero() {
					when = humanize.Time(it.CreatedAt.Time)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					shortID(it.ID), it.Method, it.URL, humanize.Bytes(uint64(len(it.ResponseData))), when)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "fuzzy filter on method and URL")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum rows, 0 for all")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print items as JSON")
	return cmd
}

func (c *cli) newHistoryShowCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a recorded request and its response",
		Long:  "Show a recorded request and its response. <id> may be a unique prefix.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := c.open(false)
			if err != nil {
				return err
			}
			defer env.Close()

			it, err := findItem(env.settle().History, args[0])
			if err != nil {
				return err
			}
			out := env.ctrl.SelectHistoryItem(it)
			if path != "" {
				matches, err := out.Extract(path)
				if err != nil {
					return err
				}
				return printMatches(cmd.OutOrStdout(), matches)
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "print only the values matching a JSONPath expression")
	return cmd
}

func (c *cli) newHistoryCurlCmd() *cobra.Command {
	var withToken bool
	cmd := &cobra.Command{
		Use:   "curl <id>",
		Short: "Print a recorded request as a curl command",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := c.open(false)
			if err != nil {
				return err
			}
			defer env.Close()

			it, err := findItem(env.settle().History, args[0])
			if err != nil {
				return err
			}
			bearer := ""
			if withToken {
				if bearer, err = env.tracker.Token(cmd.Context()); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), export.AsCurl(it.Descriptor(), bearer))
			return nil
		},
	}
	cmd.Flags().BoolVar(&withToken, "with-token", false, "include the signed-in user's bearer token")
	return cmd
}

func (c *cli) newHistoryDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <id> <id>",
		Short: "Compare the responses of two recorded requests",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := c.open(false)
			if err != nil {
				return err
			}
			defer env.Close()

			items := env.settle().History
			a, err := findItem(items, args[0])
			if err != nil {
				return err
			}
			b, err := findItem(items, args[1])
			if err != nil {
				return err
			}
			out, err := diff.Responses(a, b)
			if err != nil {
				return err
			}
			if out == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "Responses are identical.")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
}
