package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sadopc/assertify/internal/core/collection"
)

func (c *cli) newCollectionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "collections",
		Aliases: []string{"col"},
		Short:   "Group recorded requests into collections",
	}
	cmd.AddCommand(
		c.newCollectionsListCmd(),
		c.newCollectionsCreateCmd(),
		c.newCollectionsAddCmd(),
		c.newCollectionsExportCmd(),
	)
	return cmd
}

func (c *cli) newCollectionsListCmd() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List collections",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := c.open(false)
			if err != nil {
				return err
			}
			defer env.Close()

			cols := env.settle().Collections
			if jsonOut {
				return printJSON(cmd.OutOrStdout(), cols)
			}
			if len(cols) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No collections yet.")
				return nil
			}
			w := table(cmd.OutOrStdout())
			fmt.Fprintln(w, "ID\tNAME\tREQUESTS")
			for _, col := range cols {
				fmt.Fprintf(w, "%s\t%s\t%d\n", shortID(col.ID), col.Name, len(col.Items))
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print collections as JSON")
	return cmd
}

func (c *cli) newCollectionsCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create an empty collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := c.open(false)
			if err != nil {
				return err
			}
			defer env.Close()
			env.settle()

			col, err := env.ctrl.CreateCollection(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created collection %q (%s)\n", col.Name, col.ID)
			return nil
		},
	}
}

func (c *cli) newCollectionsAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <collection> <history-id>",
		Short: "Add a recorded request to a collection",
		Long: `Add a recorded request to a collection. <collection> is an id or a name;
<history-id> may be a unique prefix. Adding a request twice does nothing.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := c.open(false)
			if err != nil {
				return err
			}
			defer env.Close()

			snap := env.settle()
			col, err := findCollection(snap.Collections, args[0])
			if err != nil {
				return err
			}
			it, err := findItem(snap.History, args[1])
			if err != nil {
				return err
			}
			if err := env.ctrl.AddToCollection(cmd.Context(), col, it); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s to %q\n", it.Method, it.URL, col.Name)
			return nil
		},
	}
}

func (c *cli) newCollectionsExportCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export collections with their requests as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := c.open(false)
			if err != nil {
				return err
			}
			defer env.Close()

			snap := env.settle()
			b := collection.NewBundle(snap.Collections, snap.History)
			if output == "" {
				return collection.WriteBundle(cmd.OutOrStdout(), b)
			}
			if err := collection.SaveToFile(b, output); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d collections to %s\n", len(b.Collections), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}
