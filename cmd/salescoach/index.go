package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newIndexCmd() *cobra.Command {
	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the product vector index",
	}
	indexCmd.AddCommand(&cobra.Command{
		Use:   "build",
		Short: "Build the vector index from the catalog unless it already exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := app.BuildIndex(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", status, app.Index().Path())
			return nil
		},
	})
	return indexCmd
}

func newQueryCmd() *cobra.Command {
	var k int
	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Look up product information the way the customer agent does",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for i, d := range app.Gateway().Query(cmd.Context(), args[0], k) {
				fmt.Fprintf(cmd.OutOrStdout(), "%d. [%s id=%d score=%d sim=%.3f] %s\n",
					i+1, d.Metadata.Source, d.Metadata.ProductID, d.Metadata.Score, d.Metadata.Similarity, d.Content)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&k, "k", "k", 3, "Number of results")
	return cmd
}

func newPersonasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "personas",
		Short: "List the available customer personas",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := app.Personas()
			for _, name := range reg.Names() {
				p, err := reg.Get(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", name, p.Opening)
			}
			return nil
		},
	}
}
