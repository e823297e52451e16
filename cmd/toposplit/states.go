package main

import (
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/toposplit/internal/partition"
	"github.com/ajitpratap0/toposplit/pkg/states"
)

func (a *app) statesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "states",
		Short: "List the known state codes and their output file names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			printf(w, "CODE\tNAME\tFILE\n")
			for _, s := range states.All() {
				printf(w, "%s\t%s\t%s\n", s.Code, s.Name, s.FileStem()+partition.FileExtension)
			}
			return w.Flush()
		},
	}
}
