package main

import (
	"fmt"
	"text/tabwriter"

	"Circuitry/internal/calc/refdata"

	"github.com/spf13/cobra"
)

type tablesOutput struct {
	Datasets []refdata.Info   `json:"datasets"`
	Selected refdata.Info     `json:"selected"`
	Methods  []refdata.Method `json:"installation_methods"`
}

func newTablesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List loaded datasets and installation methods",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.registry()
			if err != nil {
				return err
			}
			ds, err := reg.Match(a.dataset, a.version)
			if err != nil {
				return err
			}
			out := tablesOutput{Datasets: reg.List(), Selected: ds.Info(), Methods: ds.Methods()}
			if a.jsonOutput {
				return writeJSON(a.out, out)
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DATASET\tVERSION\tJURISDICTION\tDESCRIPTION")
			for _, d := range out.Datasets {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.Name, d.Version, d.Jurisdiction, d.Description)
			}
			tw.Flush()

			fmt.Fprintf(a.out, "\nInstallation methods (%s %s):\n", ds.Name(), ds.Version())
			tw = tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "METHOD\tGROUPING\tTHERMAL INSULATION\tDESCRIPTION")
			for _, m := range out.Methods {
				thermal := m.ThermalInsulation
				if thermal == "" {
					thermal = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.Key, m.Grouping, thermal, m.Description)
			}
			return tw.Flush()
		},
	}
}
