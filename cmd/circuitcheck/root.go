package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"Circuitry/internal/calc/refdata"

	"github.com/spf13/cobra"
)

// Exit codes.
const (
	exitPass  = 0
	exitCheck = 1
	exitError = 2
)

type app struct {
	refdataDir string
	dataset    string
	version    string
	jsonOutput bool
	workers    int

	out  io.Writer
	code int
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "circuitcheck",
		Short: "Check circuits against wiring regulation tables",
		Long: `circuitcheck sizes conductors and checks voltage drop and earth-fault loop
impedance for circuit specs.

Exit codes:
  0 - every circuit passed
  1 - at least one circuit failed or is indeterminate
  2 - error (unreadable input, unknown dataset)

Environment Variables:
  REFDATA_DIR      Directory of additional datasets
  REFDATA_NAME     Dataset name (default: bs7671)
  REFDATA_VERSION  Dataset semver constraint (default: latest)`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.refdataDir, "refdata-dir", os.Getenv("REFDATA_DIR"), "directory of additional datasets")
	root.PersistentFlags().StringVar(&a.dataset, "dataset", envOr("REFDATA_NAME", "bs7671"), "dataset name")
	root.PersistentFlags().StringVar(&a.version, "dataset-version", os.Getenv("REFDATA_VERSION"), "dataset semver constraint")
	root.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "output JSON instead of text")

	root.AddCommand(newEvaluateCmd(a), newUpsizeCmd(a), newBatchCmd(a), newTablesCmd(a))
	return root
}

func run(args []string, out io.Writer) int {
	a := &app{out: out}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(out)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return exitError
	}
	return a.code
}

func (a *app) registry() (*refdata.Registry, error) {
	return refdata.Bootstrap(a.refdataDir)
}

func (a *app) selected() (*refdata.Dataset, error) {
	reg, err := a.registry()
	if err != nil {
		return nil, err
	}
	return reg.Match(a.dataset, a.version)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
