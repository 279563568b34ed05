package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"Circuitry/internal/calc/autodesign"
	"Circuitry/internal/calc/circuit"
	"Circuitry/internal/calc/compliance"
	"Circuitry/internal/calc/importer"

	"github.com/spf13/cobra"
)

func newEvaluateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "evaluate <spec.json|->",
		Short: "Evaluate one circuit spec",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := a.selected()
			if err != nil {
				return err
			}
			var spec circuit.Spec
			if err := readJSON(args[0], &spec); err != nil {
				return err
			}
			res := compliance.Evaluate(ds, spec)
			a.setCode(res.Overall)
			if a.jsonOutput {
				return writeJSON(a.out, res)
			}
			printResult(a.out, res)
			return nil
		},
	}
}

func newUpsizeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "upsize <spec.json|->",
		Short: "Find the smallest conductor that passes every check",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := a.selected()
			if err != nil {
				return err
			}
			var spec circuit.Spec
			if err := readJSON(args[0], &spec); err != nil {
				return err
			}
			res := autodesign.Upsize(ds, spec)
			a.setCode(res.Overall)
			if a.jsonOutput {
				return writeJSON(a.out, res)
			}
			printUpsize(a.out, res)
			return nil
		},
	}
}

func newBatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <circuits.json|schedule.xlsx>",
		Short: "Evaluate a list of circuits from JSON or an xlsx schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := a.selected()
			if err != nil {
				return err
			}
			specs, err := readSpecs(args[0])
			if err != nil {
				return err
			}
			res, err := compliance.EvaluateBatch(cmd.Context(), ds, specs, a.workers)
			if err != nil {
				return err
			}
			a.setCode(res.Summary.Overall())
			if a.jsonOutput {
				return writeJSON(a.out, res)
			}
			printBatch(a.out, res)
			return nil
		},
	}
	cmd.Flags().IntVar(&a.workers, "workers", 0, "parallel evaluations (default GOMAXPROCS)")
	return cmd
}

func (a *app) setCode(v circuit.Verdict) {
	if v != circuit.Pass {
		a.code = exitCheck
	}
}

func open(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

func readJSON(path string, v any) error {
	f, err := open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// readSpecs accepts an xlsx schedule, a JSON array of specs or a JSON object
// with a "circuits" array.
func readSpecs(path string) ([]circuit.Spec, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return importer.ReadSchedule(f)
	}

	var raw json.RawMessage
	if err := readJSON(path, &raw); err != nil {
		return nil, err
	}
	var specs []circuit.Spec
	if strings.HasPrefix(strings.TrimSpace(string(raw)), "[") {
		if err := json.Unmarshal(raw, &specs); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return specs, nil
	}
	var in compliance.BatchInput
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return in.Circuits, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
