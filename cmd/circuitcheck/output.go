package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"Circuitry/internal/calc/autodesign"
	"Circuitry/internal/calc/circuit"
	"Circuitry/internal/calc/compliance"
)

func printResult(w io.Writer, r compliance.Result) {
	fmt.Fprintf(w, "Circuit %s (%s %s): %s\n", r.Reference, r.Dataset, r.DatasetVersion, r.Overall)

	c := r.Capacity
	fmt.Fprintf(w, "  Capacity        %-13s", c.Verdict)
	if c.SelectedSizeMM2 > 0 {
		fmt.Fprintf(w, " %s mm2 (cpc %s mm2), Cf %s, It %s A >= %s A required",
			circuit.Num(c.SelectedSizeMM2), circuit.Num(c.CPCSizeMM2),
			circuit.Fixed(c.CorrectionFactor, 3), circuit.Num(c.TabulatedRatingA), circuit.Fixed(c.RequiredRatingA, 1))
	}
	fmt.Fprintln(w)

	v := r.VoltageDrop
	fmt.Fprintf(w, "  Voltage drop    %-13s", v.Verdict)
	if v.DropV > 0 {
		fmt.Fprintf(w, " %s V (%s%%), limit %s%%", circuit.Fixed(v.DropV, 2), circuit.Fixed(v.DropPct, 2), circuit.Num(v.LimitPct))
	}
	fmt.Fprintln(w)

	l := r.LoopImpedance
	fmt.Fprintf(w, "  Loop impedance  %-13s", l.Verdict)
	if l.ZsOhm > 0 {
		fmt.Fprintf(w, " Zs %s ohm", circuit.Fixed(l.ZsOhm, 3))
		if l.MaxZsOhm > 0 {
			fmt.Fprintf(w, ", max %s ohm, measured max %s ohm", circuit.Num(l.MaxZsOhm), circuit.Fixed(l.MeasuredMaxZsOhm, 3))
		}
	}
	fmt.Fprintln(w)

	for _, d := range r.Diagnostics {
		printDiagnostic(w, d)
	}
}

func printDiagnostic(w io.Writer, d circuit.Diagnostic) {
	fmt.Fprintf(w, "    - [%s/%s] %s", d.Check, d.Kind, d.Message)
	if d.Table != "" {
		fmt.Fprintf(w, " (table %s", d.Table)
		if d.Key != "" {
			fmt.Fprintf(w, ", key %s", d.Key)
		}
		fmt.Fprint(w, ")")
	}
	fmt.Fprintln(w)
}

func printBatch(w io.Writer, b compliance.BatchResult) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CIRCUIT\tSIZE\tCAPACITY\tVOLTAGE DROP\tLOOP\tOVERALL")
	for _, r := range b.Results {
		size := "-"
		if r.Capacity.SelectedSizeMM2 > 0 {
			size = circuit.Num(r.Capacity.SelectedSizeMM2)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.Reference, size,
			r.Capacity.Verdict, r.VoltageDrop.Verdict, r.LoopImpedance.Verdict, r.Overall)
	}
	tw.Flush()

	for _, r := range b.Results {
		if len(r.Diagnostics) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s:\n", r.Reference)
		for _, d := range r.Diagnostics {
			printDiagnostic(w, d)
		}
	}

	s := b.Summary
	fmt.Fprintf(w, "\n%d circuits: %d pass, %d fail, %d indeterminate (%s %s)\n",
		s.Total, s.Pass, s.Fail, s.Indeterminate, b.Dataset, b.DatasetVersion)
}

func printUpsize(w io.Writer, r autodesign.Result) {
	fmt.Fprintf(w, "Circuit %s: %s\n", r.Reference, r.Overall)
	switch {
	case r.Upsized:
		fmt.Fprintf(w, "  Upsize %s mm2 to %s mm2 (cpc %s mm2)\n",
			circuit.Num(r.CapacitySizeMM2), circuit.Num(r.RecommendedMM2), circuit.Num(r.RecommendedCPC))
	case r.RecommendedMM2 > 0:
		fmt.Fprintf(w, "  %s mm2 (cpc %s mm2) already passes\n", circuit.Num(r.RecommendedMM2), circuit.Num(r.RecommendedCPC))
	}
	fmt.Fprintf(w, "  Voltage drop    %-13s %s%%\n", r.VoltageDrop.Verdict, circuit.Fixed(r.VoltageDrop.DropPct, 2))
	fmt.Fprintf(w, "  Loop impedance  %-13s Zs %s ohm\n", r.LoopImpedance.Verdict, circuit.Fixed(r.LoopImpedance.ZsOhm, 3))
	for _, d := range r.Diagnostics {
		printDiagnostic(w, d)
	}
}
