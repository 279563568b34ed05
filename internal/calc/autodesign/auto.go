// Package autodesign picks the smallest conductor that passes every check,
// stepping up from the capacity-selected size when voltage drop or loop
// impedance fails.
package autodesign

import (
	"fmt"

	"Circuitry/internal/calc/circuit"
	"Circuitry/internal/calc/compliance"
	"Circuitry/internal/calc/loopimp"
	"Circuitry/internal/calc/refdata"
	"Circuitry/internal/calc/resolver"
	"Circuitry/internal/calc/sizing"
	"Circuitry/internal/calc/voltdrop"
)

type Result struct {
	Reference       string               `json:"reference"`
	CapacitySizeMM2 float64              `json:"capacity_size_mm2"`
	RecommendedMM2  float64              `json:"recommended_size_mm2"`
	RecommendedCPC  float64              `json:"recommended_cpc_mm2"`
	Upsized         bool                 `json:"upsized"`
	VoltageDrop     voltdrop.Result      `json:"voltage_drop"`
	LoopImpedance   loopimp.Result       `json:"loop_impedance"`
	Overall         circuit.Verdict      `json:"overall"`
	Evaluation      compliance.Result    `json:"evaluation"`
	Diagnostics     []circuit.Diagnostic `json:"diagnostics"`
}

// Upsize evaluates spec and, when only voltage drop or loop impedance keeps
// it from passing, walks the larger tabulated sizes for the same method until
// both pass. Capacity failures and table gaps are reported unchanged.
func Upsize(ds *refdata.Dataset, spec circuit.Spec) Result {
	base := compliance.Evaluate(ds, spec)
	res := Result{
		Reference:       spec.Reference,
		CapacitySizeMM2: base.Capacity.SelectedSizeMM2,
		VoltageDrop:     base.VoltageDrop,
		LoopImpedance:   base.LoopImpedance,
		Overall:         base.Overall,
		Evaluation:      base,
		Diagnostics:     []circuit.Diagnostic{},
	}
	if base.Overall == circuit.Pass {
		res.RecommendedMM2 = base.Capacity.SelectedSizeMM2
		res.RecommendedCPC = base.Capacity.CPCSizeMM2
		return res
	}
	if base.Capacity.Verdict != circuit.Pass ||
		base.VoltageDrop.Verdict == circuit.Indeterminate ||
		base.LoopImpedance.Verdict == circuit.Indeterminate {
		res.note(circuit.NotApplicable, "", "", "upsizing only resolves voltage drop or loop impedance failures")
		return res
	}

	table, column, err := resolver.Column(ds, spec)
	if err != nil {
		res.note(circuit.TableGap, table, "", err.Error())
		res.Overall = circuit.Indeterminate
		return res
	}

	for _, row := range column {
		if row.SizeMM2 <= base.Capacity.SelectedSizeMM2 {
			continue
		}
		sized := withRow(base.Capacity, row)
		vd, err := voltdrop.Calculate(ds, spec, sized)
		if err != nil {
			res.note(circuit.InvalidSpec, "", "", err.Error())
			return res
		}
		zs, err := loopimp.Calculate(ds, spec, sized)
		if err != nil {
			res.note(circuit.InvalidSpec, "", "", err.Error())
			return res
		}
		res.VoltageDrop, res.LoopImpedance = vd, zs

		switch circuit.Combine(vd.Verdict, zs.Verdict) {
		case circuit.Pass:
			res.RecommendedMM2, res.RecommendedCPC = row.SizeMM2, row.CPCMM2
			res.Upsized = true
			res.Overall = circuit.Pass
			return res
		case circuit.Indeterminate:
			res.note(circuit.TableGap, table, resolver.FormatSize(row.SizeMM2),
				"upsizing stopped at "+resolver.FormatSize(row.SizeMM2)+": a check could not be evaluated")
			res.Overall = circuit.Indeterminate
			return res
		}
	}

	last := column[len(column)-1]
	res.note(circuit.CapacityExhausted, table, resolver.FormatSize(last.SizeMM2),
		fmt.Sprintf("no tabulated size up to %s passes voltage drop and loop impedance over %sm",
			resolver.FormatSize(last.SizeMM2), circuit.Num(spec.LengthM)))
	res.Overall = circuit.Fail
	return res
}

// withRow is the capacity result as it would read had row been selected.
func withRow(r sizing.Result, row refdata.RatedSize) sizing.Result {
	r.SelectedSizeMM2 = row.SizeMM2
	r.CPCSizeMM2 = row.CPCMM2
	r.TabulatedRatingA = row.RatingA
	r.EffectiveRatingA = circuit.Dec(row.RatingA).Mul(circuit.Dec(r.CorrectionFactor)).InexactFloat64()
	r.MVPerAM = row.MVPerAM
	r.MVPerAM3Ph = row.MVPerAM3Ph
	return r
}

func (r *Result) note(kind circuit.DiagnosticKind, table, key, msg string) {
	r.Diagnostics = append(r.Diagnostics, circuit.Diagnostic{
		Kind:    kind,
		Check:   circuit.CheckCapacity,
		Table:   table,
		Key:     key,
		Message: msg,
	})
}
