package voltdrop

import (
	"errors"
	"fmt"

	"Circuitry/internal/calc/circuit"
	"Circuitry/internal/calc/refdata"
	"Circuitry/internal/calc/resolver"
	"Circuitry/internal/calc/sizing"
)

type Result struct {
	MVPerAM     float64              `json:"mv_per_am"`
	DropV       float64              `json:"drop_v"`
	DropPct     float64              `json:"drop_pct"`
	LimitPct    float64              `json:"limit_pct"`
	LimitFrom   string               `json:"limit_from,omitempty"`
	Verdict     circuit.Verdict      `json:"verdict"`
	Diagnostics []circuit.Diagnostic `json:"diagnostics,omitempty"`
}

// Calculate computes the drop along the run for the conductor chosen by
// sizing: mV/A/m x Ib x L / 1000.
func Calculate(ds *refdata.Dataset, in circuit.Spec, sized sizing.Result) (Result, error) {
	if err := in.Validate(); err != nil {
		return Result{}, err
	}
	res := Result{Verdict: circuit.Indeterminate}

	limit, from, err := limitFor(ds, in)
	if err != nil {
		res.gap(err)
	}
	res.LimitPct, res.LimitFrom = limit, from

	if !sized.Selected() {
		res.diag(circuit.TableGap, sized.Table, "", "no conductor size selected; voltage drop not evaluated")
		return res, nil
	}

	mv := sized.MVPerAM
	if in.Phases == 3 {
		mv = sized.MVPerAM3Ph
		if mv == 0 {
			res.diag(circuit.TableGap, sized.Table, resolver.FormatSize(sized.SelectedSizeMM2),
				"no three-phase mV/A/m tabulated for "+resolver.FormatSize(sized.SelectedSizeMM2))
			return res, nil
		}
	}
	res.MVPerAM = mv
	dropV := circuit.Dec(mv).Mul(circuit.Dec(in.DesignCurrentA)).Mul(circuit.Dec(in.LengthM)).Shift(-3)
	u0 := circuit.Dec(in.NominalVoltageV)
	res.DropV = dropV.InexactFloat64()
	res.DropPct = dropV.Shift(2).Div(u0).InexactFloat64()

	if err != nil {
		return res, nil
	}
	// drop/U0 x 100 > limit, compared without dividing.
	if dropV.Shift(2).GreaterThan(circuit.Dec(res.LimitPct).Mul(u0)) {
		res.Verdict = circuit.Fail
		res.diag(circuit.LimitExceeded, from, "",
			fmt.Sprintf("voltage drop %s%% (%sV) exceeds the permitted %s%%",
				circuit.Fixed(res.DropPct, 2), circuit.Fixed(res.DropV, 2), circuit.Num(res.LimitPct)))
		return res, nil
	}
	res.Verdict = circuit.Pass
	return res, nil
}

func limitFor(ds *refdata.Dataset, in circuit.Spec) (float64, string, error) {
	if in.VoltageDropLimitPct > 0 {
		return in.VoltageDropLimitPct, "circuit", nil
	}
	v, err := resolver.VoltageDropLimit(ds, in.CircuitClass)
	if err != nil {
		return 0, "", err
	}
	return v, "voltage_drop_limits/" + in.CircuitClass, nil
}

func (r *Result) gap(err error) {
	var gap *resolver.GapError
	if errors.As(err, &gap) {
		r.diag(circuit.TableGap, gap.Table, gap.Key, gap.Error())
		return
	}
	r.diag(circuit.TableGap, "", "", err.Error())
}

func (r *Result) diag(kind circuit.DiagnosticKind, table, key, msg string) {
	r.Diagnostics = append(r.Diagnostics, circuit.Diagnostic{
		Kind:    kind,
		Check:   circuit.CheckVoltageDrop,
		Table:   table,
		Key:     key,
		Message: msg,
	})
}
