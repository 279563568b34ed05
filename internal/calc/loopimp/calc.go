package loopimp

import (
	"errors"
	"fmt"

	"Circuitry/internal/calc/circuit"
	"Circuitry/internal/calc/refdata"
	"Circuitry/internal/calc/resolver"
	"Circuitry/internal/calc/sizing"

	"github.com/shopspring/decimal"
)

type Result struct {
	R1MOhmPerM       float64              `json:"r1_mohm_per_m"`
	R2MOhmPerM       float64              `json:"r2_mohm_per_m"`
	Multiplier       float64              `json:"multiplier"`
	R1R2Ohm          float64              `json:"r1_r2_ohm"`
	ZeOhm            float64              `json:"ze_ohm"`
	ZsOhm            float64              `json:"zs_ohm"`
	MaxZsOhm         float64              `json:"max_zs_ohm"`
	MeasuredMaxZsOhm float64              `json:"measured_max_zs_ohm"`
	Verdict          circuit.Verdict      `json:"verdict"`
	Diagnostics      []circuit.Diagnostic `json:"diagnostics,omitempty"`
}

// Calculate works out the expected earth-fault loop impedance for the sized
// conductor and compares it to the device's tabulated maximum.
func Calculate(ds *refdata.Dataset, in circuit.Spec, sized sizing.Result) (Result, error) {
	if err := in.Validate(); err != nil {
		return Result{}, err
	}
	res := Result{Verdict: circuit.Indeterminate, ZeOhm: *in.ZeOhm}

	maxZs, err := resolver.MaxZs(ds, in.Device, in.DisconnectionTime)
	if err != nil {
		res.gap(err)
	} else {
		res.MaxZsOhm = maxZs
		res.MeasuredMaxZsOhm = circuit.Dec(maxZs).Mul(circuit.Dec(ds.MeasuredZsRatio())).InexactFloat64()
	}

	if !sized.Selected() {
		res.diag(circuit.TableGap, sized.Table, "", "no conductor size selected; loop impedance not evaluated")
		return res, nil
	}
	r1r2, ok := res.resistances(ds, in, sized)
	if !ok {
		return res, nil
	}
	zs := circuit.Dec(res.ZeOhm).Add(r1r2)
	res.ZsOhm = zs.InexactFloat64()

	if err != nil {
		return res, nil
	}
	if zs.GreaterThan(circuit.Dec(res.MaxZsOhm)) {
		res.Verdict = circuit.Fail
		res.diag(circuit.LimitExceeded, "max_zs/"+in.Device.Type+"/"+string(in.DisconnectionTime), circuit.Num(in.Device.RatingA)+"A",
			fmt.Sprintf("Zs %s ohm (Ze %s + R1+R2 %s at temperature multiplier %s) exceeds maximum %s ohm for %s %sA at %s",
				circuit.Fixed(res.ZsOhm, 3), circuit.Num(res.ZeOhm), circuit.Fixed(res.R1R2Ohm, 3), circuit.Num(res.Multiplier),
				circuit.Num(res.MaxZsOhm), in.Device.Type, circuit.Num(in.Device.RatingA), in.DisconnectionTime))
		return res, nil
	}
	res.Verdict = circuit.Pass
	return res, nil
}

// resistances fills R1, R2 and the corrected R1+R2 for the route length.
func (r *Result) resistances(ds *refdata.Dataset, in circuit.Spec, sized sizing.Result) (decimal.Decimal, bool) {
	r1, err := resolver.Resistance(ds, in.Material, sized.SelectedSizeMM2)
	if err != nil {
		r.gap(err)
		return decimal.Zero, false
	}
	r2, err := resolver.Resistance(ds, in.Material, sized.CPCSizeMM2)
	if err != nil {
		r.gap(err)
		return decimal.Zero, false
	}
	mult, err := resolver.TemperatureMultiplier(ds, in.Insulation)
	if err != nil {
		r.gap(err)
		return decimal.Zero, false
	}
	r.R1MOhmPerM, r.R2MOhmPerM, r.Multiplier = r1, r2, mult
	r1r2 := circuit.Dec(r1).Add(circuit.Dec(r2)).Mul(circuit.Dec(in.LengthM)).Shift(-3).Mul(circuit.Dec(mult))
	r.R1R2Ohm = r1r2.InexactFloat64()
	return r1r2, true
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
		Check:   circuit.CheckLoopImpedance,
		Table:   table,
		Key:     key,
		Message: msg,
	})
}
