package sizing

import (
	"errors"
	"fmt"

	"Circuitry/internal/calc/circuit"
	"Circuitry/internal/calc/refdata"
	"Circuitry/internal/calc/resolver"

	"github.com/shopspring/decimal"
)

const (
	FactorAmbient           = "ambient_temperature"
	FactorGrouping          = "grouping"
	FactorThermalInsulation = "thermal_insulation"
)

// Factor is one correction factor and how it was resolved. Factors that do
// not apply are still listed, with Applied false.
type Factor struct {
	Name string `json:"name"`
	resolver.Resolution
	Applied bool   `json:"applied"`
	Note    string `json:"note,omitempty"`
}

type Result struct {
	Table                 string               `json:"table,omitempty"`
	SelectedSizeMM2       float64              `json:"selected_size_mm2"`
	CPCSizeMM2            float64              `json:"cpc_size_mm2"`
	CorrectionFactor      float64              `json:"correction_factor"`
	Factors               []Factor             `json:"factors"`
	RequiredRatingA       float64              `json:"required_rating_a"`
	DeviceRequiredRatingA float64              `json:"device_required_rating_a"`
	TabulatedRatingA      float64              `json:"tabulated_rating_a"`
	EffectiveRatingA      float64              `json:"effective_rating_a"`
	MVPerAM               float64              `json:"mv_per_am"`
	MVPerAM3Ph            float64              `json:"mv_per_am_3ph,omitempty"`
	Verdict               circuit.Verdict      `json:"verdict"`
	Diagnostics           []circuit.Diagnostic `json:"diagnostics,omitempty"`
}

// Selected reports whether a conductor size was chosen.
func (r Result) Selected() bool { return r.SelectedSizeMM2 > 0 }

// Calculate selects the smallest conductor whose corrected rating carries
// both the design current and the protective device's rated current.
func Calculate(ds *refdata.Dataset, in circuit.Spec) (Result, error) {
	if err := in.Validate(); err != nil {
		return Result{}, err
	}
	res := Result{Verdict: circuit.Indeterminate}

	method, err := resolver.Method(ds, in.InstallationMethod)
	if err != nil {
		res.gap(err)
		return res, nil
	}

	cf, ok := res.resolveFactors(ds, in, method)
	if !ok {
		return res, nil
	}
	ib, inA := circuit.Dec(in.DesignCurrentA), circuit.Dec(in.Device.RatingA)
	res.CorrectionFactor = cf.InexactFloat64()
	res.RequiredRatingA = ib.Div(cf).InexactFloat64()
	res.DeviceRequiredRatingA = inA.Div(cf).InexactFloat64()

	table, column, err := resolver.Column(ds, in)
	res.Table = table
	if err != nil {
		res.gap(err)
		return res, nil
	}

	deviceTooSmall := ib.GreaterThan(inA)
	if deviceTooSmall {
		res.diag(circuit.LimitExceeded, "protective_device", in.Device.Type+"/"+circuit.Num(in.Device.RatingA)+"A",
			fmt.Sprintf("design current %sA exceeds protective device rating %sA", circuit.Num(in.DesignCurrentA), circuit.Num(in.Device.RatingA)))
	}

	for _, row := range column {
		iz := circuit.Dec(row.RatingA).Mul(cf)
		if iz.GreaterThanOrEqual(ib) && iz.GreaterThanOrEqual(inA) {
			res.SelectedSizeMM2 = row.SizeMM2
			res.CPCSizeMM2 = row.CPCMM2
			res.TabulatedRatingA = row.RatingA
			res.EffectiveRatingA = iz.InexactFloat64()
			res.MVPerAM = row.MVPerAM
			res.MVPerAM3Ph = row.MVPerAM3Ph
			break
		}
	}

	if !res.Selected() {
		last := column[len(column)-1]
		need := decimal.Max(ib, inA)
		carried := circuit.Dec(last.RatingA).Mul(cf)
		res.diag(circuit.CapacityExhausted, table, resolver.FormatSize(last.SizeMM2),
			fmt.Sprintf("no tabulated size for method %s carries %sA: largest size %s rated %sA gives %sA after correction factor %s, short by %sA",
				in.InstallationMethod, need.Round(3).String(), resolver.FormatSize(last.SizeMM2), circuit.Num(last.RatingA),
				carried.Round(3).String(), cf.Round(3).String(), need.Sub(carried).Round(3).String()))
		res.Verdict = circuit.Fail
		return res, nil
	}

	switch {
	case deviceTooSmall:
		res.Verdict = circuit.Fail
	case res.extrapolated():
		res.Verdict = circuit.Indeterminate
	default:
		res.Verdict = circuit.Pass
	}
	return res, nil
}

func (r *Result) resolveFactors(ds *refdata.Dataset, in circuit.Spec, method refdata.Method) (decimal.Decimal, bool) {
	ambient, err := resolver.Ambient(ds, in.Insulation, *in.AmbientTempC)
	if err != nil {
		r.gap(err)
		return decimal.Zero, false
	}
	grouping, err := resolver.Grouping(ds, method, in.GroupedCircuits)
	if err != nil {
		r.gap(err)
		return decimal.Zero, false
	}
	thermal, err := resolver.ThermalInsulation(ds, method, in.ThermalInsulationMM)
	if err != nil {
		r.gap(err)
		return decimal.Zero, false
	}

	cf := decimal.NewFromInt(1)
	for _, f := range []Factor{
		{Name: FactorAmbient, Resolution: ambient},
		{Name: FactorGrouping, Resolution: grouping},
		{Name: FactorThermalInsulation, Resolution: thermal},
	} {
		switch f.Outcome {
		case resolver.NotApplicable:
			f.Note = thermalNote(method, in.ThermalInsulationMM)
			r.diag(circuit.NotApplicable, f.Table, method.Key, f.Name+" factor not applied: "+f.Note)
		case resolver.Extrapolated:
			f.Applied = true
			r.diag(circuit.ExtrapolationWarning, f.Table, circuit.Num(f.Query),
				fmt.Sprintf("%s %s is beyond the last tabulated key %s; using %s", f.Name, circuit.Num(f.Query), circuit.Num(f.MatchedKey), circuit.Num(f.Value)))
		default:
			f.Applied = true
		}
		if f.Applied {
			cf = cf.Mul(circuit.Dec(f.Value))
		}
		r.Factors = append(r.Factors, f)
	}
	return cf, true
}

func thermalNote(m refdata.Method, mm float64) string {
	if m.ThermalInsulation == "" {
		return "ratings for method " + m.Key + " already allow for thermal insulation"
	}
	if mm == 0 {
		return "no thermal insulation contact"
	}
	return ""
}

func (r *Result) extrapolated() bool {
	for _, f := range r.Factors {
		if f.Extrapolated() {
			return true
		}
	}
	return false
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
		Check:   circuit.CheckCapacity,
		Table:   table,
		Key:     key,
		Message: msg,
	})
}
