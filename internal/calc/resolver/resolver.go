// Package resolver looks factors, ratings and limits up in a reference
// dataset with one edge-case policy for every table:
//
//   - an exact key returns its value;
//   - a key between bands rounds up to the next tabulated key;
//   - a key above the last band returns the last value, flagged extrapolated;
//   - a key below the first band returns the table's neutral value;
//   - a table that does not cover the circuit's category is a gap.
package resolver

import (
	"errors"
	"fmt"
	"strconv"

	"Circuitry/internal/calc/circuit"
	"Circuitry/internal/calc/refdata"
)

type Outcome string

const (
	Exact         Outcome = "exact"
	RoundedUp     Outcome = "rounded_up"
	Neutral       Outcome = "neutral"
	Extrapolated  Outcome = "extrapolated"
	NotApplicable Outcome = "not_applicable"
)

// ErrTableGap is wrapped by every GapError.
var ErrTableGap = errors.New("table gap")

// GapError reports a lookup against a table that does not cover the key.
type GapError struct {
	Table string
	Key   string
}

func (e *GapError) Error() string {
	return fmt.Sprintf("%v: %s has no entry for %s", ErrTableGap, e.Table, e.Key)
}

func (e *GapError) Unwrap() error { return ErrTableGap }

// Resolution is the trace of one lookup.
type Resolution struct {
	Table      string  `json:"table"`
	Query      float64 `json:"query"`
	MatchedKey float64 `json:"matched_key"`
	Value      float64 `json:"value"`
	Outcome    Outcome `json:"outcome"`
}

func (r Resolution) Extrapolated() bool { return r.Outcome == Extrapolated }

// Band resolves q against a banded table.
func Band(t *refdata.BandedTable, q float64) Resolution {
	res := Resolution{Table: t.Name(), Query: q}
	n := t.Len()
	first := t.Band(0)
	if q < first.Key {
		res.MatchedKey = first.Key
		res.Value = t.Neutral()
		res.Outcome = Neutral
		return res
	}
	for i := 0; i < n; i++ {
		b := t.Band(i)
		if b.Key == q {
			res.MatchedKey, res.Value, res.Outcome = b.Key, b.Factor, Exact
			return res
		}
		if b.Key > q {
			res.MatchedKey, res.Value, res.Outcome = b.Key, b.Factor, RoundedUp
			return res
		}
	}
	last := t.Band(n - 1)
	res.MatchedKey, res.Value, res.Outcome = last.Key, last.Factor, Extrapolated
	return res
}

func Method(ds *refdata.Dataset, key string) (refdata.Method, error) {
	m, ok := ds.Method(key)
	if !ok {
		return refdata.Method{}, &GapError{Table: "installation_methods", Key: key}
	}
	return m, nil
}

func Ambient(ds *refdata.Dataset, ins circuit.Insulation, tempC float64) (Resolution, error) {
	t, ok := ds.AmbientTable(ins)
	if !ok {
		return Resolution{}, &GapError{Table: "ambient", Key: string(ins)}
	}
	return Band(t, tempC), nil
}

func Grouping(ds *refdata.Dataset, m refdata.Method, circuits int) (Resolution, error) {
	t, ok := ds.GroupingTable(m.Grouping)
	if !ok {
		return Resolution{}, &GapError{Table: "grouping", Key: m.Grouping}
	}
	return Band(t, float64(circuits)), nil
}

// ThermalInsulation resolves the thermal insulation factor. Methods whose
// ratings already account for insulation, and circuits with no insulation
// contact, resolve NotApplicable with a neutral value.
func ThermalInsulation(ds *refdata.Dataset, m refdata.Method, mm float64) (Resolution, error) {
	if m.ThermalInsulation == "" || mm == 0 {
		return Resolution{Table: "thermal_insulation", Query: mm, Value: 1, Outcome: NotApplicable}, nil
	}
	t, ok := ds.ThermalInsulationTable(m.ThermalInsulation)
	if !ok {
		return Resolution{}, &GapError{Table: "thermal_insulation", Key: m.ThermalInsulation}
	}
	return Band(t, mm), nil
}

// Column returns the rating column for the spec's cable and method.
func Column(ds *refdata.Dataset, s circuit.Spec) (string, []refdata.RatedSize, error) {
	rt, ok := ds.RatingTable(s.CableType, s.Material, s.Insulation)
	if !ok {
		return "", nil, &GapError{Table: "cable_ratings", Key: s.CableType + "/" + string(s.Material) + "/" + string(s.Insulation)}
	}
	col := rt.Column(s.InstallationMethod, s.Phases)
	if len(col) == 0 {
		return rt.Name(), nil, &GapError{Table: rt.Name(), Key: methodKey(s.InstallationMethod, s.Phases)}
	}
	return rt.Name(), col, nil
}

func Resistance(ds *refdata.Dataset, m circuit.Material, sizeMM2 float64) (float64, error) {
	v, ok := ds.Resistance(m, sizeMM2)
	if !ok {
		return 0, &GapError{Table: "conductor_resistance/" + string(m), Key: FormatSize(sizeMM2)}
	}
	return v, nil
}

func TemperatureMultiplier(ds *refdata.Dataset, ins circuit.Insulation) (float64, error) {
	v, ok := ds.TemperatureMultiplier(ins)
	if !ok {
		return 0, &GapError{Table: "temperature_multipliers", Key: string(ins)}
	}
	return v, nil
}

// MaxZs is an exact lookup; device ratings are discrete and never rounded.
func MaxZs(ds *refdata.Dataset, d circuit.Device, class circuit.DisconnectionClass) (float64, error) {
	v, ok := ds.MaxZs(d.Type, d.RatingA, class)
	if !ok {
		return 0, &GapError{Table: "max_zs/" + d.Type + "/" + string(class), Key: strconv.FormatFloat(d.RatingA, 'f', -1, 64) + "A"}
	}
	return v, nil
}

func VoltageDropLimit(ds *refdata.Dataset, class string) (float64, error) {
	v, ok := ds.VoltageDropLimit(class)
	if !ok {
		return 0, &GapError{Table: "voltage_drop_limits", Key: class}
	}
	return v, nil
}

func FormatSize(sizeMM2 float64) string {
	return strconv.FormatFloat(sizeMM2, 'f', -1, 64) + "mm2"
}

func methodKey(method string, phases int) string {
	if phases == 3 {
		return "method " + method + " (three-phase)"
	}
	return "method " + method
}
