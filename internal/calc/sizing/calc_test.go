package sizing

import (
	"errors"
	"testing"

	"Circuitry/internal/calc/circuit"
	"Circuitry/internal/calc/refdata"
	"Circuitry/internal/calc/resolver"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dataset(t *testing.T) *refdata.Dataset {
	t.Helper()
	ds, err := refdata.Default()
	require.NoError(t, err)
	return ds
}

func radial() circuit.Spec {
	return circuit.Spec{
		Reference:          "C1",
		DesignCurrentA:     28,
		NominalVoltageV:    230,
		Phases:             1,
		Device:             circuit.Device{Type: "mcb-b", RatingA: 32},
		DisconnectionTime:  circuit.Disconnect04s,
		Material:           circuit.Copper,
		Insulation:         circuit.PVC70,
		CableType:          "single-core",
		InstallationMethod: "B",
		GroupedCircuits:    1,
		AmbientTempC:       circuit.Float(30),
		LengthM:            20,
		ZeOhm:              circuit.Float(0.35),
		CircuitClass:       "power",
	}
}

func kinds(diags []circuit.Diagnostic) []circuit.DiagnosticKind {
	out := make([]circuit.DiagnosticKind, 0, len(diags))
	for _, d := range diags {
		out = append(out, d.Kind)
	}
	return out
}

func TestCalculate_SingleCircuit(t *testing.T) {
	res, err := Calculate(dataset(t), radial())
	require.NoError(t, err)

	assert.Equal(t, circuit.Pass, res.Verdict)
	assert.Equal(t, 4.0, res.SelectedSizeMM2)
	assert.Equal(t, 4.0, res.CPCSizeMM2)
	assert.Equal(t, 32.0, res.TabulatedRatingA)
	assert.Equal(t, 1.0, res.CorrectionFactor)
	assert.Equal(t, 28.0, res.RequiredRatingA)
	assert.Equal(t, 32.0, res.DeviceRequiredRatingA)
	assert.Equal(t, 11.0, res.MVPerAM)
	assert.Equal(t, "ratings/single-core/copper/pvc70", res.Table)

	require.Len(t, res.Factors, 3)
	assert.Equal(t, FactorAmbient, res.Factors[0].Name)
	assert.Equal(t, resolver.Exact, res.Factors[0].Outcome)
	assert.Equal(t, FactorGrouping, res.Factors[1].Name)
	assert.True(t, res.Factors[1].Applied)
	assert.Equal(t, FactorThermalInsulation, res.Factors[2].Name)
	assert.False(t, res.Factors[2].Applied)
	assert.Equal(t, "no thermal insulation contact", res.Factors[2].Note)
	assert.Equal(t, []circuit.DiagnosticKind{circuit.NotApplicable}, kinds(res.Diagnostics))
}

func TestCalculate_GroupingForcesLargerSize(t *testing.T) {
	in := radial()
	in.GroupedCircuits = 12
	res, err := Calculate(dataset(t), in)
	require.NoError(t, err)

	assert.Equal(t, circuit.Pass, res.Verdict)
	assert.Equal(t, 0.45, res.CorrectionFactor)
	assert.Equal(t, 16.0, res.SelectedSizeMM2)
	assert.GreaterOrEqual(t, res.TabulatedRatingA*res.CorrectionFactor, in.DesignCurrentA)
	assert.GreaterOrEqual(t, res.TabulatedRatingA*res.CorrectionFactor, in.Device.RatingA)
}

func TestCalculate_CorrectedRatingAtBoundary(t *testing.T) {
	tests := []struct {
		name    string
		ib, in  float64
		size    float64
		verdict circuit.Verdict
	}{
		// 2.5mm2 method B is 24A; 24 x 0.70 = 16.8 exactly.
		{"rating equals load and device", 16.8, 16.8, 2.5, circuit.Pass},
		{"rating equals device above load", 10, 16.8, 2.5, circuit.Pass},
		{"device just over rating", 10, 16.81, 4, circuit.Pass},
		// 50mm2 method B is 151A; 151 x 0.70 = 105.7, the last row.
		{"last row equals load and device", 105.7, 105.7, 50, circuit.Pass},
		{"rating equals load below device", 16.8, 16, 2.5, circuit.Fail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := radial()
			in.GroupedCircuits = 3
			in.DesignCurrentA = tt.ib
			in.Device.RatingA = tt.in
			res, err := Calculate(dataset(t), in)
			require.NoError(t, err)

			assert.Equal(t, 0.7, res.CorrectionFactor)
			assert.Equal(t, tt.size, res.SelectedSizeMM2)
			assert.Equal(t, tt.verdict, res.Verdict)
			assert.NotContains(t, kinds(res.Diagnostics), circuit.CapacityExhausted)
		})
	}
}

func TestCalculate_ExhaustedJustPastLastRow(t *testing.T) {
	in := radial()
	in.GroupedCircuits = 3
	in.DesignCurrentA = 105.75
	in.Device.RatingA = 105.75
	res, err := Calculate(dataset(t), in)
	require.NoError(t, err)

	assert.Equal(t, circuit.Fail, res.Verdict)
	d := res.Diagnostics[len(res.Diagnostics)-1]
	assert.Equal(t, circuit.CapacityExhausted, d.Kind)
	assert.Contains(t, d.Message, "gives 105.7A after correction factor 0.7, short by 0.05A")
}

func TestCalculate_CombinesFactors(t *testing.T) {
	in := radial()
	in.InstallationMethod = "C"
	in.AmbientTempC = circuit.Float(45)
	in.ThermalInsulationMM = 100
	in.GroupedCircuits = 2
	res, err := Calculate(dataset(t), in)
	require.NoError(t, err)

	assert.InDelta(t, 0.79*0.85*0.78, res.CorrectionFactor, 1e-12)
	for _, f := range res.Factors {
		assert.True(t, f.Applied, f.Name)
	}
	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, circuit.Pass, res.Verdict)
}

func TestCalculate_ExtrapolatedGroupingIsNotPass(t *testing.T) {
	in := radial()
	in.GroupedCircuits = 24
	res, err := Calculate(dataset(t), in)
	require.NoError(t, err)

	assert.Equal(t, circuit.Indeterminate, res.Verdict)
	assert.Equal(t, 0.38, res.CorrectionFactor)
	assert.True(t, res.Selected())
	assert.Contains(t, kinds(res.Diagnostics), circuit.ExtrapolationWarning)
	for _, d := range res.Diagnostics {
		if d.Kind == circuit.ExtrapolationWarning {
			assert.Equal(t, "grouping/enclosed", d.Table)
			assert.Equal(t, "24", d.Key)
		}
	}
}

func TestCalculate_Exhausted(t *testing.T) {
	in := radial()
	in.CableType = "twin-earth"
	in.InstallationMethod = "103"
	in.DesignCurrentA = 45
	in.Device.RatingA = 50
	res, err := Calculate(dataset(t), in)
	require.NoError(t, err)

	assert.Equal(t, circuit.Fail, res.Verdict)
	assert.False(t, res.Selected())
	require.Contains(t, kinds(res.Diagnostics), circuit.CapacityExhausted)
	d := res.Diagnostics[len(res.Diagnostics)-1]
	assert.Equal(t, "ratings/twin-earth/copper/pvc70", d.Table)
	assert.Equal(t, "16mm2", d.Key)
	assert.Contains(t, d.Message, "short by 7.5A")
}

func TestCalculate_DeviceBelowDesignCurrent(t *testing.T) {
	in := radial()
	in.DesignCurrentA = 36
	res, err := Calculate(dataset(t), in)
	require.NoError(t, err)

	assert.Equal(t, circuit.Fail, res.Verdict)
	assert.True(t, res.Selected())
	require.Contains(t, kinds(res.Diagnostics), circuit.LimitExceeded)
	for _, d := range res.Diagnostics {
		if d.Kind == circuit.LimitExceeded {
			assert.Equal(t, "protective_device", d.Table)
			assert.Equal(t, "mcb-b/32A", d.Key)
		}
	}
}

func TestCalculate_Gaps(t *testing.T) {
	tests := []struct {
		name  string
		mut   func(*circuit.Spec)
		table string
	}{
		{"unknown method", func(s *circuit.Spec) { s.InstallationMethod = "G" }, "installation_methods"},
		{"method not in table", func(s *circuit.Spec) { s.CableType = "twin-earth" }, "ratings/twin-earth/copper/pvc70"},
		{"unknown cable", func(s *circuit.Spec) { s.CableType = "micc" }, "cable_ratings"},
		{"unknown insulation", func(s *circuit.Spec) { s.Insulation = "epr" }, "ambient"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := radial()
			tt.mut(&in)
			res, err := Calculate(dataset(t), in)
			require.NoError(t, err)
			assert.Equal(t, circuit.Indeterminate, res.Verdict)
			assert.False(t, res.Selected())
			require.NotEmpty(t, res.Diagnostics)
			last := res.Diagnostics[len(res.Diagnostics)-1]
			assert.Equal(t, circuit.TableGap, last.Kind)
			assert.Equal(t, tt.table, last.Table)
		})
	}
}

func TestCalculate_RejectsInvalidSpec(t *testing.T) {
	in := radial()
	in.DesignCurrentA = 0
	_, err := Calculate(dataset(t), in)
	assert.True(t, errors.Is(err, circuit.ErrInvalidSpec))
}
