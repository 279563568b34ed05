package voltdrop

import (
	"errors"
	"testing"

	"Circuitry/internal/calc/circuit"
	"Circuitry/internal/calc/refdata"
	"Circuitry/internal/calc/sizing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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

func evaluate(t *testing.T, in circuit.Spec) Result {
	t.Helper()
	ds, err := refdata.Default()
	require.NoError(t, err)
	sized, err := sizing.Calculate(ds, in)
	require.NoError(t, err)
	res, err := Calculate(ds, in, sized)
	require.NoError(t, err)
	return res
}

func TestCalculate_WithinClassLimit(t *testing.T) {
	res := evaluate(t, radial())

	assert.Equal(t, circuit.Pass, res.Verdict)
	assert.Equal(t, 11.0, res.MVPerAM)
	assert.InDelta(t, 6.16, res.DropV, 1e-9)
	assert.InDelta(t, 2.678, res.DropPct, 1e-3)
	assert.Equal(t, 5.0, res.LimitPct)
	assert.Equal(t, "voltage_drop_limits/power", res.LimitFrom)
	assert.Empty(t, res.Diagnostics)
}

func TestCalculate_OverrideLimit(t *testing.T) {
	in := radial()
	in.VoltageDropLimitPct = 2
	res := evaluate(t, in)

	assert.Equal(t, circuit.Fail, res.Verdict)
	assert.Equal(t, 2.0, res.LimitPct)
	assert.Equal(t, "circuit", res.LimitFrom)
	require.Len(t, res.Diagnostics, 1)
	d := res.Diagnostics[0]
	assert.Equal(t, circuit.LimitExceeded, d.Kind)
	assert.Equal(t, circuit.CheckVoltageDrop, d.Check)
	assert.Contains(t, d.Message, "2.68%")
	assert.Contains(t, d.Message, "permitted 2%")
}

func TestCalculate_DropAtLimit(t *testing.T) {
	// 11 mV/A/m x 5A x 69m = 3.795V, exactly 1.65% of 230V.
	tests := []struct {
		name    string
		length  float64
		limit   float64
		verdict circuit.Verdict
	}{
		{"equal to limit", 69, 1.65, circuit.Pass},
		{"just over the run", 69.01, 1.65, circuit.Fail},
		{"just under the limit", 69, 1.6499, circuit.Fail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := radial()
			in.DesignCurrentA = 5
			in.LengthM = tt.length
			in.VoltageDropLimitPct = tt.limit
			res := evaluate(t, in)

			assert.Equal(t, 11.0, res.MVPerAM)
			assert.Equal(t, tt.verdict, res.Verdict)
			if tt.verdict == circuit.Pass {
				assert.Equal(t, 3.795, res.DropV)
				assert.Equal(t, 1.65, res.DropPct)
				assert.Empty(t, res.Diagnostics)
			}
		})
	}
}

func TestCalculate_LongRunFails(t *testing.T) {
	in := radial()
	in.LengthM = 45
	in.CircuitClass = "lighting"
	res := evaluate(t, in)

	assert.Equal(t, circuit.Fail, res.Verdict)
	assert.Equal(t, 3.0, res.LimitPct)
	assert.Greater(t, res.DropPct, res.LimitPct)
}

func TestCalculate_ThreePhaseColumn(t *testing.T) {
	in := radial()
	in.Phases = 3
	in.NominalVoltageV = 400
	res := evaluate(t, in)

	assert.Equal(t, circuit.Pass, res.Verdict)
	assert.Equal(t, 6.4, res.MVPerAM)
	assert.InDelta(t, 3.584, res.DropV, 1e-9)
	assert.InDelta(t, 0.896, res.DropPct, 1e-9)
}

func TestCalculate_MissingThreePhaseDrop(t *testing.T) {
	ds, err := refdata.Default()
	require.NoError(t, err)
	in := radial()
	in.Phases = 3
	sized := sizing.Result{Table: "ratings/x", SelectedSizeMM2: 4, MVPerAM: 11}

	res, err := Calculate(ds, in, sized)
	require.NoError(t, err)
	assert.Equal(t, circuit.Indeterminate, res.Verdict)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, circuit.TableGap, res.Diagnostics[0].Kind)
	assert.Equal(t, "4mm2", res.Diagnostics[0].Key)
}

func TestCalculate_UnknownClass(t *testing.T) {
	in := radial()
	in.CircuitClass = "traction"
	res := evaluate(t, in)

	assert.Equal(t, circuit.Indeterminate, res.Verdict)
	assert.InDelta(t, 6.16, res.DropV, 1e-9)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, "voltage_drop_limits", res.Diagnostics[0].Table)
	assert.Equal(t, "traction", res.Diagnostics[0].Key)
}

func TestCalculate_NoSizeSelected(t *testing.T) {
	in := radial()
	in.InstallationMethod = "G"
	res := evaluate(t, in)

	assert.Equal(t, circuit.Indeterminate, res.Verdict)
	assert.Zero(t, res.DropV)
	require.NotEmpty(t, res.Diagnostics)
	assert.Equal(t, circuit.TableGap, res.Diagnostics[0].Kind)
}

func TestCalculate_RejectsInvalidSpec(t *testing.T) {
	ds, err := refdata.Default()
	require.NoError(t, err)
	in := radial()
	in.LengthM = -3
	_, err = Calculate(ds, in, sizing.Result{})
	assert.True(t, errors.Is(err, circuit.ErrInvalidSpec))
}
