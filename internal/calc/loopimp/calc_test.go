package loopimp

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

func TestCalculate_WithinLimit(t *testing.T) {
	res := evaluate(t, radial())

	assert.Equal(t, circuit.Pass, res.Verdict)
	assert.Equal(t, 4.61, res.R1MOhmPerM)
	assert.Equal(t, 4.61, res.R2MOhmPerM)
	assert.Equal(t, 1.2, res.Multiplier)
	assert.InDelta(t, 0.22128, res.R1R2Ohm, 1e-9)
	assert.InDelta(t, 0.57128, res.ZsOhm, 1e-9)
	assert.Equal(t, 1.37, res.MaxZsOhm)
	assert.InDelta(t, 1.096, res.MeasuredMaxZsOhm, 1e-9)
	assert.Empty(t, res.Diagnostics)
}

func TestCalculate_ZsAtMaximum(t *testing.T) {
	// R1+R2 over 20m of 4mm2 is 0.22128 ohm, so Ze 1.14872 puts Zs on 1.37.
	tests := []struct {
		name    string
		ze      float64
		verdict circuit.Verdict
	}{
		{"equal to maximum", 1.14872, circuit.Pass},
		{"just over maximum", 1.14873, circuit.Fail},
		{"just under maximum", 1.14871, circuit.Pass},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := radial()
			in.ZeOhm = circuit.Float(tt.ze)
			res := evaluate(t, in)

			assert.Equal(t, tt.verdict, res.Verdict)
			assert.Equal(t, 1.37, res.MaxZsOhm)
			if tt.name == "equal to maximum" {
				assert.Equal(t, 1.37, res.ZsOhm)
				assert.Empty(t, res.Diagnostics)
			}
		})
	}
}

func TestCalculate_ThermosettingMultiplier(t *testing.T) {
	in := radial()
	in.CableType = "multicore"
	in.Insulation = circuit.XLPE90
	in.InstallationMethod = "C"
	res := evaluate(t, in)

	assert.Equal(t, 1.04, res.Multiplier)
	assert.Equal(t, circuit.Pass, res.Verdict)
}

func TestCalculate_LongRunExceedsMaxZs(t *testing.T) {
	in := radial()
	in.LengthM = 100
	res := evaluate(t, in)

	assert.Equal(t, circuit.Fail, res.Verdict)
	assert.InDelta(t, 1.4564, res.ZsOhm, 1e-9)
	require.Len(t, res.Diagnostics, 1)
	d := res.Diagnostics[0]
	assert.Equal(t, circuit.LimitExceeded, d.Kind)
	assert.Equal(t, circuit.CheckLoopImpedance, d.Check)
	assert.Equal(t, "max_zs/mcb-b/0.4s", d.Table)
	assert.Equal(t, "32A", d.Key)
	assert.Contains(t, d.Message, "temperature multiplier 1.2")
	assert.Contains(t, d.Message, "maximum 1.37 ohm")
}

func TestCalculate_DeviceNotTabulated(t *testing.T) {
	in := radial()
	in.Device.RatingA = 45
	res := evaluate(t, in)

	assert.Equal(t, circuit.Indeterminate, res.Verdict)
	assert.Greater(t, res.ZsOhm, res.ZeOhm)
	assert.Zero(t, res.MaxZsOhm)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, circuit.TableGap, res.Diagnostics[0].Kind)
	assert.Equal(t, "max_zs/mcb-b/0.4s", res.Diagnostics[0].Table)
	assert.Equal(t, "45A", res.Diagnostics[0].Key)
}

func TestCalculate_UnknownDeviceType(t *testing.T) {
	in := radial()
	in.Device.Type = "bs3036"
	res := evaluate(t, in)

	assert.Equal(t, circuit.Indeterminate, res.Verdict)
	require.NotEmpty(t, res.Diagnostics)
	assert.Equal(t, "max_zs/bs3036/0.4s", res.Diagnostics[0].Table)
}

func TestCalculate_MissingResistance(t *testing.T) {
	ds, err := refdata.Default()
	require.NoError(t, err)
	sized := sizing.Result{SelectedSizeMM2: 3, CPCSizeMM2: 3}

	res, err := Calculate(ds, radial(), sized)
	require.NoError(t, err)
	assert.Equal(t, circuit.Indeterminate, res.Verdict)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, "conductor_resistance/copper", res.Diagnostics[0].Table)
	assert.Equal(t, "3mm2", res.Diagnostics[0].Key)
}

func TestCalculate_NoSizeSelected(t *testing.T) {
	ds, err := refdata.Default()
	require.NoError(t, err)

	res, err := Calculate(ds, radial(), sizing.Result{Table: "ratings/single-core/copper/pvc70"})
	require.NoError(t, err)
	assert.Equal(t, circuit.Indeterminate, res.Verdict)
	assert.Equal(t, 1.37, res.MaxZsOhm)
	assert.Zero(t, res.ZsOhm)
}

func TestCalculate_RejectsInvalidSpec(t *testing.T) {
	ds, err := refdata.Default()
	require.NoError(t, err)
	in := radial()
	in.ZeOhm = nil
	_, err = Calculate(ds, in, sizing.Result{})
	assert.True(t, errors.Is(err, circuit.ErrInvalidSpec))
}
