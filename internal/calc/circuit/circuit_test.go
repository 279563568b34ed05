package circuit

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSpec() Spec {
	return Spec{
		Reference:          "C1",
		DesignCurrentA:     28,
		NominalVoltageV:    230,
		Phases:             1,
		Device:             Device{Type: "mcb-b", RatingA: 32},
		DisconnectionTime:  Disconnect04s,
		Material:           Copper,
		Insulation:         PVC70,
		CableType:          "single-core",
		InstallationMethod: "B",
		GroupedCircuits:    1,
		AmbientTempC:       Float(30),
		LengthM:            20,
		ZeOhm:              Float(0.35),
		CircuitClass:       "power",
	}
}

func TestValidate_OK(t *testing.T) {
	require.NoError(t, validSpec().Validate())
}

func TestValidate_RejectsNamedInvariants(t *testing.T) {
	tests := []struct {
		name  string
		mut   func(*Spec)
		field string
	}{
		{"zero design current", func(s *Spec) { s.DesignCurrentA = 0 }, "design_current_a"},
		{"negative design current", func(s *Spec) { s.DesignCurrentA = -4 }, "design_current_a"},
		{"negative length", func(s *Spec) { s.LengthM = -1 }, "length_m"},
		{"no grouping", func(s *Spec) { s.GroupedCircuits = 0 }, "grouped_circuits"},
		{"missing ambient", func(s *Spec) { s.AmbientTempC = nil }, "ambient_temp_c"},
		{"negative ambient", func(s *Spec) { s.AmbientTempC = Float(-5) }, "ambient_temp_c"},
		{"missing ze", func(s *Spec) { s.ZeOhm = nil }, "ze_ohm"},
		{"nan length", func(s *Spec) { s.LengthM = math.NaN() }, "length_m"},
		{"bad phases", func(s *Spec) { s.Phases = 2 }, "phases"},
		{"missing method", func(s *Spec) { s.InstallationMethod = " " }, "installation_method"},
		{"no class or limit", func(s *Spec) { s.CircuitClass = "" }, "circuit_class"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSpec()
			tt.mut(&s)
			err := s.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidSpec))

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			fields := make([]string, 0, len(verr.Fields))
			for _, f := range verr.Fields {
				fields = append(fields, f.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestValidate_LimitOverrideReplacesClass(t *testing.T) {
	s := validSpec()
	s.CircuitClass = ""
	s.VoltageDropLimitPct = 4
	assert.NoError(t, s.Validate())
}

func TestCombine(t *testing.T) {
	assert.Equal(t, Pass, Combine(Pass, Pass, Pass))
	assert.Equal(t, Fail, Combine(Pass, Indeterminate, Fail))
	assert.Equal(t, Indeterminate, Combine(Pass, Indeterminate, Pass))
	assert.Equal(t, Indeterminate, Combine())
}

func TestDecIsExactAtTableBoundaries(t *testing.T) {
	assert.NotEqual(t, 16.8, 24*0.7)
	assert.True(t, Dec(24).Mul(Dec(0.7)).Equal(Dec(16.8)))
	assert.True(t, Dec(151).Mul(Dec(0.7)).Equal(Dec(105.7)))
	assert.Equal(t, "3.795", Dec(11).Mul(Dec(5)).Mul(Dec(69)).Shift(-3).String())
}

func TestNum(t *testing.T) {
	assert.Equal(t, "25.65", Num(25.650000000000002))
	assert.Equal(t, "32", Num(32))
	assert.Equal(t, "0.751", Num(0.75104))
	assert.Equal(t, "2.68", Fixed(2.678, 2))
	assert.Equal(t, "5.00", Fixed(5, 2))
}
