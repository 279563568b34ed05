// Package circuit holds the value types shared by the compliance calculators:
// the circuit specification that comes in, and the verdicts and diagnostics
// that go out.
package circuit

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

type Material string

const (
	Copper    Material = "copper"
	Aluminium Material = "aluminium"
)

type Insulation string

const (
	PVC70  Insulation = "pvc70"
	XLPE90 Insulation = "xlpe90"
)

type DisconnectionClass string

const (
	Disconnect04s DisconnectionClass = "0.4s"
	Disconnect5s  DisconnectionClass = "5s"
)

type Device struct {
	Type    string  `json:"type"`
	RatingA float64 `json:"rating_a"`
}

// Spec is one circuit's design parameters. It is passed by value and never
// modified by the calculators.
type Spec struct {
	Reference           string             `json:"reference"`
	DesignCurrentA      float64            `json:"design_current_a"`
	NominalVoltageV     float64            `json:"nominal_voltage_v"`
	Phases              int                `json:"phases"`
	Device              Device             `json:"device"`
	DisconnectionTime   DisconnectionClass `json:"disconnection_time"`
	Material            Material           `json:"material"`
	Insulation          Insulation         `json:"insulation"`
	CableType           string             `json:"cable_type"`
	InstallationMethod  string             `json:"installation_method"`
	GroupedCircuits     int                `json:"grouped_circuits"`
	AmbientTempC        *float64           `json:"ambient_temp_c"`
	ThermalInsulationMM float64            `json:"thermal_insulation_mm"`
	LengthM             float64            `json:"length_m"`
	ZeOhm               *float64           `json:"ze_ohm"`
	CircuitClass        string             `json:"circuit_class"`
	VoltageDropLimitPct float64            `json:"voltage_drop_limit_pct,omitempty"`
}

// ErrInvalidSpec is wrapped by every ValidationError.
var ErrInvalidSpec = errors.New("invalid circuit spec")

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return fmt.Sprintf("%v: %s", ErrInvalidSpec, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidSpec }

// Validate checks the invariants a spec must hold before any table is
// consulted. Values outside tabulated ranges are not errors here.
func (s Spec) Validate() error {
	var errs []FieldError
	add := func(field, msg string) {
		errs = append(errs, FieldError{Field: field, Message: msg})
	}
	finite := func(field string, v float64) bool {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			add(field, "must be a finite number")
			return false
		}
		return true
	}

	if finite("design_current_a", s.DesignCurrentA) && s.DesignCurrentA <= 0 {
		add("design_current_a", "must be greater than zero")
	}
	if finite("nominal_voltage_v", s.NominalVoltageV) && s.NominalVoltageV <= 0 {
		add("nominal_voltage_v", "must be greater than zero")
	}
	if s.Phases != 1 && s.Phases != 3 {
		add("phases", "must be 1 or 3")
	}
	if strings.TrimSpace(s.Device.Type) == "" {
		add("device.type", "is required")
	}
	if finite("device.rating_a", s.Device.RatingA) && s.Device.RatingA <= 0 {
		add("device.rating_a", "must be greater than zero")
	}
	if s.DisconnectionTime == "" {
		add("disconnection_time", "is required")
	}
	if s.Material == "" {
		add("material", "is required")
	}
	if s.Insulation == "" {
		add("insulation", "is required")
	}
	if strings.TrimSpace(s.CableType) == "" {
		add("cable_type", "is required")
	}
	if strings.TrimSpace(s.InstallationMethod) == "" {
		add("installation_method", "is required")
	}
	if s.GroupedCircuits < 1 {
		add("grouped_circuits", "must be at least 1")
	}
	if s.AmbientTempC == nil {
		add("ambient_temp_c", "is required")
	} else if finite("ambient_temp_c", *s.AmbientTempC) && *s.AmbientTempC < 0 {
		add("ambient_temp_c", "must not be negative")
	}
	if finite("thermal_insulation_mm", s.ThermalInsulationMM) && s.ThermalInsulationMM < 0 {
		add("thermal_insulation_mm", "must not be negative")
	}
	if finite("length_m", s.LengthM) && s.LengthM < 0 {
		add("length_m", "must not be negative")
	}
	if s.ZeOhm == nil {
		add("ze_ohm", "is required")
	} else if finite("ze_ohm", *s.ZeOhm) && *s.ZeOhm < 0 {
		add("ze_ohm", "must not be negative")
	}
	if finite("voltage_drop_limit_pct", s.VoltageDropLimitPct) && s.VoltageDropLimitPct < 0 {
		add("voltage_drop_limit_pct", "must not be negative")
	}
	if strings.TrimSpace(s.CircuitClass) == "" && s.VoltageDropLimitPct <= 0 {
		add("circuit_class", "is required unless voltage_drop_limit_pct is set")
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// Float returns a pointer to v, for the nullable spec fields.
func Float(v float64) *float64 { return &v }
