// Package compliance runs the capacity, voltage drop and earth-fault loop
// checks for a circuit in order and merges them into one verdict.
package compliance

import (
	"errors"
	"fmt"

	"Circuitry/internal/calc/circuit"
	"Circuitry/internal/calc/loopimp"
	"Circuitry/internal/calc/refdata"
	"Circuitry/internal/calc/sizing"
	"Circuitry/internal/calc/voltdrop"
)

type Stage string

const (
	StagePending       Stage = "pending"
	StageSizing        Stage = "sizing"
	StageVoltageDrop   Stage = "voltage_drop"
	StageLoopImpedance Stage = "loop_impedance"
	StageResolved      Stage = "resolved"
)

// Result is the full record of one evaluation. It carries no timestamps or
// generated IDs, so evaluating the same spec against the same dataset
// version always yields an identical value.
type Result struct {
	Reference      string               `json:"reference"`
	Dataset        string               `json:"dataset"`
	DatasetVersion string               `json:"dataset_version"`
	Stage          Stage                `json:"stage"`
	Capacity       sizing.Result        `json:"capacity"`
	VoltageDrop    voltdrop.Result      `json:"voltage_drop"`
	LoopImpedance  loopimp.Result       `json:"loop_impedance"`
	Overall        circuit.Verdict      `json:"overall"`
	Diagnostics    []circuit.Diagnostic `json:"diagnostics"`
}

type evaluation struct {
	ds   *refdata.Dataset
	spec circuit.Spec
	res  Result
}

// Evaluate runs every check for one circuit. Invalid specs are not
// evaluated: every check resolves INDETERMINATE with a diagnostic per
// offending field.
func Evaluate(ds *refdata.Dataset, spec circuit.Spec) Result {
	e := &evaluation{
		ds:   ds,
		spec: spec,
		res: Result{
			Reference:      spec.Reference,
			Dataset:        ds.Name(),
			DatasetVersion: ds.Version(),
			Stage:          StagePending,
			Diagnostics:    []circuit.Diagnostic{},
		},
	}
	if err := spec.Validate(); err != nil {
		e.reject(err)
		e.advance(StagePending, StageResolved)
		return e.res
	}

	e.advance(StagePending, StageSizing)
	e.sizing()
	e.advance(StageSizing, StageVoltageDrop)
	e.voltageDrop()
	e.advance(StageVoltageDrop, StageLoopImpedance)
	e.loopImpedance()
	e.advance(StageLoopImpedance, StageResolved)

	e.res.Overall = circuit.Combine(e.res.Capacity.Verdict, e.res.VoltageDrop.Verdict, e.res.LoopImpedance.Verdict)
	return e.res
}

// advance moves the evaluation between stages; stages cannot be skipped or
// revisited.
func (e *evaluation) advance(from, to Stage) {
	if e.res.Stage != from {
		panic(fmt.Sprintf("compliance: stage %s entered from %s, want %s", to, e.res.Stage, from))
	}
	e.res.Stage = to
}

func (e *evaluation) sizing() {
	res, err := sizing.Calculate(e.ds, e.spec)
	if err != nil {
		res = sizing.Result{Verdict: circuit.Indeterminate}
		e.failed(circuit.CheckCapacity, err)
	}
	e.collect(&res.Diagnostics)
	e.res.Capacity = res
}

func (e *evaluation) voltageDrop() {
	res, err := voltdrop.Calculate(e.ds, e.spec, e.res.Capacity)
	if err != nil {
		res = voltdrop.Result{Verdict: circuit.Indeterminate}
		e.failed(circuit.CheckVoltageDrop, err)
	}
	e.collect(&res.Diagnostics)
	e.res.VoltageDrop = res
}

func (e *evaluation) loopImpedance() {
	res, err := loopimp.Calculate(e.ds, e.spec, e.res.Capacity)
	if err != nil {
		res = loopimp.Result{Verdict: circuit.Indeterminate}
		e.failed(circuit.CheckLoopImpedance, err)
	}
	e.collect(&res.Diagnostics)
	e.res.LoopImpedance = res
}

// collect moves a check's diagnostics onto the result in stage order.
func (e *evaluation) collect(diags *[]circuit.Diagnostic) {
	e.res.Diagnostics = append(e.res.Diagnostics, *diags...)
	*diags = nil
}

func (e *evaluation) failed(check circuit.Check, err error) {
	e.res.Diagnostics = append(e.res.Diagnostics, circuit.Diagnostic{
		Kind:    circuit.InvalidSpec,
		Check:   check,
		Message: err.Error(),
	})
}

func (e *evaluation) reject(err error) {
	e.res.Capacity.Verdict = circuit.Indeterminate
	e.res.VoltageDrop.Verdict = circuit.Indeterminate
	e.res.LoopImpedance.Verdict = circuit.Indeterminate
	e.res.Overall = circuit.Indeterminate

	var verr *circuit.ValidationError
	if !errors.As(err, &verr) {
		e.failed(circuit.CheckSpec, err)
		return
	}
	for _, f := range verr.Fields {
		e.res.Diagnostics = append(e.res.Diagnostics, circuit.Diagnostic{
			Kind:    circuit.InvalidSpec,
			Check:   circuit.CheckSpec,
			Key:     f.Field,
			Message: f.Field + ": " + f.Message,
		})
	}
}
