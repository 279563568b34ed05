package circuit

type Verdict string

const (
	Pass          Verdict = "PASS"
	Fail          Verdict = "FAIL"
	Indeterminate Verdict = "INDETERMINATE"
)

// Combine folds check verdicts into one: PASS only when every check passed,
// FAIL when any check failed, otherwise INDETERMINATE.
func Combine(verdicts ...Verdict) Verdict {
	if len(verdicts) == 0 {
		return Indeterminate
	}
	out := Pass
	for _, v := range verdicts {
		switch v {
		case Fail:
			return Fail
		case Pass:
		default:
			out = Indeterminate
		}
	}
	return out
}

type Check string

const (
	CheckSpec          Check = "spec"
	CheckCapacity      Check = "capacity"
	CheckVoltageDrop   Check = "voltage_drop"
	CheckLoopImpedance Check = "loop_impedance"
)

type DiagnosticKind string

const (
	InvalidSpec          DiagnosticKind = "invalid_spec"
	TableGap             DiagnosticKind = "table_gap"
	CapacityExhausted    DiagnosticKind = "capacity_exhausted"
	ExtrapolationWarning DiagnosticKind = "extrapolation_warning"
	LimitExceeded        DiagnosticKind = "limit_exceeded"
	NotApplicable        DiagnosticKind = "not_applicable"
)

// Diagnostic is one human readable finding. Table and Key name the reference
// data that produced it, when there is one.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	Check   Check          `json:"check"`
	Table   string         `json:"table,omitempty"`
	Key     string         `json:"key,omitempty"`
	Message string         `json:"message"`
}
