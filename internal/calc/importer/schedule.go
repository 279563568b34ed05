// Package importer reads circuit schedules from xlsx workbooks.
package importer

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"Circuitry/internal/calc/circuit"

	"github.com/xuri/excelize/v2"
)

var ErrEmptySchedule = errors.New("schedule has no circuit rows")

// Columns is the schedule header row. Matching is case-insensitive and
// column order is free; reference, design_current_a and device_rating_a are
// required.
var Columns = []string{
	"reference",
	"design_current_a",
	"nominal_voltage_v",
	"phases",
	"device_type",
	"device_rating_a",
	"disconnection_time",
	"material",
	"insulation",
	"cable_type",
	"installation_method",
	"grouped_circuits",
	"ambient_temp_c",
	"thermal_insulation_mm",
	"length_m",
	"ze_ohm",
	"circuit_class",
	"voltage_drop_limit_pct",
}

var required = []string{"reference", "design_current_a", "device_rating_a"}

// ReadSchedule parses the first sheet of an xlsx workbook.
func ReadSchedule(r io.Reader) ([]circuit.Spec, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("read sheet: %w", err)
	}
	return ParseRows(rows)
}

// ParseRows maps a header row and data rows to specs. Blank rows are
// skipped. Cells that do not parse become NaN or zero, which spec
// validation reports against the circuit rather than failing the import.
func ParseRows(rows [][]string) ([]circuit.Spec, error) {
	if len(rows) < 2 {
		return nil, ErrEmptySchedule
	}
	idx := map[string]int{}
	for i, h := range rows[0] {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range required {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("schedule header is missing column %q", col)
		}
	}

	var specs []circuit.Spec
	for n, row := range rows[1:] {
		if blank(row) {
			continue
		}
		c := cells{idx: idx, row: row}
		spec := circuit.Spec{
			Reference:           c.str("reference"),
			DesignCurrentA:      c.num("design_current_a"),
			NominalVoltageV:     c.numOr("nominal_voltage_v", 230),
			Phases:              c.intOr("phases", 1),
			Device:              circuit.Device{Type: c.str("device_type"), RatingA: c.num("device_rating_a")},
			DisconnectionTime:   circuit.DisconnectionClass(c.strOr("disconnection_time", string(circuit.Disconnect04s))),
			Material:            circuit.Material(strings.ToLower(c.strOr("material", string(circuit.Copper)))),
			Insulation:          circuit.Insulation(strings.ToLower(c.str("insulation"))),
			CableType:           strings.ToLower(c.str("cable_type")),
			InstallationMethod:  strings.ToUpper(c.str("installation_method")),
			GroupedCircuits:     c.intOr("grouped_circuits", 1),
			AmbientTempC:        c.optional("ambient_temp_c"),
			ThermalInsulationMM: c.numOr("thermal_insulation_mm", 0),
			LengthM:             c.num("length_m"),
			ZeOhm:               c.optional("ze_ohm"),
			CircuitClass:        strings.ToLower(c.str("circuit_class")),
			VoltageDropLimitPct: c.numOr("voltage_drop_limit_pct", 0),
		}
		if spec.Reference == "" {
			spec.Reference = "row " + strconv.Itoa(n+2)
		}
		specs = append(specs, spec)
	}
	if len(specs) == 0 {
		return nil, ErrEmptySchedule
	}
	return specs, nil
}

type cells struct {
	idx map[string]int
	row []string
}

func (c cells) str(col string) string {
	i, ok := c.idx[col]
	if !ok || i >= len(c.row) {
		return ""
	}
	return strings.TrimSpace(c.row[i])
}

func (c cells) strOr(col, def string) string {
	if v := c.str(col); v != "" {
		return v
	}
	return def
}

func (c cells) num(col string) float64 {
	v, err := strconv.ParseFloat(strings.ReplaceAll(c.str(col), ",", "."), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func (c cells) numOr(col string, def float64) float64 {
	if c.str(col) == "" {
		return def
	}
	return c.num(col)
}

func (c cells) intOr(col string, def int) int {
	s := c.str(col)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}

// optional returns nil for an empty cell so that a missing value stays
// missing.
func (c cells) optional(col string) *float64 {
	if c.str(col) == "" {
		return nil
	}
	return circuit.Float(c.num(col))
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Template writes a schedule workbook holding the header row and one
// example circuit.
func Template(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	header := make([]any, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	example := []any{"C1", 28, 230, 1, "mcb-b", 32, "0.4s", "copper", "pvc70", "single-core", "B", 1, 30, 0, 20, 0.35, "power", ""}
	if err := f.SetSheetRow(sheet, "A2", &example); err != nil {
		return err
	}
	return f.Write(w)
}
