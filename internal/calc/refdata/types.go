// Package refdata is the reference data store: immutable, versioned wiring
// regulation tables loaded once and shared by every evaluation.
package refdata

import (
	"sort"

	"Circuitry/internal/calc/circuit"

	"github.com/Masterminds/semver/v3"
)

// Band is one row of a banded correction-factor table.
type Band struct {
	Key    float64 `json:"key"`
	Factor float64 `json:"factor"`
}

// BandedTable maps ascending numeric keys to factors in (0, 1].
type BandedTable struct {
	name    string
	neutral float64
	bands   []Band
}

func (t *BandedTable) Name() string     { return t.name }
func (t *BandedTable) Neutral() float64 { return t.neutral }
func (t *BandedTable) Len() int         { return len(t.bands) }
func (t *BandedTable) Band(i int) Band  { return t.bands[i] }

type Method struct {
	Key               string `yaml:"key" json:"key"`
	Description       string `yaml:"description" json:"description"`
	Grouping          string `yaml:"grouping" json:"grouping"`
	ThermalInsulation string `yaml:"thermal_insulation" json:"thermal_insulation,omitempty"`
}

// RatedSize is one conductor size as seen through a single installation
// method column of a rating table.
type RatedSize struct {
	SizeMM2    float64
	CPCMM2     float64
	RatingA    float64
	MVPerAM    float64
	MVPerAM3Ph float64
}

type ratingRow struct {
	size          float64
	cpc           float64
	mv            float64
	mv3           float64
	ratings       map[string]float64
	ratings3Phase map[string]float64
}

type RatingTable struct {
	name       string
	cableType  string
	material   circuit.Material
	insulation circuit.Insulation
	rows       []ratingRow
}

func (t *RatingTable) Name() string { return t.name }

// Column returns the sizes tabulated for method in ascending order. Sizes
// with no rating for the method are skipped.
func (t *RatingTable) Column(method string, phases int) []RatedSize {
	out := make([]RatedSize, 0, len(t.rows))
	for _, r := range t.rows {
		ratings := r.ratings
		if phases == 3 {
			ratings = r.ratings3Phase
		}
		v, ok := ratings[method]
		if !ok {
			continue
		}
		out = append(out, RatedSize{SizeMM2: r.size, CPCMM2: r.cpc, RatingA: v, MVPerAM: r.mv, MVPerAM3Ph: r.mv3})
	}
	return out
}

type zsKey struct {
	device string
	class  circuit.DisconnectionClass
}

// Dataset is one loaded version of a regulation's tables. It has no
// mutating methods; a new version is loaded and registered wholesale.
type Dataset struct {
	name         string
	version      *semver.Version
	jurisdiction string
	description  string
	measuredZs   float64

	methods     map[string]Method
	ambient     map[circuit.Insulation]*BandedTable
	grouping    map[string]*BandedTable
	thermal     map[string]*BandedTable
	ratings     map[string]*RatingTable
	resistance  map[circuit.Material]map[float64]float64
	multipliers map[circuit.Insulation]float64
	maxZs       map[zsKey]map[float64]float64
	vdLimits    map[string]float64
}

type Info struct {
	Name         string `json:"name"`
	Version      string `json:"version"`
	Jurisdiction string `json:"jurisdiction"`
	Description  string `json:"description"`
}

func (d *Dataset) Name() string             { return d.name }
func (d *Dataset) Version() string          { return d.version.String() }
func (d *Dataset) MeasuredZsRatio() float64 { return d.measuredZs }

func (d *Dataset) Info() Info {
	return Info{Name: d.name, Version: d.version.String(), Jurisdiction: d.jurisdiction, Description: d.description}
}

func (d *Dataset) Method(key string) (Method, bool) {
	m, ok := d.methods[key]
	return m, ok
}

// Methods lists the installation methods in key order.
func (d *Dataset) Methods() []Method {
	out := make([]Method, 0, len(d.methods))
	for _, m := range d.methods {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (d *Dataset) AmbientTable(ins circuit.Insulation) (*BandedTable, bool) {
	t, ok := d.ambient[ins]
	return t, ok
}

func (d *Dataset) GroupingTable(arrangement string) (*BandedTable, bool) {
	t, ok := d.grouping[arrangement]
	return t, ok
}

func (d *Dataset) ThermalInsulationTable(category string) (*BandedTable, bool) {
	t, ok := d.thermal[category]
	return t, ok
}

func (d *Dataset) RatingTable(cableType string, m circuit.Material, ins circuit.Insulation) (*RatingTable, bool) {
	t, ok := d.ratings[ratingTableName(cableType, m, ins)]
	return t, ok
}

// Resistance returns the conductor resistance at 20 C in milliohm per metre.
func (d *Dataset) Resistance(m circuit.Material, sizeMM2 float64) (float64, bool) {
	v, ok := d.resistance[m][sizeMM2]
	return v, ok
}

func (d *Dataset) TemperatureMultiplier(ins circuit.Insulation) (float64, bool) {
	v, ok := d.multipliers[ins]
	return v, ok
}

func (d *Dataset) MaxZs(device string, ratingA float64, class circuit.DisconnectionClass) (float64, bool) {
	v, ok := d.maxZs[zsKey{device: device, class: class}][ratingA]
	return v, ok
}

func (d *Dataset) VoltageDropLimit(class string) (float64, bool) {
	v, ok := d.vdLimits[class]
	return v, ok
}

func ratingTableName(cableType string, m circuit.Material, ins circuit.Insulation) string {
	return "ratings/" + cableType + "/" + string(m) + "/" + string(ins)
}
