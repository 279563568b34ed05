package refdata

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"Circuitry/internal/calc/circuit"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

//go:embed bs7671.yaml
var bs7671YAML []byte

type fileBand struct {
	Key    float64 `yaml:"key"`
	Factor float64 `yaml:"factor"`
}

type fileBanded struct {
	Category string     `yaml:"category"`
	Neutral  float64    `yaml:"neutral"`
	Bands    []fileBand `yaml:"bands"`
}

type fileRatingRow struct {
	Size          float64            `yaml:"size"`
	CPC           float64            `yaml:"cpc"`
	MVPerAM       float64            `yaml:"mv_am"`
	MVPerAM3Ph    float64            `yaml:"mv_am_3ph"`
	Ratings       map[string]float64 `yaml:"ratings"`
	Ratings3Phase map[string]float64 `yaml:"ratings_3ph"`
}

type fileRatingTable struct {
	CableType  string             `yaml:"cable_type"`
	Material   circuit.Material   `yaml:"material"`
	Insulation circuit.Insulation `yaml:"insulation"`
	Rows       []fileRatingRow    `yaml:"rows"`
}

type fileResistance struct {
	Material circuit.Material `yaml:"material"`
	Rows     []struct {
		Size     float64 `yaml:"size"`
		MOhmPerM float64 `yaml:"mohm_per_m"`
	} `yaml:"rows"`
}

type fileMaxZs struct {
	Device            string                     `yaml:"device"`
	DisconnectionTime circuit.DisconnectionClass `yaml:"disconnection_time"`
	Rows              []struct {
		RatingA float64 `yaml:"rating_a"`
		ZsOhm   float64 `yaml:"zs_ohm"`
	} `yaml:"rows"`
}

type fileDataset struct {
	Name                string   `yaml:"name"`
	Version             string   `yaml:"version"`
	Jurisdiction        string   `yaml:"jurisdiction"`
	Description         string   `yaml:"description"`
	MeasuredZsRatio     float64  `yaml:"measured_zs_ratio"`
	InstallationMethods []Method `yaml:"installation_methods"`

	Ambient           []fileBanded `yaml:"ambient"`
	Grouping          []fileBanded `yaml:"grouping"`
	ThermalInsulation []fileBanded `yaml:"thermal_insulation"`

	CableRatings        []fileRatingTable `yaml:"cable_ratings"`
	ConductorResistance []fileResistance  `yaml:"conductor_resistance"`

	TemperatureMultipliers []struct {
		Insulation circuit.Insulation `yaml:"insulation"`
		Multiplier float64            `yaml:"multiplier"`
	} `yaml:"temperature_multipliers"`

	MaxZs []fileMaxZs `yaml:"max_zs"`

	VoltageDropLimits []struct {
		Class   string  `yaml:"class"`
		Percent float64 `yaml:"percent"`
	} `yaml:"voltage_drop_limits"`
}

var defaultDataset = sync.OnceValues(func() (*Dataset, error) {
	return Load(bytes.NewReader(bs7671YAML))
})

// Default returns the embedded BS 7671 dataset.
func Default() (*Dataset, error) {
	return defaultDataset()
}

func LoadFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset %s: %w", path, err)
	}
	defer f.Close()
	ds, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return ds, nil
}

// LoadDir loads every *.yaml / *.yml file in dir. Any malformed file fails
// the whole load.
func LoadDir(dir string) ([]*Dataset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dataset dir: %w", err)
	}
	var out []*Dataset
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		ds, err := LoadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, ds)
	}
	return out, nil
}

// Load parses and validates a dataset. It never returns a partially built
// dataset.
func Load(r io.Reader) (*Dataset, error) {
	var f fileDataset
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrMalformed, err)
	}
	return build(f)
}

func build(f fileDataset) (*Dataset, error) {
	v := &validator{}

	if strings.TrimSpace(f.Name) == "" {
		v.fail("name is required")
	}
	version, err := semver.NewVersion(f.Version)
	if err != nil {
		v.fail("version %q is not a semantic version", f.Version)
	}
	if f.MeasuredZsRatio <= 0 || f.MeasuredZsRatio > 1 {
		v.fail("measured_zs_ratio must be in (0, 1], got %g", f.MeasuredZsRatio)
	}

	ds := &Dataset{
		name:         f.Name,
		version:      version,
		jurisdiction: f.Jurisdiction,
		description:  f.Description,
		measuredZs:   f.MeasuredZsRatio,
		methods:      map[string]Method{},
		ambient:      map[circuit.Insulation]*BandedTable{},
		grouping:     map[string]*BandedTable{},
		thermal:      map[string]*BandedTable{},
		ratings:      map[string]*RatingTable{},
		resistance:   map[circuit.Material]map[float64]float64{},
		multipliers:  map[circuit.Insulation]float64{},
		maxZs:        map[zsKey]map[float64]float64{},
		vdLimits:     map[string]float64{},
	}

	for _, t := range f.Ambient {
		if bt := v.banded("ambient", t); bt != nil {
			ds.ambient[circuit.Insulation(t.Category)] = bt
		}
	}
	for _, t := range f.Grouping {
		if bt := v.banded("grouping", t); bt != nil {
			ds.grouping[t.Category] = bt
		}
	}
	for _, t := range f.ThermalInsulation {
		if bt := v.banded("thermal_insulation", t); bt != nil {
			ds.thermal[t.Category] = bt
		}
	}
	v.require(len(ds.ambient) > 0, "ambient tables are required")
	v.require(len(ds.grouping) > 0, "grouping tables are required")

	for _, m := range f.InstallationMethods {
		if m.Key == "" {
			v.fail("installation method without key")
			continue
		}
		if _, dup := ds.methods[m.Key]; dup {
			v.fail("installation method %q declared twice", m.Key)
		}
		if _, ok := ds.grouping[m.Grouping]; !ok {
			v.fail("installation method %q names unknown grouping table %q", m.Key, m.Grouping)
		}
		if m.ThermalInsulation != "" {
			if _, ok := ds.thermal[m.ThermalInsulation]; !ok {
				v.fail("installation method %q names unknown thermal insulation table %q", m.Key, m.ThermalInsulation)
			}
		}
		ds.methods[m.Key] = m
	}
	v.require(len(ds.methods) > 0, "installation_methods are required")

	for _, r := range f.ConductorResistance {
		rows := map[float64]float64{}
		for _, row := range r.Rows {
			if row.Size <= 0 || row.MOhmPerM <= 0 {
				v.fail("conductor_resistance/%s: size %g has non-positive value", r.Material, row.Size)
				continue
			}
			rows[row.Size] = row.MOhmPerM
		}
		ds.resistance[r.Material] = rows
	}

	for _, t := range f.CableRatings {
		if rt := v.ratingTable(t, ds); rt != nil {
			if _, dup := ds.ratings[rt.name]; dup {
				v.fail("%s declared twice", rt.name)
			}
			ds.ratings[rt.name] = rt
		}
	}
	v.require(len(ds.ratings) > 0, "cable_ratings are required")

	for _, m := range f.TemperatureMultipliers {
		if m.Multiplier < 1 {
			v.fail("temperature multiplier for %s must be at least 1, got %g", m.Insulation, m.Multiplier)
		}
		ds.multipliers[m.Insulation] = m.Multiplier
	}
	for _, t := range ds.ratings {
		if _, ok := ds.multipliers[t.insulation]; !ok {
			v.fail("%s has no temperature multiplier for %s", t.name, t.insulation)
		}
	}

	for _, z := range f.MaxZs {
		key := zsKey{device: z.Device, class: z.DisconnectionTime}
		if z.Device == "" || z.DisconnectionTime == "" {
			v.fail("max_zs entry needs device and disconnection_time")
			continue
		}
		if _, dup := ds.maxZs[key]; dup {
			v.fail("max_zs/%s/%s declared twice", z.Device, z.DisconnectionTime)
		}
		rows := map[float64]float64{}
		for _, row := range z.Rows {
			if row.RatingA <= 0 || row.ZsOhm <= 0 {
				v.fail("max_zs/%s/%s: rating %g has non-positive value", z.Device, z.DisconnectionTime, row.RatingA)
				continue
			}
			rows[row.RatingA] = row.ZsOhm
		}
		ds.maxZs[key] = rows
	}
	v.require(len(ds.maxZs) > 0, "max_zs tables are required")

	for _, l := range f.VoltageDropLimits {
		if l.Class == "" || l.Percent <= 0 {
			v.fail("voltage_drop_limits entry %q needs a positive percent", l.Class)
			continue
		}
		ds.vdLimits[l.Class] = l.Percent
	}

	if err := v.err(); err != nil {
		return nil, err
	}
	return ds, nil
}

type validator struct {
	problems []string
}

func (v *validator) fail(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) require(ok bool, msg string) {
	if !ok {
		v.fail("%s", msg)
	}
}

func (v *validator) err() error {
	if len(v.problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrMalformed, strings.Join(v.problems, "; "))
}

func (v *validator) banded(kind string, t fileBanded) *BandedTable {
	name := kind + "/" + t.Category
	if t.Category == "" {
		v.fail("%s table without category", kind)
		return nil
	}
	if len(t.Bands) == 0 {
		v.fail("%s has no bands", name)
		return nil
	}
	neutral := t.Neutral
	if neutral == 0 {
		neutral = 1
	}
	if neutral <= 0 || neutral > 1 {
		v.fail("%s neutral value %g outside (0, 1]", name, neutral)
	}
	bands := make([]Band, 0, len(t.Bands))
	for i, b := range t.Bands {
		if b.Factor <= 0 || b.Factor > 1 {
			v.fail("%s key %g factor %g outside (0, 1]", name, b.Key, b.Factor)
		}
		if i > 0 && b.Key <= t.Bands[i-1].Key {
			v.fail("%s keys not strictly ascending at %g", name, b.Key)
		}
		bands = append(bands, Band{Key: b.Key, Factor: b.Factor})
	}
	return &BandedTable{name: name, neutral: neutral, bands: bands}
}

func (v *validator) ratingTable(t fileRatingTable, ds *Dataset) *RatingTable {
	name := ratingTableName(t.CableType, t.Material, t.Insulation)
	if t.CableType == "" || t.Material == "" || t.Insulation == "" {
		v.fail("rating table needs cable_type, material and insulation")
		return nil
	}
	if len(t.Rows) == 0 {
		v.fail("%s has no rows", name)
		return nil
	}
	res, ok := ds.resistance[t.Material]
	if !ok {
		v.fail("%s: no conductor_resistance for %s", name, t.Material)
	}

	rt := &RatingTable{name: name, cableType: t.CableType, material: t.Material, insulation: t.Insulation}
	last := map[string]float64{}
	last3 := map[string]float64{}
	for i, r := range t.Rows {
		if i > 0 && r.Size <= t.Rows[i-1].Size {
			v.fail("%s sizes not strictly ascending at %g", name, r.Size)
		}
		if r.Size <= 0 || r.CPC <= 0 || r.MVPerAM <= 0 || r.MVPerAM3Ph < 0 {
			v.fail("%s size %g has non-positive size, cpc or mV/A/m", name, r.Size)
		}
		if len(r.Ratings) == 0 {
			v.fail("%s size %g has no ratings", name, r.Size)
		}
		if ok {
			if _, found := res[r.Size]; !found {
				v.fail("%s size %g has no conductor resistance", name, r.Size)
			}
			if _, found := res[r.CPC]; !found {
				v.fail("%s cpc %g has no conductor resistance", name, r.CPC)
			}
		}
		v.column(name, r.Size, r.Ratings, last, ds)
		v.column(name+"/3ph", r.Size, r.Ratings3Phase, last3, ds)
		rt.rows = append(rt.rows, ratingRow{
			size:          r.Size,
			cpc:           r.CPC,
			mv:            r.MVPerAM,
			mv3:           r.MVPerAM3Ph,
			ratings:       r.Ratings,
			ratings3Phase: r.Ratings3Phase,
		})
	}
	return rt
}

// column checks one size's per-method ratings and that each method's rating
// never decreases as the size grows.
func (v *validator) column(name string, size float64, ratings, last map[string]float64, ds *Dataset) {
	methods := make([]string, 0, len(ratings))
	for m := range ratings {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	for _, m := range methods {
		rating := ratings[m]
		if _, known := ds.methods[m]; !known {
			v.fail("%s size %g rates unknown method %q", name, size, m)
		}
		if rating <= 0 {
			v.fail("%s size %g method %s rating must be positive", name, size, m)
		}
		if prev, seen := last[m]; seen && rating < prev {
			v.fail("%s method %s rating decreases at size %g", name, m, size)
		}
		last[m] = rating
	}
}
