package core

import "sort"

// PresetFields holds the simulation tuning values of an instructor preset.
// Use DefaultPresetFields to obtain a value with every field set to its default.
type PresetFields struct {
	GrowthRate              int64 `json:"growth_rate" db:"growth_rate"`
	MaxSize                 int64 `json:"max_size" db:"max_size"`
	SeedCastDistance        int64 `json:"seed_cast_distance" db:"seed_cast_distance"`
	SeedNumber              int64 `json:"seed_number" db:"seed_number"`
	SeedViability           int64 `json:"seed_viability" db:"seed_viability"`
	GrazerEnergyInput       int64 `json:"grazer_energy_input" db:"grazer_energy_input"`
	GrazerEnergyOutput      int64 `json:"grazer_energy_output" db:"grazer_energy_output"`
	GrazerEnergyReproduce   int64 `json:"grazer_energy_reproduce" db:"grazer_energy_reproduce"`
	GrazerMaintainSpeed     int64 `json:"grazer_maintain_speed" db:"grazer_maintain_speed"`
	GrazerMaxSpeed          int64 `json:"grazer_max_speed" db:"grazer_max_speed"`
	PredatorMaxSpeedStalk   int64 `json:"predator_max_speed_stalk" db:"predator_max_speed_stalk"`
	PredatorMaxSpeedChase   int64 `json:"predator_max_speed_chase" db:"predator_max_speed_chase"`
	PredatorMaxSpeedAmbush  int64 `json:"predator_max_speed_ambush" db:"predator_max_speed_ambush"`
	PredatorMaintainSpeed   int64 `json:"predator_maintain_speed" db:"predator_maintain_speed"`
	PredatorEnergyOutput    int64 `json:"predator_energy_output" db:"predator_energy_output"`
	PredatorEnergyReproduce int64 `json:"predator_energy_reproduce" db:"predator_energy_reproduce"`
	MaxOffspring            int64 `json:"max_offspring" db:"max_offspring"`
	Gestation               int64 `json:"gestation" db:"gestation"`
	OffspringEnergy         int64 `json:"offspring_energy" db:"offspring_energy"`
}

// PresetFieldNames lists the tuning field keys in storage column order.
var PresetFieldNames = []string{
	"growth_rate",
	"max_size",
	"seed_cast_distance",
	"seed_number",
	"seed_viability",
	"grazer_energy_input",
	"grazer_energy_output",
	"grazer_energy_reproduce",
	"grazer_maintain_speed",
	"grazer_max_speed",
	"predator_max_speed_stalk",
	"predator_max_speed_chase",
	"predator_max_speed_ambush",
	"predator_maintain_speed",
	"predator_energy_output",
	"predator_energy_reproduce",
	"max_offspring",
	"gestation",
	"offspring_energy",
}

// DefaultPresetFields returns fields with every value set to DefaultPresetValue.
func DefaultPresetFields() PresetFields {
	var f PresetFields
	for _, p := range f.pointers() {
		*p = DefaultPresetValue
	}
	return f
}

func (f *PresetFields) pointers() []*int64 {
	return []*int64{
		&f.GrowthRate,
		&f.MaxSize,
		&f.SeedCastDistance,
		&f.SeedNumber,
		&f.SeedViability,
		&f.GrazerEnergyInput,
		&f.GrazerEnergyOutput,
		&f.GrazerEnergyReproduce,
		&f.GrazerMaintainSpeed,
		&f.GrazerMaxSpeed,
		&f.PredatorMaxSpeedStalk,
		&f.PredatorMaxSpeedChase,
		&f.PredatorMaxSpeedAmbush,
		&f.PredatorMaintainSpeed,
		&f.PredatorEnergyOutput,
		&f.PredatorEnergyReproduce,
		&f.MaxOffspring,
		&f.Gestation,
		&f.OffspringEnergy,
	}
}

// Values returns the field values in PresetFieldNames order.
func (f PresetFields) Values() []int64 {
	ptrs := f.pointers()
	out := make([]int64, len(ptrs))
	for i, p := range ptrs {
		out[i] = *p
	}
	return out
}

// Apply overlays the given values by key onto f. Keys that are not tuning
// fields are ignored.
func (f *PresetFields) Apply(values map[string]int64) {
	ptrs := f.pointers()
	for i, name := range PresetFieldNames {
		if v, ok := values[name]; ok {
			*ptrs[i] = v
		}
	}
}

// PresetFieldsFrom builds defaulted fields and overlays the provided values.
func PresetFieldsFrom(values map[string]int64) PresetFields {
	f := DefaultPresetFields()
	f.Apply(values)
	return f
}

// InstructorPreset is a named bundle of tuning values. Names are not unique.
type InstructorPreset struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
	PresetFields
}

// PresetInput is a partially populated preset submission. Fields missing
// from Values take DefaultPresetValue.
type PresetInput struct {
	Name   string
	Values map[string]int64
}

// Preset returns the record to persist (without an ID).
func (in PresetInput) Preset() InstructorPreset {
	return InstructorPreset{Name: NormalizeName(in.Name), PresetFields: PresetFieldsFrom(in.Values)}
}

// SortPresets orders presets by name, then by ID.
func SortPresets(ps []InstructorPreset) {
	sort.SliceStable(ps, func(i, j int) bool {
		if ps[i].Name == ps[j].Name {
			return ps[i].ID < ps[j].ID
		}
		return ps[i].Name < ps[j].Name
	})
}
