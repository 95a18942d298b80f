package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	Movement   Movement   `yaml:"movement"`
	Production Production `yaml:"production"`
	Log        Log        `yaml:"log"`
	TurnLog    TurnLog    `yaml:"turn_log"`
	Archive    Archive    `yaml:"archive"`
}

type Movement struct {
	// Sub-steps a turn of movement is divided into.
	Substeps int `yaml:"substeps"`
}

// Production holds the coefficients a species gets when its own production
// fields are unset.
type Production struct {
	PopulationPerR  int64 `yaml:"population_per_r"`
	MineralsPerM    int64 `yaml:"minerals_per_m"`
	MinesPerPop     int64 `yaml:"mines_per_pop"`
	FactoriesPerPop int64 `yaml:"factories_per_pop"`
}

type Log struct {
	Level string `yaml:"level"`
}

type TurnLog struct {
	// Hours covered by one turn log file.
	RotateHours int `yaml:"rotate_hours"`
}

type Archive struct {
	// Copy every Nth turn's snapshot into the archive. 0 disables archiving.
	EveryTurns int64 `yaml:"every_turns"`
}

func Default() Tuning {
	var t Tuning
	t.applyDefaults()
	return t
}

func (t *Tuning) applyDefaults() {
	if t.Movement.Substeps <= 0 {
		t.Movement.Substeps = 1000
	}
	if t.Production.PopulationPerR <= 0 {
		t.Production.PopulationPerR = 1000
	}
	if t.Production.MineralsPerM <= 0 {
		t.Production.MineralsPerM = 10
	}
	if t.Production.MinesPerPop <= 0 {
		t.Production.MinesPerPop = 10
	}
	if t.Production.FactoriesPerPop <= 0 {
		t.Production.FactoriesPerPop = 10
	}
	if t.Log.Level == "" {
		t.Log.Level = "info"
	}
	if t.TurnLog.RotateHours <= 0 {
		t.TurnLog.RotateHours = 1
	}
	if t.Archive.EveryTurns < 0 {
		t.Archive.EveryTurns = 0
	}
}

// Load reads a tuning file. Unset values take their defaults; an empty path
// returns Default().
func Load(path string) (Tuning, error) {
	if path == "" {
		return Default(), nil
	}
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.applyDefaults()
	return t, nil
}
