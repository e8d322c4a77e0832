// Package config loads ARIA's tunable constants from a YAML file: a
// plain struct with yaml tags, read with gopkg.in/yaml.v3, defaulted
// when the file omits a section.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ariacore/aria/pkg/aria/model"
)

// Thresholds holds the tier cutoffs and decay floor.
type Thresholds struct {
	ShortMax  float64 `yaml:"short_max"`
	MediumMax float64 `yaml:"medium_max"`
	DecayMin  float64 `yaml:"decay_min"`
}

// DecayTier holds the interval (messages) and multiplicative rate for
// one tier.
type DecayTier struct {
	Interval uint64  `yaml:"interval"`
	Rate     float64 `yaml:"rate"`
}

// Decay holds the per-tier decay schedule.
type Decay struct {
	Short  DecayTier `yaml:"short"`
	Medium DecayTier `yaml:"medium"`
	Long   DecayTier `yaml:"long"`
}

// Reinforcement holds the base increment and ceiling for pair strength.
type Reinforcement struct {
	Base float64 `yaml:"base"`
	Max  float64 `yaml:"max"`
}

// Generator holds the response generator's tunable weights.
type Generator struct {
	MaxWords          int                `yaml:"max_words"`
	MinWords          int                `yaml:"min_words"`
	StrengthThreshold float64            `yaml:"strength_threshold"`
	Randomness        float64            `yaml:"randomness"`
	StartWeights      map[string]float64 `yaml:"start_weights"`
	MaxLengthChars    int                `yaml:"max_length_chars"`
}

// Config is the full set of tunables ARIA loads from a YAML file.
type Config struct {
	Thresholds           Thresholds    `yaml:"thresholds"`
	Decay                Decay         `yaml:"decay"`
	Reinforcement        Reinforcement `yaml:"reinforcement"`
	AdjacencyWindow      int           `yaml:"adjacency_window"`
	CategoryFloor        float64       `yaml:"category_floor"`
	MinOccurrencesForCat int           `yaml:"min_occurrences_for_category"`
	InertiaThreshold     int           `yaml:"inertia_threshold"`
	Generator            Generator     `yaml:"generator"`
}

// Default returns ARIA's built-in tunable values.
func Default() Config {
	return Config{
		Thresholds: Thresholds{
			ShortMax:  model.ShortMax,
			MediumMax: model.MediumMax,
			DecayMin:  model.DecayMin,
		},
		Decay: Decay{
			Short:  DecayTier{Interval: 50, Rate: 0.15},
			Medium: DecayTier{Interval: 200, Rate: 0.05},
			Long:   DecayTier{Interval: 1000, Rate: 0.01},
		},
		Reinforcement: Reinforcement{Base: 0.02, Max: 1.0},
		AdjacencyWindow:      2,
		CategoryFloor:        0.15,
		MinOccurrencesForCat: 2,
		InertiaThreshold:     3,
		Generator: Generator{
			MaxWords:          12,
			MinWords:          3,
			StrengthThreshold: 0.01,
			Randomness:        0.25,
			StartWeights: map[string]float64{
				"stable":       1.5,
				"transition":   1.0,
				"modifier":     0.7,
				"structural":   0.3,
				"unclassified": 0.5,
			},
			MaxLengthChars: 150,
		},
	}
}

// Load reads a YAML config file from path, falling back to Default()
// for any section the file omits entirely.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	loaded := Default()
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return Config{}, err
	}
	return loaded, nil
}
