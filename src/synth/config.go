package synth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("synth: invalid config")

const maxHarmonics = 2

// Harmonic is one overtone added above the fundamental.
type Harmonic struct {
	Ratio float64 `json:"ratio" yaml:"ratio"` // multiple of the fundamental
	Level float64 `json:"level" yaml:"level"` // 0-1
}

// Config holds the engine's tuning. Times are in ms.
type Config struct {
	SampleRate       int        `json:"sampleRate" yaml:"sampleRate"`
	BaseFreq         float64    `json:"baseFreq" yaml:"baseFreq"`
	MaxPolyphony     int        `json:"maxPolyphony" yaml:"maxPolyphony"`
	Attack           float64    `json:"attack" yaml:"attack"`
	Decay            float64    `json:"decay" yaml:"decay"`
	SustainRatio     float64    `json:"sustainRatio" yaml:"sustainRatio"` // 0-1
	Release          float64    `json:"release" yaml:"release"`
	MinNoteDuration  float64    `json:"minNoteDuration" yaml:"minNoteDuration"`
	MaxNoteDuration  float64    `json:"maxNoteDuration" yaml:"maxNoteDuration"`
	ForceStopFade    float64    `json:"forceStopFade" yaml:"forceStopFade"`
	CleanupBuffer    float64    `json:"cleanupBuffer" yaml:"cleanupBuffer"`
	CompensationRamp float64    `json:"compensationRamp" yaml:"compensationRamp"`
	HarmonicLimit    float64    `json:"harmonicLimit" yaml:"harmonicLimit"` // Hz
	Harmonics        []Harmonic `json:"harmonics" yaml:"harmonics"`
	DefaultVolume    float64    `json:"defaultVolume" yaml:"defaultVolume"`
	PrewarmGain      float64    `json:"prewarmGain" yaml:"prewarmGain"`
	PrewarmDuration  float64    `json:"prewarmDuration" yaml:"prewarmDuration"`
	DisablePrewarm   bool       `json:"disablePrewarm" yaml:"disablePrewarm"`
}

// DefaultConfig ...
func DefaultConfig() Config {
	return Config{
		SampleRate:       48000,
		BaseFreq:         440,
		MaxPolyphony:     10,
		Attack:           3,
		Decay:            600,
		SustainRatio:     0.2,
		Release:          150,
		MinNoteDuration:  50,
		MaxNoteDuration:  10000,
		ForceStopFade:    5,
		CleanupBuffer:    100,
		CompensationRamp: 10,
		HarmonicLimit:    22000,
		Harmonics:        []Harmonic{{Ratio: 2, Level: 0.3}, {Ratio: 3, Level: 0.15}},
		DefaultVolume:    0.8,
		PrewarmGain:      0.001,
		PrewarmDuration:  30,
	}
}

// LoadConfig reads a JSON or YAML file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	bytes, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("could not read config %v: %w", path, err)
	}
	if errJSON := json.Unmarshal(bytes, &cfg); errJSON != nil {
		cfg = DefaultConfig()
		if errYaml := yaml.Unmarshal(bytes, &cfg); errYaml != nil {
			return cfg, fmt.Errorf("config %v could not be parsed as .json (%v) or .yml (%v)", path, errJSON, errYaml)
		}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate ...
func (c Config) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("%w: sampleRate must be positive", ErrInvalidConfig)
	case c.BaseFreq <= 0:
		return fmt.Errorf("%w: baseFreq must be positive", ErrInvalidConfig)
	case c.MaxPolyphony < 1:
		return fmt.Errorf("%w: maxPolyphony must be at least 1", ErrInvalidConfig)
	case c.Attack < 0 || c.Decay < 0 || c.Release <= 0:
		return fmt.Errorf("%w: attack and decay must not be negative, release must be positive", ErrInvalidConfig)
	case c.SustainRatio <= 0 || c.SustainRatio > 1:
		return fmt.Errorf("%w: sustainRatio must be in (0,1]", ErrInvalidConfig)
	case c.MinNoteDuration < 0:
		return fmt.Errorf("%w: minNoteDuration must not be negative", ErrInvalidConfig)
	case c.MaxNoteDuration-c.Release <= c.Attack+c.Decay:
		return fmt.Errorf("%w: maxNoteDuration leaves no room for attack, decay and the final fade", ErrInvalidConfig)
	case c.ForceStopFade <= 0 || c.CleanupBuffer < 0 || c.CompensationRamp < 0:
		return fmt.Errorf("%w: forceStopFade must be positive, cleanupBuffer and compensationRamp must not be negative", ErrInvalidConfig)
	case c.DefaultVolume < 0 || c.DefaultVolume > 1:
		return fmt.Errorf("%w: defaultVolume must be in [0,1]", ErrInvalidConfig)
	}
	if len(c.Harmonics) > maxHarmonics {
		return fmt.Errorf("%w: at most %d harmonics are allowed", ErrInvalidConfig, maxHarmonics)
	}
	for i, h := range c.Harmonics {
		if h.Ratio <= 1 || h.Level < 0 {
			return fmt.Errorf("%w: harmonic %d must have ratio > 1 and a non-negative level", ErrInvalidConfig, i)
		}
	}
	return nil
}

func ms(v float64) float64 {
	return v / 1000
}
