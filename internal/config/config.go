// Package config loads and validates the Adjuster's tunables: the adj
// cut-off table, grace-window durations, cycle-retry bound, LRU ladder
// parameters, and two compatibility toggles for legacy behavior
// (full-pass-only scheduling, legacy freeze policy).
//
// Uses the same viper-backed YAML loading idiom and Config/Validate
// split as the rest of this module's configuration surface.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/khryptorgraphics/procadj/pkg/types"
)

// AdjusterConfig holds every tunable left as "configured" rather than
// fixed: capability gating, ladder parameters, cycle-retry bound, and
// compatibility toggles.
type AdjusterConfig struct {
	// AdjCutoffs is the fixed adj cut-off table backing the adj
	// priority index's slot assignment.
	AdjCutoffs []types.Adj `yaml:"adj_cutoffs"`

	// Grace windows.
	TopToFGSGrace        time.Duration `yaml:"top_to_fgs_grace"`
	AlmostPerceptibleGrace time.Duration `yaml:"almost_perceptible_grace"`
	MaxPreviousTime      time.Duration `yaml:"max_previous_time"`
	MaxServiceInactivity time.Duration `yaml:"max_service_inactivity"`
	RecentPerceptibleTimeout time.Duration `yaml:"recent_perceptible_timeout"`

	// Cycle handling.
	CycleRetryMax int `yaml:"cycle_retry_max"`

	// LRU cached-tier ladder.
	LadderMode                string `yaml:"ladder_mode"` // "tiered" | "distributed"
	UITierSize                int    `yaml:"ui_tier_size"`
	CachedDecayTime            time.Duration `yaml:"cached_decay_time"`
	CachedAppImportanceLevels int    `yaml:"cached_app_importance_levels"`
	CurMaxEmptyProcesses      int    `yaml:"cur_max_empty_processes"`
	CurMaxCachedProcesses     int    `yaml:"cur_max_cached_processes"`

	// Freezer policy: capability-based by default, legacy adj-threshold
	// fallback when enabled.
	LegacyFreezePolicy bool `yaml:"legacy_freeze_policy"`

	// Scheduling model: when true, every trigger forces a full pass and
	// partial updates are never used — the legacy sequential behavior,
	// entirely covered by this toggle rather than a second class tree.
	LegacyFullPassOnly bool `yaml:"legacy_full_pass_only"`

	// Platform-compat gate default: whether camera/microphone FGS types
	// must be explicitly declared to grant their capability bits. Real
	// deployments query a platform-compat collaborator per-app; this is
	// the default used when no collaborator is wired (e.g. in tests).
	CameraMicrophoneCapabilityDefault bool `yaml:"camera_microphone_capability_default"`
}

// Default returns the tunables this subsystem's tables and constants
// imply when nothing is overridden.
func Default() *AdjusterConfig {
	return &AdjusterConfig{
		TopToFGSGrace:            5 * time.Second,
		AlmostPerceptibleGrace:   30 * time.Second,
		MaxPreviousTime:          30 * time.Minute,
		MaxServiceInactivity:     30 * time.Minute,
		RecentPerceptibleTimeout: 2 * time.Second,
		CycleRetryMax:            10,
		LadderMode:               "tiered",
		UITierSize:               5,
		CachedDecayTime:          10 * time.Minute,
		CachedAppImportanceLevels: 5,
		CurMaxEmptyProcesses:     8,
		CurMaxCachedProcesses:    32,
		LegacyFreezePolicy:       false,
		LegacyFullPassOnly:       false,
		CameraMicrophoneCapabilityDefault: true,
	}
}

// Load reads an AdjusterConfig from a YAML file via viper, falling back
// to Default() for any field the file omits. viper merges over an
// already-populated struct is not automatic, so defaults are seeded
// into the struct before Unmarshal.
func Load(configFile string) (*AdjusterConfig, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigFile(configFile)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", configFile, err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal %s: %w", configFile, err)
	}
	if len(cfg.AdjCutoffs) == 0 {
		// Neither Default() nor a file without cut-offs sets this
		// table; priorityindex.NewAdjIndex substitutes
		// priorityindex.DefaultAdjCutoffs() for a nil table.
		cfg.AdjCutoffs = nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the tunables for internal consistency, one
// ValidationError per invalid field rather than failing on the first.
func (c *AdjusterConfig) Validate() error {
	var errs ValidationErrors

	if len(c.AdjCutoffs) > 0 {
		for i := 1; i < len(c.AdjCutoffs); i++ {
			if c.AdjCutoffs[i] < c.AdjCutoffs[i-1] {
				errs = append(errs, ValidationError{
					Field:   "adj_cutoffs",
					Value:   c.AdjCutoffs,
					Message: "must be sorted ascending",
				})
				break
			}
		}
	}
	if c.CycleRetryMax < 1 {
		errs = append(errs, ValidationError{Field: "cycle_retry_max", Value: c.CycleRetryMax, Message: "must be >= 1"})
	}
	if c.TopToFGSGrace < 0 || c.MaxPreviousTime < 0 || c.MaxServiceInactivity < 0 || c.AlmostPerceptibleGrace < 0 {
		errs = append(errs, ValidationError{Field: "grace_windows", Value: nil, Message: "grace windows must be non-negative"})
	}
	if c.LadderMode != "tiered" && c.LadderMode != "distributed" {
		errs = append(errs, ValidationError{Field: "ladder_mode", Value: c.LadderMode, Message: "must be 'tiered' or 'distributed'"})
	}
	if c.UITierSize < 0 {
		errs = append(errs, ValidationError{Field: "ui_tier_size", Value: c.UITierSize, Message: "must be >= 0"})
	}
	if c.CurMaxEmptyProcesses < 0 || c.CurMaxCachedProcesses < 0 {
		errs = append(errs, ValidationError{Field: "distributed_ladder", Value: nil, Message: "process counts must be >= 0"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
