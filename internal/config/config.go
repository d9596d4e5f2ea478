// Package config loads the optimizer's INI run configuration and its
// YAML vehicle-type registry.
package config

import (
	"fmt"
	"strings"

	"gopkg.in/ini.v1"

	"stationelectrify/internal/optimizererrors"
	"stationelectrify/internal/search"
)

// Config is the fully parsed, typed run configuration. Unknown keys in
// any known section are rejected rather than silently ignored, so a
// typo in an INI file fails loudly instead of quietly using a default.
type Config struct {
	DebugLevel int

	ExclusionRotations []string
	ExclusionStations  []string
	InclusionStations  []string

	BatteryCapacityKWh float64
	ChargingPowerKW    float64
	ChargingEfficiency float64

	Solver               string
	OptType              string
	RebaseScenario       bool
	RemoveImpossibleRots bool
	NodeChoice           string
	MaxBruteLoop         int

	ReduceRotations bool
	Rotations       []string
}

var knownKeys = map[string]map[string]bool{
	"DEFAULT": {"debug_level": true},
	"SCENARIO": {
		"exclusion_rots": true, "exclusion_stations": true, "inclusion_stations": true,
	},
	"VEHICLE": {
		"battery_capacity": true, "charging_curve": true, "charging_power": true, "charge_eff": true,
	},
	"OPTIMIZER": {
		"solver": true, "opt_type": true, "rebase_scenario": true,
		"remove_impossible_rots": true, "node_choice": true, "max_brute_loop": true,
	},
	"SPECIAL": {"reduce_rots": true, "rots": true},
}

// Load parses path as an INI run configuration.
func Load(path string) (*Config, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, optimizererrors.Wrap(optimizererrors.KindInvalidConfig, "read ini file", err)
	}

	for _, section := range file.Sections() {
		name := section.Name()
		allowed, known := knownKeys[name]
		if name == ini.DefaultSection {
			allowed, known = knownKeys["DEFAULT"], true
		}
		if !known {
			continue
		}
		for _, key := range section.Keys() {
			if !allowed[key.Name()] {
				return nil, optimizererrors.New(optimizererrors.KindInvalidConfig, fmt.Sprintf("unknown config key %s.%s", name, key.Name()))
			}
		}
	}

	cfg := &Config{}
	def := file.Section(ini.DefaultSection)
	cfg.DebugLevel = def.Key("debug_level").MustInt(0)

	sc := file.Section("SCENARIO")
	cfg.ExclusionRotations = splitList(sc.Key("exclusion_rots").String())
	cfg.ExclusionStations = splitList(sc.Key("exclusion_stations").String())
	cfg.InclusionStations = splitList(sc.Key("inclusion_stations").String())

	veh := file.Section("VEHICLE")
	cfg.BatteryCapacityKWh = veh.Key("battery_capacity").MustFloat64(0)
	cfg.ChargingPowerKW = veh.Key("charging_power").MustFloat64(0)
	cfg.ChargingEfficiency = veh.Key("charge_eff").MustFloat64(0.95)

	opt := file.Section("OPTIMIZER")
	cfg.Solver = opt.Key("solver").MustString("spiceev")
	cfg.OptType = opt.Key("opt_type").MustString("greedy")
	cfg.RebaseScenario = opt.Key("rebase_scenario").MustBool(false)
	cfg.RemoveImpossibleRots = opt.Key("remove_impossible_rots").MustBool(false)
	cfg.NodeChoice = opt.Key("node_choice").MustString("step-by-step")
	cfg.MaxBruteLoop = opt.Key("max_brute_loop").MustInt(20)

	special := file.Section("SPECIAL")
	cfg.ReduceRotations = special.Key("reduce_rots").MustBool(false)
	cfg.Rotations = splitList(special.Key("rots").String())

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.OptType != "greedy" && c.OptType != "deep" {
		return optimizererrors.New(optimizererrors.KindInvalidConfig, fmt.Sprintf("opt_type must be greedy or deep, got %q", c.OptType))
	}
	if c.NodeChoice != "step-by-step" && c.NodeChoice != "brute" {
		return optimizererrors.New(optimizererrors.KindInvalidConfig, fmt.Sprintf("node_choice must be step-by-step or brute, got %q", c.NodeChoice))
	}
	if c.MaxBruteLoop <= 0 {
		return optimizererrors.New(optimizererrors.KindInvalidConfig, "max_brute_loop must be positive")
	}
	return nil
}

// SearchMode translates OptType into the search package's Mode.
func (c *Config) SearchMode() search.Mode {
	if c.OptType == "deep" {
		return search.ModeDeep
	}
	return search.ModeGreedy
}

// SearchChooser translates NodeChoice into the search package's Chooser.
func (c *Config) SearchChooser() search.Chooser {
	if c.NodeChoice == "brute" {
		return search.ChooserBrute
	}
	return search.ChooserStepByStep
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
