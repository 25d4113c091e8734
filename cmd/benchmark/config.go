package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/urfave/cli/v3"
)

type benchConfig struct {
	Widths    []int
	Depths    []int
	Items     []int
	Iters     int
	Scenarios []string
}

func defaultConfig() benchConfig {
	return benchConfig{
		Widths:    []int{1, 10, 100},
		Depths:    []int{1, 10, 100},
		Items:     []int{10, 100, 1_000},
		Iters:     100,
		Scenarios: []string{"propagate", "rebind", "reconcile", "emit"},
	}
}

type fileConfig struct {
	Widths    []int    `toml:"widths"`
	Depths    []int    `toml:"depths"`
	Items     []int    `toml:"items"`
	Iters     int      `toml:"iters"`
	Scenarios []string `toml:"scenarios"`
}

// loadConfig overlays the keys present in a TOML file on the defaults.
func loadConfig(path string) (benchConfig, error) {
	cfg := defaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return benchConfig{}, fmt.Errorf("load benchmark config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return benchConfig{}, fmt.Errorf("load benchmark config: unknown keys %v", undecoded)
	}

	if meta.IsDefined("widths") {
		cfg.Widths = raw.Widths
	}
	if meta.IsDefined("depths") {
		cfg.Depths = raw.Depths
	}
	if meta.IsDefined("items") {
		cfg.Items = raw.Items
	}
	if meta.IsDefined("iters") {
		cfg.Iters = raw.Iters
	}
	if meta.IsDefined("scenarios") {
		cfg.Scenarios = normalizeScenarios(raw.Scenarios)
	}
	return cfg, cfg.validate()
}

// resolveConfig applies defaults, then the config file, then flags that were
// set explicitly.
func resolveConfig(cmd *cli.Command) (benchConfig, error) {
	cfg := defaultConfig()
	if path := cmd.String(configKey); path != "" {
		var err error
		if cfg, err = loadConfig(path); err != nil {
			return benchConfig{}, err
		}
	}
	if cmd.IsSet(widthKey) {
		cfg.Widths = []int{int(cmd.Uint(widthKey))}
	}
	if cmd.IsSet(depthKey) {
		cfg.Depths = []int{int(cmd.Uint(depthKey))}
	}
	if cmd.IsSet(itemsKey) {
		cfg.Items = []int{int(cmd.Uint(itemsKey))}
	}
	if cmd.IsSet(itersKey) || cmd.String(configKey) == "" {
		cfg.Iters = int(cmd.Uint(itersKey))
	}
	if cmd.IsSet(scenarioKey) {
		cfg.Scenarios = normalizeScenarios(cmd.StringSlice(scenarioKey))
	}
	return cfg, cfg.validate()
}

func normalizeScenarios(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" && !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	return out
}

func (c benchConfig) validate() error {
	if c.Iters <= 0 {
		return fmt.Errorf("iters must be positive, got %d", c.Iters)
	}
	for _, sizes := range [][]int{c.Widths, c.Depths, c.Items} {
		for _, n := range sizes {
			if n <= 0 {
				return fmt.Errorf("sizes must be positive, got %d", n)
			}
		}
	}
	for _, name := range c.Scenarios {
		if _, ok := scenarioByName[name]; !ok {
			return fmt.Errorf("unknown scenario %q", name)
		}
	}
	return nil
}

func (c benchConfig) scenarios() []scenario {
	out := make([]scenario, 0, len(c.Scenarios))
	for _, name := range c.Scenarios {
		out = append(out, scenarioByName[name])
	}
	return out
}

// warmup is c shrunk to one small case per scenario.
func (c benchConfig) warmup() benchConfig {
	return benchConfig{
		Widths:    c.Widths[:min(1, len(c.Widths))],
		Depths:    c.Depths[:min(1, len(c.Depths))],
		Items:     c.Items[:min(1, len(c.Items))],
		Iters:     min(c.Iters, 10),
		Scenarios: c.Scenarios,
	}
}
