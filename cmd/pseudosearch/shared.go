package main

import (
	"fmt"
	"os"

	dslog "github.com/grafana/dskit/log"
	"gopkg.in/yaml.v2"

	"github.com/grafana/bleichenbacher-fakeprimes/pseudoprimes"
	"github.com/grafana/bleichenbacher-fakeprimes/residue"
)

// fileConfig is the YAML-backed config this binary reads before flags
// are applied on top, the same two-layer approach the teacher's
// cmd/tempo/main.go uses (config file for the bulk of the settings,
// flags for per-invocation overrides).
type fileConfig struct {
	Modulus         uint64    `yaml:"modulus"`
	R               []uint64  `yaml:"r"`
	BloomBits       uint64    `yaml:"bloom_bits"`
	BloomHashes     int       `yaml:"bloom_hashes"`
	Tasks           int       `yaml:"tasks"`
	Pin             bool      `yaml:"pin"`
	CandidateShards int       `yaml:"candidate_shards"`
	Bases           []int64   `yaml:"bases"`
	MinVerifyBits   int       `yaml:"min_verify_bits"`
	LogLevel        dslog.Level `yaml:"log_level"`
	LogFormat       string    `yaml:"log_format"`
	MetricsAddr     string    `yaml:"metrics_addr"`
}

func defaultFileConfig() fileConfig {
	var lvl dslog.Level
	_ = lvl.Set("info")
	return fileConfig{
		Modulus:   residue.Modulus,
		LogLevel:  lvl,
		LogFormat: "logfmt",
	}
}

func loadFileConfig(path string) (fileConfig, error) {
	cfg := defaultFileConfig()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}

// pipelineConfig derives the run's pseudoprimes.Config. If an explicit
// 64-element R wasn't supplied, it's reconstructed via residue.Build,
// matching spec.md §6's framing of R as an external input with
// residue.Build as the supplemental fallback (SPEC_FULL.md §5).
func (c fileConfig) pipelineConfig() (pseudoprimes.Config, error) {
	var t1, t2 []uint64
	if len(c.R) == 64 {
		var r [64]uint64
		copy(r[:], c.R)
		a, b := residue.Split(r)
		t1, t2 = a[:], b[:]
	} else if len(c.R) != 0 {
		return pseudoprimes.Config{}, fmt.Errorf("r must have exactly 64 elements, got %d", len(c.R))
	} else {
		r, err := residue.Build()
		if err != nil {
			return pseudoprimes.Config{}, fmt.Errorf("deriving residue set: %w", err)
		}
		a, b := residue.Split(r)
		t1, t2 = a[:], b[:]
	}

	return pseudoprimes.Config{
		M:               c.Modulus,
		T1:              t1,
		T2:              t2,
		BloomBits:       c.BloomBits,
		BloomHashes:     c.BloomHashes,
		Tasks:           c.Tasks,
		Pin:             c.Pin,
		CandidateShards: c.CandidateShards,
		Bases:           c.Bases,
		MinVerifyBits:   c.MinVerifyBits,
	}, nil
}
