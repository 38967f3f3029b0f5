// Copyright 2025 go-highway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fmv

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

// Environment variables read by LoadEnv.
const (
	// EnvNoSIMD forces every dispatched function onto its baseline variant.
	EnvNoSIMD = "FMV_NO_SIMD"

	// EnvDisable lists features to hide from dispatch, e.g. "avx512f,sve".
	EnvDisable = "FMV_DISABLE"

	// EnvMaxLevel caps detected capabilities at a dispatch level, e.g. "avx2".
	EnvMaxLevel = "FMV_MAX_LEVEL"
)

// EnvConfig is the environment's say over dispatch. It can only remove
// capabilities the probe reported, never add them.
type EnvConfig struct {
	NoSIMD   bool
	Disable  Caps
	MaxLevel DispatchLevel
	// HasMaxLevel is set when MaxLevel came from the environment.
	HasMaxLevel bool
}

// NoSimdEnv checks if FMV_NO_SIMD is set.
// Any non-empty value counts as true unless it parses as a false boolean.
func NoSimdEnv() bool {
	return parseNoSIMD(os.Getenv(EnvNoSIMD))
}

func parseNoSIMD(val string) bool {
	if val == "" {
		return false
	}
	if b, err := strconv.ParseBool(val); err == nil {
		return b
	}
	return true
}

// LoadEnv reads the FMV_* variables from the process environment.
// Malformed entries are reported in the error and otherwise ignored; the
// returned config is usable either way.
func LoadEnv() (EnvConfig, error) {
	return loadEnv(os.Getenv)
}

func loadEnv(getenv func(string) string) (EnvConfig, error) {
	var (
		cfg  EnvConfig
		errs []error
	)
	cfg.NoSIMD = parseNoSIMD(getenv(EnvNoSIMD))

	if v := getenv(EnvDisable); v != "" {
		c, err := ParseCaps(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvDisable, err))
		}
		cfg.Disable = c
	}

	if v := getenv(EnvMaxLevel); v != "" {
		level, ok := ParseLevel(v)
		if !ok {
			errs = append(errs, fmt.Errorf("%s: unknown dispatch level %q", EnvMaxLevel, v))
		} else {
			cfg.MaxLevel = level
			cfg.HasMaxLevel = true
		}
	}
	return cfg, errors.Join(errs...)
}

// Apply masks detected capabilities according to the config.
func (e EnvConfig) Apply(detected Caps) Caps {
	if e.NoSIMD {
		return Baseline
	}
	c := detected.Without(e.Disable)
	if e.HasMaxLevel {
		c = c.Intersect(e.MaxLevel.Caps())
	}
	return c
}

// IsZero reports whether the config leaves capabilities untouched.
func (e EnvConfig) IsZero() bool {
	return !e.NoSIMD && e.Disable.IsBaseline() && !e.HasMaxLevel
}
