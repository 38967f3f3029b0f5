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
	"log/slog"
)

// Option configures a Registry.
type Option func(*config) error

type config struct {
	probe    Probe
	detector *Detector
	selector SelectFunc

	// logger is nil when logging is disabled.
	logger *slog.Logger

	requireFallback     bool
	specializationOrder bool
	ignoreEnv           bool
}

// WithProbe makes the registry detect capabilities with p instead of the
// process-wide host detector. The FMV_* environment still applies unless
// WithoutEnv is also given.
func WithProbe(p Probe) Option {
	return func(c *config) error {
		if p == nil {
			return errors.New("fmv: nil probe")
		}
		c.probe = p
		return nil
	}
}

// WithDetector shares an existing detector between registries, so the probe
// runs once for all of them.
func WithDetector(d *Detector) Option {
	return func(c *config) error {
		if d == nil {
			return errors.New("fmv: nil detector")
		}
		c.detector = d
		return nil
	}
}

// WithLogger sets the structured logger. Without it the registry is silent.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) error {
		c.logger = l
		return nil
	}
}

// WithSelector replaces SelectIndex. The function must be pure; see SelectFunc.
func WithSelector(s SelectFunc) Option {
	return func(c *config) error {
		if s == nil {
			return errors.New("fmv: nil selector")
		}
		c.selector = s
		return nil
	}
}

// WithRequireFallback makes Seal reject any function without a Baseline
// variant, so resolution can never fail with ErrNoViableVariant.
func WithRequireFallback() Option {
	return func(c *config) error {
		c.requireFallback = true
		return nil
	}
}

// WithSpecializationOrder makes Seal sort each function's variants by
// descending requirement value instead of keeping registration order. Since
// wider extensions occupy higher bits, this puts e.g. AVX-512 ahead of AVX2
// ahead of SSE2 ahead of Baseline. Ties keep registration order.
func WithSpecializationOrder() Option {
	return func(c *config) error {
		c.specializationOrder = true
		return nil
	}
}

// WithoutEnv ignores the FMV_* environment variables. It only affects
// registries that build their own detector.
func WithoutEnv() Option {
	return func(c *config) error {
		c.ignoreEnv = true
		return nil
	}
}

func (c *config) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}

// buildDetector resolves probe/detector/env options into one detector.
func (c *config) buildDetector() error {
	switch {
	case c.detector != nil && c.probe != nil:
		return errors.New("fmv: WithProbe and WithDetector are mutually exclusive")
	case c.detector != nil:
		return nil
	case c.probe != nil:
		if c.ignoreEnv {
			c.detector = NewDetector(c.probe, nil)
			return nil
		}
		env, err := LoadEnv()
		if err != nil {
			c.log().Warn("fmv: ignoring malformed environment", "error", err)
		}
		c.detector = NewDetector(c.probe, &env)
		return nil
	case c.ignoreEnv:
		c.detector = NewDetector(HostProbe(), nil)
		return nil
	default:
		d, err := DefaultDetector()
		if err != nil {
			c.log().Warn("fmv: ignoring malformed environment", "error", err)
		}
		c.detector = d
		return nil
	}
}
