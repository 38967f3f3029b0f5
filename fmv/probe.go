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
	"strings"
	"sync"
	"sync/atomic"
)

// Probe reports the instruction-set extensions of the running host.
//
// Detect may be called concurrently by racing first callers of a Detector;
// it must return the same answer each time.
type Probe interface {
	Detect() (Caps, error)
}

// ProbeFunc adapts a function to the Probe interface.
type ProbeFunc func() (Caps, error)

// Detect calls f.
func (f ProbeFunc) Detect() (Caps, error) { return f() }

type staticProbe Caps

func (p staticProbe) Detect() (Caps, error) { return Caps(p), nil }
func (p staticProbe) String() string        { return "static" }

// StaticProbe returns a probe that always reports c. It is meant for tests
// and for pinning dispatch in reproducible benchmarks.
func StaticProbe(c Caps) Probe { return staticProbe(c) }

type hostProbe struct{}

func (hostProbe) Detect() (Caps, error) { return detectHost(), nil }
func (hostProbe) String() string        { return "host" }

// HostProbe returns the probe backed by golang.org/x/sys/cpu.
func HostProbe() Probe { return hostProbe{} }

type firstOf []Probe

func (ps firstOf) Detect() (Caps, error) {
	var errs []error
	for _, p := range ps {
		c, err := p.Detect()
		if err == nil {
			return c, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return Baseline, errors.New("no probes configured")
	}
	return Baseline, errors.Join(errs...)
}

func (ps firstOf) String() string {
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = probeName(p)
	}
	return strings.Join(names, ",")
}

// FirstOf returns a probe that tries each probe in turn and reports the
// first success. If all fail, their errors are joined.
func FirstOf(probes ...Probe) Probe { return firstOf(probes) }

func probeName(p Probe) string {
	if s, ok := p.(fmt.Stringer); ok {
		return s.String()
	}
	return "capability"
}

// Detector memoizes a probe's answer. The first Detect runs the probe, masks
// the result with the environment config, and publishes it; every later call
// returns the published value. A probe failure is memoized the same way.
type Detector struct {
	probe Probe
	env   *EnvConfig
	cell  atomic.Pointer[detection]
}

type detection struct {
	caps Caps
	err  error
}

// NewDetector returns a Detector over probe. A nil env leaves detected
// capabilities unmasked.
func NewDetector(probe Probe, env *EnvConfig) *Detector {
	return &Detector{probe: probe, env: env}
}

// Detect returns the memoized capabilities of the host.
//
// Concurrent first callers may each run the probe. That is harmless: probes
// are deterministic, so whichever result is published first is the result
// every caller would have computed. CompareAndSwap makes the first publish
// win, and the record is fully built before its pointer becomes visible.
func (d *Detector) Detect() (Caps, error) {
	if r := d.cell.Load(); r != nil {
		return r.caps, r.err
	}
	r := d.run()
	if !d.cell.CompareAndSwap(nil, r) {
		r = d.cell.Load()
	}
	return r.caps, r.err
}

func (d *Detector) run() *detection {
	if d.probe == nil {
		return &detection{err: &ProbeError{Source: "capability", Err: errors.New("no probe configured")}}
	}
	c, err := d.probe.Detect()
	if err != nil {
		var pe *ProbeError
		if !errors.As(err, &pe) {
			err = &ProbeError{Source: probeName(d.probe), Err: err}
		}
		return &detection{err: err}
	}
	if d.env != nil {
		c = d.env.Apply(c)
	}
	return &detection{caps: c}
}

// Detected reports whether Detect has completed.
func (d *Detector) Detected() bool {
	return d.cell.Load() != nil
}

// Probe returns the underlying probe.
func (d *Detector) Probe() Probe { return d.probe }

// Env returns the environment config applied to detected capabilities, or
// nil if none.
func (d *Detector) Env() *EnvConfig { return d.env }

var processDetector = sync.OnceValues(func() (*Detector, error) {
	env, err := LoadEnv()
	return NewDetector(HostProbe(), &env), err
})

// DefaultDetector returns the process-wide detector: the host probe masked
// by the FMV_* environment variables. The error reports malformed
// environment entries; the detector is usable regardless.
func DefaultDetector() (*Detector, error) {
	return processDetector()
}

// Detected returns the process-wide detected capabilities.
func Detected() (Caps, error) {
	d, _ := processDetector()
	return d.Detect()
}
