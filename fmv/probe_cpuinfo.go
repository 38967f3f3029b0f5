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
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
)

// DefaultCPUInfoPath is the Linux procfs file read by CPUInfoProbe.
const DefaultCPUInfoPath = "/proc/cpuinfo"

// errNoFeatureLine is returned when a cpuinfo listing has no line the
// parser knows how to read for the architecture.
var errNoFeatureLine = errors.New("no feature line found")

// cpuinfoKey returns the field name holding feature flags for arch.
func cpuinfoKey(arch string) (string, bool) {
	switch arch {
	case "386", "amd64":
		return "flags", true
	case "arm", "arm64":
		return "Features", true
	case "ppc64", "ppc64le":
		return "cpu", true
	default:
		return "", false
	}
}

// ParseCPUInfo extracts capabilities from a Linux /proc/cpuinfo listing
// written on a host of the given GOARCH. Each recognized flag contributes
// its implied set (see Implied), so "avx2" alone yields the whole SSE chain.
//
// Architectures without a known feature field yield Baseline and no error.
func ParseCPUInfo(r io.Reader, arch string) (Caps, error) {
	key, ok := cpuinfoKey(arch)
	if !ok {
		return Baseline, nil
	}

	var (
		c     Caps
		found bool
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		name, value, ok := strings.Cut(sc.Text(), ":")
		if !ok || strings.TrimSpace(name) != key {
			continue
		}
		found = true
		for _, item := range strings.Fields(value) {
			// POWER lists the CPU model on the "cpu" line with a trailing
			// ", altivec supported".
			item = strings.TrimSuffix(item, ",")
			if implied, ok := Implied(item); ok {
				c |= implied
			}
		}
	}
	if err := sc.Err(); err != nil {
		return Baseline, err
	}
	if !found {
		return Baseline, errNoFeatureLine
	}
	return c, nil
}

type cpuinfoProbe struct {
	path string
	arch string
}

func (p cpuinfoProbe) String() string { return "cpuinfo" }

func (p cpuinfoProbe) Detect() (Caps, error) {
	f, err := os.Open(p.path)
	if err != nil {
		return Baseline, err
	}
	defer f.Close()

	c, err := ParseCPUInfo(f, p.arch)
	if err != nil {
		return Baseline, fmt.Errorf("%s: %w", p.path, err)
	}
	return c, nil
}

// CPUInfoProbe returns a probe that parses a Linux cpuinfo file. An empty
// path means DefaultCPUInfoPath.
func CPUInfoProbe(path string) Probe {
	if path == "" {
		path = DefaultCPUInfoPath
	}
	return cpuinfoProbe{path: path, arch: runtime.GOARCH}
}

type stringListProbe struct {
	names  []string
	prefix string
}

func (p stringListProbe) String() string { return "strings" }

func (p stringListProbe) Detect() (Caps, error) {
	var c Caps
	for _, s := range p.names {
		s, ok := strings.CutPrefix(s, p.prefix)
		if !ok {
			continue
		}
		if implied, ok := Implied(s); ok {
			c |= implied
		}
	}
	return c, nil
}

// StringListProbe returns a probe built from feature names, for example
// command-line arguments like "--arch=avx2". Only names starting with prefix
// are considered; the prefix is stripped and unknown names are ignored.
func StringListProbe(names []string, prefix string) Probe {
	return stringListProbe{names: append([]string(nil), names...), prefix: prefix}
}
