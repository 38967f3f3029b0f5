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

package main

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/ajroetker/go-fmv/fmv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var probeSources = []string{"host", "cpuid", "cpuinfo"}

type probeResult struct {
	source string
	caps   fmv.Caps
	err    error
}

func (a *app) probeCmd() *cobra.Command {
	var (
		source      string
		cpuinfoPath string
	)
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Print the capabilities each probe detects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sources := []string{source}
			if source == "all" {
				sources = probeSources
			}
			probes := make([]fmv.Probe, len(sources))
			for i, s := range sources {
				p, err := newProbe(s, cpuinfoPath)
				if err != nil {
					return err
				}
				probes[i] = p
			}

			results := a.runProbes(sources, probes)
			w := cmd.OutOrStdout()
			heading(w, fmt.Sprintf("%s/%s probes", runtime.GOOS, runtime.GOARCH))
			for _, r := range results {
				if r.err != nil {
					fmt.Fprintf(w, "%-8s error: %v\n", r.source, r.err)
					continue
				}
				fmt.Fprintf(w, "%-8s %-7s %s\n", r.source, fmv.BestLevel(r.caps), r.caps)
			}
			if vendor := fmv.CPUVendor(); vendor != "" {
				fmt.Fprintf(w, "vendor   %s\nbrand    %s\n", vendor, fmv.CPUBrand())
			}

			// A single explicitly requested probe that fails is a command failure.
			if len(results) == 1 && results[0].err != nil {
				return results[0].err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "host", "probe to run: "+strings.Join(probeSources, "|")+"|all")
	cmd.Flags().StringVar(&cpuinfoPath, "cpuinfo", fmv.DefaultCPUInfoPath, "path read by the cpuinfo probe")
	return cmd
}

func newProbe(source, cpuinfoPath string) (fmv.Probe, error) {
	switch source {
	case "host":
		return fmv.HostProbe(), nil
	case "cpuid":
		return fmv.CPUIDProbe(), nil
	case "cpuinfo":
		return fmv.CPUInfoProbe(cpuinfoPath), nil
	default:
		return nil, fmt.Errorf("unknown probe source %q (want %s or all)", source, strings.Join(probeSources, ", "))
	}
}

// runProbes runs every probe concurrently. Probe failures are reported in
// the results rather than cancelling the others.
func (a *app) runProbes(sources []string, probes []fmv.Probe) []probeResult {
	results := make([]probeResult, len(probes))
	var g errgroup.Group
	for i, p := range probes {
		g.Go(func() error {
			start := time.Now()
			c, err := p.Detect()
			results[i] = probeResult{source: sources[i], caps: c, err: err}
			a.logger.Debug("probe finished", "source", sources[i], "caps", c, "elapsed", time.Since(start), "error", err)
			return nil
		})
	}
	_ = g.Wait()
	return results
}
