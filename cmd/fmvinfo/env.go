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

	"github.com/ajroetker/go-fmv/fmv"
	"github.com/spf13/cobra"
)

func (a *app) envCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Print the FMV_* environment and its effect on the host capabilities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := fmv.LoadEnv()
			if err != nil {
				a.logger.Warn("malformed environment", "error", err)
			}
			host, _ := fmv.HostProbe().Detect()

			w := cmd.OutOrStdout()
			heading(w, "dispatch environment")
			fmt.Fprintf(w, "%s=%v\n", fmv.EnvNoSIMD, env.NoSIMD)
			fmt.Fprintf(w, "%s=%s\n", fmv.EnvDisable, env.Disable)
			maxLevel := "unset"
			if env.HasMaxLevel {
				maxLevel = env.MaxLevel.String()
			}
			fmt.Fprintf(w, "%s=%s\n", fmv.EnvMaxLevel, maxLevel)
			fmt.Fprintf(w, "host:      %s\n", host)
			fmt.Fprintf(w, "effective: %s (level %s)\n", env.Apply(host), fmv.BestLevel(env.Apply(host)))
			if err != nil {
				fmt.Fprintf(w, "warning: %v\n", err)
			}
			return nil
		},
	}
}
