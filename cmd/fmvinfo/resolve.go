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
	"text/tabwriter"

	"github.com/ajroetker/go-fmv/fmv"
	"github.com/ajroetker/go-fmv/fmv/contrib/vec"
	"github.com/spf13/cobra"
)

func (a *app) resolveCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve every contrib/vec function and print the chosen variant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// A private registry so that --verbose shows its seal and
			// resolution log lines.
			reg, err := vec.NewRegistry(fmv.WithLogger(a.logger), fmv.WithRequireFallback())
			if err != nil {
				return err
			}
			detected, err := reg.Detected()
			if err != nil {
				return err
			}
			resolveErr := reg.ResolveAll()
			a.logger.Debug("resolved registry", "detected", detected, "error", resolveErr)

			w := cmd.OutOrStdout()
			heading(w, "detected "+detected.String())
			return printFuncs(cmd, reg.Funcs(), all, resolveErr)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "list every registered variant, not just the selected one")
	return cmd
}

// printFuncs writes one row per function, or with all one row per variant
// with the selected one starred.
func printFuncs(cmd *cobra.Command, funcs []fmv.FuncInfo, all bool, resolveErr error) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FUNCTION\tSTATE\tVARIANT\tREQUIRES")
	for _, f := range funcs {
		switch {
		case f.Err != nil:
			fmt.Fprintf(tw, "%s\t%s\t-\t%v\n", f.Name, f.State, f.Err)
		case all:
			for _, v := range f.Variants {
				mark := ""
				if f.State == fmv.Resolved && v.Priority == f.Selected.Priority {
					mark = "*"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s%s\t%s\n", f.Name, f.State, v.Name, mark, v.Requires)
			}
		default:
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.Name, f.State, f.Selected.Name, f.Selected.Requires)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	return resolveErr
}
