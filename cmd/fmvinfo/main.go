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

// Command fmvinfo prints what function multi-versioning sees on this host:
// the capabilities each probe detects, the FMV_* environment, and the
// variant every contrib/vec function resolves to.
package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type app struct {
	verbose bool
	logger  *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{logger: slog.New(slog.DiscardHandler)}
	root := &cobra.Command{
		Use:          "fmvinfo",
		Short:        "Inspect CPU capability detection and dispatch decisions",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if a.verbose {
				a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
			}
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log debug output to stderr")
	root.AddCommand(a.probeCmd(), a.resolveCmd(), a.envCmd())
	return root
}

var title = cases.Title(language.English)

func heading(w io.Writer, s string) {
	h := title.String(s)
	_, _ = io.WriteString(w, "== "+h+" ==\n")
}
