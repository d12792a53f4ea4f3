// Package cmd contains every CLI command for delphino, the external-
// symbol merged-call-graph extractor. Each subcommand binds its flags
// to package-level vars and registers itself with rootCmd from its own
// init().
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Version is delphino's current version.
var Version = "0.1.0"

var (
	flagConfigPath string
	flagVerbose    bool
)

// rootCmd represents the bare `delphino <C source file>` invocation:
// positional source file, -g/-m/-o flags, plus the --format flag and
// subcommands for history/syscalls/mcp.
var rootCmd = &cobra.Command{
	Use:   "delphino <C source file>",
	Short: "Merged external-symbol call graph extractor for C translation units",
	Long: `delphino statically derives, from a C translation unit, a merged call
graph at the level of external (library) symbols: for a given program,
which external functions can follow which other external functions
along any feasible intra-procedural control-flow path, after
transitively inlining user-defined functions?

The pipeline:
  A. Obtain a flat AST dump from clang's -ast-dump front end.
  B. Recover a per-function, control-flow-aware ordered list of call
     events (if/else, switch, loops, break/continue/return, thread
     spawns).
  C. Convert each function's event list into a directed adjacency
     matrix over its callees, honoring branch joins, loop back-edges,
     fall-through, and early exits.
  D. Inline user functions and merge everything into a single graph
     whose vertices are only external symbols.

Examples:
  delphino main.c -m                       # render the merged graph
  delphino main.c -g -o out                # render every per-function graph, prefixed out.
  delphino main.c -m --format mermaid       # merged graph as a Mermaid document
  delphino main.c --list-never-calls        # print NeverCalls (debug visibility)
  delphino history main.c                   # show recorded analysis runs for main.c
  delphino syscalls read                    # syscalls reachable from a glibc symbol
  delphino mcp serve                        # expose the last analysis over MCP`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

// Execute runs the root command. Called once from cmd/delphino/main.go.
func Execute() {
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if flagVerbose {
			logFlags(cmd)
		}
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// logFlags prints every flag that was explicitly set on cmd, for
// --verbose diagnostics.
func logFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			fmt.Fprintf(os.Stderr, "flag: --%s=%s\n", f.Name, f.Value.String())
		}
	})
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "path to config file (not read: config is always loaded from the nearest .delphino/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose diagnostics")

	registerAnalyzeFlags(rootCmd)
}
