package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/bctak/delphino/internal/syscallmap"
	"github.com/spf13/cobra"
)

var syscallsGraphPath string

var syscallsCmd = &cobra.Command{
	Use:   "syscalls <glibc symbol>",
	Short: "List the syscall(NNN) forms a glibc symbol transitively reaches",
	Long: `syscalls reads a glibc caller/callee text file (the "caller: callee"
form the C library's own build produces for its internal call graph)
and reports every syscall(NNN) leaf reachable from the given symbol.`,
	Args: cobra.ExactArgs(1),
	RunE: runSyscalls,
}

func init() {
	syscallsCmd.Flags().StringVar(&syscallsGraphPath, "graph", "", "path to a glibc caller/callee text file (required)")
	rootCmd.AddCommand(syscallsCmd)
}

func runSyscalls(c *cobra.Command, args []string) error {
	if syscallsGraphPath == "" {
		return fmt.Errorf("--graph is required: path to a glibc caller/callee text file")
	}
	data, err := os.ReadFile(syscallsGraphPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", syscallsGraphPath, err)
	}

	g := syscallmap.Parse(string(data))
	resolver := syscallmap.NewResolver(g)

	syscalls := resolver.Syscalls(args[0])
	names := make([]string, 0, len(syscalls))
	for n := range syscalls {
		names = append(names, n)
	}
	sort.Strings(names)

	if len(names) == 0 {
		fmt.Fprintf(c.OutOrStdout(), "%s reaches no syscall(NNN) leaf\n", args[0])
		return nil
	}
	for _, n := range names {
		fmt.Fprintln(c.OutOrStdout(), n)
	}
	return nil
}
