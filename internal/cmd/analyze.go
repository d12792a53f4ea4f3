package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bctak/delphino/internal/cache"
	"github.com/bctak/delphino/internal/cfg"
	"github.com/bctak/delphino/internal/cgerr"
	"github.com/bctak/delphino/internal/config"
	"github.com/bctak/delphino/internal/event"
	"github.com/bctak/delphino/internal/frontend"
	"github.com/bctak/delphino/internal/history"
	"github.com/bctak/delphino/internal/merge"
	"github.com/bctak/delphino/internal/render"
	"github.com/bctak/delphino/internal/scan"
	"github.com/bctak/delphino/internal/symbol"
	"github.com/bctak/delphino/internal/symtab"
	"github.com/spf13/cobra"
)

var (
	flagGraphPerFunction bool
	flagGraphMerged      bool
	flagOutputName       string
	flagFormat           string
	flagListNeverCalls   bool
	flagNoCache          bool
	flagRecordHistory    bool
)

// registerAnalyzeFlags binds the root command's analysis flags: -g/-m/-o
// for the core render modes, plus --format and --list-never-calls.
func registerAnalyzeFlags(c *cobra.Command) {
	c.Flags().BoolVarP(&flagGraphPerFunction, "per-function", "g", false, "render every user function's per-function graph")
	c.Flags().BoolVarP(&flagGraphMerged, "merged", "m", false, "render the merged external-symbol graph")
	c.Flags().StringVarP(&flagOutputName, "output", "o", "", "output file (or prefix, for -g with more than one function)")
	c.Flags().StringVar(&flagFormat, "format", "", "render format: d2 or mermaid (default from config, else d2)")
	c.Flags().BoolVar(&flagListNeverCalls, "list-never-calls", false, "print the NeverCalls set and exit")
	c.Flags().BoolVar(&flagNoCache, "no-cache", false, "bypass the on-disk analysis cache")
	c.Flags().BoolVar(&flagRecordHistory, "record", false, "record this run in the history store")
}

// runAnalyze drives the full pipeline: Stage A (frontend) -> symbol
// classification -> Stage B (event) -> Stage C (cfg) -> Stage D
// (merge) -> render/history, in that order.
func runAnalyze(c *cobra.Command, args []string) error {
	path := args[0]

	cfgObj, err := config.Load(".")
	if err != nil {
		return err
	}

	dump, err := dumpWithCache(cfgObj, path)
	if err != nil {
		return formatErr(err)
	}

	table, err := symtabFor(cfgObj)
	if err != nil {
		return err
	}

	classifier := symbol.NewClassifier(table)
	s := scan.New(dump, path)
	extractor := event.NewExtractorWithLimit(classifier, cfgObj.Limits.MaxNesting)

	funcs, err := extractor.Extract(s)
	if err != nil {
		return formatErr(err)
	}

	isUser := func(n string) bool { return classifier.Classify(n) == symbol.User }
	isExternal := func(n string) bool { return classifier.Classify(n) == symbol.External }

	neverCalls := cfg.NeverCalls(funcs, isUser, isExternal)
	if flagListNeverCalls {
		return printNeverCalls(c, neverCalls)
	}

	perFunc, err := cfg.BuildWithAbstainCap(funcs, neverCalls, cfgObj.Limits.AbstainCap)
	if err != nil {
		return formatErr(attachWindow(err, s))
	}

	merged := merge.Merge(perFunc, isUser)

	if flagRecordHistory {
		if err := recordRun(path, merged, classifier.Externals()); err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not record history: %v\n", err)
		}
	}

	format := render.Format(flagFormat)
	if format == "" {
		format = render.Format(cfgObj.Render.Format)
	}
	opts := render.DefaultOptions()
	opts.Direction = cfgObj.Render.Direction
	opts.MaxNodes = cfgObj.Render.MaxNodes

	if !flagGraphPerFunction && !flagGraphMerged {
		flagGraphMerged = true
	}

	if flagGraphMerged {
		if err := renderMerged(c, merged, format, opts); err != nil {
			return err
		}
	}
	if flagGraphPerFunction {
		if err := renderPerFunction(c, perFunc, format, opts); err != nil {
			return err
		}
	}
	return nil
}

func frontendFor(cfgObj *config.Config) frontend.Frontend {
	return frontend.NewClang(cfgObj.Frontend.ClangBin, cfgObj.Frontend.ExtraArgs)
}

// dumpWithCache returns the AST dump for path, serving it from the
// on-disk cache when the source file's content, the configured clang
// binary name and the marshaled config all match a prior run's
// (internal/cache), and populating the cache on a miss. Only the dump
// is cached; the merged graph is not stored, so stages B-D run every
// time.
func dumpWithCache(cfgObj *config.Config, path string) (string, error) {
	fe := frontendFor(cfgObj)
	if flagNoCache || !cfgObj.Cache.Enabled {
		return fe.Dump(path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", &cgerr.InputError{Path: path, Err: err}
	}

	delphinoDir := cfgObj.Cache.Path
	if delphinoDir == "" {
		var err error
		delphinoDir, err = config.EnsureConfigDir(filepath.Dir(path))
		if err != nil {
			return fe.Dump(path)
		}
	}
	c, err := cache.Open(delphinoDir)
	if err != nil {
		return fe.Dump(path)
	}
	defer c.Close()

	cfgJSON, _ := json.Marshal(cfgObj)
	key := cache.Key(string(content), cfgObj.Frontend.ClangBin, string(cfgJSON))
	if entry, ok, err := c.Get(key); err == nil && ok {
		return entry.ASTDump, nil
	}

	dump, err := fe.Dump(path)
	if err != nil {
		return "", err
	}
	_ = c.Put(key, cache.Entry{FilePath: path, ASTDump: dump})
	return dump, nil
}

// symtabFor loads the external symbol table for classification,
// falling back to the bundled table when `nm` or the configured libc
// path is unavailable, so analysis still works in minimal containers.
func symtabFor(cfgObj *config.Config) (symbol.Table, error) {
	t, err := symtab.LoadNM(cfgObj.Frontend.LibcPath)
	if err != nil {
		return symtab.Bundled, nil
	}
	return t, nil
}

func printNeverCalls(c *cobra.Command, neverCalls map[string]bool) error {
	names := make([]string, 0, len(neverCalls))
	for n := range neverCalls {
		names = append(names, n)
	}
	sortStrings(names)
	for _, n := range names {
		fmt.Fprintln(c.OutOrStdout(), n)
	}
	return nil
}

func renderMerged(c *cobra.Command, merged *merge.MergedGraph, format render.Format, opts render.Options) error {
	nodes, edges := render.FromMergedGraph(merged)
	opts.Title = "merged external call graph"
	doc, err := render.Render(format, nodes, edges, opts)
	if err != nil {
		return err
	}
	return writeOutput(c, flagOutputName, doc)
}

func renderPerFunction(c *cobra.Command, perFunc map[string]*cfg.PerFunctionGraph, format render.Format, opts render.Options) error {
	names := make([]string, 0, len(perFunc))
	for n := range perFunc {
		names = append(names, n)
	}
	sortStrings(names)

	for _, name := range names {
		nodes, edges := render.FromPerFunctionGraph(perFunc[name])
		fnOpts := opts
		fnOpts.Title = name
		doc, err := render.Render(format, nodes, edges, fnOpts)
		if err != nil {
			return err
		}

		out := flagOutputName
		if out != "" && len(names) > 1 {
			out = fmt.Sprintf("%s.%s%s", out, name, extFor(format))
		} else if out != "" {
			out = out + extFor(format)
		}
		if err := writeOutput(c, out, doc); err != nil {
			return err
		}
	}
	return nil
}

func extFor(format render.Format) string {
	if format == render.FormatMermaid {
		return ".mmd"
	}
	return ".d2"
}

func writeOutput(c *cobra.Command, path, doc string) error {
	if path == "" {
		fmt.Fprintln(c.OutOrStdout(), doc)
		return nil
	}
	return os.WriteFile(path, []byte(doc), 0644)
}

// recordRun persists one completed analysis to the history store, in
// the same JSON edge-list shape internal/mcpserver transports.
// externals is the sorted snapshot of every symbol the run classified
// as External, stored alongside the graph so a later `history diff`
// can tell a genuine call-graph change apart from one caused by the
// symbol table itself changing underneath the tool.
func recordRun(path string, merged *merge.MergedGraph, externals []string) error {
	delphinoDir, err := config.EnsureConfigDir(filepath.Dir(path))
	if err != nil {
		return err
	}
	store, err := history.Open(delphinoDir)
	if err != nil {
		return err
	}
	defer store.Close()

	sortStrings(externals)
	edges := mergedEdgeList(merged)
	run := history.Run{
		FilePath:    path,
		NodeCount:   len(merged.Graph.Nodes()),
		EdgeCount:   len(edges),
		SymbolTable: marshalEdges(externals),
		MergedGraph: marshalEdges(edges),
	}
	return store.Record(run)
}

func mergedEdgeList(merged *merge.MergedGraph) []string {
	var out []string
	for _, from := range merged.Graph.Nodes() {
		for _, to := range merged.Graph.Successors(from) {
			out = append(out, from+"->"+to)
		}
	}
	sortStrings(out)
	return out
}

func marshalEdges(edges []string) string {
	data, err := json.Marshal(edges)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// attachWindow fills in a ParseStructureError's context window from
// the scanner when the raising stage couldn't: the graph builder sees
// only the event stream, but the line index its errors carry indexes
// into the same body line sequence the scanner measured.
func attachWindow(err error, s *scan.Scanner) error {
	if pse, ok := err.(*cgerr.ParseStructureError); ok && len(pse.Context) == 0 {
		pse.Context = s.ContextWindow(pse.Line, 3)
	}
	return err
}

// formatErr renders a cgerr.ParseStructureError with its context
// window attached, and every other error as-is.
func formatErr(err error) error {
	if pse, ok := err.(*cgerr.ParseStructureError); ok {
		return fmt.Errorf("%w\n%s", pse, pse.ContextWindow())
	}
	return err
}

func sortStrings(s []string) { sort.Strings(s) }
