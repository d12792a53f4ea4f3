package cmd

import (
	"github.com/bctak/delphino/internal/cfg"
	"github.com/bctak/delphino/internal/config"
	"github.com/bctak/delphino/internal/event"
	"github.com/bctak/delphino/internal/mcpserver"
	"github.com/bctak/delphino/internal/merge"
	"github.com/bctak/delphino/internal/scan"
	"github.com/bctak/delphino/internal/symbol"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Expose an analysis over the Model Context Protocol",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve <C source file>",
	Short: "Analyze a file and serve its call graphs as MCP tools over stdio",
	Args:  cobra.ExactArgs(1),
	RunE:  runMCPServe,
}

func init() {
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(c *cobra.Command, args []string) error {
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
	perFunc, err := cfg.BuildWithAbstainCap(funcs, neverCalls, cfgObj.Limits.AbstainCap)
	if err != nil {
		return formatErr(err)
	}
	merged := merge.Merge(perFunc, isUser)

	srv := mcpserver.New(path, merged, perFunc)
	return srv.ServeStdio()
}
