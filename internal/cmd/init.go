package cmd

import (
	"fmt"

	"github.com/bctak/delphino/internal/config"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default .delphino/config.yaml in the current directory",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(c *cobra.Command, args []string) error {
	path, err := config.SaveDefault(".")
	if err != nil {
		return err
	}
	fmt.Fprintf(c.OutOrStdout(), "wrote %s\n", path)
	return nil
}
