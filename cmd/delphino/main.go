// Package main is the entry point for the delphino CLI tool.
package main

import (
	"github.com/bctak/delphino/internal/cmd"
)

func main() {
	cmd.Execute()
}
