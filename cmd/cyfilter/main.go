// Command cyfilter compiles GraphQL-style filter objects into Cypher.
//
// Usage:
//
//	cyfilter compile <entity> <filter> [--schema path] [--strategy auto|general|optimized] [--db path]
//	cyfilter validate <entity> <filter> [--schema path]
//	cyfilter schema [path]
//	cyfilter history [--db path] [--entity name] [--limit n]
//
// Configuration is read from cyfilter.yaml (discovered up to the repository
// root) and CYFILTER_* environment variables.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/cyfilter/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
