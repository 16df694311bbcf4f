// Command grimoire enriches ability catalogs from game reference tables.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/grimoire/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "grimoire: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
