// Command tokenctl validates and replays token ledger scenarios.
package main

import (
	"fmt"
	"os"

	"github.com/xraph/token/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
