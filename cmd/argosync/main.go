// Command argosync is operator tooling for the localization sync store.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/argosync/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
