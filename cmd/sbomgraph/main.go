// Command sbomgraph merges SBOM dependency graphs.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/sbomgraph/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintf(os.Stderr, "Error [%s]: %v\n", cli.ErrCodeGeneric, err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
