// Command covdash serves the coverage telemetry dashboard and drives the
// coverage backend from the command line.
package main

import (
	"os"

	"github.com/banshee-data/coverage.report/internal/fsutil"
)

func main() {
	if err := newRootCmd(fsutil.OSFileSystem{}).Execute(); err != nil {
		os.Exit(1)
	}
}
