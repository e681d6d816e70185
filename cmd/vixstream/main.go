// Command vixstream is the CLI front end for the download engine: a
// cobra command tree (grounded on jmylchreest/tvarr's
// cmd/tvarr-ffmpegd/cmd root+subcommand layout) driving a Scheduler,
// with an optional Bubble Tea progress UI subscribing to the
// ProgressBus in place of the teacher's downloader.go progressModel.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
