// Command shapectl replays shape mutation scripts and reports the resulting
// layouts and engine statistics.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}
