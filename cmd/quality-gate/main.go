// Command quality-gate evaluates performance test results against SLA
// thresholds and baselines.
package main

import (
	"os"

	"yqhp/quality-gate/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
