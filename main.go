// main is the entry point for the kpiroll CLI.
package main

import (
	"github.com/huangsam/kpiroll/cmd"
	"github.com/huangsam/kpiroll/internal/contract"
)

func main() {
	defer cmd.Shutdown()
	if err := cmd.Execute(); err != nil {
		cmd.Shutdown()
		contract.LogFatal("Command failed", err)
	}
}
