package main

import (
	"os"

	"github.com/bidwise/rfp-analyzer/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
