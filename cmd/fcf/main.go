// Package main is the fcf command line.
//
//	fcf valuate ./data/acme --ticker ACME
//	fcf batch ./data/acme ./data/globex --concurrency 4
package main

import (
	"os"

	"fcf_valuation/cmd/fcf/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
