package main

import (
	"os"

	"workpace/cmd/workpace/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
