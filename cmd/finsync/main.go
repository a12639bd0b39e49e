package main

import (
	"os"

	"github.com/finsync-labs/finsync-server/internal/adapters/driving/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
