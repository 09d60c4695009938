package main

import (
	"os"

	"github.com/leiwong/rpscan/cmd/rpscan/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
