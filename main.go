package main

import (
	"os"

	"github.com/zeu5/snake-rl/commands"
)

// main entry point to the train, run and explore commands
func main() {
	rootCommand := commands.GetRootCommand()
	if err := rootCommand.Execute(); err != nil {
		os.Exit(1)
	}
}
