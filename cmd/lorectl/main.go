package main

import (
	"os"

	"github.com/Harshitk-cp/lorekeeper/internal/cli"
)

func main() {
	root := cli.NewRootCommand(cli.Connect)
	if err := root.Execute(); err != nil {
		root.PrintErrln("Error:", err)
		os.Exit(1)
	}
}
