package main

import (
	"os"

	"github.com/conneroisu/templit/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
