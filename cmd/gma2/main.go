package main

import (
	"os"

	"github.com/chienchuanw/gma2-mcp/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
