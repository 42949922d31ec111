package main

import (
	"os"

	"github.com/snpixel/worldquant/cmd/alphagen/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
