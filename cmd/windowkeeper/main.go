package main

import (
	"os"

	"github.com/solatis/windowkeeper/cmd/windowkeeper/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
