package main

import (
	"fmt"
	"os"

	"github.com/zjy-dev/covmerge/cmd/covmerge/app"
)

func main() {
	if err := app.NewCovmergeCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
