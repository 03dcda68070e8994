package main

import (
	"os"

	"github.com/soundprediction/skls/cmd/skls"
)

func main() {
	if err := skls.Execute(); err != nil {
		os.Exit(1)
	}
}
