package main

import (
	"os"

	"github.com/orgledger/orgledger/pkg/configuration"
)

func main() {
	defer configuration.Use().Unload()
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
