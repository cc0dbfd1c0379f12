// Package main is the entry point for the agentgate CLI.
package main

import (
	"os"

	"github.com/agentgate/agentgate/cmd/agentgate/app"
	"github.com/agentgate/agentgate/pkg/logger"
)

func main() {
	// Initialize the logger
	logger.Initialize()

	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
