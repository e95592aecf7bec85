package main

import (
	"os"

	_ "paritybit-setup/cmd"
	"paritybit-setup/cmd/root"
	"paritybit-setup/internal/logger"
)

func main() {
	if err := root.RootCmd.Execute(); err != nil {
		logger.Fatal(err)
	}
	os.Exit(0)
}
