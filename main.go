package main

import (
	"os"

	"tweet-verify/cmd"
	"tweet-verify/pkg/logger"
)

func main() {
	logger.InitDefault()
	err := cmd.NewRootCommand().Execute()
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}
