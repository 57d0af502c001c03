package main

import (
	"github.com/joho/godotenv"

	"ollamaui/logger"
)

func init() {
	// Load .env file before anything reads the environment
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file loaded", "err", err)
	}
}
