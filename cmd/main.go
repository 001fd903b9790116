package main

import (
	"os"

	"github.com/ST4RKiLLaX/lets-go-quizzing/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
