package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/Pragadeesh-19/replica-db/cmd"
)

func main() {
	_ = godotenv.Load()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
