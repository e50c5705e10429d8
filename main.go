package main

import (
	"os"

	"ccargo/internal/cmd"
)

const ccargoVersion = "0.1.0"

func main() {
	os.Exit(cmd.RunWithArgs(os.Args[1:], ccargoVersion))
}
