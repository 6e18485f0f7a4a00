package main

import (
	"os"

	"github.com/bianoble/vault-scm/cmd/vault-scm/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(cmd.ExitCode(err))
	}
}
