package main

import (
	"os"

	"github.com/psantana5/frc/cmd/frc/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
