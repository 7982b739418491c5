package main

import (
	"os"

	"multicam/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
