package main

import (
	"os"

	"github.com/xela07ax/mindtussle/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
