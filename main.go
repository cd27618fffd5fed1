package main

import (
	"os"

	"incus-autobackup/src/cli"
)

func main() {
	os.Exit(cli.Execute())
}
