package main

import (
	"os"

	"github.com/cmdshell/posh/cmd/posh/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
