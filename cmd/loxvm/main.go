package main

import (
	"os"

	"github.com/funvibe/loxvm/pkg/cli"
)

func main() {
	os.Exit(cli.Run())
}
