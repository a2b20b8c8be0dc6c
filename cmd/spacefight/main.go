package main

import (
	"github.com/legionlabs/spacefight-server/internal/cli"
)

func main() {
	cli.Execute()
}
