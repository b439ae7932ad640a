package main

import (
	"pyth-observer/internal/cli"
)

func main() {
	cli.Execute()
}
