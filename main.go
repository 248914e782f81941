package main

import (
	"credit-decision-engine/internal/cli"
)

func main() {
	cli.Execute()
}
