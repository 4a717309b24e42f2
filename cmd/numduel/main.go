package main

import "github.com/mcoot/numduel/internal/cli"

func main() {
	cli.Execute()
}
